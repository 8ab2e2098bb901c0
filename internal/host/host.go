// Package host runs a guest module: it owns the render backend, the input
// queue and the preload store, exposes them to the guest as imports and
// drives the frame loop.
package host

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/internal/input"
	"github.com/woxQAQ/canvas-host/internal/metrics"
	"github.com/woxQAQ/canvas-host/internal/preload"
	"github.com/woxQAQ/canvas-host/internal/render"
	"github.com/woxQAQ/canvas-host/internal/wasm"
)

// State is the lifecycle state of a Host.
type State int

const (
	StateUninitialized State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Options configures a Host.
type Options struct {
	Logger  *zap.Logger
	Runtime *wasm.Runtime
	// ModuleName is the compiled guest module to instantiate.
	ModuleName string
	// Device defaults to a SoftwareDevice of the initial canvas size.
	Device render.Device
	Store      *preload.Store
	// Alerter defaults to LogAlerter.
	Alerter Alerter
	// Metrics may be nil.
	Metrics *metrics.HostMetrics
	// Title and canvas size before the guest sets its own.
	Title        string
	CanvasWidth  int
	CanvasHeight int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Host is the context every import and frame runs against. All methods
// must be called from a single goroutine; guest calls are synchronous.
type Host struct {
	logger      *zap.Logger
	guestLogger *zap.Logger

	instances  *wasm.InstanceManager
	moduleName string
	instance   *wasm.Instance

	store     *preload.Store
	preloaded bool

	backend   *render.Backend
	queue     *input.Queue
	collector *input.Collector

	alerter Alerter
	metrics *metrics.HostMetrics

	now   func() time.Time
	start time.Time

	state  State
	fatal  error
	frames uint64

	title         string
	width         int
	height        int
	originX       float64
	originY       float64
	titleChanged  func(string)
	canvasChanged func(width, height int)
}

// New creates a host. The guest is not instantiated until Start.
func New(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	alerter := opts.Alerter
	if alerter == nil {
		alerter = LogAlerter{Logger: logger}
	}
	store := opts.Store
	if store == nil {
		store = preload.NewStore(logger)
	}
	device := opts.Device
	if device == nil {
		device = render.NewSoftwareDevice(opts.CanvasWidth, opts.CanvasHeight)
	}

	h := &Host{
		logger:      logger.With(zap.String("component", "host")),
		guestLogger: logger.With(zap.String("component", "guest")),
		moduleName:  opts.ModuleName,
		store:       store,
		backend:     render.NewBackend(device, logger),
		queue:       input.NewQueue(),
		alerter:     alerter,
		metrics:     opts.Metrics,
		now:         now,
		start:       now(),
		title:       opts.Title,
		width:       opts.CanvasWidth,
		height:      opts.CanvasHeight,
	}
	h.collector = input.NewCollector(h.queue, h)
	if opts.Runtime != nil {
		h.instances = wasm.NewInstanceManager(opts.Runtime, h.Imports(), logger)
	}
	if h.width > 0 && h.height > 0 {
		h.backend.Resize(h.width, h.height)
		h.backend.Viewport(0, 0, h.width, h.height)
	}
	return h
}

// Preload fetches the site's assets into the store. It must complete
// before Start.
func (h *Host) Preload(ctx context.Context, fetcher preload.Fetcher, paths []string) *preload.LoadReport {
	report := h.store.Load(ctx, fetcher, paths)
	h.preloaded = true
	return report
}

// Start instantiates the guest and runs wasm_main once. A guest that
// traps in wasm_main is released and cannot be started again.
func (h *Host) Start(ctx context.Context) error {
	if h.fatal != nil {
		return &FatalError{Err: h.fatal}
	}
	if h.state != StateUninitialized {
		return &StateError{Op: "start", State: h.state}
	}
	if !h.preloaded {
		return ErrPreloadPending
	}
	if h.instances == nil {
		return ErrNoRuntime
	}

	instance, err := h.instances.Instantiate(ctx, &wasm.InstanceConfig{ModuleName: h.moduleName})
	if err != nil {
		return err
	}

	for _, name := range wasm.RequiredExports {
		if !instance.HasExport(name) {
			h.release(ctx, instance)
			return &wasm.FunctionNotFoundError{ModuleName: h.moduleName, FunctionName: name}
		}
	}

	h.logger.Info("Starting guest", zap.String("instance_id", instance.ID))

	if _, err := instance.Call(ctx, wasm.ExportMain); err != nil {
		h.release(ctx, instance)
		if h.fatal == nil {
			h.fatal = err
		}
		return &FatalError{Err: h.fatal}
	}

	h.instance = instance
	h.state = StateRunning
	return nil
}

func (h *Host) release(ctx context.Context, instance *wasm.Instance) {
	if err := h.instances.Release(ctx, instance); err != nil {
		h.logger.Warn("Failed to release guest", zap.String("instance_id", instance.ID), zap.Error(err))
	}
}

// Frame delivers the pending input to the guest and runs one guest frame.
// The queue is empty afterwards whether or not the guest read it.
func (h *Host) Frame(ctx context.Context) error {
	if h.state != StateRunning {
		return &StateError{Op: "run a frame", State: h.state}
	}
	defer h.queue.Reset()
	if h.fatal != nil {
		return &FatalError{Err: h.fatal}
	}
	if h.instance.Module().IsClosed() {
		h.fatal = ErrGuestClosed
		return &FatalError{Err: h.fatal}
	}

	began := time.Now()

	n, err := h.queue.Flush(ctx, instanceSink{instance: h.instance})
	if err != nil {
		return h.guestFailure(err)
	}

	if _, err := h.instance.Call(ctx, wasm.ExportFrame); err != nil {
		return h.guestFailure(err)
	}

	h.frames++
	if h.metrics != nil {
		h.metrics.RecordFrame(time.Since(began), n)
		h.metrics.SetTextures(h.backend.TextureCount())
	}
	return nil
}

// guestFailure prefers the fatal error raised inside an import over the
// trap wazero reports for it.
func (h *Host) guestFailure(err error) error {
	if h.fatal != nil {
		return &FatalError{Err: h.fatal}
	}
	return err
}

// Input returns the collector frontends feed host input into.
func (h *Host) Input() *input.Collector {
	return h.collector
}

// Pending returns the number of events waiting for the next frame.
func (h *Host) Pending() int {
	return h.queue.Len()
}

// PendingEvents returns a copy of the events waiting for the next frame.
func (h *Host) PendingEvents() []input.Event {
	return h.queue.Events()
}

// Backend returns the render backend.
func (h *Host) Backend() *render.Backend {
	return h.backend
}

// Store returns the preload store.
func (h *Host) Store() *preload.Store {
	return h.store
}

// State returns the lifecycle state.
func (h *Host) State() State {
	return h.state
}

// Frames returns the number of completed frames.
func (h *Host) Frames() uint64 {
	return h.frames
}

// Title returns the current window title.
func (h *Host) Title() string {
	return h.title
}

// CanvasSize returns the canvas size in pixels.
func (h *Host) CanvasSize() (int, int) {
	return h.width, h.height
}

// SetCanvasOrigin places the canvas in the frontend's coordinate space.
func (h *Host) SetCanvasOrigin(x, y float64) {
	h.originX, h.originY = x, y
}

// Bounds implements input.Canvas.
func (h *Host) Bounds() input.Bounds {
	return input.Bounds{
		Left:   h.originX,
		Top:    h.originY,
		Width:  float64(h.width),
		Height: float64(h.height),
	}
}

// OnTitleChange registers a callback for set_title.
func (h *Host) OnTitleChange(fn func(string)) {
	h.titleChanged = fn
}

// OnCanvasChange registers a callback for create_canvas and resize_canvas.
func (h *Host) OnCanvasChange(fn func(width, height int)) {
	h.canvasChanged = fn
}

// Elapsed returns the time since the host was created.
func (h *Host) Elapsed() time.Duration {
	return h.now().Sub(h.start)
}
