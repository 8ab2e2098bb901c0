package host

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/woxQAQ/canvas-host/api/guest"
	"github.com/woxQAQ/canvas-host/internal/input"
	"github.com/woxQAQ/canvas-host/internal/metrics"
	"github.com/woxQAQ/canvas-host/internal/preload"
	"github.com/woxQAQ/canvas-host/internal/render"
	"github.com/woxQAQ/canvas-host/internal/wasm"
	"github.com/woxQAQ/canvas-host/internal/wasm/wasmtest"
)

// Guest memory layout used by testGuest.
const (
	addrEventCount  = 0
	addrFrameCount  = 4
	addrTitle       = 16
	addrGreeting    = 32
	addrEventBuffer = 1024
)

// testGuest sets its title, creates a 320x200 canvas, logs a greeting and
// initialises GL in wasm_main. wasm_frame increments a counter at
// addrFrameCount and wasm_set_event_count stores its argument at
// addrEventCount.
func testGuest() []byte {
	m := wasmtest.New()
	i32 := wasmtest.I32

	setTitle := m.Import(guest.ImportModule, guest.ImportSetTitle, []byte{i32, i32}, nil)
	createCanvas := m.Import(guest.ImportModule, guest.ImportCreateCanvas, []byte{i32, i32}, nil)
	logMessage := m.Import(guest.ImportModule, guest.ImportLogMessage, []byte{i32, i32, i32}, nil)
	glInit := m.Import(guest.ImportModule, guest.ImportGLInit, nil, nil)

	m.Memory(1)
	m.Data(addrTitle, []byte("Demo"))
	m.Data(addrGreeting, []byte("hello from guest"))

	m.Func(guest.ExportMain, nil, nil, nil,
		wasmtest.I32Const(addrTitle), wasmtest.I32Const(4), wasmtest.Call(setTitle),
		wasmtest.I32Const(320), wasmtest.I32Const(200), wasmtest.Call(createCanvas),
		wasmtest.I32Const(guest.LogInfo), wasmtest.I32Const(addrGreeting), wasmtest.I32Const(16), wasmtest.Call(logMessage),
		wasmtest.Call(glInit),
	)
	m.Func(guest.ExportFrame, nil, nil, nil,
		wasmtest.I32Const(addrFrameCount),
		wasmtest.I32Const(addrFrameCount), wasmtest.I32Load(0),
		wasmtest.I32Const(1), wasmtest.I32Add(),
		wasmtest.I32Store(0),
	)
	m.Func(guest.ExportEventBuffer, nil, []byte{i32}, nil, wasmtest.I32Const(addrEventBuffer))
	m.Func(guest.ExportSetEventCount, []byte{i32}, nil, nil,
		wasmtest.I32Const(addrEventCount), wasmtest.LocalGet(0), wasmtest.I32Store(0),
	)
	return m.Bytes()
}

type fixture struct {
	host    *Host
	device  *render.SoftwareDevice
	metrics *metrics.HostMetrics
	logs    *observer.ObservedLogs
	alerts  []string
	clock   time.Time
}

type fixtureOption func(*Options, *fixture)

func withDevice(d render.Device) fixtureOption {
	return func(o *Options, _ *fixture) { o.Device = d }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	runtime, err := wasm.NewRuntime(ctx, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { runtime.Close(ctx) })

	_, err = wasm.NewModuleLoader(runtime, logger).LoadModuleFromMemory(ctx, "guest", testGuest())
	require.NoError(t, err)

	f := &fixture{
		device:  render.NewSoftwareDevice(1, 1),
		metrics: metrics.NewHostMetrics(),
		logs:    logs,
		clock:   time.Unix(1000, 0),
	}
	o := Options{
		Logger:     logger,
		Runtime:    runtime,
		ModuleName: "guest",
		Alerter:    AlertFunc(func(msg string) { f.alerts = append(f.alerts, msg) }),
		Metrics:    f.metrics,
		Now:        func() time.Time { return f.clock },
	}
	o.Device = f.device
	for _, opt := range opts {
		opt(&o, f)
	}
	f.host = New(o)
	return f
}

func (f *fixture) start(t *testing.T, files fstest.MapFS, paths ...string) {
	t.Helper()
	ctx := context.Background()
	f.host.Preload(ctx, preload.NewDirFetcher(files), paths)
	require.NoError(t, f.host.Start(ctx))
}

func (f *fixture) memory() *wasm.Memory {
	return f.host.instance.Memory()
}

func (f *fixture) readU32(t *testing.T, addr uint32) uint32 {
	t.Helper()
	v, err := f.memory().View(addr, 4)
	require.NoError(t, err)
	return binary.LittleEndian.Uint32(v.Bytes())
}

func (f *fixture) readEvents(t *testing.T, n int) []input.Event {
	t.Helper()
	v, err := f.memory().View(addrEventBuffer, uint32(n*input.RecordSize))
	require.NoError(t, err)
	events, err := input.DecodeEvents(v.Bytes())
	require.NoError(t, err)
	return events
}

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func TestStartRunsMain(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StateUninitialized, f.host.State())

	f.start(t, fstest.MapFS{})

	assert.Equal(t, StateRunning, f.host.State())
	assert.Equal(t, "Demo", f.host.Title())
	w, h := f.host.CanvasSize()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)
	assert.True(t, f.host.Backend().Ready())

	dw, dh := f.device.Size()
	assert.Equal(t, 320, dw)
	assert.Equal(t, 200, dh)

	greetings := f.logs.FilterMessage("hello from guest").All()
	require.Len(t, greetings, 1)
	assert.Equal(t, zap.InfoLevel, greetings[0].Level)
}

func TestStartRequiresPreload(t *testing.T) {
	f := newFixture(t)
	err := f.host.Start(context.Background())
	assert.ErrorIs(t, err, ErrPreloadPending)
	assert.Equal(t, StateUninitialized, f.host.State())
}

func TestStartTwice(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})

	var stateErr *StateError
	assert.True(t, errors.As(f.host.Start(context.Background()), &stateErr))
}

func TestStartWithoutRuntime(t *testing.T) {
	h := New(Options{Logger: zap.NewNop(), CanvasWidth: 2, CanvasHeight: 2})
	h.Preload(context.Background(), preload.NewDirFetcher(fstest.MapFS{}), nil)
	assert.ErrorIs(t, h.Start(context.Background()), ErrNoRuntime)
}

func TestFrameBeforeStart(t *testing.T) {
	f := newFixture(t)

	var stateErr *StateError
	err := f.host.Frame(context.Background())
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, StateUninitialized, stateErr.State)
}

func TestFrameDeliversEvents(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	ctx := context.Background()

	in := f.host.Input()
	in.KeyDown("a")
	in.MouseMove(5.7, 2.2)
	in.Wheel(0, 120)
	require.Equal(t, 3, f.host.Pending())

	require.NoError(t, f.host.Frame(ctx))

	assert.Equal(t, uint32(3), f.readU32(t, addrEventCount))
	assert.Equal(t, uint32(1), f.readU32(t, addrFrameCount))
	assert.Equal(t, []input.Event{
		{Type: input.EventKeyboard, Pressed: true, Key: input.KeyA},
		{Type: input.EventMouseMove, X: 5, Y: 2},
		{Type: input.EventMouseScroll, X: 0, Y: -1},
	}, f.readEvents(t, 3))
	assert.Zero(t, f.host.Pending())

	// An empty queue leaves the guest's buffer and count untouched.
	require.NoError(t, f.host.Frame(ctx))
	assert.Equal(t, uint32(3), f.readU32(t, addrEventCount))
	assert.Equal(t, uint32(2), f.readU32(t, addrFrameCount))
	assert.Equal(t, uint64(2), f.host.Frames())
}

func TestFrameTruncatesAtCapacity(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})

	for i := 0; i < input.Capacity+72; i++ {
		f.host.Input().MouseMove(float64(i), 0)
	}
	require.NoError(t, f.host.Frame(context.Background()))

	assert.Equal(t, uint32(input.Capacity), f.readU32(t, addrEventCount))
	events := f.readEvents(t, input.Capacity)
	assert.Equal(t, int32(0), events[0].X)
	assert.Equal(t, int32(input.Capacity-1), events[input.Capacity-1].X)

	// Nothing was written past the buffer.
	past, err := f.memory().View(addrEventBuffer+input.Capacity*input.RecordSize, input.RecordSize)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, input.RecordSize), past.Bytes())

	// Dropped events do not carry over.
	assert.Zero(t, f.host.Pending())
}

type failingDevice struct {
	*render.SoftwareDevice
}

func (failingDevice) CompileProgram(string, string) error {
	return &render.ShaderError{Stage: "fragment compile", Log: "0:7: 'texture' : no matching overloaded function found"}
}

func TestShaderFailureIsFatal(t *testing.T) {
	f := newFixture(t, withDevice(failingDevice{render.NewSoftwareDevice(1, 1)}))
	f.host.Preload(context.Background(), preload.NewDirFetcher(fstest.MapFS{}), nil)

	err := f.host.Start(context.Background())

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal), "got %v", err)
	var shaderErr *render.ShaderError
	assert.True(t, errors.As(err, &shaderErr))

	require.Len(t, f.alerts, 1)
	assert.Contains(t, f.alerts[0], "no matching overloaded function")
	assert.Equal(t, StateUninitialized, f.host.State())
	assert.Nil(t, f.host.instance, "the failed guest is released")

	// The guest is not instantiated again.
	err = f.host.Start(context.Background())
	require.True(t, errors.As(err, &fatal), "got %v", err)
	assert.True(t, errors.As(err, &shaderErr))
	assert.Len(t, f.alerts, 1)
	assert.Nil(t, f.host.instance)
}

func TestFatalFrameStillClearsQueue(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	f.host.fatal = &render.ShaderError{Stage: "link", Log: "boom"}

	f.host.Input().KeyDown("a")
	f.host.Input().Close()

	var fatal *FatalError
	require.True(t, errors.As(f.host.Frame(context.Background()), &fatal))
	assert.Zero(t, f.host.Pending())
	assert.Zero(t, f.host.Frames())
	assert.Zero(t, f.readU32(t, addrFrameCount), "the guest frame did not run")
}

func TestFrameAfterGuestClosed(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	require.NoError(t, f.host.instance.Close(context.Background()))

	err := f.host.Frame(context.Background())
	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.ErrorIs(t, err, ErrGuestClosed)
	assert.Zero(t, f.host.Frames())
	assert.ErrorIs(t, f.host.Frame(context.Background()), ErrGuestClosed)
}

func TestStartRejectsMissingExport(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	runtime, err := wasm.NewRuntime(ctx, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { runtime.Close(ctx) })

	mod := wasmtest.New()
	mod.Memory(1)
	mod.Func(guest.ExportMain, nil, nil, nil)
	_, err = wasm.NewModuleLoader(runtime, logger).LoadModuleFromMemory(ctx, "partial", mod.Bytes())
	require.NoError(t, err)

	h := New(Options{Logger: logger, Runtime: runtime, ModuleName: "partial", CanvasWidth: 2, CanvasHeight: 2})
	h.Preload(ctx, preload.NewDirFetcher(fstest.MapFS{}), nil)

	var notFound *wasm.FunctionNotFoundError
	require.True(t, errors.As(h.Start(ctx), &notFound))
	assert.Equal(t, StateUninitialized, h.State())
	assert.Nil(t, h.instance)
}

func TestCanvasBoundsFollowOrigin(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	f.host.SetCanvasOrigin(0, 2)

	f.host.Input().MouseDown(0, 10, 2)
	require.NoError(t, f.host.Frame(context.Background()))

	events := f.readEvents(t, 1)
	assert.Equal(t, input.Event{Type: input.EventMouseButton, X: 10, Y: 0, Pressed: true, Key: input.KeyMouseLeft}, events[0])
}
