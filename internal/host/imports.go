package host

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/api/guest"
	"github.com/woxQAQ/canvas-host/internal/render"
	"github.com/woxQAQ/canvas-host/internal/wasm"
)

// Imports returns the import table exported to the guest.
func (h *Host) Imports() wasm.HostFunctions {
	return wasm.HostFunctions{
		{Name: guest.ImportLogMessage, Func: h.logMessage, Params: []string{"level", "ptr", "len"}},
		{Name: guest.ImportSetTitle, Func: h.setTitle, Params: []string{"ptr", "len"}},
		{Name: guest.ImportCreateCanvas, Func: h.createCanvas, Params: []string{"width", "height"}},
		{Name: guest.ImportResizeCanvas, Func: h.resizeCanvas, Params: []string{"width", "height"}},
		{Name: guest.ImportGrowMemory, Func: h.growMemory, Params: []string{"pages"}},
		{Name: guest.ImportClockNow, Func: h.clockNow},

		{Name: guest.ImportGLInit, Func: h.glInit},
		{Name: guest.ImportGLCreateTexture, Func: h.glCreateTexture, Params: []string{"ptr", "width", "height", "format"}},
		{Name: guest.ImportGLUpdateTexture, Func: h.glUpdateTexture, Params: []string{"handle", "x", "y", "width", "height", "ptr"}},
		{Name: guest.ImportGLDestroyTexture, Func: h.glDestroyTexture, Params: []string{"handle"}},
		{Name: guest.ImportGLBindTexture, Func: h.glBindTexture, Params: []string{"handle"}},
		{Name: guest.ImportGLSetProjection, Func: h.glSetProjection, Params: []string{"ptr"}},
		{Name: guest.ImportGLSetModel, Func: h.glSetModel, Params: []string{"ptr"}},
		{Name: guest.ImportGLClear, Func: h.glClear, Params: []string{"r", "g", "b", "a"}},
		{Name: guest.ImportGLViewport, Func: h.glViewport, Params: []string{"x", "y", "width", "height"}},
		{Name: guest.ImportGLDraw, Func: h.glDraw, Params: []string{"ptr", "count", "elem_size", "stride", "pos_off", "color_off", "uv_off", "float"}},

		{Name: guest.ImportFSFileSize, Func: h.fsFileSize, Params: []string{"ptr", "len"}},
		{Name: guest.ImportFSReadFile, Func: h.fsReadFile, Params: []string{"ptr", "len", "dst"}},
	}
}

// trap aborts the current guest call. wazero turns the panic into an error
// returned from the guest export the host called.
func (h *Host) trap(err error) {
	h.logger.Error("Guest call aborted", zap.Error(err))
	panic(err)
}

func (h *Host) guestString(m api.Module, ptr, length uint32) string {
	s, err := wasm.NewMemory(m).String(ptr, length)
	if err != nil {
		h.trap(err)
	}
	return s
}

func (h *Host) guestMatrix(m api.Module, ptr uint32) render.Mat4 {
	v, err := wasm.NewMemory(m).Float32s(ptr, 16)
	if err != nil {
		h.trap(err)
	}
	var mat render.Mat4
	for i := range mat {
		mat[i] = v.Float32(i)
	}
	return mat
}

func (h *Host) logMessage(_ context.Context, m api.Module, level int32, ptr, length uint32) {
	msg := h.guestString(m, ptr, length)
	switch level {
	case guest.LogDebug:
		h.guestLogger.Debug(msg)
	case guest.LogInfo:
		h.guestLogger.Info(msg)
	case guest.LogWarn:
		h.guestLogger.Warn(msg)
	case guest.LogError:
		h.guestLogger.Error(msg)
	default:
		h.guestLogger.Info(msg, zap.Int32("level", level))
	}
}

func (h *Host) setTitle(_ context.Context, m api.Module, ptr, length uint32) {
	h.title = h.guestString(m, ptr, length)
	h.logger.Debug("Title set", zap.String("title", h.title))
	if h.titleChanged != nil {
		h.titleChanged(h.title)
	}
}

func (h *Host) createCanvas(_ context.Context, _ api.Module, width, height int32) {
	h.setCanvasSize("create", width, height)
}

func (h *Host) resizeCanvas(_ context.Context, _ api.Module, width, height int32) {
	h.setCanvasSize("resize", width, height)
}

func (h *Host) setCanvasSize(op string, width, height int32) {
	if width <= 0 || height <= 0 {
		h.logger.Warn("Ignoring invalid canvas size",
			zap.String("op", op),
			zap.Int32("width", width),
			zap.Int32("height", height),
		)
		return
	}
	h.width, h.height = int(width), int(height)
	h.backend.Resize(h.width, h.height)
	h.backend.Viewport(0, 0, h.width, h.height)

	h.logger.Info("Canvas sized",
		zap.String("op", op),
		zap.Int("width", h.width),
		zap.Int("height", h.height),
	)
	if h.canvasChanged != nil {
		h.canvasChanged(h.width, h.height)
	}
}

// growMemory returns the previous size in pages, or -1 when the memory
// cannot grow.
func (h *Host) growMemory(_ context.Context, m api.Module, pages uint32) int32 {
	mem := wasm.NewMemory(m)
	prev, ok := mem.Grow(pages)
	if !ok {
		h.logger.Warn("Memory growth refused",
			zap.Uint32("pages", pages),
			zap.Uint32("size_bytes", mem.Size()),
		)
		return -1
	}
	return int32(prev)
}

// clockNow returns milliseconds since the host was created.
func (h *Host) clockNow(context.Context) float64 {
	return float64(h.Elapsed()) / float64(1e6)
}

// glInit compiles the shader program. A failure raises an alert and halts
// the guest: nothing can be drawn without the program.
func (h *Host) glInit(context.Context, api.Module) {
	if err := h.backend.Init(); err != nil {
		h.fatal = err
		h.alerter.Alert(err.Error())
		h.trap(err)
	}
}

func (h *Host) glCreateTexture(_ context.Context, m api.Module, ptr uint32, width, height, format int32) uint32 {
	texFormat := render.TextureFormat(format)
	bpp := texFormat.BytesPerPixel()
	if width < 0 || height < 0 || bpp == 0 {
		h.logger.Warn("Invalid texture",
			zap.Int32("width", width),
			zap.Int32("height", height),
			zap.Int32("format", format),
		)
		return 0
	}

	var pixels []byte
	if ptr != 0 {
		size := uint64(width) * uint64(height) * uint64(bpp)
		if size > math.MaxUint32 {
			h.logger.Warn("Texture too large", zap.Uint64("bytes", size))
			return 0
		}
		view, err := wasm.NewMemory(m).View(ptr, uint32(size))
		if err != nil {
			h.trap(err)
		}
		pixels = view.Bytes()
	}

	handle, err := h.backend.CreateTexture(int(width), int(height), texFormat, pixels)
	if err != nil {
		h.logger.Warn("Failed to create texture", zap.Error(err))
		return 0
	}
	return handle
}

func (h *Host) glUpdateTexture(_ context.Context, m api.Module, handle uint32, x, y, width, height int32, ptr uint32) {
	format, ok := h.backend.TextureFormat(handle)
	if !ok {
		h.logger.Warn("Update of unknown texture", zap.Uint32("handle", handle))
		return
	}
	if width < 0 || height < 0 {
		h.logger.Warn("Invalid texture region",
			zap.Uint32("handle", handle),
			zap.Int32("width", width),
			zap.Int32("height", height),
		)
		return
	}

	size := uint64(width) * uint64(height) * uint64(format.BytesPerPixel())
	if size > math.MaxUint32 {
		h.logger.Warn("Texture region too large", zap.Uint64("bytes", size))
		return
	}
	view, err := wasm.NewMemory(m).View(ptr, uint32(size))
	if err != nil {
		h.trap(err)
	}

	if err := h.backend.UpdateTexture(handle, int(x), int(y), int(width), int(height), view.Bytes()); err != nil {
		h.logger.Warn("Failed to update texture", zap.Uint32("handle", handle), zap.Error(err))
	}
}

func (h *Host) glDestroyTexture(_ context.Context, _ api.Module, handle uint32) {
	if err := h.backend.DestroyTexture(handle); err != nil {
		h.logger.Warn("Failed to destroy texture", zap.Error(err))
	}
}

func (h *Host) glBindTexture(_ context.Context, _ api.Module, handle uint32) {
	if err := h.backend.BindTexture(handle); err != nil {
		h.logger.Warn("Failed to bind texture", zap.Error(err))
	}
}

func (h *Host) glSetProjection(_ context.Context, m api.Module, ptr uint32) {
	h.backend.SetProjection(h.guestMatrix(m, ptr))
}

func (h *Host) glSetModel(_ context.Context, m api.Module, ptr uint32) {
	h.backend.SetModel(h.guestMatrix(m, ptr))
}

func (h *Host) glClear(_ context.Context, _ api.Module, r, g, b, a float32) {
	h.backend.Clear(r, g, b, a)
}

func (h *Host) glViewport(_ context.Context, _ api.Module, x, y, width, height int32) {
	h.backend.Viewport(int(x), int(y), int(width), int(height))
}

func (h *Host) glDraw(_ context.Context, m api.Module, ptr uint32, count, elemSize, stride, posOff, colorOff, uvOff int32, float uint32) {
	layout := render.VertexLayout{
		Count:          int(count),
		ElementSize:    int(elemSize),
		Stride:         int(stride),
		PositionOffset: int(posOff),
		ColorOffset:    int(colorOff),
		UVOffset:       int(uvOff),
		Float:          float != 0,
	}
	if err := layout.Validate(); err != nil {
		h.logger.Warn("Draw skipped", zap.Error(err))
		return
	}

	view, err := wasm.NewMemory(m).View(ptr, uint32(layout.Size()))
	if err != nil {
		h.trap(err)
	}

	if err := h.backend.Draw(layout, view.Bytes()); err != nil {
		h.logger.Warn("Draw failed", zap.Error(err))
		return
	}
	if h.metrics != nil {
		h.metrics.RecordDraw()
	}
}

// fsFileSize returns the size of a preloaded file, 0 when it is absent.
func (h *Host) fsFileSize(_ context.Context, m api.Module, ptr, length uint32) int32 {
	return int32(h.store.Size(h.guestString(m, ptr, length)))
}

// fsReadFile copies a preloaded file to dst and returns its size, 0 when it
// is absent. dst must have room for fs_file_size bytes.
func (h *Host) fsReadFile(_ context.Context, m api.Module, ptr, length, dst uint32) int32 {
	path := h.guestString(m, ptr, length)
	data, ok := h.store.Get(path)
	if !ok {
		h.logger.Debug("File not preloaded", zap.String("path", path))
		return 0
	}
	if err := wasm.NewMemory(m).Write(dst, data); err != nil {
		h.trap(err)
	}
	return int32(len(data))
}
