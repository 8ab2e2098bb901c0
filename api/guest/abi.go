// Package guest describes the contract between the host and a guest module.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a
// 32-bit linear memory model. Guests resolve every import from ImportModule.
package guest

// ImportModule is the module name guests import host functions from.
const ImportModule = "env"

// Functions a guest must export:
//
//	wasm_main()                  called once after instantiation
//	wasm_frame()                 called once per animation frame
//	wasm_event_buffer() i32      address of the 128-record event buffer
//	wasm_set_event_count(n i32)  number of records written this frame
const (
	ExportMain          = "wasm_main"
	ExportFrame         = "wasm_frame"
	ExportEventBuffer   = "wasm_event_buffer"
	ExportSetEventCount = "wasm_set_event_count"
)

// Functions the host provides under ImportModule.
const (
	ImportLogMessage   = "log_message"   // (level, ptr, len)
	ImportSetTitle     = "set_title"     // (ptr, len)
	ImportCreateCanvas = "create_canvas" // (width, height)
	ImportResizeCanvas = "resize_canvas" // (width, height)
	ImportGrowMemory   = "grow_memory"   // (pages) -> previous pages or -1
	ImportClockNow     = "clock_now"     // () -> f64 milliseconds

	ImportGLInit           = "gl_init"            // ()
	ImportGLCreateTexture  = "gl_create_texture"  // (ptr, width, height, format) -> handle
	ImportGLUpdateTexture  = "gl_update_texture"  // (handle, x, y, width, height, ptr)
	ImportGLDestroyTexture = "gl_destroy_texture" // (handle)
	ImportGLBindTexture    = "gl_bind_texture"    // (handle), 0 unbinds
	ImportGLSetProjection  = "gl_set_projection"  // (ptr to 16 f32)
	ImportGLSetModel       = "gl_set_model"       // (ptr to 16 f32)
	ImportGLClear          = "gl_clear"           // (r, g, b, a f32)
	ImportGLViewport       = "gl_viewport"        // (x, y, width, height)
	ImportGLDraw           = "gl_draw"            // (ptr, count, elem_size, stride, pos_off, color_off, uv_off, float)

	ImportFSFileSize = "fs_file_size" // (ptr, len) -> size, 0 when absent
	ImportFSReadFile = "fs_read_file" // (ptr, len, dst) -> bytes copied, 0 when absent
)

// Log levels accepted by log_message.
const (
	LogDebug int32 = iota
	LogInfo
	LogWarn
	LogError
)

// Texture formats accepted by gl_create_texture.
const (
	TextureRGBA  int32 = 0
	TextureRGB   int32 = 1
	TextureAlpha int32 = 2
)
