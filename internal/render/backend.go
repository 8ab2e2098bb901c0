package render

import (
	"go.uber.org/zap"
)

type textureEntry struct {
	texture Texture
	width   int
	height  int
	format  TextureFormat
}

// Backend holds the render state the guest mutates between draws. It is
// driven from the frame goroutine only.
type Backend struct {
	device Device
	logger *zap.Logger

	ready bool

	// Handles start at 1 and are never reused.
	textures   map[uint32]*textureEntry
	nextHandle uint32

	projection Mat4
	model      Mat4
	bound      uint32
}

// NewBackend creates a backend on top of device.
func NewBackend(device Device, logger *zap.Logger) *Backend {
	return &Backend{
		device:     device,
		logger:     logger.With(zap.String("component", "render")),
		textures:   make(map[uint32]*textureEntry),
		nextHandle: 1,
		projection: Identity(),
		model:      Identity(),
	}
}

// Init compiles the shader program. A failure is fatal: nothing can be drawn.
func (b *Backend) Init() error {
	if b.ready {
		return nil
	}
	if err := b.device.CompileProgram(VertexShaderSource, FragmentShaderSource); err != nil {
		if _, ok := err.(*ShaderError); ok {
			return err
		}
		return &ShaderError{Stage: "link", Log: err.Error()}
	}
	b.ready = true
	b.logger.Info("Shader program ready")
	return nil
}

// Ready reports whether Init succeeded.
func (b *Backend) Ready() bool {
	return b.ready
}

// Resize resizes the drawing surface.
func (b *Backend) Resize(width, height int) {
	b.device.Resize(width, height)
}

// CreateTexture uploads a texture and returns its handle. A nil pixels
// slice allocates an empty texture.
func (b *Backend) CreateTexture(width, height int, format TextureFormat, pixels []byte) (uint32, error) {
	if err := checkTextureData(width, height, format, pixels, true); err != nil {
		return 0, err
	}

	tex, err := b.device.NewTexture(width, height, format, pixels)
	if err != nil {
		return 0, err
	}

	handle := b.nextHandle
	b.nextHandle++
	b.textures[handle] = &textureEntry{texture: tex, width: width, height: height, format: format}

	b.logger.Debug("Texture created",
		zap.Uint32("handle", handle),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Stringer("format", format),
	)
	return handle, nil
}

// UpdateTexture replaces a region of a texture with pixels in the
// texture's own format.
func (b *Backend) UpdateTexture(handle uint32, x, y, width, height int, pixels []byte) error {
	entry, ok := b.textures[handle]
	if !ok {
		return &UnknownTextureError{Handle: handle}
	}
	if err := checkTextureData(width, height, entry.format, pixels, false); err != nil {
		return err
	}
	return entry.texture.Update(x, y, width, height, pixels)
}

// DestroyTexture releases a texture. Its handle is never handed out again.
func (b *Backend) DestroyTexture(handle uint32) error {
	entry, ok := b.textures[handle]
	if !ok {
		return &UnknownTextureError{Handle: handle}
	}
	entry.texture.Release()
	delete(b.textures, handle)
	if b.bound == handle {
		b.bound = 0
	}
	return nil
}

// BindTexture selects the texture used by subsequent draws. Handle 0 unbinds.
func (b *Backend) BindTexture(handle uint32) error {
	if handle != 0 {
		if _, ok := b.textures[handle]; !ok {
			return &UnknownTextureError{Handle: handle}
		}
	}
	b.bound = handle
	return nil
}

// TextureFormat returns the format of a live texture.
func (b *Backend) TextureFormat(handle uint32) (TextureFormat, bool) {
	entry, ok := b.textures[handle]
	if !ok {
		return 0, false
	}
	return entry.format, true
}

// TextureCount returns the number of live textures.
func (b *Backend) TextureCount() int {
	return len(b.textures)
}

// SetProjection replaces the projection matrix.
func (b *Backend) SetProjection(m Mat4) {
	b.projection = m
}

// SetModel replaces the model matrix.
func (b *Backend) SetModel(m Mat4) {
	b.model = m
}

// Projection returns the current projection matrix.
func (b *Backend) Projection() Mat4 {
	return b.projection
}

// Model returns the current model matrix.
func (b *Backend) Model() Mat4 {
	return b.model
}

// Clear fills the surface with a colour.
func (b *Backend) Clear(r, g, bl, a float32) {
	b.device.Clear(r, g, bl, a)
}

// Viewport sets the viewport rectangle (GL coordinates, origin bottom-left).
func (b *Backend) Viewport(x, y, width, height int) {
	b.device.Viewport(x, y, width, height)
}

// Draw decodes the vertex buffer and issues one triangle-list draw.
func (b *Backend) Draw(layout VertexLayout, data []byte) error {
	if !b.ready {
		return ErrNotInitialized
	}

	vertices, err := DecodeVertices(layout, data)
	if err != nil {
		return err
	}

	state := DrawState{MVP: b.projection.Mul(b.model)}
	if entry, ok := b.textures[b.bound]; ok {
		state.Texture = entry.texture
		state.Text = entry.format == FormatAlpha
	}

	return b.device.Draw(state, vertices)
}

func checkTextureData(width, height int, format TextureFormat, pixels []byte, allowNil bool) error {
	bpp := format.BytesPerPixel()
	if bpp == 0 || width < 0 || height < 0 {
		return &TextureDataError{Width: width, Height: height, Format: format, Got: len(pixels)}
	}
	if pixels == nil && allowNil {
		return nil
	}
	if len(pixels) < width*height*bpp {
		return &TextureDataError{Width: width, Height: height, Format: format, Got: len(pixels)}
	}
	return nil
}
