// Package render is the drawing backend the guest drives through its gl_*
// imports: one fixed shader program, a texture handle table, the current
// matrices and a single triangle-list draw path.
package render

import (
	"errors"
	"fmt"

	"github.com/woxQAQ/canvas-host/api/guest"
)

// TextureFormat is the pixel layout of texture data supplied by the guest.
type TextureFormat int32

const (
	FormatRGBA  = TextureFormat(guest.TextureRGBA)
	FormatRGB   = TextureFormat(guest.TextureRGB)
	FormatAlpha = TextureFormat(guest.TextureAlpha)
)

// BytesPerPixel returns the size of one pixel, or 0 for unknown formats.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA:
		return 4
	case FormatRGB:
		return 3
	case FormatAlpha:
		return 1
	default:
		return 0
	}
}

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatRGB:
		return "rgb"
	case FormatAlpha:
		return "alpha"
	default:
		return fmt.Sprintf("format(%d)", int32(f))
	}
}

// Vertex is one decoded vertex.
type Vertex struct {
	Position [3]float32
	Color    [4]float32
	UV       [2]float32
}

// DrawState is everything the program needs besides the vertices.
type DrawState struct {
	// Projection × model.
	MVP Mat4
	// Bound texture, nil when none.
	Texture Texture
	// Text selects the glyph-atlas path of the fragment stage.
	Text bool
}

// Texture is a device-side texture.
type Texture interface {
	Update(x, y, width, height int, pixels []byte) error
	Release()
}

// Device is the graphics API the backend drives.
type Device interface {
	CompileProgram(vertexSource, fragmentSource string) error
	Resize(width, height int)
	Clear(r, g, b, a float32)
	Viewport(x, y, width, height int)
	NewTexture(width, height int, format TextureFormat, pixels []byte) (Texture, error)
	Draw(state DrawState, vertices []Vertex) error
}

// ErrNotInitialized is returned by draws issued before Init.
var ErrNotInitialized = errors.New("render backend not initialized")

// ShaderError reports a program that failed to compile or link.
type ShaderError struct {
	Stage string
	Log   string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("shader %s failed: %s", e.Stage, e.Log)
}

// UnknownTextureError is returned for handles that were never created or
// have been destroyed.
type UnknownTextureError struct {
	Handle uint32
}

func (e *UnknownTextureError) Error() string {
	return fmt.Sprintf("unknown texture handle %d", e.Handle)
}

// TextureDataError reports pixel data that does not match the texture region.
type TextureDataError struct {
	Width  int
	Height int
	Format TextureFormat
	Got    int
}

func (e *TextureDataError) Error() string {
	return fmt.Sprintf("texture data for %dx%d %s needs %d bytes, got %d",
		e.Width, e.Height, e.Format, e.Width*e.Height*e.Format.BytesPerPixel(), e.Got)
}
