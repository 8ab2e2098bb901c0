package render

import (
	"image"
	"image/color"
	"math"
	"strings"
)

// SoftwareDevice rasterises the fixed program on the CPU into an NRGBA
// framebuffer. It stands in for a GPU where none is available: terminals,
// headless snapshots and tests.
type SoftwareDevice struct {
	fb       *image.NRGBA
	viewport image.Rectangle // GL window coordinates, origin bottom-left
	compiled bool
}

// NewSoftwareDevice creates a device with a width×height framebuffer.
func NewSoftwareDevice(width, height int) *SoftwareDevice {
	d := &SoftwareDevice{}
	d.Resize(width, height)
	return d
}

// CompileProgram accepts the fixed program. The pipeline itself is built in,
// so compiling only checks that both stages define an entry point.
func (d *SoftwareDevice) CompileProgram(vertexSource, fragmentSource string) error {
	if !strings.Contains(vertexSource, "void main") {
		return &ShaderError{Stage: "vertex compile", Log: "missing entry point"}
	}
	if !strings.Contains(fragmentSource, "void main") {
		return &ShaderError{Stage: "fragment compile", Log: "missing entry point"}
	}
	d.compiled = true
	return nil
}

// Resize replaces the framebuffer and resets the viewport to cover it.
func (d *SoftwareDevice) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	d.fb = image.NewNRGBA(image.Rect(0, 0, width, height))
	d.viewport = image.Rect(0, 0, width, height)
}

// Size returns the framebuffer dimensions.
func (d *SoftwareDevice) Size() (int, int) {
	b := d.fb.Bounds()
	return b.Dx(), b.Dy()
}

// Clear fills the framebuffer.
func (d *SoftwareDevice) Clear(r, g, b, a float32) {
	c := color.NRGBA{R: unit8(r), G: unit8(g), B: unit8(b), A: unit8(a)}
	pix := d.fb.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// Viewport sets the NDC-to-window mapping.
func (d *SoftwareDevice) Viewport(x, y, width, height int) {
	d.viewport = image.Rect(x, y, x+width, y+height)
}

// NewTexture creates a texture, expanding the data to RGBA.
func (d *SoftwareDevice) NewTexture(width, height int, format TextureFormat, pixels []byte) (Texture, error) {
	t := &softTexture{
		width:  width,
		height: height,
		format: format,
		rgba:   make([]byte, width*height*4),
	}
	if pixels != nil {
		if err := t.Update(0, 0, width, height, pixels); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Snapshot returns a copy of the framebuffer.
func (d *SoftwareDevice) Snapshot() *image.NRGBA {
	cp := image.NewNRGBA(d.fb.Bounds())
	copy(cp.Pix, d.fb.Pix)
	return cp
}

// Draw rasterises vertices as a triangle list.
func (d *SoftwareDevice) Draw(state DrawState, vertices []Vertex) error {
	if !d.compiled {
		return ErrNotInitialized
	}
	tex, _ := state.Texture.(*softTexture)
	if tex != nil && tex.rgba == nil {
		tex = nil
	}

	for i := 0; i+2 < len(vertices); i += 3 {
		d.triangle(state, tex, vertices[i:i+3])
	}
	return nil
}

type screenVertex struct {
	x, y  float64
	color [4]float32
	uv    [2]float32
}

func (d *SoftwareDevice) project(mvp Mat4, v Vertex) (screenVertex, bool) {
	clip := mvp.Transform([4]float32{v.Position[0], v.Position[1], v.Position[2], 1})
	if clip[3] <= 0 {
		return screenVertex{}, false
	}
	nx := float64(clip[0] / clip[3])
	ny := float64(clip[1] / clip[3])
	vp := d.viewport
	return screenVertex{
		x:     float64(vp.Min.X) + (nx+1)*0.5*float64(vp.Dx()),
		y:     float64(vp.Min.Y) + (ny+1)*0.5*float64(vp.Dy()),
		color: v.Color,
		uv:    v.UV,
	}, true
}

func (d *SoftwareDevice) triangle(state DrawState, tex *softTexture, tri []Vertex) {
	var sv [3]screenVertex
	for i := range sv {
		v, ok := d.project(state.MVP, tri[i])
		if !ok {
			return
		}
		sv[i] = v
	}

	area := edge(sv[0], sv[1], sv[2].x, sv[2].y)
	if area == 0 {
		return
	}

	fbH := d.fb.Bounds().Dy()
	clipRect := d.viewport.Intersect(image.Rect(0, 0, d.fb.Bounds().Dx(), fbH))

	minX := int(math.Floor(math.Min(sv[0].x, math.Min(sv[1].x, sv[2].x))))
	maxX := int(math.Ceil(math.Max(sv[0].x, math.Max(sv[1].x, sv[2].x))))
	minY := int(math.Floor(math.Min(sv[0].y, math.Min(sv[1].y, sv[2].y))))
	maxY := int(math.Ceil(math.Max(sv[0].y, math.Max(sv[1].y, sv[2].y))))
	bbox := image.Rect(minX, minY, maxX, maxY).Intersect(clipRect)

	for gy := bbox.Min.Y; gy < bbox.Max.Y; gy++ {
		for gx := bbox.Min.X; gx < bbox.Max.X; gx++ {
			px, py := float64(gx)+0.5, float64(gy)+0.5
			w0 := edge(sv[1], sv[2], px, py) / area
			w1 := edge(sv[2], sv[0], px, py) / area
			w2 := edge(sv[0], sv[1], px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			var c [4]float32
			for k := 0; k < 4; k++ {
				c[k] = float32(w0)*sv[0].color[k] + float32(w1)*sv[1].color[k] + float32(w2)*sv[2].color[k]
			}

			if tex != nil {
				u := float32(w0)*sv[0].uv[0] + float32(w1)*sv[1].uv[0] + float32(w2)*sv[2].uv[0]
				v := float32(w0)*sv[0].uv[1] + float32(w1)*sv[1].uv[1] + float32(w2)*sv[2].uv[1]
				texel := tex.sample(u, v)
				if state.Text {
					c[3] *= texel[3]
				} else {
					for k := 0; k < 4; k++ {
						c[k] *= texel[k]
					}
				}
			}

			d.blend(gx, fbH-1-gy, c)
		}
	}
}

// blend composites c over the pixel at image coordinates (x, y).
func (d *SoftwareDevice) blend(x, y int, c [4]float32) {
	i := d.fb.PixOffset(x, y)
	p := d.fb.Pix[i : i+4 : i+4]
	a := clamp01(c[3])
	for k := 0; k < 3; k++ {
		dst := float32(p[k]) / 255
		p[k] = unit8(clamp01(c[k])*a + dst*(1-a))
	}
	dstA := float32(p[3]) / 255
	p[3] = unit8(a + dstA*(1-a))
}

func edge(a, b screenVertex, x, y float64) float64 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

type softTexture struct {
	width  int
	height int
	format TextureFormat
	rgba   []byte
}

// Update converts a region of pixels in the texture's format into RGBA.
// Alpha-only data samples as (0, 0, 0, a), matching GL's ALPHA format.
func (t *softTexture) Update(x, y, width, height int, pixels []byte) error {
	if t.rgba == nil {
		return &UnknownTextureError{}
	}
	if x < 0 || y < 0 || x+width > t.width || y+height > t.height {
		return &TextureDataError{Width: width, Height: height, Format: t.format, Got: len(pixels)}
	}
	bpp := t.format.BytesPerPixel()
	if len(pixels) < width*height*bpp {
		return &TextureDataError{Width: width, Height: height, Format: t.format, Got: len(pixels)}
	}

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			src := pixels[(row*width+col)*bpp:]
			dst := t.rgba[((y+row)*t.width+(x+col))*4:]
			switch t.format {
			case FormatRGBA:
				copy(dst[:4], src[:4])
			case FormatRGB:
				dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 255
			case FormatAlpha:
				dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, src[0]
			}
		}
	}
	return nil
}

// Release frees the pixel storage.
func (t *softTexture) Release() {
	t.rgba = nil
}

// sample does a nearest-neighbour lookup with clamp-to-edge addressing.
func (t *softTexture) sample(u, v float32) [4]float32 {
	if t.width == 0 || t.height == 0 {
		return [4]float32{0, 0, 0, 0}
	}
	x := clampInt(int(u*float32(t.width)), 0, t.width-1)
	y := clampInt(int(v*float32(t.height)), 0, t.height-1)
	p := t.rgba[(y*t.width+x)*4:]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func unit8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
