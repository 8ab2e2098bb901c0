package render

import (
	"encoding/binary"
	"fmt"
	"math"
)

// VertexLayout describes a guest-owned interleaved vertex buffer.
//
// Positions are ElementSize float32 components. Colours are four float32
// or four normalised bytes, UVs two float32 or two normalised bytes,
// depending on Float. A negative offset marks the attribute as absent.
type VertexLayout struct {
	Count          int
	ElementSize    int
	Stride         int
	PositionOffset int
	ColorOffset    int
	UVOffset       int
	Float          bool
}

// LayoutError reports a vertex layout the backend cannot decode.
type LayoutError struct {
	Layout VertexLayout
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("invalid vertex layout %+v: %s", e.Layout, e.Reason)
}

func (l VertexLayout) colorSize() int {
	if l.Float {
		return 16
	}
	return 4
}

func (l VertexLayout) uvSize() int {
	if l.Float {
		return 8
	}
	return 2
}

// vertexExtent returns how many bytes from the start of a vertex the
// attributes reach.
func (l VertexLayout) vertexExtent() int {
	end := l.PositionOffset + l.ElementSize*4
	if l.ColorOffset >= 0 && l.ColorOffset+l.colorSize() > end {
		end = l.ColorOffset + l.colorSize()
	}
	if l.UVOffset >= 0 && l.UVOffset+l.uvSize() > end {
		end = l.UVOffset + l.uvSize()
	}
	return end
}

// Size returns the number of bytes the buffer spans.
func (l VertexLayout) Size() int {
	if l.Count <= 0 {
		return 0
	}
	return (l.Count-1)*l.Stride + l.vertexExtent()
}

// Validate checks the layout is self-consistent.
func (l VertexLayout) Validate() error {
	switch {
	case l.Count < 0:
		return &LayoutError{Layout: l, Reason: "negative count"}
	case l.ElementSize != 2 && l.ElementSize != 3:
		return &LayoutError{Layout: l, Reason: "position must have 2 or 3 components"}
	case l.Stride <= 0:
		return &LayoutError{Layout: l, Reason: "stride must be positive"}
	case l.PositionOffset < 0:
		return &LayoutError{Layout: l, Reason: "position attribute is required"}
	}
	return nil
}

// DecodeVertices reads l.Count vertices from data.
func DecodeVertices(l VertexLayout, data []byte) ([]Vertex, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if len(data) < l.Size() {
		return nil, &LayoutError{Layout: l, Reason: fmt.Sprintf("buffer holds %d bytes, layout needs %d", len(data), l.Size())}
	}

	vertices := make([]Vertex, l.Count)
	for i := range vertices {
		base := i * l.Stride
		v := &vertices[i]

		for c := 0; c < l.ElementSize; c++ {
			v.Position[c] = f32(data, base+l.PositionOffset+c*4)
		}

		if l.ColorOffset >= 0 {
			off := base + l.ColorOffset
			for c := 0; c < 4; c++ {
				if l.Float {
					v.Color[c] = f32(data, off+c*4)
				} else {
					v.Color[c] = float32(data[off+c]) / 255
				}
			}
		} else {
			v.Color = [4]float32{1, 1, 1, 1}
		}

		if l.UVOffset >= 0 {
			off := base + l.UVOffset
			for c := 0; c < 2; c++ {
				if l.Float {
					v.UV[c] = f32(data, off+c*4)
				} else {
					v.UV[c] = float32(data[off+c]) / 255
				}
			}
		}
	}
	return vertices, nil
}

func f32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}
