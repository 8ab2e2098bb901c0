package terminal

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// upperHalf draws the top pixel in the foreground and the bottom pixel in
// the background, so one cell shows two vertically stacked pixels.
const upperHalf = "▀"

// PixelsPerRow is the number of framebuffer rows shown per terminal row.
const PixelsPerRow = 2

type cellColors struct {
	fg, bg lipgloss.Color
}

// RenderFrame converts a framebuffer to half-block cells. The output is
// cropped to cols × rows cells; zero means unbounded. Transparent pixels
// are composited over black.
func RenderFrame(img *image.NRGBA, cols, rows int) string {
	b := img.Bounds()
	width := b.Dx()
	if cols > 0 && cols < width {
		width = cols
	}
	height := (b.Dy() + 1) / PixelsPerRow
	if rows > 0 && rows < height {
		height = rows
	}

	var sb strings.Builder
	sb.Grow(width*height*4 + height)

	for row := 0; row < height; row++ {
		if row > 0 {
			sb.WriteRune('\n')
		}

		// Group consecutive cells with the same colours
		x := 0
		for x < width {
			start := cellAt(img, x, row)
			n := 0
			for x < width && cellAt(img, x, row) == start {
				n++
				x++
			}
			style := lipgloss.NewStyle().Foreground(start.fg).Background(start.bg)
			sb.WriteString(style.Render(strings.Repeat(upperHalf, n)))
		}
	}
	return sb.String()
}

func cellAt(img *image.NRGBA, x, row int) cellColors {
	b := img.Bounds()
	top := pixelColor(img, b.Min.X+x, b.Min.Y+row*PixelsPerRow)
	bottom := lipgloss.Color("#000000")
	if y := b.Min.Y + row*PixelsPerRow + 1; y < b.Max.Y {
		bottom = pixelColor(img, b.Min.X+x, y)
	}
	return cellColors{fg: top, bg: bottom}
}

func pixelColor(img *image.NRGBA, x, y int) lipgloss.Color {
	c := img.NRGBAAt(x, y)
	a := uint32(c.A)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x",
		uint32(c.R)*a/255, uint32(c.G)*a/255, uint32(c.B)*a/255))
}
