package host

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/api/guest"
	"github.com/woxQAQ/canvas-host/internal/render"
)

func (f *fixture) write(t *testing.T, addr uint32, data []byte) {
	t.Helper()
	require.NoError(t, f.memory().Write(addr, data))
}

func TestImportTableIsComplete(t *testing.T) {
	f := newFixture(t)
	assert.ElementsMatch(t, []string{
		guest.ImportLogMessage, guest.ImportSetTitle, guest.ImportCreateCanvas,
		guest.ImportResizeCanvas, guest.ImportGrowMemory, guest.ImportClockNow,
		guest.ImportGLInit, guest.ImportGLCreateTexture, guest.ImportGLUpdateTexture,
		guest.ImportGLDestroyTexture, guest.ImportGLBindTexture, guest.ImportGLSetProjection,
		guest.ImportGLSetModel, guest.ImportGLClear, guest.ImportGLViewport, guest.ImportGLDraw,
		guest.ImportFSFileSize, guest.ImportFSReadFile,
	}, f.host.Imports().Names())
}

func TestFileImports(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{
		"data/level.txt": {Data: []byte("LEVEL-1")},
	}, "data/level.txt", "missing.bin")

	ctx := context.Background()
	mod := f.host.instance.Module()

	f.write(t, 2048, []byte("data/level.txt"))
	assert.Equal(t, int32(7), f.host.fsFileSize(ctx, mod, 2048, 14))
	assert.Equal(t, int32(7), f.host.fsReadFile(ctx, mod, 2048, 14, 4096))

	v, err := f.memory().View(4096, 7)
	require.NoError(t, err)
	assert.Equal(t, "LEVEL-1", v.String())

	f.write(t, 2100, []byte("missing.bin"))
	assert.Zero(t, f.host.fsFileSize(ctx, mod, 2100, 11))
	assert.Zero(t, f.host.fsReadFile(ctx, mod, 2100, 11, 8192))

	untouched, err := f.memory().View(8192, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, untouched.Bytes())
}

func TestTextureImports(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	ctx := context.Background()
	mod := f.host.instance.Module()

	f.write(t, 3000, []byte{255, 0, 0, 255})

	h1 := f.host.glCreateTexture(ctx, mod, 3000, 1, 1, guest.TextureRGBA)
	h2 := f.host.glCreateTexture(ctx, mod, 0, 8, 8, guest.TextureAlpha)
	assert.Equal(t, uint32(1), h1)
	assert.Equal(t, uint32(2), h2)

	f.host.glDestroyTexture(ctx, mod, h1)
	h3 := f.host.glCreateTexture(ctx, mod, 0, 2, 2, guest.TextureRGB)
	assert.Equal(t, uint32(3), h3, "destroyed handles are never reused")

	assert.Zero(t, f.host.glCreateTexture(ctx, mod, 3000, 1, 1, 9), "unknown format")
	assert.Zero(t, f.host.glCreateTexture(ctx, mod, 3000, -1, 1, guest.TextureRGBA))

	// Unknown handles are logged and ignored.
	assert.NotPanics(t, func() {
		f.host.glBindTexture(ctx, mod, 99)
		f.host.glDestroyTexture(ctx, mod, 99)
		f.host.glUpdateTexture(ctx, mod, 99, 0, 0, 1, 1, 3000)
	})
	assert.NotEmpty(t, f.logs.FilterMessage("Failed to bind texture").All())

	f.host.glUpdateTexture(ctx, mod, h2, 0, 0, 2, 2, 3000)
	assert.Equal(t, 2, f.host.Backend().TextureCount())
}

func TestDrawImports(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	ctx := context.Background()
	mod := f.host.instance.Module()

	proj := render.Ortho(0, 320, 0, 200, -1, 1)
	buf := make([]byte, 64)
	for i, v := range proj {
		putF32(buf, i*4, v)
	}
	f.write(t, 5000, buf)
	f.host.glSetProjection(ctx, mod, 5000)
	assert.Equal(t, proj, f.host.Backend().Projection())

	f.write(t, 5100, buf[:64])
	f.host.glSetModel(ctx, mod, 5100)
	assert.Equal(t, proj, f.host.Backend().Model())
	f.host.Backend().SetModel(render.Identity())

	// One triangle covering the canvas, byte colours, no UVs.
	verts := make([]byte, 3*12)
	for i, p := range [][2]float32{{0, 0}, {640, 0}, {0, 400}} {
		putF32(verts, i*12, p[0])
		putF32(verts, i*12+4, p[1])
		copy(verts[i*12+8:], []byte{255, 0, 0, 255})
	}
	f.write(t, 6000, verts)

	f.host.glClear(ctx, mod, 0, 0, 1, 1)
	f.host.glDraw(ctx, mod, 6000, 3, 2, 12, 0, 8, -1, 0)

	p := f.device.Snapshot().NRGBAAt(160, 100)
	assert.Equal(t, uint8(255), p.R)
	assert.Equal(t, uint8(0), p.B)

	// A bad layout is skipped.
	f.host.glDraw(ctx, mod, 6000, 3, 5, 12, 0, 8, -1, 0)
	assert.NotEmpty(t, f.logs.FilterMessage("Draw skipped").All())
}

func TestCanvasImports(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	ctx := context.Background()
	mod := f.host.instance.Module()

	var sizes [][2]int
	f.host.OnCanvasChange(func(w, h int) { sizes = append(sizes, [2]int{w, h}) })

	f.host.resizeCanvas(ctx, mod, 64, 48)
	f.host.resizeCanvas(ctx, mod, 0, 48)

	assert.Equal(t, [][2]int{{64, 48}}, sizes)
	w, h := f.device.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)

	var title string
	f.host.OnTitleChange(func(s string) { title = s })
	f.write(t, 2000, []byte("Level 2"))
	f.host.setTitle(ctx, mod, 2000, 7)
	assert.Equal(t, "Level 2", title)
	assert.Equal(t, "Level 2", f.host.Title())
}

func TestLogLevels(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	ctx := context.Background()
	mod := f.host.instance.Module()

	f.write(t, 2000, []byte("msg"))
	for level := int32(0); level <= 4; level++ {
		f.host.logMessage(ctx, mod, level, 2000, 3)
	}

	entries := f.logs.FilterMessage("msg").All()
	require.Len(t, entries, 5)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.InfoLevel, entries[1].Level)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
	assert.Equal(t, zap.InfoLevel, entries[4].Level)
}

func TestOutOfRangeAccessTraps(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	mod := f.host.instance.Module()

	assert.Panics(t, func() {
		f.host.logMessage(context.Background(), mod, guest.LogInfo, 65530, 100)
	})
}

func TestGrowMemoryAndClock(t *testing.T) {
	f := newFixture(t)
	f.start(t, fstest.MapFS{})
	ctx := context.Background()
	mod := f.host.instance.Module()

	assert.Equal(t, int32(1), f.host.growMemory(ctx, mod, 1))
	assert.Equal(t, uint32(2*65536), f.memory().Size())

	assert.Zero(t, f.host.clockNow(ctx))
	f.clock = f.clock.Add(1500 * time.Millisecond)
	assert.InDelta(t, 1500.0, f.host.clockNow(ctx), 1e-9)
}
