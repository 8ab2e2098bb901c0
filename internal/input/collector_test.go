package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() (*Collector, *Queue) {
	q := NewQueue()
	canvas := StaticCanvas{Left: 10.5, Top: 20, Width: 640, Height: 480}
	return NewCollector(q, canvas), q
}

func TestMouseAtCanvasOrigin(t *testing.T) {
	c, q := newTestCollector()

	c.MouseDown(0, 10.5, 20)

	require.Equal(t, 1, q.Len())
	assert.Equal(t, Event{Type: EventMouseButton, X: 0, Y: 0, Pressed: true, Key: KeyMouseLeft}, q.Events()[0])
}

func TestMouseCoordinatesFloored(t *testing.T) {
	c, q := newTestCollector()

	c.MouseMove(15.9, 19.5)
	c.MouseUp(2, 110.6, 120.99)

	events := q.Events()
	require.Len(t, events, 2)
	assert.Equal(t, Event{Type: EventMouseMove, X: 5, Y: -1}, events[0])
	assert.Equal(t, Event{Type: EventMouseButton, X: 100, Y: 100, Key: KeyMouseRight}, events[1])
}

func TestUnknownMouseButtonStillEnqueued(t *testing.T) {
	c, q := newTestCollector()

	c.MouseDown(7, 10.5, 20)

	require.Equal(t, 1, q.Len())
	assert.Equal(t, KeyUnknown, q.Events()[0].Key)
}

func TestUnknownKeyboardKeySuppressed(t *testing.T) {
	c, q := newTestCollector()

	c.KeyDown("MediaPlayPause")
	c.KeyUp("Dead")
	assert.Zero(t, q.Len())

	c.KeyDown("a")
	c.KeyUp("A")
	events := q.Events()
	require.Len(t, events, 2)
	assert.Equal(t, Event{Type: EventKeyboard, Pressed: true, Key: KeyA}, events[0])
	assert.Equal(t, Event{Type: EventKeyboard, Pressed: false, Key: KeyA}, events[1])
}

func TestWheelReportsInvertedSign(t *testing.T) {
	c, q := newTestCollector()

	c.Wheel(0, 120)
	c.Wheel(-3.5, -0.01)
	c.Wheel(0, 0)

	events := q.Events()
	require.Len(t, events, 3)
	assert.Equal(t, Event{Type: EventMouseScroll, X: 0, Y: -1}, events[0])
	assert.Equal(t, Event{Type: EventMouseScroll, X: 1, Y: 1}, events[1])
	assert.Equal(t, Event{Type: EventMouseScroll}, events[2])
}

func TestResizeAndClose(t *testing.T) {
	c, q := newTestCollector()

	c.Resize(800, 600)
	c.Close()

	assert.Equal(t, []Event{
		{Type: EventResize, X: 800, Y: 600},
		{Type: EventClose},
	}, q.Events())
}

func TestCaptureOrderPreserved(t *testing.T) {
	c, q := newTestCollector()

	c.MouseMove(11, 21)
	c.MouseMove(12, 22)
	c.KeyDown("Enter")
	c.MouseMove(13, 23)

	events := q.Events()
	require.Len(t, events, 4)
	assert.Equal(t, EventMouseMove, events[0].Type)
	assert.Equal(t, int32(1), events[1].X-events[0].X, "consecutive moves are not coalesced")
	assert.Equal(t, KeyEnter, events[2].Key)
	assert.Equal(t, int32(2), events[3].X)
}

func TestLookupKey(t *testing.T) {
	tests := []struct {
		name string
		want KeyCode
	}{
		{"a", KeyA},
		{"Z", KeyZ},
		{"0", Key0},
		{"9", Key9},
		{" ", KeySpace},
		{"ArrowLeft", KeyLeft},
		{"Escape", KeyEscape},
		{"F12", KeyF12},
		{"arrowleft", KeyUnknown},
		{"é", KeyUnknown},
		{"", KeyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupKey(tt.name))
		})
	}
}

func TestKeyCodeString(t *testing.T) {
	assert.Equal(t, "Space", KeySpace.String())
	assert.Equal(t, "ArrowUp", KeyUp.String())
	assert.Equal(t, "Unknown", KeyUnknown.String())
	assert.Equal(t, "MouseLeft", KeyMouseLeft.String())
}
