package input

import (
	"math"
)

// Bounds is the canvas rectangle in viewport coordinates.
type Bounds struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Canvas reports where the canvas currently sits in the viewport.
type Canvas interface {
	Bounds() Bounds
}

// StaticCanvas is a Canvas with fixed bounds.
type StaticCanvas Bounds

// Bounds implements Canvas.
func (c StaticCanvas) Bounds() Bounds { return Bounds(c) }

// Collector normalises host input callbacks into events on a Queue.
type Collector struct {
	queue  *Queue
	canvas Canvas
}

// NewCollector creates a collector feeding queue. Mouse positions are made
// relative to canvas.
func NewCollector(queue *Queue, canvas Canvas) *Collector {
	return &Collector{queue: queue, canvas: canvas}
}

// KeyDown records a key press. Unmapped keys are dropped.
func (c *Collector) KeyDown(name string) {
	c.key(name, true)
}

// KeyUp records a key release. Unmapped keys are dropped.
func (c *Collector) KeyUp(name string) {
	c.key(name, false)
}

func (c *Collector) key(name string, pressed bool) {
	code := LookupKey(name)
	if code == KeyUnknown {
		return
	}
	c.queue.Push(Event{Type: EventKeyboard, Pressed: pressed, Key: code})
}

// MouseDown records a button press at viewport position (clientX, clientY).
func (c *Collector) MouseDown(button int, clientX, clientY float64) {
	c.mouseButton(button, clientX, clientY, true)
}

// MouseUp records a button release at viewport position (clientX, clientY).
func (c *Collector) MouseUp(button int, clientX, clientY float64) {
	c.mouseButton(button, clientX, clientY, false)
}

func (c *Collector) mouseButton(button int, clientX, clientY float64, pressed bool) {
	x, y := c.local(clientX, clientY)
	c.queue.Push(Event{
		Type:    EventMouseButton,
		X:       x,
		Y:       y,
		Pressed: pressed,
		Key:     MouseButtonKey(button),
	})
}

// MouseMove records the pointer position.
func (c *Collector) MouseMove(clientX, clientY float64) {
	x, y := c.local(clientX, clientY)
	c.queue.Push(Event{Type: EventMouseMove, X: x, Y: y})
}

// Wheel records the direction of a scroll. Magnitude is discarded and the
// sign inverted, so scrolling content down reports -1.
func (c *Collector) Wheel(deltaX, deltaY float64) {
	c.queue.Push(Event{
		Type: EventMouseScroll,
		X:    -sign(deltaX),
		Y:    -sign(deltaY),
	})
}

// Resize records a new canvas size.
func (c *Collector) Resize(width, height int) {
	c.queue.Push(Event{Type: EventResize, X: int32(width), Y: int32(height)})
}

// Close records that the host is going away.
func (c *Collector) Close() {
	c.queue.Push(Event{Type: EventClose})
}

func (c *Collector) local(clientX, clientY float64) (int32, int32) {
	var b Bounds
	if c.canvas != nil {
		b = c.canvas.Bounds()
	}
	return int32(math.Floor(clientX - b.Left)), int32(math.Floor(clientY - b.Top))
}

func sign(v float64) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
