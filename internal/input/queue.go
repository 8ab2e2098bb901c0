package input

import (
	"context"
	"fmt"
)

// Capacity is the number of records the guest event buffer holds.
const Capacity = 128

// Sink is the guest side of a flush.
type Sink interface {
	// EventBuffer returns the guest address of the event buffer.
	EventBuffer(ctx context.Context) (uint32, error)
	// WriteEvents copies encoded records to ptr in guest memory.
	WriteEvents(ptr uint32, data []byte) error
	// SetEventCount tells the guest how many records were written.
	SetEventCount(ctx context.Context, n int32) error
}

// Queue buffers events captured between two frames. It is not safe for
// concurrent use: producers and the flushing frame share one goroutine.
type Queue struct {
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{events: make([]Event, 0, Capacity)}
}

// Push appends an event. There is no bound here; overflow is cut at flush.
func (q *Queue) Push(e Event) {
	q.events = append(q.events, e)
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Events returns a copy of the pending events in capture order.
func (q *Queue) Events() []Event {
	out := make([]Event, len(q.events))
	copy(out, q.events)
	return out
}

// Flush writes up to Capacity pending events to the sink in capture order
// and reports the count to the guest. Nothing is sent when the queue is
// empty. Flush does not clear the queue; call Reset after the guest frame.
func (q *Queue) Flush(ctx context.Context, sink Sink) (int, error) {
	if len(q.events) == 0 {
		return 0, nil
	}

	ptr, err := sink.EventBuffer(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get event buffer: %w", err)
	}

	n := len(q.events)
	if n > Capacity {
		n = Capacity
	}

	if err := sink.WriteEvents(ptr, EncodeEvents(q.events[:n])); err != nil {
		return 0, fmt.Errorf("failed to write events: %w", err)
	}

	if err := sink.SetEventCount(ctx, int32(n)); err != nil {
		return 0, fmt.Errorf("failed to set event count: %w", err)
	}

	return n, nil
}

// Reset drops every pending event, delivered or not.
func (q *Queue) Reset() {
	q.events = q.events[:0]
}
