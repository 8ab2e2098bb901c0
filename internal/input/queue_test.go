package input

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink stands in for guest memory and the guest's event exports.
type fakeSink struct {
	ptr       uint32
	mem       map[uint32][]byte
	count     int32
	calls     int
	bufferErr error
}

func newFakeSink(ptr uint32) *fakeSink {
	return &fakeSink{ptr: ptr, mem: map[uint32][]byte{}, count: -1}
}

func (s *fakeSink) EventBuffer(context.Context) (uint32, error) {
	s.calls++
	return s.ptr, s.bufferErr
}

func (s *fakeSink) WriteEvents(ptr uint32, data []byte) error {
	s.mem[ptr] = append([]byte(nil), data...)
	return nil
}

func (s *fakeSink) SetEventCount(_ context.Context, n int32) error {
	s.count = n
	return nil
}

func sampleEvents(n int) []Event {
	events := make([]Event, n)
	for i := range events {
		events[i] = Event{
			Type:    EventType(i%6 + 1),
			X:       int32(i),
			Y:       int32(-i),
			Pressed: i%2 == 0,
			Key:     KeyCode(i % int(KeyMouseRight+1)),
		}
	}
	return events
}

func TestQueueFlushRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 17, Capacity} {
		q := NewQueue()
		events := sampleEvents(n)
		for _, e := range events {
			q.Push(e)
		}

		sink := newFakeSink(4096)
		written, err := q.Flush(context.Background(), sink)
		require.NoError(t, err)
		assert.Equal(t, n, written)
		assert.Equal(t, int32(n), sink.count)

		decoded, err := DecodeEvents(sink.mem[4096])
		require.NoError(t, err)
		assert.Equal(t, events, decoded)
	}
}

func TestQueueFlushTruncatesOverflow(t *testing.T) {
	q := NewQueue()
	events := sampleEvents(Capacity + 40)
	for _, e := range events {
		q.Push(e)
	}

	sink := newFakeSink(64)
	written, err := q.Flush(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, Capacity, written)
	assert.Equal(t, int32(Capacity), sink.count)
	require.Len(t, sink.mem[64], Capacity*RecordSize)

	decoded, err := DecodeEvents(sink.mem[64])
	require.NoError(t, err)
	assert.Equal(t, events[:Capacity], decoded)
}

func TestQueueFlushEmptySkipsGuest(t *testing.T) {
	q := NewQueue()
	sink := newFakeSink(64)

	written, err := q.Flush(context.Background(), sink)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Zero(t, sink.calls)
	assert.Equal(t, int32(-1), sink.count)
}

func TestQueueResetDropsUndelivered(t *testing.T) {
	q := NewQueue()
	for _, e := range sampleEvents(Capacity + 5) {
		q.Push(e)
	}
	_, err := q.Flush(context.Background(), newFakeSink(0))
	require.NoError(t, err)

	q.Reset()
	assert.Zero(t, q.Len())

	// A reset without a flush also clears.
	q.Push(Event{Type: EventClose})
	q.Reset()
	assert.Zero(t, q.Len())
}

func TestQueueFlushPropagatesSinkError(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Type: EventClose})

	sink := newFakeSink(0)
	sink.bufferErr = errors.New("trap")
	_, err := q.Flush(context.Background(), sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, sink.bufferErr)
}

func TestEncodeLayout(t *testing.T) {
	buf := make([]byte, RecordSize)
	Event{Type: EventMouseButton, X: -1, Y: 258, Pressed: true, Key: KeyMouseLeft}.Encode(buf)

	assert.Equal(t, []byte{
		4, 0, 0, 0,
		0xff, 0xff, 0xff, 0xff,
		2, 1, 0, 0,
		1, 0, 0, 0,
		byte(KeyMouseLeft), 0, 0, 0,
	}, buf)
}

func TestDecodeEventsRejectsPartialRecord(t *testing.T) {
	_, err := DecodeEvents(make([]byte, RecordSize+3))
	assert.Error(t, err)
}
