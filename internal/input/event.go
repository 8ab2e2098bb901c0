// Package input captures host input and hands it to the guest once per frame.
//
// Events are fixed 20-byte little-endian records:
//
//	type:i32 x:i32 y:i32 pressed:i32 key:i32
//
// The guest reads them from a buffer it owns; the host writes at most
// Capacity records per frame.
package input

import (
	"encoding/binary"
	"fmt"
)

// EventType identifies what an Event describes.
type EventType int32

const (
	EventNil EventType = iota
	EventClose
	EventResize
	EventKeyboard
	EventMouseButton
	EventMouseMove
	EventMouseScroll
)

func (t EventType) String() string {
	switch t {
	case EventNil:
		return "nil"
	case EventClose:
		return "close"
	case EventResize:
		return "resize"
	case EventKeyboard:
		return "keyboard"
	case EventMouseButton:
		return "mouse_button"
	case EventMouseMove:
		return "mouse_move"
	case EventMouseScroll:
		return "mouse_scroll"
	default:
		return fmt.Sprintf("event(%d)", int32(t))
	}
}

// RecordSize is the encoded size of one Event.
const RecordSize = 20

// Event is one input record as the guest sees it.
type Event struct {
	Type    EventType
	X       int32
	Y       int32
	Pressed bool
	Key     KeyCode
}

// Encode writes the record into dst, which must hold RecordSize bytes.
func (e Event) Encode(dst []byte) {
	var pressed uint32
	if e.Pressed {
		pressed = 1
	}
	binary.LittleEndian.PutUint32(dst[0:], uint32(e.Type))
	binary.LittleEndian.PutUint32(dst[4:], uint32(e.X))
	binary.LittleEndian.PutUint32(dst[8:], uint32(e.Y))
	binary.LittleEndian.PutUint32(dst[12:], pressed)
	binary.LittleEndian.PutUint32(dst[16:], uint32(e.Key))
}

// EncodeEvents serialises events back to back.
func EncodeEvents(events []Event) []byte {
	buf := make([]byte, len(events)*RecordSize)
	for i, e := range events {
		e.Encode(buf[i*RecordSize:])
	}
	return buf
}

// DecodeEvents parses consecutive records from buf. A trailing partial
// record is an error.
func DecodeEvents(buf []byte) ([]Event, error) {
	if len(buf)%RecordSize != 0 {
		return nil, fmt.Errorf("event buffer length %d is not a multiple of %d", len(buf), RecordSize)
	}
	events := make([]Event, 0, len(buf)/RecordSize)
	for off := 0; off < len(buf); off += RecordSize {
		events = append(events, Event{
			Type:    EventType(int32(binary.LittleEndian.Uint32(buf[off:]))),
			X:       int32(binary.LittleEndian.Uint32(buf[off+4:])),
			Y:       int32(binary.LittleEndian.Uint32(buf[off+8:])),
			Pressed: binary.LittleEndian.Uint32(buf[off+12:]) != 0,
			Key:     KeyCode(int32(binary.LittleEndian.Uint32(buf[off+16:]))),
		})
	}
	return events, nil
}
