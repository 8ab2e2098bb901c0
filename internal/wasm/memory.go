package wasm

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// ErrNoMemory is reported when the guest does not export a linear memory.
var ErrNoMemory = errors.New("guest exports no memory")

// Memory is the bridge between host values and guest linear memory.
//
// The guest owns its memory. Memory never holds on to a slice of it: the
// guest's memory is looked up on every call, and every View it hands out is
// only valid until the next call into the guest, because memory.grow moves
// the backing buffer.
type Memory struct {
	module api.Module
}

// NewMemory creates a memory bridge for a module.
func NewMemory(module api.Module) *Memory {
	return &Memory{module: module}
}

func (m *Memory) memory(op string, ptr, length uint32) (api.Memory, error) {
	mem := m.module.Memory()
	if mem == nil {
		return nil, &MemoryAccessError{Operation: op, Address: ptr, Length: length, Err: ErrNoMemory}
	}
	return mem, nil
}

// View borrows length bytes at ptr without copying.
func (m *Memory) View(ptr, length uint32) (View, error) {
	mem, err := m.memory("view", ptr, length)
	if err != nil {
		return View{}, err
	}
	buf, ok := mem.Read(ptr, length)
	if !ok {
		return View{}, &MemoryAccessError{Operation: "view", Address: ptr, Length: length}
	}
	return View{buf: buf}, nil
}

// String decodes length bytes at ptr as UTF-8.
func (m *Memory) String(ptr, length uint32) (string, error) {
	v, err := m.View(ptr, length)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Float32s borrows count little-endian float32 values at ptr.
func (m *Memory) Float32s(ptr, count uint32) (View, error) {
	return m.View(ptr, count*4)
}

// Write copies data into guest memory at ptr.
func (m *Memory) Write(ptr uint32, data []byte) error {
	length := uint32(len(data))
	mem, err := m.memory("write", ptr, length)
	if err != nil {
		return err
	}
	if !mem.Write(ptr, data) {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: length}
	}
	return nil
}

// Grow extends the guest memory by delta pages and returns the previous size
// in pages. Every outstanding View is invalid afterwards.
func (m *Memory) Grow(delta uint32) (uint32, bool) {
	mem := m.module.Memory()
	if mem == nil {
		return 0, false
	}
	return mem.Grow(delta)
}

// Size returns the current size of guest memory in bytes.
func (m *Memory) Size() uint32 {
	mem := m.module.Memory()
	if mem == nil {
		return 0
	}
	return mem.Size()
}

// View is a borrowed window onto guest memory. Do not keep it past the
// current host call.
type View struct {
	buf []byte
}

// Bytes returns the underlying bytes. They alias guest memory.
func (v View) Bytes() []byte { return v.buf }

// String copies the view out as a UTF-8 string.
func (v View) String() string { return string(v.buf) }

// Float32At returns the little-endian float32 at byte offset off.
func (v View) Float32At(off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(v.buf[off:]))
}

// Float32 returns the i-th float32 of the view.
func (v View) Float32(i int) float32 {
	return v.Float32At(i * 4)
}
