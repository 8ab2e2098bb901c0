// Package wasmtest assembles small WebAssembly binaries for tests, so guest
// behaviour can be exercised without an external compiler.
package wasmtest

import (
	"encoding/binary"
	"math"
)

// Value types.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
	F32 byte = 0x7d
	F64 byte = 0x7c
)

const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secMemory   = 5
	secExport   = 7
	secCode     = 10
	secData     = 11

	extFunc   = 0x00
	extMemory = 0x02
)

type funcType struct {
	params  []byte
	results []byte
}

type importFunc struct {
	module  string
	name    string
	typeIdx uint32
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type dataSeg struct {
	offset int32
	data   []byte
}

// Module builds a wasm binary. Imports must be declared before functions so
// the function index space stays stable.
type Module struct {
	types    []funcType
	imports  []importFunc
	funcs    []uint32
	codes    [][]byte
	exports  []export
	data     []dataSeg
	memPages uint32
	hasMem   bool
}

// New returns an empty module builder.
func New() *Module {
	return &Module{}
}

func (m *Module) typeIdx(params, results []byte) uint32 {
	for i, t := range m.types {
		if string(t.params) == string(params) && string(t.results) == string(results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// Import declares an imported function and returns its function index.
func (m *Module) Import(module, name string, params, results []byte) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must be declared before functions")
	}
	m.imports = append(m.imports, importFunc{module: module, name: name, typeIdx: m.typeIdx(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function with the given body (without the trailing end
// opcode) and exports it under name unless name is empty.
func (m *Module) Func(name string, params, results, locals []byte, body ...[]byte) uint32 {
	m.funcs = append(m.funcs, m.typeIdx(params, results))
	idx := uint32(len(m.imports) + len(m.funcs) - 1)

	var code []byte
	code = appendULEB(code, uint32(len(locals)))
	for _, l := range locals {
		code = appendULEB(code, 1)
		code = append(code, l)
	}
	for _, b := range body {
		code = append(code, b...)
	}
	code = append(code, 0x0b)
	m.codes = append(m.codes, code)

	if name != "" {
		m.exports = append(m.exports, export{name: name, kind: extFunc, idx: idx})
	}
	return idx
}

// Memory declares linear memory with a minimum page count, exported as "memory".
func (m *Module) Memory(pages uint32) {
	m.memPages = pages
	m.hasMem = true
	m.exports = append(m.exports, export{name: "memory", kind: extMemory, idx: 0})
}

// Data places bytes in memory at offset when the module is instantiated.
func (m *Module) Data(offset int32, data []byte) {
	m.data = append(m.data, dataSeg{offset: offset, data: data})
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		var b []byte
		b = appendULEB(b, uint32(len(m.types)))
		for _, t := range m.types {
			b = append(b, 0x60)
			b = appendULEB(b, uint32(len(t.params)))
			b = append(b, t.params...)
			b = appendULEB(b, uint32(len(t.results)))
			b = append(b, t.results...)
		}
		out = section(out, secType, b)
	}

	if len(m.imports) > 0 {
		var b []byte
		b = appendULEB(b, uint32(len(m.imports)))
		for _, imp := range m.imports {
			b = appendName(b, imp.module)
			b = appendName(b, imp.name)
			b = append(b, extFunc)
			b = appendULEB(b, imp.typeIdx)
		}
		out = section(out, secImport, b)
	}

	if len(m.funcs) > 0 {
		var b []byte
		b = appendULEB(b, uint32(len(m.funcs)))
		for _, t := range m.funcs {
			b = appendULEB(b, t)
		}
		out = section(out, secFunction, b)
	}

	if m.hasMem {
		b := []byte{0x01, 0x00}
		b = appendULEB(b, m.memPages)
		out = section(out, secMemory, b)
	}

	if len(m.exports) > 0 {
		var b []byte
		b = appendULEB(b, uint32(len(m.exports)))
		for _, e := range m.exports {
			b = appendName(b, e.name)
			b = append(b, e.kind)
			b = appendULEB(b, e.idx)
		}
		out = section(out, secExport, b)
	}

	if len(m.codes) > 0 {
		var b []byte
		b = appendULEB(b, uint32(len(m.codes)))
		for _, c := range m.codes {
			b = appendULEB(b, uint32(len(c)))
			b = append(b, c...)
		}
		out = section(out, secCode, b)
	}

	if len(m.data) > 0 {
		var b []byte
		b = appendULEB(b, uint32(len(m.data)))
		for _, d := range m.data {
			b = append(b, 0x00)
			b = append(b, I32Const(d.offset)...)
			b = append(b, 0x0b)
			b = appendULEB(b, uint32(len(d.data)))
			b = append(b, d.data...)
		}
		out = section(out, secData, b)
	}

	return out
}

func section(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = appendULEB(out, uint32(len(payload)))
	return append(out, payload...)
}

func appendName(b []byte, s string) []byte {
	b = appendULEB(b, uint32(len(s)))
	return append(b, s...)
}

func appendULEB(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

func appendSLEB(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0)
		if !done {
			c |= 0x80
		}
		b = append(b, c)
		if done {
			return b
		}
	}
}

// Instructions.

func I32Const(v int32) []byte { return appendSLEB([]byte{0x41}, int64(v)) }

func F32Const(v float32) []byte {
	b := []byte{0x43, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[1:], math.Float32bits(v))
	return b
}

func LocalGet(i uint32) []byte { return appendULEB([]byte{0x20}, i) }

func Call(fn uint32) []byte { return appendULEB([]byte{0x10}, fn) }

// I32Load loads from the address on the stack plus offset.
func I32Load(offset uint32) []byte { return appendULEB([]byte{0x28, 0x02}, offset) }

// I32Store stores to the address below the value on the stack plus offset.
func I32Store(offset uint32) []byte { return appendULEB([]byte{0x36, 0x02}, offset) }

func I32Add() []byte { return []byte{0x6a} }

func Drop() []byte { return []byte{0x1a} }

func Unreachable() []byte { return []byte{0x00} }
