package wasm

import (
	"github.com/tetratelabs/wazero"

	"github.com/woxQAQ/canvas-host/api/guest"
)

// HostModuleName is the import module name the guest resolves host functions from.
const HostModuleName = guest.ImportModule

// HostExporter registers Go functions for import by the guest.
type HostExporter interface {
	ExportFunctions(builder wazero.HostModuleBuilder)
}

// HostFunction describes one function offered to the guest.
// Func must be a Go func whose first parameters are context.Context and
// optionally api.Module, followed by wasm-compatible numeric types.
type HostFunction struct {
	Name   string
	Func   interface{}
	Params []string
}

// HostFunctions is a static import table.
type HostFunctions []HostFunction

// ExportFunctions implements HostExporter.
func (fs HostFunctions) ExportFunctions(builder wazero.HostModuleBuilder) {
	for _, f := range fs {
		builder.NewFunctionBuilder().
			WithFunc(f.Func).
			WithParameterNames(f.Params...).
			Export(f.Name)
	}
}

// Names returns the exported function names in table order.
func (fs HostFunctions) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}
