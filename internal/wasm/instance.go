package wasm

import (
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/canvas-host/api/guest"
)

// Guest export surface consumed by the host.
const (
	ExportMain          = guest.ExportMain
	ExportFrame         = guest.ExportFrame
	ExportEventBuffer   = guest.ExportEventBuffer
	ExportSetEventCount = guest.ExportSetEventCount
)

// RequiredExports lists every function a guest must export.
var RequiredExports = []string{
	ExportMain,
	ExportFrame,
	ExportEventBuffer,
	ExportSetEventCount,
}

// InstanceManager instantiates guests against one host import module.
type InstanceManager struct {
	runtime  *Runtime
	exporter HostExporter
	logger   *zap.Logger

	host api.Module
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, exporter HostExporter, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:  runtime,
		exporter: exporter,
		logger:   logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string
}

// Instance represents an instantiated guest module.
type Instance struct {
	module api.Module

	ID        string
	Name      string
	CreatedAt int64

	// Exported functions (cached for performance).
	exports map[string]api.Function
}

// Instantiate creates a new instance from a compiled module.
// The host import module is instantiated on first use and shared afterwards.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	if m.runtime.IsClosed() {
		return nil, ErrRuntimeClosed
	}

	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	m.logger.Info("Instantiating guest module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	if err := m.instantiateHost(ctx); err != nil {
		return nil, err
	}

	// Start functions are disabled: the host calls wasm_main itself once the
	// instance is wired up.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions()

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	instance := &Instance{
		module:    module,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   cacheExportedFunctions(module),
	}

	m.runtime.StoreInstance(instanceID, module)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(instance.exports)),
	)

	return instance, nil
}

func (m *InstanceManager) instantiateHost(ctx context.Context) error {
	if m.host != nil {
		return nil
	}

	builder := m.runtime.runtime.NewHostModuleBuilder(HostModuleName)
	if m.exporter != nil {
		m.exporter.ExportFunctions(builder)
	}
	if table, ok := m.exporter.(HostFunctions); ok {
		m.logger.Debug("Exporting host functions",
			zap.String("module", HostModuleName),
			zap.Strings("functions", table.Names()),
		)
	}

	host, err := builder.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("failed to instantiate host module: %w", err)
	}
	m.host = host
	return nil
}

// cacheExportedFunctions caches references to the guest entry points.
func cacheExportedFunctions(module api.Module) map[string]api.Function {
	exports := make(map[string]api.Function)
	for _, name := range RequiredExports {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}
	return exports
}

// Release closes an instance and stops tracking it.
func (m *InstanceManager) Release(ctx context.Context, instance *Instance) error {
	m.runtime.DeleteInstance(instance.ID)

	m.logger.Info("Releasing guest instance", zap.String("instance_id", instance.ID))

	return instance.Close(ctx)
}

// Call invokes an exported guest function.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := i.exports[name]
	if !ok {
		if fn = i.module.ExportedFunction(name); fn == nil {
			return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
		}
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, &GuestCallError{FunctionName: name, Err: err}
	}
	return results, nil
}

// HasExport reports whether the guest exports the named function.
func (i *Instance) HasExport(name string) bool {
	if _, ok := i.exports[name]; ok {
		return true
	}
	return i.module.ExportedFunction(name) != nil
}

// Memory returns a bridge onto the guest's linear memory.
func (i *Instance) Memory() *Memory {
	return NewMemory(i.module)
}

// Module exposes the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	return i.module.Close(ctx)
}

func generateInstanceID() string {
	return fmt.Sprintf("guest-%d", time.Now().UnixNano())
}
