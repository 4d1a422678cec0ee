package wasm

import (
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/pkg/schema"
)

// InstanceManager creates and manages policy module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctions
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctions, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string
}

// Instance is one instantiated policy module. It resolves the exports
// the boundary protocol needs; NewClient consumes it.
type Instance struct {
	module  api.Module
	runtime *Runtime

	ID        string
	Name      string
	CreatedAt int64
}

// Instantiate creates a new instance from a compiled module. Host
// functions are made importable before the guest starts.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	m.logger.Info("instantiating policy module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	if err := m.instantiateHostModule(ctx); err != nil {
		return nil, fmt.Errorf("failed to set up host module: %w", err)
	}

	// Modules built as reactors run their initializers from
	// _initialize rather than _start.
	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions("_initialize")

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
		runtime:   m.runtime,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
	}

	m.runtime.StoreInstance(instanceID, instance)
	return instance, nil
}

// Close closes the instance, releasing its linear memory, and drops it
// from runtime tracking.
func (i *Instance) Close(ctx context.Context) error {
	if i.runtime != nil {
		i.runtime.DeleteInstance(i.ID)
	}
	return i.module.Close(ctx)
}

// Memory returns the instance's exported linear memory.
func (i *Instance) Memory() (linearMemory, error) {
	mem := i.module.Memory()
	if mem == nil {
		return nil, &MissingExportError{Export: schema.ExportMemory}
	}
	return mem, nil
}

// Function resolves one export and checks its wasm-level signature.
func (i *Instance) Function(name string, want funcSig) (guestFunc, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, &MissingExportError{Export: name}
	}
	def := fn.Definition()
	got := funcSig{params: def.ParamTypes(), results: def.ResultTypes()}
	if !got.equal(want) {
		return nil, &SignatureMismatchError{Export: name, Want: want.String(), Got: got.String()}
	}
	return fn, nil
}

// instantiateHostModule compiles and instantiates the host import
// namespace. Idempotent per runtime: wazero rejects duplicate names, so
// the runtime tracks whether it already happened.
func (m *InstanceManager) instantiateHostModule(ctx context.Context) error {
	return m.runtime.ensureHostModule(ctx, func(ctx context.Context) error {
		builder := m.runtime.runtime.NewHostModuleBuilder(HostModuleName)

		builder.NewFunctionBuilder().
			WithFunc(m.hostFuncs.logMessage).
			WithParameterNames("level", "ptr", "length").
			Export("log_message")

		if _, err := builder.Instantiate(ctx); err != nil {
			return err
		}
		return nil
	})
}

func generateInstanceID() string {
	return fmt.Sprintf("inst-%d", time.Now().UnixNano())
}
