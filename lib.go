// Package wevm runs WebAssembly smart contracts against a Ledger. A VM holds
// the configuration, logger, metrics and optional code store; every
// RunContract call builds its own call stack and sandboxes, so a VM can be
// shared between goroutines.
package wevm

import (
	"context"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	wazeroapi "github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wavesenterprise/wevm/internal/api"
	"github.com/wavesenterprise/wevm/internal/codestore"
	"github.com/wavesenterprise/wevm/internal/telemetry"
	callstack "github.com/wavesenterprise/wevm/internal/vm"
	"github.com/wavesenterprise/wevm/types"
)

// Checksum is the sha256 of stored bytecode.
type Checksum []byte

var errNoCodeStore = errors.New("wevm: no code store configured")

// VM is the main entry point to this library.
type VM struct {
	config  types.VMConfig
	logger  *zap.Logger
	metrics *telemetry.Metrics
	store   *codestore.Store
}

// NewVM creates a VM with the default configuration.
func NewVM() (*VM, error) {
	return NewVMWithConfig(types.DefaultVMConfig())
}

// NewVMWithConfig creates a VM from config. When config names a store
// directory the VM takes its exclusive lock until Close.
func NewVMWithConfig(config *types.VMConfig) (*VM, error) {
	if config == nil {
		config = types.DefaultVMConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(config.Log.Mode)
	if err != nil {
		return nil, err
	}
	metrics := telemetry.NopMetrics()
	if config.Metrics.Enabled {
		metrics = telemetry.NewMetrics(config.Metrics.Namespace)
	}

	vm := &VM{
		config:  *config,
		logger:  logger,
		metrics: metrics,
	}
	if config.Store.Dir != "" {
		vm.store, err = codestore.Open(config.Store.Dir, config.Store.CacheSize)
		if err != nil {
			_ = logger.Sync()
			return nil, err
		}
	}
	return vm, nil
}

// Close releases the code store and flushes the logger.
func (vm *VM) Close() error {
	var err error
	if vm.store != nil {
		err = vm.store.Release()
	}
	// stderr cannot be synced on some platforms
	_ = vm.logger.Sync()
	return err
}

// Config returns a copy of the configuration the VM was built with.
func (vm *VM) Config() types.VMConfig { return vm.config }

// MetricsHandler serves the VM metrics in the Prometheus text format.
func (vm *VM) MetricsHandler() http.Handler { return vm.metrics.Handler() }

func (vm *VM) apiConfig() api.Config {
	return api.Config{
		Compiler: vm.config.Engine.Compiler,
		Logger:   vm.logger,
		Metrics:  vm.metrics,
	}
}

// fuel applies the configured cap to the fuel limit of one call.
func (vm *VM) fuel(limit uint64) uint64 {
	if c := vm.config.Engine.FuelLimit; c != 0 && (limit == 0 || limit > c) {
		return c
	}
	return limit
}

// RunContract invokes funcName of the contract with the encoded parameter
// list. The returned status is the first result of the function when it is
// an i32 and zero otherwise. On failure it is the code carried by err.
func (vm *VM) RunContract(
	ctx context.Context,
	contractID []byte,
	bytecode []byte,
	funcName string,
	params []byte,
	fuelLimit uint64,
	ledger types.Ledger,
) (int32, error) {
	start := time.Now()
	contract := base58.Encode(contractID)
	fuel := vm.fuel(fuelLimit)

	vm.logger.Debug("running contract",
		zap.String("contract", contract),
		zap.String("func", funcName),
		zap.Uint64("fuel", fuel))

	status, err := vm.run(ctx, contractID, bytecode, funcName, params, fuel, ledger)
	code := types.CodeOf(err)
	vm.metrics.ObserveExecution(int32(code), time.Since(start))
	if err != nil {
		vm.logger.Error("contract failed",
			zap.Int32("code", int32(code)),
			zap.String("contract", contract),
			zap.String("func", funcName),
			zap.Error(err))
		return int32(code), err
	}
	return status, nil
}

func (vm *VM) run(ctx context.Context, contractID, bytecode []byte, funcName string, params []byte, fuel uint64, ledger types.Ledger) (int32, error) {
	if ledger == nil {
		return 0, errors.Wrap(types.LedgerNotFound, "nil ledger")
	}
	limits := callstack.Limits{
		MemoryInitialPages: vm.config.Engine.MemoryInitialPages,
		MemoryMaximumPages: vm.config.Engine.MemoryMaximumPages,
		MaxFrames:          vm.config.Engine.MaxFrames,
		Fuel:               fuel,
	}
	stack := callstack.NewCallStack(contractID, bytecode, limits, ledger, vm.apiConfig())
	results, err := stack.Run(ctx, funcName, params)
	if err != nil {
		return 0, err
	}
	if len(results) > 0 && results[0].Type == wazeroapi.ValueTypeI32 {
		return results[0].I32(), nil
	}
	return 0, nil
}

// ValidateBytecode checks that bytecode would load in this VM: it decodes,
// passes the feature gate, compiles and exports a constructor. Nothing is
// executed.
func (vm *VM) ValidateBytecode(bytecode []byte) error {
	return validate(context.Background(), bytecode, vm.config.Engine, vm.apiConfig())
}

// ValidateBytecode is VM.ValidateBytecode with the default configuration.
func ValidateBytecode(bytecode []byte) error {
	return validate(context.Background(), bytecode, types.DefaultVMConfig().Engine, api.Config{})
}

func validate(ctx context.Context, bytecode []byte, engine types.EngineConfig, cfg api.Config) error {
	exe, err := api.NewExecutable(ctx, bytecode, engine.MemoryInitialPages, engine.MemoryMaximumPages, 0, cfg)
	if err != nil {
		return err
	}
	return exe.Close(ctx)
}

// StoreCode validates bytecode and keeps it in the code store under
// contractID.
func (vm *VM) StoreCode(contractID, bytecode []byte) (Checksum, error) {
	if vm.store == nil {
		return nil, errNoCodeStore
	}
	if err := vm.ValidateBytecode(bytecode); err != nil {
		return nil, err
	}
	sum, err := vm.store.Put(contractID, bytecode)
	if err != nil {
		return nil, err
	}
	vm.logger.Debug("code stored",
		zap.String("contract", base58.Encode(contractID)),
		zap.String("checksum", base58.Encode(sum)))
	return sum, nil
}

// GetCode loads the bytecode stored for contractID.
func (vm *VM) GetCode(contractID []byte) ([]byte, error) {
	if vm.store == nil {
		return nil, errNoCodeStore
	}
	return vm.store.Code(contractID)
}

// CodeStore exposes the store so a Ledger can serve nested calls from it.
// It is nil when the VM has none.
func (vm *VM) CodeStore() types.CodeStore {
	if vm.store == nil {
		return nil
	}
	return vm.store
}

// Status is the status integer for err: zero for nil.
func Status(err error) int32 {
	return int32(types.CodeOf(err))
}
