package api

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	wazeroapi "github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wavesenterprise/wevm/internal/bytecode"
	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/internal/runtime"
	"github.com/wavesenterprise/wevm/internal/telemetry"
	"github.com/wavesenterprise/wevm/types"
)

const (
	// ConstructorName is the export every contract must define.
	ConstructorName = "_constructor"
	// HeapBaseName is the exported global holding the first free offset.
	HeapBaseName = "__heap_base"

	guestModuleName = "contract"
)

var errOutOfFuel = errors.New("out of fuel")

// Config carries the engine settings shared by every Executable.
type Config struct {
	Compiler string
	Logger   *zap.Logger
	Metrics  *telemetry.Metrics
}

// WithDefaults fills unset fields with the interpreter, a nop logger and nop
// metrics.
func (c Config) WithDefaults() Config {
	if c.Compiler == "" {
		c.Compiler = types.CompilerInterpreter
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewNopLogger()
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NopMetrics()
	}
	return c
}

// runtimeConfig is the deterministic engine configuration: integer-only
// MVP plus multi-value results.
func runtimeConfig(compiler string, maxPages uint32) wazero.RuntimeConfig {
	cfg := wazero.NewRuntimeConfigInterpreter()
	if compiler == types.CompilerNative {
		cfg = wazero.NewRuntimeConfig()
	}
	if maxPages > types.MaxMemoryPages {
		maxPages = types.MaxMemoryPages
	}
	return cfg.
		WithCoreFeatures(wazeroapi.CoreFeatureMultiValue).
		WithMemoryLimitPages(maxPages).
		WithCloseOnContextDone(true)
}

// Executable is one validated contract module ready to run a single call.
type Executable struct {
	cfg      Config
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	initial  uint32
	maximum  uint32
	fuel     uint64
	used     bool
}

// NewExecutable validates, instruments and compiles bin. The module must
// export a _constructor.
func NewExecutable(ctx context.Context, bin []byte, initial, maximum uint32, fuel uint64, cfg Config) (*Executable, error) {
	cfg = cfg.WithDefaults()

	m, prepared, err := bytecode.Prepare(bin)
	if err != nil {
		return nil, errors.Wrap(types.InvalidBytecode, err.Error())
	}
	if n := m.ExportCount(ConstructorName); n != 1 {
		return nil, errors.Wrapf(types.ConstructorNotFound, "%d %s exports", n, ConstructorName)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeConfig(cfg.Compiler, maximum))
	compiled, err := rt.CompileModule(ctx, prepared)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(types.InvalidBytecode, err.Error())
	}

	return &Executable{
		cfg:      cfg,
		runtime:  rt,
		compiled: compiled,
		initial:  initial,
		maximum:  maximum,
		fuel:     fuel,
	}, nil
}

// Close releases the sandbox. Execute closes it on return.
func (e *Executable) Close(ctx context.Context) error {
	if e.runtime == nil {
		return nil
	}
	err := e.runtime.Close(ctx)
	e.runtime = nil
	return err
}

// Execute runs funcName with the encoded params in a fresh instance of the
// module. An Executable runs at most once.
func (e *Executable) Execute(ctx context.Context, stack runtime.Stack, funcName string, params []byte) ([]runtime.Result, error) {
	if e.used || e.runtime == nil {
		return nil, errors.Wrap(types.FailedExec, "executable already used")
	}
	e.used = true
	defer e.Close(ctx)

	bridge := runtime.NewBridge(stack)
	defer func() {
		e.cfg.Metrics.ObserveFrame(bridge.FuelConsumed(), bridge.FuelExhausted())
	}()

	if err := e.link(ctx, bridge); err != nil {
		return nil, err
	}
	if err := e.provideMemory(ctx); err != nil {
		return nil, err
	}

	bridge.SetFuel(e.fuel)
	mod, err := e.runtime.InstantiateModule(ctx, e.compiled,
		wazero.NewModuleConfig().WithName(guestModuleName).WithStartFunctions())
	if err != nil {
		return nil, errors.Wrapf(types.InstantiateFailed, "%s%s", err.Error(), fuelNote(bridge))
	}
	if mem := mod.Memory(); mem != nil {
		bridge.SetMemory(mem)
	}

	heapBase := mod.ExportedGlobal(HeapBaseName)
	if heapBase == nil || heapBase.Type() != wazeroapi.ValueTypeI32 {
		return nil, types.HeapBaseNotFound
	}
	bridge.SetHeapBase(uint32(heapBase.Get()))

	fn := mod.ExportedFunction(funcName)
	if fn == nil {
		return nil, errors.Wrapf(types.FuncNotFound, "%q", funcName)
	}

	args, err := e.arguments(bridge, fn.Definition(), params)
	if err != nil {
		return nil, err
	}

	raw, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.Wrapf(types.FailedExec, "%s: %s%s", funcName, err.Error(), fuelNote(bridge))
	}

	resultTypes := fn.Definition().ResultTypes()
	results := make([]runtime.Result, len(raw))
	for i, v := range raw {
		results[i] = runtime.Result{Type: resultTypes[i], Value: v}
	}
	return results, nil
}

func fuelNote(b *runtime.Bridge) string {
	if b.FuelExhausted() {
		return " (" + errOutOfFuel.Error() + ")"
	}
	return ""
}

// link instantiates the host namespaces and the gas module, then checks
// every function import of the contract against them.
func (e *Executable) link(ctx context.Context, bridge *runtime.Bridge) error {
	h := &host{Bridge: bridge, logger: e.cfg.Logger}

	for _, ns := range Namespaces() {
		builder := e.runtime.NewHostModuleBuilder(ns)
		for _, f := range Catalog(ns) {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(f.bind(h, e.cfg.Metrics), f.Params, f.Results).
				Export(f.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Wrapf(types.LinkerError, "%s: %s", ns, err.Error())
		}
	}

	_, err := e.runtime.NewHostModuleBuilder(bytecode.GasModule).
		NewFunctionBuilder().
		WithGoModuleFunction(wazeroapi.GoModuleFunc(func(_ context.Context, _ wazeroapi.Module, stack []uint64) {
			if !bridge.Consume(stack[0]) {
				panic(errOutOfFuel)
			}
		}), sig(i64), nil).
		Export(bytecode.GasFunc).
		Instantiate(ctx)
	if err != nil {
		return errors.Wrapf(types.LinkerError, "%s: %s", bytecode.GasModule, err.Error())
	}

	for _, def := range e.compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		if module == bytecode.GasModule {
			continue
		}
		f, ok := Lookup(module, name)
		if !ok {
			return errors.Wrapf(types.LinkerError, "unknown import %s.%s", module, name)
		}
		if !sameTypes(f.Params, def.ParamTypes()) || !sameTypes(f.Results, def.ResultTypes()) {
			return errors.Wrapf(types.LinkerError, "import %s.%s has a different signature", module, name)
		}
	}
	for _, def := range e.compiled.ImportedMemories() {
		module, name, _ := def.Import()
		if module != bytecode.MemoryModuleName || name != bytecode.MemoryExportName {
			return errors.Wrapf(types.LinkerError, "unknown memory import %s.%s", module, name)
		}
	}
	return nil
}

func sameTypes(a, b []wazeroapi.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// provideMemory instantiates the env module exporting the linear memory
// contracts import.
func (e *Executable) provideMemory(ctx context.Context) error {
	if e.initial > e.maximum || e.maximum > types.MaxMemoryPages {
		return errors.Wrapf(types.MemoryError, "memory pages %d..%d", e.initial, e.maximum)
	}
	_, err := e.runtime.InstantiateWithConfig(ctx,
		bytecode.MemoryModule(e.initial, e.maximum),
		wazero.NewModuleConfig().WithName(bytecode.MemoryModuleName).WithStartFunctions())
	if err != nil {
		return errors.Wrap(types.MemoryLimits, err.Error())
	}
	return nil
}

// arguments decodes params into call arguments. Binary and String payloads
// land at the heap cursor, which moves past them.
func (e *Executable) arguments(bridge *runtime.Bridge, def wazeroapi.FunctionDefinition, params []byte) ([]uint64, error) {
	var mem codec.Memory = noMemory{}
	if m, err := bridge.Memory(); err == nil {
		mem = m
	}
	offset := bridge.HeapBase()
	texts, err := codec.DeserializeParams(params, mem, &offset)
	if err != nil {
		return nil, err
	}
	bridge.SetHeapBase(offset)

	paramTypes := def.ParamTypes()
	if len(texts) != len(paramTypes) {
		return nil, errors.Wrapf(types.InvalidNumArgs, "%s takes %d arguments, got %d", def.Name(), len(paramTypes), len(texts))
	}
	args := make([]uint64, len(texts))
	for i, t := range paramTypes {
		switch t {
		case wazeroapi.ValueTypeI32:
			v, err := strconv.ParseInt(texts[i], 10, 32)
			if err != nil {
				return nil, errors.Wrapf(types.FailedParseFuncArgs, "argument %d: %s", i, err.Error())
			}
			args[i] = wazeroapi.EncodeI32(int32(v))
		case wazeroapi.ValueTypeI64:
			v, err := strconv.ParseInt(texts[i], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(types.FailedParseFuncArgs, "argument %d: %s", i, err.Error())
			}
			args[i] = wazeroapi.EncodeI64(v)
		default:
			return nil, errors.Wrapf(types.FailedParseFuncArgs, "argument %d has type %s", i, wazeroapi.ValueTypeName(t))
		}
	}
	return args, nil
}

// noMemory backs parameter decoding for contracts without a memory.
type noMemory struct{}

func (noMemory) Write(uint32, []byte) bool { return false }
