package wevm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesenterprise/wevm/internal/api"
	"github.com/wavesenterprise/wevm/internal/codec"
	wt "github.com/wavesenterprise/wevm/internal/wasmtest"
	"github.com/wavesenterprise/wevm/simulation"
	"github.com/wavesenterprise/wevm/types"
)

const testFuel = 100_000

func contract() *wt.Builder {
	b := wt.New()
	b.ImportMemory("env", "memory", 1)
	b.ExportFunc(api.ConstructorName, b.Func(nil, nil, nil))
	b.HeapBase(1024)
	return b
}

func sample() []byte {
	b := contract()
	b.ExportFunc("answer", b.Func(nil, []byte{wt.I32}, nil, wt.I32Const(42)))
	b.ExportFunc("wide", b.Func(nil, []byte{wt.I64}, nil, wt.I64Const(42)))
	b.ExportFunc("nothing", b.Func(nil, nil, nil))
	b.ExportFunc("add", b.Func([]byte{wt.I64, wt.I64}, []byte{wt.I32}, nil,
		wt.LocalGet(0), wt.LocalGet(1), wt.I64Add, wt.I32WrapI64))
	b.ExportFunc("spin", b.Func(nil, nil, nil, wt.Loop(), wt.Br(0), wt.End))
	return b.Build()
}

// caller returns a contract whose "run" returns the result of calling
// "answer" on target.
func caller(target []byte) []byte {
	b := wt.New()
	call := b.ImportFunc(api.Env0, "call_contract", []byte{wt.I32, wt.I32, wt.I32, wt.I32}, []byte{wt.I32})
	b.ImportMemory("env", "memory", 1)
	b.ExportFunc(api.ConstructorName, b.Func(nil, nil, nil))
	b.HeapBase(1024)
	b.Data(16, target)
	b.Data(64, []byte("answer"))
	b.ExportFunc("run", b.Func(nil, []byte{wt.I32}, nil,
		wt.I32Const(16), wt.I32Const(int32(len(target))),
		wt.I32Const(64), wt.I32Const(6),
		wt.Call(call)))
	return b.Build()
}

func newVM(t *testing.T, mutate func(*types.VMConfig)) *VM {
	t.Helper()
	cfg := types.DefaultVMConfig()
	if mutate != nil {
		mutate(cfg)
	}
	vm, err := NewVMWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, vm.Close()) })
	return vm
}

func params(values ...codec.Value) []byte {
	var list codec.ParameterList
	for _, v := range values {
		list.Push(v)
	}
	return list.Bytes()
}

func TestRunContract(t *testing.T) {
	vm := newVM(t, nil)
	ledger := simulation.NewLedger()
	ctx := context.Background()
	id := []byte("sample")

	cases := map[string]struct {
		funcName string
		params   []byte
		want     int32
	}{
		"i32 result":  {"answer", nil, 42},
		"i64 result":  {"wide", nil, 0},
		"no result":   {"nothing", nil, 0},
		"with params": {"add", params(codec.IntegerValue(40), codec.IntegerValue(2)), 42},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, err := vm.RunContract(ctx, id, sample(), tc.funcName, tc.params, testFuel, ledger)
			require.NoError(t, err)
			require.Equal(t, tc.want, status)
		})
	}
}

func TestRunContractFailures(t *testing.T) {
	vm := newVM(t, nil)
	ctx := context.Background()
	id := []byte("sample")

	cases := map[string]struct {
		bytecode []byte
		funcName string
		fuel     uint64
		ledger   types.Ledger
		code     types.Code
	}{
		"garbage":      {[]byte("garbage"), "answer", testFuel, simulation.NewLedger(), types.InvalidBytecode},
		"missing func": {sample(), "absent", testFuel, simulation.NewLedger(), types.FuncNotFound},
		"out of fuel":  {sample(), "spin", testFuel, simulation.NewLedger(), types.FailedExec},
		"nil ledger":   {sample(), "answer", testFuel, nil, types.LedgerNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, err := vm.RunContract(ctx, id, tc.bytecode, tc.funcName, nil, tc.fuel, tc.ledger)
			require.Error(t, err)
			require.Equal(t, int32(tc.code), status)
			require.Equal(t, status, Status(err))
		})
	}
}

func TestStatus(t *testing.T) {
	require.Zero(t, Status(nil))
	require.Equal(t, int32(types.StackOverflow), Status(types.StackOverflow))
	require.Equal(t, int32(types.MethodCall), Status(assert.AnError))
}

func TestFuelCap(t *testing.T) {
	cases := []struct {
		ceiling, limit, want uint64
	}{
		{0, 500, 500},
		{100, 500, 100},
		{1000, 500, 500},
		{100, 0, 100},
	}
	for _, tc := range cases {
		vm := &VM{config: types.VMConfig{Engine: types.EngineConfig{FuelLimit: tc.ceiling}}}
		assert.Equal(t, tc.want, vm.fuel(tc.limit), "cap %d limit %d", tc.ceiling, tc.limit)
	}
}

func TestConfiguredFuelLimitApplies(t *testing.T) {
	vm := newVM(t, func(c *types.VMConfig) {
		c.Engine.FuelLimit = 10
		c.Metrics.Enabled = true
		c.Metrics.Namespace = "wevmtest"
	})
	ctx := context.Background()

	_, err := vm.RunContract(ctx, []byte("sample"), sample(), "add",
		params(codec.IntegerValue(1), codec.IntegerValue(2)), 1_000_000, simulation.NewLedger())
	require.NoError(t, err)

	// spinning exhausts the configured cap, not the generous per-call limit
	status, err := vm.RunContract(ctx, []byte("sample"), sample(), "spin", nil, 1<<40, simulation.NewLedger())
	require.Error(t, err)
	require.Equal(t, int32(types.FailedExec), status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	vm.MetricsHandler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `wevmtest_execution_total{code="0"} 1`)
	assert.Contains(t, body, `wevmtest_execution_total{code="111"} 1`)
	assert.Contains(t, body, `wevmtest_fuel_exhausted_total 1`)
}

func TestNestedCallThroughCodeStore(t *testing.T) {
	vm := newVM(t, func(c *types.VMConfig) { c.Store.Dir = t.TempDir() })
	inner := []byte("inner")

	sum, err := vm.StoreCode(inner, sample())
	require.NoError(t, err)
	require.Len(t, sum, 32)

	code, err := vm.GetCode(inner)
	require.NoError(t, err)
	require.Equal(t, sample(), code)

	ledger := simulation.NewLedger(simulation.WithCodeStore(vm.CodeStore()))
	status, err := vm.RunContract(context.Background(), []byte("outer"), caller(inner), "run", nil, testFuel, ledger)
	require.NoError(t, err)
	require.Equal(t, int32(42), status)

	status, err = vm.RunContract(context.Background(), []byte("outer"), caller([]byte("nobody")), "run", nil, testFuel, ledger)
	require.NoError(t, err)
	require.Equal(t, int32(types.ModuleNotFound), status)
}

func TestStoreCode(t *testing.T) {
	dir := t.TempDir()
	cfg := types.DefaultVMConfig()
	cfg.Store.Dir = dir

	vm, err := NewVMWithConfig(cfg)
	require.NoError(t, err)

	_, err = vm.StoreCode([]byte("bad"), []byte("garbage"))
	require.True(t, types.Is(err, types.InvalidBytecode), "%v", err)

	noCtor := wt.New()
	noCtor.ExportFunc("run", noCtor.Func(nil, nil, nil))
	_, err = vm.StoreCode([]byte("bad"), noCtor.Build())
	require.True(t, types.Is(err, types.ConstructorNotFound), "%v", err)

	_, err = vm.GetCode([]byte("bad"))
	require.True(t, types.Is(err, types.ModuleNotFound), "%v", err)

	// the directory stays locked while the first VM is open
	_, err = NewVMWithConfig(cfg)
	require.Error(t, err)

	require.NoError(t, vm.Close())
	other, err := NewVMWithConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, other.Close())
}

func TestWithoutCodeStore(t *testing.T) {
	vm := newVM(t, nil)
	// an untyped nil, so callers can compare against nil
	require.True(t, vm.CodeStore() == nil)

	_, err := vm.StoreCode([]byte("id"), sample())
	require.ErrorIs(t, err, errNoCodeStore)
	_, err = vm.GetCode([]byte("id"))
	require.ErrorIs(t, err, errNoCodeStore)
}

func TestValidateBytecode(t *testing.T) {
	require.NoError(t, ValidateBytecode(sample()))
	require.NoError(t, newVM(t, nil).ValidateBytecode(sample()))

	err := ValidateBytecode([]byte{0x00, 0x61, 0x73, 0x6d})
	require.True(t, types.Is(err, types.InvalidBytecode), "%v", err)

	float := contract()
	float.ExportFunc("f", float.Func(nil, nil, nil, wt.F32Const(0), wt.Drop))
	err = ValidateBytecode(float.Build())
	require.True(t, types.Is(err, types.InvalidBytecode), "%v", err)
}

func TestNewVMWithConfig(t *testing.T) {
	vm, err := NewVM()
	require.NoError(t, err)
	require.Equal(t, *types.DefaultVMConfig(), vm.Config())
	require.NoError(t, vm.Close())

	cfg := types.DefaultVMConfig()
	cfg.Engine.MaxFrames = 0
	_, err = NewVMWithConfig(cfg)
	require.Error(t, err)

	vm, err = NewVMWithConfig(nil)
	require.NoError(t, err)
	require.NoError(t, vm.Close())
}
