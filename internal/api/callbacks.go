package api

import (
	"context"
	"unicode/utf8"

	"github.com/pkg/errors"
	wazeroapi "github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wavesenterprise/wevm/internal/runtime"
	"github.com/wavesenterprise/wevm/internal/telemetry"
	"github.com/wavesenterprise/wevm/types"
)

// Host function namespaces. Later namespaces only add or widen functions.
const (
	Env0 = "env0"
	Env1 = "env1"
)

var (
	i32 = wazeroapi.ValueTypeI32
	i64 = wazeroapi.ValueTypeI64
)

func sig(ts ...wazeroapi.ValueType) []wazeroapi.ValueType { return ts }

// host is what every host function body sees: the bridge of the running
// frame plus the logger ledger failures are reported to.
type host struct {
	*runtime.Bridge
	logger *zap.Logger
}

type hostFunc func(ctx context.Context, h *host, stack []uint64)

// HostFunction describes one guest-visible import.
type HostFunction struct {
	Namespace string
	Name      string
	Params    []wazeroapi.ValueType
	Results   []wazeroapi.ValueType
	fn        hostFunc
}

type catalog struct {
	namespaces []string
	funcs      map[string][]HostFunction
	index      map[string]map[string]HostFunction
}

type nsTable struct {
	name  string
	funcs []HostFunction
}

func newCatalog(tables ...nsTable) *catalog {
	c := &catalog{
		funcs: make(map[string][]HostFunction),
		index: make(map[string]map[string]HostFunction),
	}
	for _, t := range tables {
		c.namespaces = append(c.namespaces, t.name)
		c.index[t.name] = make(map[string]HostFunction, len(t.funcs))
		for _, f := range t.funcs {
			f.Namespace = t.name
			c.funcs[t.name] = append(c.funcs[t.name], f)
			c.index[t.name][f.Name] = f
		}
	}
	return c
}

var hostCatalog = newCatalog(
	nsTable{Env0, env0},
	nsTable{Env1, env1},
)

// Namespaces lists the host namespaces in version order.
func Namespaces() []string {
	return append([]string(nil), hostCatalog.namespaces...)
}

// Catalog returns the functions exported under a namespace.
func Catalog(namespace string) []HostFunction {
	return append([]HostFunction(nil), hostCatalog.funcs[namespace]...)
}

// Lookup finds a host function by namespace and name.
func Lookup(namespace, name string) (HostFunction, bool) {
	f, ok := hostCatalog.index[namespace][name]
	return f, ok
}

// bind turns a descriptor into a wazero function for one frame.
func (f HostFunction) bind(h *host, metrics *telemetry.Metrics) wazeroapi.GoModuleFunc {
	return func(ctx context.Context, mod wazeroapi.Module, stack []uint64) {
		metrics.HostCall(f.Namespace)
		if mem := mod.Memory(); mem != nil {
			h.SetMemory(mem)
		}
		f.fn(ctx, h, stack)
	}
}

/****** Arguments ******/

// bytesArg reads the (offset, length) pair at stack[i], stack[i+1].
func (h *host) bytesArg(stack []uint64, i int) ([]byte, error) {
	return h.ReadBytes(wazeroapi.DecodeU32(stack[i]), wazeroapi.DecodeU32(stack[i+1]))
}

// stringArg is bytesArg for arguments that must be UTF-8.
func (h *host) stringArg(stack []uint64, i int) (string, error) {
	b, err := h.bytesArg(stack, i)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.Wrapf(types.Utf8Error, "argument %d", i)
	}
	return string(b), nil
}

// ledgerErr logs a failed ledger call and passes the error through.
func (h *host) ledgerErr(method string, err error) error {
	if err != nil {
		h.logger.Debug("ledger call failed",
			zap.String("method", method),
			zap.Int32("code", int32(types.CodeOf(err))),
			zap.Error(err))
	}
	return err
}

/****** Results ******/

func status(err error) uint64 {
	return wazeroapi.EncodeI32(int32(types.CodeOf(err)))
}

func returnStatus(stack []uint64, err error) {
	stack[0] = status(err)
}

func returnI32(stack []uint64, v int32, err error) {
	if err != nil {
		v = 0
	}
	stack[0], stack[1] = status(err), wazeroapi.EncodeI32(v)
}

func returnI64(stack []uint64, v int64, err error) {
	if err != nil {
		v = 0
	}
	stack[0], stack[1] = status(err), wazeroapi.EncodeI64(v)
}

func returnView(stack []uint64, v ByteSliceView, err error) {
	if err != nil {
		v = ByteSliceView{}
	}
	stack[0], stack[1], stack[2] = status(err), wazeroapi.EncodeU32(v.Offset), wazeroapi.EncodeU32(v.Len)
}

// returnBytes writes data at the heap cursor and returns its view.
func (h *host) returnBytes(stack []uint64, data []byte, err error) {
	if err != nil {
		returnView(stack, ByteSliceView{}, err)
		return
	}
	off, n, err := h.WriteResult(data)
	returnView(stack, ByteSliceView{Offset: off, Len: n}, err)
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
