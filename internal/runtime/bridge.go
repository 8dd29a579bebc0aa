// Package runtime holds the per-invocation state host functions work with:
// the guest memory, the heap cursor used to hand results back to the guest,
// the pending arguments and payments of the next nested call, and the fuel
// budget of the running frame.
package runtime

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero/api"

	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/types"
)

// Memory is the guest linear memory. wazero's api.Memory satisfies it.
type Memory interface {
	Read(offset, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
	Size() uint32
}

// Result is one typed value returned by a guest function.
type Result struct {
	Type  api.ValueType
	Value uint64
}

func (r Result) I32() int32 { return api.DecodeI32(r.Value) }
func (r Result) I64() int64 { return int64(r.Value) }

// Stack is the call stack as seen from inside a running frame.
type Stack interface {
	Ledger() types.Ledger
	// ContractID is the id of the contract executing in the top frame.
	ContractID() []byte
	// PaymentID identifies the payments attached to the top frame.
	PaymentID() []byte
	// CallerID is the contract id of the frame below the top one. It
	// reports false for the top-level invocation.
	CallerID() ([]byte, bool)
	NextNonce() uint64
	PushAndRun(ctx context.Context, contractID, bytecode []byte, nonce uint64, funcName string, params []byte) ([]Result, error)
}

// Bridge is owned by one executing frame and discarded when it returns.
type Bridge struct {
	stack    Stack
	memory   Memory
	heapBase uint32

	params   codec.ParameterList
	payments codec.PaymentList

	fuelLimit uint64
	fuelUsed  uint64
	exhausted bool
}

func NewBridge(stack Stack) *Bridge {
	return &Bridge{stack: stack}
}

func (b *Bridge) Stack() Stack { return b.stack }

func (b *Bridge) Ledger() types.Ledger { return b.stack.Ledger() }

func (b *Bridge) SetMemory(mem Memory) { b.memory = mem }

// Memory returns the guest memory, or MemoryNotFound before it is attached.
func (b *Bridge) Memory() (Memory, error) {
	if b.memory == nil {
		return nil, types.MemoryNotFound
	}
	return b.memory, nil
}

func (b *Bridge) HeapBase() uint32 { return b.heapBase }

// SetHeapBase moves the cursor forward. The cursor never moves back.
func (b *Bridge) SetHeapBase(v uint32) {
	if v > b.heapBase {
		b.heapBase = v
	}
}

func (b *Bridge) PushArgument(v codec.Value) { b.params.Push(v) }

func (b *Bridge) PushPayment(assetID []byte, amount int64) {
	b.payments.Push(assetID, amount)
}

// TakeParamsAndPayments returns the encoded pending lists and the number of
// pending payments, then resets both lists.
func (b *Bridge) TakeParamsAndPayments() (params, payments []byte, numPayments int) {
	params = b.params.Bytes()
	payments = b.payments.Bytes()
	numPayments = b.payments.Len()
	b.params.Reset()
	b.payments.Reset()
	return params, payments, numPayments
}

// ReadBytes copies length bytes of guest memory starting at offset.
func (b *Bridge) ReadBytes(offset, length uint32) ([]byte, error) {
	mem, err := b.Memory()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	buf, ok := mem.Read(offset, length)
	if !ok {
		return nil, errors.Wrapf(types.MemoryError, "read %d bytes at %d", length, offset)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// WriteResult copies data to the heap cursor and advances it. It returns
// the offset and length the guest uses to address the data.
func (b *Bridge) WriteResult(data []byte) (uint32, uint32, error) {
	mem, err := b.Memory()
	if err != nil {
		return 0, 0, err
	}
	offset := b.heapBase
	end := uint64(offset) + uint64(len(data))
	if end > uint64(mem.Size()) || !mem.Write(offset, data) {
		return 0, 0, errors.Wrapf(types.MemoryError, "write %d bytes at %d", len(data), offset)
	}
	b.heapBase = uint32(end)
	return offset, uint32(len(data)), nil
}

// SetFuel resets the budget of the frame.
func (b *Bridge) SetFuel(limit uint64) {
	b.fuelLimit = limit
	b.fuelUsed = 0
	b.exhausted = false
}

// Consume charges n units of fuel. It reports false once the budget is
// exceeded; the charge that failed is not counted.
func (b *Bridge) Consume(n uint64) bool {
	if b.exhausted || n > b.fuelLimit-b.fuelUsed {
		b.exhausted = true
		return false
	}
	b.fuelUsed += n
	return true
}

func (b *Bridge) FuelConsumed() uint64 { return b.fuelUsed }

func (b *Bridge) FuelRemaining() uint64 { return b.fuelLimit - b.fuelUsed }

// FuelExhausted reports whether a charge failed during the frame.
func (b *Bridge) FuelExhausted() bool { return b.exhausted }
