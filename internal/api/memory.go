package api

import (
	"bytes"
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/types"
)

// ByteSliceView represents a view into a byte slice in linear memory.
type ByteSliceView struct {
	Offset uint32
	Len    uint32
}

// split validates n against the view length.
func (v ByteSliceView) split(n int64) (uint32, error) {
	if n < 0 || n > math.MaxUint32 || uint32(n) > v.Len {
		return 0, errors.Wrapf(types.ConvertingNumericTypes, "n=%d outside [0, %d]", n, v.Len)
	}
	return uint32(n), nil
}

// Drop removes the first n bytes.
func (v ByteSliceView) Drop(n int64) (ByteSliceView, error) {
	k, err := v.split(n)
	if err != nil {
		return ByteSliceView{}, err
	}
	return ByteSliceView{Offset: v.Offset + k, Len: v.Len - k}, nil
}

// DropRight removes the last n bytes.
func (v ByteSliceView) DropRight(n int64) (ByteSliceView, error) {
	k, err := v.split(n)
	if err != nil {
		return ByteSliceView{}, err
	}
	return ByteSliceView{Offset: v.Offset, Len: v.Len - k}, nil
}

// Take keeps the first n bytes.
func (v ByteSliceView) Take(n int64) (ByteSliceView, error) {
	k, err := v.split(n)
	if err != nil {
		return ByteSliceView{}, err
	}
	return ByteSliceView{Offset: v.Offset, Len: k}, nil
}

// TakeRight keeps the last n bytes.
func (v ByteSliceView) TakeRight(n int64) (ByteSliceView, error) {
	k, err := v.split(n)
	if err != nil {
		return ByteSliceView{}, err
	}
	return ByteSliceView{Offset: v.Offset + v.Len - k, Len: k}, nil
}

func viewArg(stack []uint64, i int) ByteSliceView {
	return ByteSliceView{Offset: uint32(stack[i]), Len: uint32(stack[i+1])}
}

// indexOf returns the byte index of sub in s, searching from the end when
// last is set, or -1.
func indexOf(s, sub string, last bool) int64 {
	if last {
		return int64(strings.LastIndex(s, sub))
	}
	return int64(strings.Index(s, sub))
}

/****** Host functions ******/

func binaryEquals(_ context.Context, h *host, stack []uint64) {
	left, err := h.bytesArg(stack, 0)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	right, err := h.bytesArg(stack, 2)
	returnI32(stack, boolToI32(bytes.Equal(left, right)), err)
}

func stringEquals(_ context.Context, h *host, stack []uint64) {
	left, err := h.stringArg(stack, 0)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	right, err := h.stringArg(stack, 2)
	returnI32(stack, boolToI32(left == right), err)
}

func join(_ context.Context, h *host, stack []uint64) {
	left, err := h.bytesArg(stack, 0)
	if err != nil {
		h.returnBytes(stack, nil, err)
		return
	}
	right, err := h.bytesArg(stack, 2)
	h.returnBytes(stack, append(left, right...), err)
}

func contains(_ context.Context, h *host, stack []uint64) {
	b, err := h.bytesArg(stack, 0)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	sub, err := h.bytesArg(stack, 2)
	returnI32(stack, boolToI32(bytes.Contains(b, sub)), err)
}

// sliceOp adapts a view method into a host function of (offset, length, n).
func sliceOp(op func(ByteSliceView, int64) (ByteSliceView, error)) hostFunc {
	return func(_ context.Context, _ *host, stack []uint64) {
		v, err := op(viewArg(stack, 0), int64(stack[2]))
		returnView(stack, v, err)
	}
}

func indexOfFunc(last bool) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		s, err := h.stringArg(stack, 0)
		if err != nil {
			returnI64(stack, 0, err)
			return
		}
		sub, err := h.stringArg(stack, 2)
		returnI64(stack, indexOf(s, sub, last), err)
	}
}
