package api

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"
	wazeroapi "github.com/tetratelabs/wazero/api"

	"github.com/wavesenterprise/wevm/types"
)

func parseInt(_ context.Context, h *host, stack []uint64) {
	s, err := h.stringArg(stack, 0)
	if err != nil {
		returnI64(stack, 0, err)
		return
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		returnI64(stack, 0, errors.Wrap(types.ParseError, err.Error()))
		return
	}
	returnI64(stack, v, nil)
}

func parseBool(_ context.Context, h *host, stack []uint64) {
	s, err := h.stringArg(stack, 0)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	switch s {
	case "true":
		returnI32(stack, 1, nil)
	case "false":
		returnI32(stack, 0, nil)
	default:
		returnI32(stack, 0, errors.Wrapf(types.ParseError, "%q is not a boolean", s))
	}
}

func toBytes(_ context.Context, h *host, stack []uint64) {
	h.returnBytes(stack, binary.BigEndian.AppendUint64(nil, stack[0]), nil)
}

func toInt(_ context.Context, h *host, stack []uint64) {
	b, err := h.bytesArg(stack, 0)
	if err != nil {
		returnI64(stack, 0, err)
		return
	}
	if len(b) != 8 {
		returnI64(stack, 0, errors.Wrapf(types.ConvertingNumericTypes, "%d bytes, want 8", len(b)))
		return
	}
	returnI64(stack, int64(binary.BigEndian.Uint64(b)), nil)
}

func toStringBool(_ context.Context, h *host, stack []uint64) {
	s := strconv.FormatBool(wazeroapi.DecodeI32(stack[0]) != 0)
	h.returnBytes(stack, []byte(s), nil)
}

func toStringInt(_ context.Context, h *host, stack []uint64) {
	h.returnBytes(stack, []byte(strconv.FormatInt(int64(stack[0]), 10)), nil)
}
