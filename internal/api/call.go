package api

import (
	"context"

	"github.com/pkg/errors"
	wazeroapi "github.com/tetratelabs/wazero/api"

	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/types"
)

func callArgInt(_ context.Context, h *host, stack []uint64) {
	h.PushArgument(codec.IntegerValue(int64(stack[0])))
}

func callArgBool(_ context.Context, h *host, stack []uint64) {
	h.PushArgument(codec.BooleanValue(wazeroapi.DecodeI32(stack[0])))
}

func callArgBinary(_ context.Context, h *host, stack []uint64) {
	value, err := h.bytesArg(stack, 0)
	if err == nil {
		h.PushArgument(codec.BinaryValue(value))
	}
	returnStatus(stack, err)
}

func callArgString(_ context.Context, h *host, stack []uint64) {
	value, err := h.bytesArg(stack, 0)
	if err == nil {
		h.PushArgument(codec.StringValue(value))
	}
	returnStatus(stack, err)
}

// callPayment attaches a payment to the next call. The asset id is either
// empty, for the native asset, or exactly codec.AssetIDLength bytes.
func callPayment(_ context.Context, h *host, stack []uint64) {
	assetID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	if len(assetID) != 0 && len(assetID) != codec.AssetIDLength {
		returnStatus(stack, errors.Wrapf(types.ParseError, "asset id of %d bytes", len(assetID)))
		return
	}
	h.PushPayment(assetID, int64(stack[2]))
	returnStatus(stack, nil)
}

// callContract runs a function of another contract in a new frame. With
// explicitParams the encoded parameter list is read from guest memory
// instead of the pending arguments. The callee must return exactly one i32,
// which becomes the result of the call.
func callContract(explicitParams bool) hostFunc {
	return func(ctx context.Context, h *host, stack []uint64) {
		contractID, err := h.bytesArg(stack, 0)
		if err != nil {
			returnStatus(stack, err)
			return
		}
		funcName, err := h.stringArg(stack, 2)
		if err != nil {
			returnStatus(stack, err)
			return
		}
		var explicit []byte
		if explicitParams {
			if explicit, err = h.bytesArg(stack, 4); err != nil {
				returnStatus(stack, err)
				return
			}
		}

		ledger := h.Ledger()
		bytecode, err := ledger.Bytecode(contractID)
		if err != nil {
			returnStatus(stack, h.ledgerErr("Bytecode", err))
			return
		}

		params, payments, numPayments := h.TakeParamsAndPayments()
		if explicitParams {
			params = explicit
		}

		st := h.Stack()
		nonce := st.NextNonce()
		if numPayments > 0 {
			paymentID := codec.PaymentID(contractID, nonce)
			if err := ledger.AddPayments(st.ContractID(), paymentID, payments); err != nil {
				returnStatus(stack, h.ledgerErr("AddPayments", err))
				return
			}
		}

		results, err := st.PushAndRun(ctx, contractID, bytecode, nonce, funcName, params)
		if err != nil {
			returnStatus(stack, err)
			return
		}
		if len(results) != 1 || results[0].Type != wazeroapi.ValueTypeI32 {
			returnStatus(stack, errors.Wrapf(types.InvalidResult, "%s returned %d values", funcName, len(results)))
			return
		}
		stack[0] = wazeroapi.EncodeI32(results[0].I32())
	}
}
