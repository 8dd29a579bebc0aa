package api

import (
	"context"
	"math"

	"github.com/pkg/errors"
	wazeroapi "github.com/tetratelabs/wazero/api"

	"github.com/wavesenterprise/wevm/types"
)

func getTxSender(_ context.Context, h *host, stack []uint64) {
	sender, err := h.Ledger().Tx("sender")
	h.returnBytes(stack, sender, h.ledgerErr("Tx", err))
}

// getPayments returns the number of payments attached to the running frame.
// env0 narrows the count to i32.
func getPayments(narrow bool) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		n, err := h.Ledger().TxPayments(h.Stack().PaymentID())
		if err = h.ledgerErr("TxPayments", err); err != nil || !narrow {
			returnI64(stack, n, err)
			return
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			returnI32(stack, 0, errors.Wrapf(types.ConvertingNumericTypes, "%d payments", n))
			return
		}
		returnI32(stack, int32(n), nil)
	}
}

// paymentNumber reads the payment index argument, i32 in env0 and i64 in env1.
func paymentNumber(stack []uint64, narrow bool) int64 {
	if narrow {
		return int64(wazeroapi.DecodeI32(stack[0]))
	}
	return int64(stack[0])
}

func getPaymentAssetID(narrow bool) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		assetID, err := h.Ledger().TxPaymentAssetID(h.Stack().PaymentID(), paymentNumber(stack, narrow))
		h.returnBytes(stack, assetID, h.ledgerErr("TxPaymentAssetID", err))
	}
}

func getPaymentAmount(narrow bool) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		amount, err := h.Ledger().TxPaymentAmount(h.Stack().PaymentID(), paymentNumber(stack, narrow))
		returnI64(stack, amount, h.ledgerErr("TxPaymentAmount", err))
	}
}
