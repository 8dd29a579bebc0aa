package api

import (
	"context"
	"slices"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/types"
)

func base58Decode(_ context.Context, h *host, stack []uint64) {
	s, err := h.stringArg(stack, 0)
	if err != nil {
		h.returnBytes(stack, nil, err)
		return
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		h.returnBytes(stack, nil, errors.Wrap(types.Base58Error, err.Error()))
		return
	}
	h.returnBytes(stack, decoded, nil)
}

func toBase58String(_ context.Context, h *host, stack []uint64) {
	b, err := h.bytesArg(stack, 0)
	if err != nil {
		h.returnBytes(stack, nil, err)
		return
	}
	h.returnBytes(stack, []byte(base58.Encode(b)), nil)
}

func toLeBytes(_ context.Context, h *host, stack []uint64) {
	b, err := h.bytesArg(stack, 0)
	if err != nil {
		h.returnBytes(stack, nil, err)
		return
	}
	slices.Reverse(b)
	h.returnBytes(stack, b, nil)
}

// caller returns the contract that called the running one, or the sender
// of the transaction for the top-level frame.
func caller(_ context.Context, h *host, stack []uint64) {
	if id, ok := h.Stack().CallerID(); ok {
		h.returnBytes(stack, id, nil)
		return
	}
	sender, err := h.Ledger().Tx("sender")
	h.returnBytes(stack, sender, h.ledgerErr("Tx", err))
}
