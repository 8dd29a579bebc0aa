package api

import (
	"context"

	"github.com/wavesenterprise/wevm/internal/codec"
)

// lease leases to an account addressed by the given version.
func lease(version codec.AddressVersion) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		recipient, err := h.bytesArg(stack, 0)
		if err != nil {
			h.returnBytes(stack, nil, err)
			return
		}
		amount := int64(stack[2])

		var chainID byte
		if version == codec.VersionAlias {
			if chainID, err = h.Ledger().ChainID(); err != nil {
				h.returnBytes(stack, nil, h.ledgerErr("ChainID", err))
				return
			}
		}
		holder := codec.AssetHolder(codec.HolderAccount, version, chainID, recipient)
		leaseID, err := h.Ledger().Lease(h.Stack().ContractID(), holder, amount)
		h.returnBytes(stack, leaseID, h.ledgerErr("Lease", err))
	}
}

func cancelLease(_ context.Context, h *host, stack []uint64) {
	leaseID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	err = h.Ledger().CancelLease(h.Stack().ContractID(), leaseID)
	returnStatus(stack, h.ledgerErr("CancelLease", err))
}
