package api

import (
	"context"

	wazeroapi "github.com/tetratelabs/wazero/api"

	"github.com/wavesenterprise/wevm/internal/codec"
)

// holderOrSelf encodes address as an account holder. An empty address
// stands for the running contract.
func (h *host) holderOrSelf(address []byte) []byte {
	if len(address) == 0 {
		return codec.AssetHolder(codec.HolderContract, codec.VersionAddress, 0, h.Stack().ContractID())
	}
	return codec.AssetHolder(codec.HolderAccount, codec.VersionAddress, 0, address)
}

// explicitHolder encodes a holder from guest supplied type and version.
func (h *host) explicitHolder(id []byte, typ, version uint32) ([]byte, error) {
	t, err := codec.ParseHolderType(typ)
	if err != nil {
		return nil, err
	}
	v, err := codec.ParseAddressVersion(version)
	if err != nil {
		return nil, err
	}
	if t == codec.HolderContract && len(id) == 0 {
		id = h.Stack().ContractID()
	}
	var chainID byte
	if t == codec.HolderAccount && v == codec.VersionAlias {
		if chainID, err = h.Ledger().ChainID(); err != nil {
			return nil, h.ledgerErr("ChainID", err)
		}
	}
	return codec.AssetHolder(t, v, chainID, id), nil
}

func getBalance(_ context.Context, h *host, stack []uint64) {
	assetID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnI64(stack, 0, err)
		return
	}
	address, err := h.bytesArg(stack, 2)
	if err != nil {
		returnI64(stack, 0, err)
		return
	}
	balance, err := h.Ledger().Balance(assetID, h.holderOrSelf(address))
	returnI64(stack, balance, h.ledgerErr("Balance", err))
}

// getBalanceHolder takes (asset_id, holder, type, version).
func getBalanceHolder(_ context.Context, h *host, stack []uint64) {
	assetID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnI64(stack, 0, err)
		return
	}
	id, err := h.bytesArg(stack, 2)
	if err != nil {
		returnI64(stack, 0, err)
		return
	}
	holder, err := h.explicitHolder(id, wazeroapi.DecodeU32(stack[4]), wazeroapi.DecodeU32(stack[5]))
	if err != nil {
		returnI64(stack, 0, err)
		return
	}
	balance, err := h.Ledger().Balance(assetID, holder)
	returnI64(stack, balance, h.ledgerErr("Balance", err))
}

func transfer(_ context.Context, h *host, stack []uint64) {
	assetID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	recipient, err := h.bytesArg(stack, 2)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	amount := int64(stack[4])
	holder := codec.AssetHolder(codec.HolderAccount, codec.VersionAddress, 0, recipient)
	err = h.Ledger().Transfer(h.Stack().ContractID(), assetID, holder, amount)
	returnStatus(stack, h.ledgerErr("Transfer", err))
}

// transferHolder takes (asset_id, recipient, type, version, amount).
func transferHolder(_ context.Context, h *host, stack []uint64) {
	assetID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	id, err := h.bytesArg(stack, 2)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	amount := int64(stack[6])
	holder, err := h.explicitHolder(id, wazeroapi.DecodeU32(stack[4]), wazeroapi.DecodeU32(stack[5]))
	if err != nil {
		returnStatus(stack, err)
		return
	}
	err = h.Ledger().Transfer(h.Stack().ContractID(), assetID, holder, amount)
	returnStatus(stack, h.ledgerErr("Transfer", err))
}

// issue handles both widths of decimals: i32 in env0, i64 in env1.
func issue(decimals64 bool) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		name, err := h.bytesArg(stack, 0)
		if err != nil {
			h.returnBytes(stack, nil, err)
			return
		}
		description, err := h.bytesArg(stack, 2)
		if err != nil {
			h.returnBytes(stack, nil, err)
			return
		}
		quantity := int64(stack[4])
		decimals := int64(wazeroapi.DecodeI32(stack[5]))
		if decimals64 {
			decimals = int64(stack[5])
		}
		reissuable := wazeroapi.DecodeI32(stack[6]) != 0

		assetID, err := h.Ledger().Issue(h.Stack().ContractID(), name, description, quantity, decimals, reissuable)
		h.returnBytes(stack, assetID, h.ledgerErr("Issue", err))
	}
}

func burn(_ context.Context, h *host, stack []uint64) {
	assetID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	err = h.Ledger().Burn(h.Stack().ContractID(), assetID, int64(stack[2]))
	returnStatus(stack, h.ledgerErr("Burn", err))
}

func reissue(_ context.Context, h *host, stack []uint64) {
	assetID, err := h.bytesArg(stack, 0)
	if err != nil {
		returnStatus(stack, err)
		return
	}
	amount := int64(stack[2])
	reissuable := wazeroapi.DecodeI32(stack[3]) != 0
	err = h.Ledger().Reissue(h.Stack().ContractID(), assetID, amount, reissuable)
	returnStatus(stack, h.ledgerErr("Reissue", err))
}
