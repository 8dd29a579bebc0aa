package api

import (
	"context"

	"github.com/pkg/errors"
	wazeroapi "github.com/tetratelabs/wazero/api"

	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/types"
)

// storageEntry reads the (address, key) arguments and fetches the decoded
// entry. An empty address means the running contract.
func (h *host) storageEntry(stack []uint64, kind codec.Kind) (codec.Value, error) {
	address, err := h.bytesArg(stack, 0)
	if err != nil {
		return codec.Value{}, err
	}
	key, err := h.bytesArg(stack, 2)
	if err != nil {
		return codec.Value{}, err
	}
	if len(address) == 0 {
		address = h.Stack().ContractID()
	}
	raw, err := h.Ledger().Storage(address, key)
	if err != nil {
		return codec.Value{}, h.ledgerErr("Storage", err)
	}
	v, err := codec.Deserialize(raw)
	if err != nil {
		return codec.Value{}, err
	}
	if v.Kind != kind {
		return codec.Value{}, errors.Wrapf(types.FailedDeserialize, "key %q holds %s, want %s", key, v.Kind, kind)
	}
	return v, nil
}

func getStorageInt(_ context.Context, h *host, stack []uint64) {
	v, err := h.storageEntry(stack, codec.KindInteger)
	returnI64(stack, v.Int, err)
}

func getStorageBool(_ context.Context, h *host, stack []uint64) {
	v, err := h.storageEntry(stack, codec.KindBoolean)
	returnI32(stack, v.Bool(), err)
}

func getStorageBytes(kind codec.Kind) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		v, err := h.storageEntry(stack, kind)
		h.returnBytes(stack, v.Bytes, err)
	}
}

// setStorage serializes the entry read from (key, value...) and stores it
// under the running contract.
func setStorage(value func(h *host, stack []uint64) (codec.Value, error)) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		key, err := h.bytesArg(stack, 0)
		if err != nil {
			returnStatus(stack, err)
			return
		}
		v, err := value(h, stack)
		if err != nil {
			returnStatus(stack, err)
			return
		}
		err = h.Ledger().SetStorage(h.Stack().ContractID(), v.Serialize(key))
		returnStatus(stack, h.ledgerErr("SetStorage", err))
	}
}

func intValue(_ *host, stack []uint64) (codec.Value, error) {
	return codec.IntegerValue(int64(stack[2])), nil
}

func boolValue(_ *host, stack []uint64) (codec.Value, error) {
	return codec.BooleanValue(wazeroapi.DecodeI32(stack[2])), nil
}

func binaryValue(h *host, stack []uint64) (codec.Value, error) {
	b, err := h.bytesArg(stack, 2)
	return codec.BinaryValue(b), err
}

func stringValue(h *host, stack []uint64) (codec.Value, error) {
	b, err := h.bytesArg(stack, 2)
	return codec.StringValue(b), err
}

func containsKey(_ context.Context, h *host, stack []uint64) {
	address, err := h.bytesArg(stack, 0)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	key, err := h.bytesArg(stack, 2)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	if len(address) == 0 {
		address = h.Stack().ContractID()
	}
	ok, err := h.Ledger().ContainsKey(address, key)
	returnI32(stack, boolToI32(ok), h.ledgerErr("ContainsKey", err))
}
