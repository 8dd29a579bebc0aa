package api

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/types"
)

// blockInt reads a block field holding a big-endian i64.
func blockInt(field string) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		raw, err := h.Ledger().Block(field)
		if err != nil {
			returnI64(stack, 0, h.ledgerErr("Block", err))
			return
		}
		if len(raw) != 8 {
			returnI64(stack, 0, errors.Wrapf(types.ConvertingNumericTypes, "block %s: %d bytes", field, len(raw)))
			return
		}
		returnI64(stack, int64(binary.BigEndian.Uint64(raw)), nil)
	}
}
