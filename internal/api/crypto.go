package api

import (
	"context"
	"crypto/sha256"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

func fastHash(_ context.Context, h *host, stack []uint64) {
	data, err := h.bytesArg(stack, 0)
	if err != nil {
		h.returnBytes(stack, nil, err)
		return
	}
	sum, err := h.Ledger().FastHash(data)
	h.returnBytes(stack, sum, h.ledgerErr("FastHash", err))
}

func secureHash(_ context.Context, h *host, stack []uint64) {
	data, err := h.bytesArg(stack, 0)
	if err != nil {
		h.returnBytes(stack, nil, err)
		return
	}
	sum, err := h.Ledger().SecureHash(data)
	h.returnBytes(stack, sum, h.ledgerErr("SecureHash", err))
}

func sigVerify(_ context.Context, h *host, stack []uint64) {
	message, err := h.bytesArg(stack, 0)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	signature, err := h.bytesArg(stack, 2)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	publicKey, err := h.bytesArg(stack, 4)
	if err != nil {
		returnI32(stack, 0, err)
		return
	}
	ok, err := h.Ledger().SigVerify(message, signature, publicKey)
	returnI32(stack, boolToI32(ok), h.ledgerErr("SigVerify", err))
}

// digest computes a hash in the engine without asking the ledger.
func digest(sum func([]byte) []byte) hostFunc {
	return func(_ context.Context, h *host, stack []uint64) {
		data, err := h.bytesArg(stack, 0)
		if err != nil {
			h.returnBytes(stack, nil, err)
			return
		}
		h.returnBytes(stack, sum(data), nil)
	}
}

func blake2b256(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

func keccak256(data []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	return hash.Sum(nil)
}

func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
