package simulation

import (
	"crypto/ed25519"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

func fastHash(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// FastHash is blake2b-256.
func (l *Ledger) FastHash(data []byte) ([]byte, error) {
	return fastHash(data), nil
}

// SecureHash is keccak256 over blake2b-256.
func (l *Ledger) SecureHash(data []byte) ([]byte, error) {
	h := sha3.NewLegacyKeccak256()
	h.Write(fastHash(data))
	return h.Sum(nil), nil
}

// SigVerify checks an ed25519 signature. Malformed keys and signatures
// verify as false.
func (l *Ledger) SigVerify(message, signature, publicKey []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(publicKey, message, signature), nil
}
