package types

// Ledger is the node-side collaborator every host function delegates to.
// Calls are synchronous and may be re-entered by nested contract calls, so
// implementations must tolerate being called again before a previous call
// into the engine has returned.
//
// Holder arguments are encoded asset holders (see internal/codec.AssetHolder):
// a type prefix followed by the address, alias or contract id bytes.
//
// Errors returned from Ledger methods are mapped to guest status codes with
// CodeOf. Returning a Code (or an error wrapping one) selects the status;
// any other error is reported as MethodCall.
type Ledger interface {
	ChainID() (byte, error)
	Bytecode(contractID []byte) ([]byte, error)
	// AddPayments registers an encoded payment list sent by contractID under paymentID.
	AddPayments(contractID, paymentID, payments []byte) error

	// Asset
	Balance(assetID, holder []byte) (int64, error)
	Transfer(contractID, assetID, recipient []byte, amount int64) error
	Issue(contractID, name, description []byte, quantity, decimals int64, reissuable bool) ([]byte, error)
	Burn(contractID, assetID []byte, amount int64) error
	Reissue(contractID, assetID []byte, amount int64, reissuable bool) error

	// Block returns a named field of the current block, e.g. "timestamp" or "height".
	Block(field string) ([]byte, error)

	// Crypto
	FastHash(data []byte) ([]byte, error)
	SecureHash(data []byte) ([]byte, error)
	SigVerify(message, signature, publicKey []byte) (bool, error)

	// Lease
	Lease(contractID, recipient []byte, amount int64) ([]byte, error)
	CancelLease(contractID, leaseID []byte) error

	// Storage. Entries are encoded with their key, see internal/codec.Serialize.
	ContainsKey(address, key []byte) (bool, error)
	Storage(address, key []byte) ([]byte, error)
	SetStorage(contractID, entry []byte) error

	// Tx
	TxPayments(paymentID []byte) (int64, error)
	TxPaymentAssetID(paymentID []byte, n int64) ([]byte, error)
	TxPaymentAmount(paymentID []byte, n int64) (int64, error)
	// Tx returns a named field of the transaction being executed, e.g. "sender".
	Tx(field string) ([]byte, error)
}

// CodeStore keeps contract bytecode by contract id. Put returns the checksum
// of the stored code.
type CodeStore interface {
	Put(contractID, bytecode []byte) ([]byte, error)
	Code(contractID []byte) ([]byte, error)
}
