package api

import (
	"github.com/wavesenterprise/wevm/internal/codec"
)

// env0 is the baseline host ABI.
var env0 = []HostFunction{
	// Asset
	{Name: "get_balance", Params: sig(i32, i32, i32, i32), Results: sig(i32, i64), fn: getBalance},
	{Name: "transfer", Params: sig(i32, i32, i32, i32, i64), Results: sig(i32), fn: transfer},
	{Name: "issue", Params: sig(i32, i32, i32, i32, i64, i32, i32), Results: sig(i32, i32, i32), fn: issue(false)},
	{Name: "burn", Params: sig(i32, i32, i64), Results: sig(i32), fn: burn},
	{Name: "reissue", Params: sig(i32, i32, i64, i32), Results: sig(i32), fn: reissue},

	// Block
	{Name: "get_block_timestamp", Results: sig(i32, i64), fn: blockInt("timestamp")},
	{Name: "get_block_height", Results: sig(i32, i64), fn: blockInt("height")},

	// Call contract
	{Name: "call_arg_int", Params: sig(i64), fn: callArgInt},
	{Name: "call_arg_bool", Params: sig(i32), fn: callArgBool},
	{Name: "call_arg_binary", Params: sig(i32, i32), Results: sig(i32), fn: callArgBinary},
	{Name: "call_arg_string", Params: sig(i32, i32), Results: sig(i32), fn: callArgString},
	{Name: "call_payment", Params: sig(i32, i32, i64), Results: sig(i32), fn: callPayment},
	{Name: "call_contract", Params: sig(i32, i32, i32, i32), Results: sig(i32), fn: callContract(false)},
	{Name: "call_contract_params", Params: sig(i32, i32, i32, i32, i32, i32), Results: sig(i32), fn: callContract(true)},

	// Converts
	{Name: "parse_int", Params: sig(i32, i32), Results: sig(i32, i64), fn: parseInt},
	{Name: "parse_bool", Params: sig(i32, i32), Results: sig(i32, i32), fn: parseBool},
	{Name: "to_bytes", Params: sig(i64), Results: sig(i32, i32, i32), fn: toBytes},
	{Name: "to_int", Params: sig(i32, i32), Results: sig(i32, i64), fn: toInt},
	{Name: "to_string_bool", Params: sig(i32), Results: sig(i32, i32, i32), fn: toStringBool},
	{Name: "to_string_int", Params: sig(i64), Results: sig(i32, i32, i32), fn: toStringInt},

	// Crypto
	{Name: "fast_hash", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: fastHash},
	{Name: "secure_hash", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: secureHash},
	{Name: "sig_verify", Params: sig(i32, i32, i32, i32, i32, i32), Results: sig(i32, i32), fn: sigVerify},

	// Lease
	{Name: "lease_address", Params: sig(i32, i32, i64), Results: sig(i32, i32, i32), fn: lease(codec.VersionAddress)},
	{Name: "lease_alias", Params: sig(i32, i32, i64), Results: sig(i32, i32, i32), fn: lease(codec.VersionAlias)},
	{Name: "cancel_lease", Params: sig(i32, i32), Results: sig(i32), fn: cancelLease},

	// Memory
	{Name: "binary_equals", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32), fn: binaryEquals},
	{Name: "string_equals", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32), fn: stringEquals},
	{Name: "join", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32, i32), fn: join},
	{Name: "contains", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32), fn: contains},
	{Name: "drop", Params: sig(i32, i32, i64), Results: sig(i32, i32, i32), fn: sliceOp(ByteSliceView.Drop)},
	{Name: "drop_right", Params: sig(i32, i32, i64), Results: sig(i32, i32, i32), fn: sliceOp(ByteSliceView.DropRight)},
	{Name: "take", Params: sig(i32, i32, i64), Results: sig(i32, i32, i32), fn: sliceOp(ByteSliceView.Take)},
	{Name: "take_right", Params: sig(i32, i32, i64), Results: sig(i32, i32, i32), fn: sliceOp(ByteSliceView.TakeRight)},
	{Name: "index_of", Params: sig(i32, i32, i32, i32), Results: sig(i32, i64), fn: indexOfFunc(false)},
	{Name: "last_index_of", Params: sig(i32, i32, i32, i32), Results: sig(i32, i64), fn: indexOfFunc(true)},

	// Storage
	{Name: "get_storage_int", Params: sig(i32, i32, i32, i32), Results: sig(i32, i64), fn: getStorageInt},
	{Name: "get_storage_bool", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32), fn: getStorageBool},
	{Name: "get_storage_binary", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32, i32), fn: getStorageBytes(codec.KindBinary)},
	{Name: "get_storage_string", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32, i32), fn: getStorageBytes(codec.KindString)},
	{Name: "set_storage_int", Params: sig(i32, i32, i64), Results: sig(i32), fn: setStorage(intValue)},
	{Name: "set_storage_bool", Params: sig(i32, i32, i32), Results: sig(i32), fn: setStorage(boolValue)},
	{Name: "set_storage_binary", Params: sig(i32, i32, i32, i32), Results: sig(i32), fn: setStorage(binaryValue)},
	{Name: "set_storage_string", Params: sig(i32, i32, i32, i32), Results: sig(i32), fn: setStorage(stringValue)},

	// Tx
	{Name: "get_tx_sender", Results: sig(i32, i32, i32), fn: getTxSender},
	{Name: "get_payments", Results: sig(i32, i32), fn: getPayments(true)},
	{Name: "get_payment_asset_id", Params: sig(i32), Results: sig(i32, i32, i32), fn: getPaymentAssetID(true)},
	{Name: "get_payment_amount", Params: sig(i32), Results: sig(i32, i64), fn: getPaymentAmount(true)},

	// Utils
	{Name: "base_58", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: base58Decode},
	{Name: "to_base_58_string", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: toBase58String},
	{Name: "to_le_bytes", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: toLeBytes},
	{Name: "caller", Results: sig(i32, i32, i32), fn: caller},
}

// env1 widens numeric arguments of env0 and adds explicit asset holders,
// key lookups and in-engine hashes.
var env1 = []HostFunction{
	// Asset
	{Name: "get_balance", Params: sig(i32, i32, i32, i32, i32, i32), Results: sig(i32, i64), fn: getBalanceHolder},
	{Name: "transfer", Params: sig(i32, i32, i32, i32, i32, i32, i64), Results: sig(i32), fn: transferHolder},
	{Name: "issue", Params: sig(i32, i32, i32, i32, i64, i64, i32), Results: sig(i32, i32, i32), fn: issue(true)},

	// Crypto
	{Name: "blake2b256", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: digest(blake2b256)},
	{Name: "keccak256", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: digest(keccak256)},
	{Name: "sha256", Params: sig(i32, i32), Results: sig(i32, i32, i32), fn: digest(sha256Sum)},

	// Storage
	{Name: "contains_key", Params: sig(i32, i32, i32, i32), Results: sig(i32, i32), fn: containsKey},

	// Tx
	{Name: "get_payments", Results: sig(i32, i64), fn: getPayments(false)},
	{Name: "get_payment_asset_id", Params: sig(i64), Results: sig(i32, i32, i32), fn: getPaymentAssetID(false)},
	{Name: "get_payment_amount", Params: sig(i64), Results: sig(i32, i64), fn: getPaymentAmount(false)},
}
