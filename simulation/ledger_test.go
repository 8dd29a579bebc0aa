package simulation

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/internal/codestore"
	"github.com/wavesenterprise/wevm/internal/wasmtest"
	"github.com/wavesenterprise/wevm/types"
)

var (
	alice = []byte("alice-contract")
	bob   = []byte("bob-contract")
	asset = bytes.Repeat([]byte{7}, codec.AssetIDLength)
)

func account(address []byte) []byte {
	return codec.AssetHolder(codec.HolderAccount, codec.VersionAddress, 0, address)
}

func TestBytecodeInMemory(t *testing.T) {
	l := NewLedger()
	_, err := l.Bytecode(alice)
	require.True(t, types.Is(err, types.ModuleNotFound))

	require.NoError(t, l.Deploy(alice, []byte{0, 'a', 's', 'm'}))
	code, err := l.Bytecode(alice)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 'a', 's', 'm'}, code)
}

func TestBytecodeFromCodeStore(t *testing.T) {
	store, err := codestore.Open(t.TempDir(), 2)
	require.NoError(t, err)
	defer store.Release()

	b := wasmtest.New()
	b.ExportFunc("_constructor", b.Func(nil, nil, nil))
	code := b.Build()

	l := NewLedger(WithCodeStore(store))
	require.NoError(t, l.Deploy(alice, code))
	got, err := l.Bytecode(alice)
	require.NoError(t, err)
	require.Equal(t, code, got)

	require.True(t, types.Is(l.Deploy(bob, []byte("junk")), types.InvalidBytecode))
}

func TestTransfer(t *testing.T) {
	l := NewLedger()
	from := codec.AssetHolder(codec.HolderContract, 0, 0, alice)
	l.SetBalance(nil, from, 100)

	require.NoError(t, l.Transfer(alice, nil, account([]byte("acc")), 40))
	got, err := l.Balance(nil, from)
	require.NoError(t, err)
	require.Equal(t, int64(60), got)
	got, err = l.Balance(nil, account([]byte("acc")))
	require.NoError(t, err)
	require.Equal(t, int64(40), got)

	err = l.Transfer(alice, nil, account([]byte("acc")), 61)
	require.True(t, errors.Is(err, ErrInsufficientFunds))
	require.Equal(t, types.MethodCall, types.CodeOf(err))

	err = l.Transfer(alice, nil, account([]byte("acc")), -1)
	require.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestAliasHolder(t *testing.T) {
	l := NewLedger(WithChainID('T'))
	l.SetAlias("carol", []byte("carol-address"))
	l.SetBalance(asset, codec.AssetHolder(codec.HolderContract, 0, 0, alice), 5)

	alias := codec.AssetHolder(codec.HolderAccount, codec.VersionAlias, 'T', []byte("carol"))
	require.NoError(t, l.Transfer(alice, asset, alias, 5))

	got, err := l.Balance(asset, account([]byte("carol-address")))
	require.NoError(t, err)
	require.Equal(t, int64(5), got)

	_, err = l.Balance(asset, codec.AssetHolder(codec.HolderAccount, codec.VersionAlias, 'X', []byte("carol")))
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = l.Balance(asset, codec.AssetHolder(codec.HolderAccount, codec.VersionAlias, 'T', []byte("dave")))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestAddPayments(t *testing.T) {
	l := NewLedger()
	l.SetBalance(nil, codec.AssetHolder(codec.HolderContract, 0, 0, alice), 10)
	l.SetBalance(asset, codec.AssetHolder(codec.HolderContract, 0, 0, alice), 3)

	var list codec.PaymentList
	list.Push(nil, 4)
	list.Push(asset, 3)
	paymentID := codec.PaymentID(bob, 1)

	require.NoError(t, l.AddPayments(alice, paymentID, list.Bytes()))
	require.Equal(t, []codec.Payment{{Amount: 4}, {AssetID: asset, Amount: 3}}, l.Payments(paymentID))

	n, err := l.TxPayments(paymentID)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	id, err := l.TxPaymentAssetID(paymentID, 1)
	require.NoError(t, err)
	require.Equal(t, asset, id)
	amount, err := l.TxPaymentAmount(paymentID, 0)
	require.NoError(t, err)
	require.Equal(t, int64(4), amount)
	_, err = l.TxPaymentAmount(paymentID, 2)
	require.True(t, errors.Is(err, ErrNotFound))

	got, err := l.Balance(nil, codec.AssetHolder(codec.HolderContract, 0, 0, bob))
	require.NoError(t, err)
	require.Equal(t, int64(4), got)

	// a payment the sender cannot cover moves nothing
	list.Reset()
	list.Push(nil, 6)
	list.Push(asset, 1)
	err = l.AddPayments(alice, codec.PaymentID(bob, 2), list.Bytes())
	require.True(t, errors.Is(err, ErrInsufficientFunds))
	got, err = l.Balance(nil, codec.AssetHolder(codec.HolderContract, 0, 0, alice))
	require.NoError(t, err)
	require.Equal(t, int64(6), got)

	n, err = l.TxPayments(codec.PaymentID(bob, 2))
	require.NoError(t, err)
	require.Zero(t, n)

	require.True(t, types.Is(l.AddPayments(alice, paymentID, []byte{0}), types.FailedDeserialize))
}

func TestIssueBurnReissue(t *testing.T) {
	l := NewLedger()
	holder := codec.AssetHolder(codec.HolderContract, 0, 0, alice)

	id, err := l.Issue(alice, []byte("token"), []byte("desc"), 1000, 2, true)
	require.NoError(t, err)
	require.Len(t, id, 32)

	other, err := l.Issue(alice, []byte("token"), []byte("desc"), 1, 0, false)
	require.NoError(t, err)
	require.NotEqual(t, id, other)

	require.NoError(t, l.Burn(alice, id, 100))
	require.NoError(t, l.Reissue(alice, id, 50, false))
	a, ok := l.Asset(id)
	require.True(t, ok)
	assert.Equal(t, int64(950), a.Quantity)
	assert.False(t, a.Reissuable)

	got, err := l.Balance(id, holder)
	require.NoError(t, err)
	require.Equal(t, int64(950), got)

	require.True(t, errors.Is(l.Reissue(alice, id, 1, true), ErrNotPermitted))
	require.True(t, errors.Is(l.Reissue(bob, other, 1, true), ErrNotPermitted))
	require.True(t, errors.Is(l.Burn(alice, id, 10_000), ErrInsufficientFunds))

	_, err = l.Issue(alice, []byte("x"), nil, 1, 9, false)
	require.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestLease(t *testing.T) {
	l := NewLedger()
	l.SetBalance(nil, codec.AssetHolder(codec.HolderContract, 0, 0, alice), 10)

	id, err := l.Lease(alice, account([]byte("acc")), 7)
	require.NoError(t, err)
	info, ok := l.LeaseByID(id)
	require.True(t, ok)
	require.Equal(t, int64(7), info.Amount)
	require.Equal(t, account([]byte("acc")), info.Recipient)

	_, err = l.Lease(alice, account([]byte("acc")), 4)
	require.True(t, errors.Is(err, ErrInsufficientFunds))

	require.True(t, errors.Is(l.CancelLease(bob, id), ErrNotPermitted))
	require.NoError(t, l.CancelLease(alice, id))
	require.True(t, errors.Is(l.CancelLease(alice, id), ErrNotFound))

	_, err = l.Lease(alice, account([]byte("acc")), 10)
	require.NoError(t, err)
}

func TestStorage(t *testing.T) {
	l := NewLedger()
	entry := codec.IntegerValue(42).Serialize([]byte("answer"))
	require.NoError(t, l.SetStorage(alice, entry))

	ok, err := l.ContainsKey(alice, []byte("answer"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.ContainsKey(bob, []byte("answer"))
	require.NoError(t, err)
	require.False(t, ok)

	got, err := l.Storage(alice, []byte("answer"))
	require.NoError(t, err)
	require.Equal(t, entry, got)

	_, err = l.Storage(alice, []byte("missing"))
	require.True(t, errors.Is(err, ErrNotFound))

	v, ok := l.StorageValue(alice, "answer")
	require.True(t, ok)
	require.Equal(t, codec.IntegerValue(42), v)

	require.NoError(t, l.SetStorage(alice, codec.StringValue([]byte("x")).Serialize([]byte("b"))))
	require.NoError(t, l.SetStorage(bob, codec.BooleanValue(1).Serialize([]byte("a"))))
	require.Equal(t, []string{"answer", "b"}, l.Keys(alice))

	require.True(t, types.Is(l.SetStorage(alice, []byte{0, 1}), types.FailedDeserialize))
}

func TestBlockAndTx(t *testing.T) {
	l := NewLedger()
	_, err := l.Block(BlockHeight)
	require.True(t, errors.Is(err, ErrNotFound))

	l.SetBlock(12, 1700000000000)
	height, err := l.Block(BlockHeight)
	require.NoError(t, err)
	require.Equal(t, uint64(12), binary.BigEndian.Uint64(height))
	ts, err := l.Block(BlockTimestamp)
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000000), binary.BigEndian.Uint64(ts))

	l.SetTxField(TxSender, []byte("sender"))
	sender, err := l.Tx(TxSender)
	require.NoError(t, err)
	require.Equal(t, []byte("sender"), sender)

	chain, err := l.ChainID()
	require.NoError(t, err)
	require.Equal(t, DefaultChainID, chain)
}

func TestCrypto(t *testing.T) {
	l := NewLedger()
	fast, err := l.FastHash([]byte("data"))
	require.NoError(t, err)
	require.Len(t, fast, 32)
	secure, err := l.SecureHash([]byte("data"))
	require.NoError(t, err)
	require.Len(t, secure, 32)
	require.NotEqual(t, fast, secure)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, []byte("msg"))

	ok, err := l.SigVerify([]byte("msg"), sig, pub)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.SigVerify([]byte("other"), sig, pub)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = l.SigVerify([]byte("msg"), sig[:10], pub)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckpointRollback(t *testing.T) {
	l := NewLedger()
	holder := codec.AssetHolder(codec.HolderContract, 0, 0, alice)
	l.SetBalance(nil, holder, 10)
	require.NoError(t, l.SetStorage(alice, codec.IntegerValue(1).Serialize([]byte("k"))))

	cp, err := l.Checkpoint()
	require.NoError(t, err)

	require.NoError(t, l.SetStorage(alice, codec.IntegerValue(2).Serialize([]byte("k"))))
	require.NoError(t, l.SetStorage(alice, codec.IntegerValue(3).Serialize([]byte("new"))))
	require.NoError(t, l.Transfer(alice, nil, account([]byte("acc")), 10))
	id, err := l.Issue(alice, []byte("t"), nil, 5, 0, false)
	require.NoError(t, err)

	require.NoError(t, l.Rollback(cp))

	v, ok := l.StorageValue(alice, "k")
	require.True(t, ok)
	require.Equal(t, codec.IntegerValue(1), v)
	_, ok = l.StorageValue(alice, "new")
	require.False(t, ok)

	got, err := l.Balance(nil, holder)
	require.NoError(t, err)
	require.Equal(t, int64(10), got)
	_, ok = l.Asset(id)
	require.False(t, ok)

	// the id nonce is restored too, so the same issue yields the same id
	again, err := l.Issue(alice, []byte("t"), nil, 5, 0, false)
	require.NoError(t, err)
	require.Equal(t, id, again)

	require.Error(t, l.Rollback([]byte("garbage")))
}
