// Package simulation is an in-memory Ledger, standing in for the node in
// tests and local runs.
package simulation

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/internal/codec"
	"github.com/wavesenterprise/wevm/types"
)

const (
	btreeDegree = 32

	BlockTimestamp = "timestamp"
	BlockHeight    = "height"
	TxSender       = "sender"

	// DefaultChainID is the chain id of a ledger built without WithChainID.
	DefaultChainID byte = 'V'
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotPermitted      = errors.New("not permitted")
	ErrInvalidAmount     = errors.New("invalid amount")
)

type storageItem struct {
	Address string
	Key     string
	Entry   []byte
}

func storageLess(a, b storageItem) bool {
	if a.Address != b.Address {
		return a.Address < b.Address
	}
	return a.Key < b.Key
}

type balanceItem struct {
	Holder string
	Asset  string
	Amount int64
}

func balanceLess(a, b balanceItem) bool {
	if a.Holder != b.Holder {
		return a.Holder < b.Holder
	}
	return a.Asset < b.Asset
}

type leaseItem struct {
	ID        string
	Sender    string
	Recipient string
	Amount    int64
}

func leaseLess(a, b leaseItem) bool { return a.ID < b.ID }

// Asset describes an asset issued through the ledger.
type Asset struct {
	Issuer      []byte
	Name        []byte
	Description []byte
	Quantity    int64
	Decimals    int64
	Reissuable  bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithChainID sets the chain id used for alias holders.
func WithChainID(id byte) Option {
	return func(l *Ledger) { l.chainID = id }
}

// WithCodeStore keeps deployed bytecode in s instead of memory.
func WithCodeStore(s types.CodeStore) Option {
	return func(l *Ledger) { l.code = s }
}

// Ledger implements types.Ledger in memory. It is safe for concurrent use.
type Ledger struct {
	mu sync.Mutex

	chainID byte
	code    types.CodeStore
	codes   map[string][]byte
	aliases map[string][]byte

	storage  *btree.BTreeG[storageItem]
	balances *btree.BTreeG[balanceItem]
	leases   *btree.BTreeG[leaseItem]
	payments map[string][]codec.Payment
	assets   map[string]Asset
	nonce    uint64

	block map[string][]byte
	tx    map[string][]byte
}

var _ types.Ledger = (*Ledger)(nil)

func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		chainID:  DefaultChainID,
		codes:    make(map[string][]byte),
		aliases:  make(map[string][]byte),
		storage:  btree.NewG(btreeDegree, storageLess),
		balances: btree.NewG(btreeDegree, balanceLess),
		leases:   btree.NewG(btreeDegree, leaseLess),
		payments: make(map[string][]codec.Payment),
		assets:   make(map[string]Asset),
		block:    make(map[string][]byte),
		tx:       make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

/****** Setup ******/

// Deploy registers bytecode for contractID.
func (l *Ledger) Deploy(contractID, bytecode []byte) error {
	if l.code != nil {
		_, err := l.code.Put(contractID, bytecode)
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.codes[string(contractID)] = bytes.Clone(bytecode)
	return nil
}

// SetBlock sets the current block height and timestamp.
func (l *Ledger) SetBlock(height, timestamp int64) {
	l.SetBlockField(BlockHeight, binary.BigEndian.AppendUint64(nil, uint64(height)))
	l.SetBlockField(BlockTimestamp, binary.BigEndian.AppendUint64(nil, uint64(timestamp)))
}

func (l *Ledger) SetBlockField(field string, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.block[field] = bytes.Clone(value)
}

func (l *Ledger) SetTxField(field string, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tx[field] = bytes.Clone(value)
}

// SetAlias binds an alias to an account address.
func (l *Ledger) SetAlias(alias string, address []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.aliases[alias] = bytes.Clone(address)
}

// SetBalance overwrites the balance of holder, an encoded asset holder.
func (l *Ledger) SetBalance(assetID, holder []byte, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances.ReplaceOrInsert(balanceItem{Holder: string(holder), Asset: string(assetID), Amount: amount})
}

// AttachPayments registers payments under paymentID without moving funds,
// the way the node registers the payments of the transaction itself.
func (l *Ledger) AttachPayments(paymentID []byte, payments ...codec.Payment) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payments[string(paymentID)] = append([]codec.Payment(nil), payments...)
}

/****** Inspection ******/

// StorageValue decodes the entry stored under (address, key).
func (l *Ledger) StorageValue(address []byte, key string) (codec.Value, bool) {
	l.mu.Lock()
	item, ok := l.storage.Get(storageItem{Address: string(address), Key: key})
	l.mu.Unlock()
	if !ok {
		return codec.Value{}, false
	}
	v, err := codec.Deserialize(item.Entry)
	return v, err == nil
}

// Asset returns an issued asset.
func (l *Ledger) Asset(assetID []byte) (Asset, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.assets[string(assetID)]
	return a, ok
}

// Payments returns the payments registered under paymentID.
func (l *Ledger) Payments(paymentID []byte) []codec.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]codec.Payment(nil), l.payments[string(paymentID)]...)
}

/****** Chain ******/

func (l *Ledger) ChainID() (byte, error) { return l.chainID, nil }

func (l *Ledger) Bytecode(contractID []byte) ([]byte, error) {
	if l.code != nil {
		return l.code.Code(contractID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	code, ok := l.codes[string(contractID)]
	if !ok {
		return nil, errors.Wrapf(types.ModuleNotFound, "contract %x", contractID)
	}
	return code, nil
}

func (l *Ledger) Block(field string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.block[field]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "block field %q", field)
	}
	return bytes.Clone(v), nil
}

func (l *Ledger) Tx(field string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.tx[field]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "tx field %q", field)
	}
	return bytes.Clone(v), nil
}

// nextID derives a fresh identifier from the ledger nonce and parts.
// Callers hold l.mu.
func (l *Ledger) nextID(parts ...[]byte) []byte {
	l.nonce++
	buf := binary.BigEndian.AppendUint64(nil, l.nonce)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return fastHash(buf)
}
