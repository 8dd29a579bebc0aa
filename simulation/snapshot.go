package simulation

import (
	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/shamaton/msgpack/v2"

	"github.com/wavesenterprise/wevm/internal/codec"
)

type snapshot struct {
	Storage  []storageItem
	Balances []balanceItem
	Leases   []leaseItem
	Payments map[string][]codec.Payment
	Assets   map[string]Asset
	Nonce    uint64
}

func items[T any](t *btree.BTreeG[T]) []T {
	out := make([]T, 0, t.Len())
	t.Ascend(func(item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

func fill[T any](t *btree.BTreeG[T], list []T) {
	t.Clear(false)
	for _, item := range list {
		t.ReplaceOrInsert(item)
	}
}

// Checkpoint encodes the mutable ledger state: storage, balances, leases,
// payments, assets and the id nonce. Deployed code, block and tx fields are
// not part of it.
func (l *Ledger) Checkpoint() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := msgpack.Marshal(snapshot{
		Storage:  items(l.storage),
		Balances: items(l.balances),
		Leases:   items(l.leases),
		Payments: l.payments,
		Assets:   l.assets,
		Nonce:    l.nonce,
	})
	return data, errors.Wrap(err, "encode checkpoint")
}

// Rollback restores the state captured by Checkpoint.
func (l *Ledger) Rollback(checkpoint []byte) error {
	var s snapshot
	if err := msgpack.Unmarshal(checkpoint, &s); err != nil {
		return errors.Wrap(err, "decode checkpoint")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fill(l.storage, s.Storage)
	fill(l.balances, s.Balances)
	fill(l.leases, s.Leases)
	l.payments = s.Payments
	if l.payments == nil {
		l.payments = make(map[string][]codec.Payment)
	}
	l.assets = s.Assets
	if l.assets == nil {
		l.assets = make(map[string]Asset)
	}
	l.nonce = s.Nonce
	return nil
}
