package simulation

import (
	"github.com/pkg/errors"
)

// LeaseInfo describes an active lease.
type LeaseInfo struct {
	Sender    []byte
	Recipient []byte
	Amount    int64
}

// leased sums the native asset leased out by holder. Callers hold l.mu.
func (l *Ledger) leased(holder string) int64 {
	var total int64
	l.leases.Ascend(func(item leaseItem) bool {
		if item.Sender == holder {
			total += item.Amount
		}
		return true
	})
	return total
}

// Lease leases native asset from contractID to recipient. Leased funds stay
// on the sender balance but cannot be leased again.
func (l *Ledger) Lease(contractID, recipient []byte, amount int64) ([]byte, error) {
	if amount <= 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "%d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	to, err := l.resolve(recipient)
	if err != nil {
		return nil, err
	}
	from := contractHolder(contractID)
	if available := l.balance(from, nil) - l.leased(from); available < amount {
		return nil, errors.Wrapf(ErrInsufficientFunds, "available %d, need %d", available, amount)
	}
	id := l.nextID(contractID, recipient)
	l.leases.ReplaceOrInsert(leaseItem{ID: string(id), Sender: from, Recipient: to, Amount: amount})
	return id, nil
}

func (l *Ledger) CancelLease(contractID, leaseID []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok := l.leases.Get(leaseItem{ID: string(leaseID)})
	if !ok {
		return errors.Wrapf(ErrNotFound, "lease %x", leaseID)
	}
	if item.Sender != contractHolder(contractID) {
		return errors.Wrapf(ErrNotPermitted, "cancel lease %x", leaseID)
	}
	l.leases.Delete(item)
	return nil
}

// LeaseByID returns an active lease.
func (l *Ledger) LeaseByID(leaseID []byte) (LeaseInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok := l.leases.Get(leaseItem{ID: string(leaseID)})
	if !ok {
		return LeaseInfo{}, false
	}
	return LeaseInfo{Sender: []byte(item.Sender), Recipient: []byte(item.Recipient), Amount: item.Amount}, true
}
