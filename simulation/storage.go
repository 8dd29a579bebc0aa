package simulation

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/internal/codec"
)

func (l *Ledger) ContainsKey(address, key []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.storage.Has(storageItem{Address: string(address), Key: string(key)}), nil
}

// Storage returns the encoded entry under (address, key), key included.
func (l *Ledger) Storage(address, key []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok := l.storage.Get(storageItem{Address: string(address), Key: string(key)})
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "storage key %q", key)
	}
	return bytes.Clone(item.Entry), nil
}

// SetStorage stores an encoded entry in the storage of contractID.
func (l *Ledger) SetStorage(contractID, entry []byte) error {
	key, _, err := codec.DeserializeWithKey(entry)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.storage.ReplaceOrInsert(storageItem{Address: string(contractID), Key: key, Entry: bytes.Clone(entry)})
	return nil
}

// Keys lists the storage keys of address in order.
func (l *Ledger) Keys(address []byte) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var keys []string
	l.storage.AscendGreaterOrEqual(storageItem{Address: string(address)}, func(item storageItem) bool {
		if item.Address != string(address) {
			return false
		}
		keys = append(keys, item.Key)
		return true
	})
	return keys
}
