package simulation

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/internal/codec"
)

func contractHolder(contractID []byte) string {
	return string(codec.AssetHolder(codec.HolderContract, 0, 0, contractID))
}

// resolve maps an alias holder to the address holder it is bound to.
// Callers hold l.mu.
func (l *Ledger) resolve(holder []byte) (string, error) {
	if len(holder) >= 3 && holder[0] == byte(codec.HolderAccount) && holder[1] == byte(codec.VersionAlias) {
		if holder[2] != l.chainID {
			return "", errors.Wrapf(ErrNotFound, "alias for chain %q", holder[2])
		}
		address, ok := l.aliases[string(holder[3:])]
		if !ok {
			return "", errors.Wrapf(ErrNotFound, "alias %q", holder[3:])
		}
		return string(codec.AssetHolder(codec.HolderAccount, codec.VersionAddress, 0, address)), nil
	}
	if len(holder) == 0 {
		return "", errors.Wrap(ErrNotFound, "empty holder")
	}
	return string(holder), nil
}

func (l *Ledger) balance(holder string, assetID []byte) int64 {
	item, _ := l.balances.Get(balanceItem{Holder: holder, Asset: string(assetID)})
	return item.Amount
}

func (l *Ledger) setBalance(holder string, assetID []byte, amount int64) {
	item := balanceItem{Holder: holder, Asset: string(assetID), Amount: amount}
	if amount == 0 {
		l.balances.Delete(item)
		return
	}
	l.balances.ReplaceOrInsert(item)
}

// move transfers amount of assetID between two resolved holders.
func (l *Ledger) move(from, to string, assetID []byte, amount int64) error {
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "%d", amount)
	}
	have := l.balance(from, assetID)
	if have < amount {
		return errors.Wrapf(ErrInsufficientFunds, "balance %d, need %d", have, amount)
	}
	if from == to {
		return nil
	}
	credit := l.balance(to, assetID)
	if credit > math.MaxInt64-amount {
		return errors.Wrap(ErrInvalidAmount, "balance overflow")
	}
	l.setBalance(from, assetID, have-amount)
	l.setBalance(to, assetID, credit+amount)
	return nil
}

func (l *Ledger) Balance(assetID, holder []byte) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, err := l.resolve(holder)
	if err != nil {
		return 0, err
	}
	return l.balance(h, assetID), nil
}

func (l *Ledger) Transfer(contractID, assetID, recipient []byte, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	to, err := l.resolve(recipient)
	if err != nil {
		return err
	}
	return l.move(contractHolder(contractID), to, assetID, amount)
}

// AddPayments moves the payments from contractID to the callee named by
// paymentID and registers them for the callee to read.
func (l *Ledger) AddPayments(contractID, paymentID, payments []byte) error {
	list, err := codec.DecodePayments(payments)
	if err != nil {
		return err
	}
	if len(paymentID) < 8 {
		return errors.Wrapf(ErrNotFound, "payment id %x", paymentID)
	}
	callee := contractHolder(paymentID[:len(paymentID)-8])
	from := contractHolder(contractID)

	l.mu.Lock()
	defer l.mu.Unlock()

	// check every payment first so a failure moves nothing
	need := make(map[string]int64)
	for _, p := range list {
		if p.Amount < 0 {
			return errors.Wrapf(ErrInvalidAmount, "%d", p.Amount)
		}
		need[string(p.AssetID)] += p.Amount
	}
	for asset, amount := range need {
		if have := l.balance(from, []byte(asset)); have < amount {
			return errors.Wrapf(ErrInsufficientFunds, "asset %x: balance %d, need %d", asset, have, amount)
		}
	}
	for _, p := range list {
		if err := l.move(from, callee, p.AssetID, p.Amount); err != nil {
			return err
		}
	}
	l.payments[string(paymentID)] = append(l.payments[string(paymentID)], list...)
	return nil
}

func (l *Ledger) Issue(contractID, name, description []byte, quantity, decimals int64, reissuable bool) ([]byte, error) {
	if quantity < 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "quantity %d", quantity)
	}
	if decimals < 0 || decimals > 8 {
		return nil, errors.Wrapf(ErrInvalidAmount, "decimals %d", decimals)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID(contractID, name)
	l.assets[string(id)] = Asset{
		Issuer:      bytes.Clone(contractID),
		Name:        bytes.Clone(name),
		Description: bytes.Clone(description),
		Quantity:    quantity,
		Decimals:    decimals,
		Reissuable:  reissuable,
	}
	l.setBalance(contractHolder(contractID), id, quantity)
	return id, nil
}

func (l *Ledger) Burn(contractID, assetID []byte, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount < 0 {
		return errors.Wrapf(ErrInvalidAmount, "%d", amount)
	}
	holder := contractHolder(contractID)
	have := l.balance(holder, assetID)
	if have < amount {
		return errors.Wrapf(ErrInsufficientFunds, "balance %d, need %d", have, amount)
	}
	l.setBalance(holder, assetID, have-amount)
	if a, ok := l.assets[string(assetID)]; ok {
		a.Quantity -= amount
		l.assets[string(assetID)] = a
	}
	return nil
}

func (l *Ledger) Reissue(contractID, assetID []byte, amount int64, reissuable bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.assets[string(assetID)]
	if !ok {
		return errors.Wrapf(ErrNotFound, "asset %x", assetID)
	}
	if !bytes.Equal(a.Issuer, contractID) || !a.Reissuable {
		return errors.Wrapf(ErrNotPermitted, "reissue asset %x", assetID)
	}
	if amount < 0 || a.Quantity > math.MaxInt64-amount {
		return errors.Wrapf(ErrInvalidAmount, "%d", amount)
	}
	a.Quantity += amount
	a.Reissuable = reissuable
	l.assets[string(assetID)] = a
	holder := contractHolder(contractID)
	l.setBalance(holder, assetID, l.balance(holder, assetID)+amount)
	return nil
}

/****** Tx payments ******/

func (l *Ledger) paymentList(paymentID []byte) ([]codec.Payment, error) {
	list, ok := l.payments[string(paymentID)]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "payments %x", paymentID)
	}
	return list, nil
}

func (l *Ledger) payment(paymentID []byte, n int64) (codec.Payment, error) {
	list, err := l.paymentList(paymentID)
	if err != nil {
		return codec.Payment{}, err
	}
	if n < 0 || n >= int64(len(list)) {
		return codec.Payment{}, errors.Wrapf(ErrNotFound, "payment %d of %d", n, len(list))
	}
	return list[n], nil
}

// TxPayments counts the payments under paymentID. An invocation without
// payments has none.
func (l *Ledger) TxPayments(paymentID []byte) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.payments[string(paymentID)])), nil
}

func (l *Ledger) TxPaymentAssetID(paymentID []byte, n int64) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := l.payment(paymentID, n)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(p.AssetID), nil
}

func (l *Ledger) TxPaymentAmount(paymentID []byte, n int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, err := l.payment(paymentID, n)
	if err != nil {
		return 0, err
	}
	return p.Amount, nil
}
