package codec

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/types"
)

// AssetIDLength is the size of every non-native asset identifier. The
// payment encoding carries no length for asset ids and relies on it.
const AssetIDLength = 32

// Payment is one attached transfer. An empty AssetID is the native asset.
type Payment struct {
	AssetID []byte
	Amount  int64
}

// PaymentList accumulates the payments attached to the next call.
type PaymentList struct {
	buf   []byte
	count uint16
}

// Push appends a payment: a presence byte, the raw asset id when present,
// then the amount as a big-endian i64.
func (p *PaymentList) Push(assetID []byte, amount int64) {
	if len(assetID) == 0 {
		p.buf = append(p.buf, 0)
	} else {
		p.buf = append(p.buf, 1)
		p.buf = append(p.buf, assetID...)
	}
	p.buf = binary.BigEndian.AppendUint64(p.buf, uint64(amount))
	p.count++
}

func (p *PaymentList) Len() int { return int(p.count) }

// Bytes returns the list encoding, always starting with the u16 count.
func (p *PaymentList) Bytes() []byte {
	out := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(p.buf)), p.count)
	return append(out, p.buf...)
}

func (p *PaymentList) Reset() {
	p.buf = nil
	p.count = 0
}

// DecodePayments parses a payment list produced by PaymentList.Bytes.
func DecodePayments(input []byte) ([]Payment, error) {
	r := newReader(input)
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	out := make([]Payment, 0, count)
	for i := 0; i < int(count); i++ {
		flag, err := r.u8()
		if err != nil {
			return nil, err
		}
		var assetID []byte
		switch flag {
		case 0:
		case 1:
			b, err := r.bytes(AssetIDLength)
			if err != nil {
				return nil, err
			}
			assetID = append([]byte(nil), b...)
		default:
			return nil, errors.Wrapf(types.FailedDeserialize, "payment %d: asset flag %d", i, flag)
		}
		amount, err := r.u64()
		if err != nil {
			return nil, err
		}
		out = append(out, Payment{AssetID: assetID, Amount: int64(amount)})
	}
	if r.remaining() != 0 {
		return nil, errors.Wrapf(types.FailedDeserialize, "%d trailing bytes after payments", r.remaining())
	}
	return out, nil
}

// PaymentID derives the identifier payments of one invocation are registered
// under: the contract id followed by the big-endian nonce.
func PaymentID(contractID []byte, nonce uint64) []byte {
	out := make([]byte, 0, len(contractID)+8)
	out = append(out, contractID...)
	return binary.BigEndian.AppendUint64(out, nonce)
}
