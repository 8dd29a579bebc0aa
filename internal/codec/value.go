// Package codec implements the versionless binary encodings shared by the
// engine, the ledger and contracts: storage entries, call parameters,
// payment lists, payment identifiers and asset holders.
package codec

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/types"
)

// Kind is the one-byte tag that precedes a value payload.
type Kind byte

const (
	KindInteger Kind = 0
	KindBoolean Kind = 1
	KindBinary  Kind = 2
	KindString  Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindBinary:
		return "binary"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Value is a tagged union of Integer(i64), Boolean(byte), Binary(bytes) and
// String(bytes). Integer and Boolean keep their scalar in Int; Binary and
// String keep their payload in Bytes. Values are not modified once built.
type Value struct {
	Kind  Kind
	Int   int64
	Bytes []byte
}

func IntegerValue(v int64) Value { return Value{Kind: KindInteger, Int: v} }

// BooleanValue keeps the guest's i32 flag. Only the low byte is encoded.
func BooleanValue(v int32) Value { return Value{Kind: KindBoolean, Int: int64(v)} }

func BinaryValue(b []byte) Value { return Value{Kind: KindBinary, Bytes: b} }

func StringValue(b []byte) Value { return Value{Kind: KindString, Bytes: b} }

// Bool returns the boolean payload as the guest sees it.
func (v Value) Bool() int32 { return int32(v.Int) }

func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return fmt.Sprintf("Integer(%d)", v.Int)
	case KindBoolean:
		return fmt.Sprintf("Boolean(%d)", v.Int)
	case KindBinary:
		return fmt.Sprintf("Binary(%x)", v.Bytes)
	case KindString:
		return fmt.Sprintf("String(%q)", v.Bytes)
	default:
		return v.Kind.String()
	}
}

// Serialize encodes v as [u16 key length][key][tag][payload]. A nil key is
// written as length zero, which is how list elements are encoded.
func (v Value) Serialize(key []byte) []byte {
	out := make([]byte, 0, 2+len(key)+1+8+len(v.Bytes)+4)
	out = binary.BigEndian.AppendUint16(out, uint16(len(key)))
	out = append(out, key...)
	out = append(out, byte(v.Kind))
	switch v.Kind {
	case KindInteger:
		out = binary.BigEndian.AppendUint64(out, uint64(v.Int))
	case KindBoolean:
		out = append(out, byte(v.Int))
	case KindBinary, KindString:
		out = binary.BigEndian.AppendUint32(out, uint32(len(v.Bytes)))
		out = append(out, v.Bytes...)
	}
	return out
}

// SerializeSlice encodes values as a list: a u16 count followed by each
// element without a key. An empty slice encodes to no bytes at all.
func SerializeSlice(values []Value) []byte {
	if len(values) == 0 {
		return nil
	}
	out := binary.BigEndian.AppendUint16(nil, uint16(len(values)))
	for _, v := range values {
		out = append(out, v.Serialize(nil)...)
	}
	return out
}

// Deserialize decodes a single storage entry, skipping its key.
func Deserialize(input []byte) (Value, error) {
	r := newReader(input)
	if err := skipKey(r); err != nil {
		return Value{}, err
	}
	return readValue(r)
}

// DeserializeWithKey decodes a single storage entry and returns its key.
func DeserializeWithKey(input []byte) (string, Value, error) {
	r := newReader(input)
	n, err := r.u16()
	if err != nil {
		return "", Value{}, err
	}
	key, err := r.bytes(int(n))
	if err != nil {
		return "", Value{}, err
	}
	if !utf8.Valid(key) {
		return "", Value{}, errors.Wrap(types.Utf8Error, "storage key")
	}
	v, err := readValue(r)
	if err != nil {
		return "", Value{}, err
	}
	return string(key), v, nil
}

func skipKey(r *reader) error {
	n, err := r.u16()
	if err != nil {
		return err
	}
	return r.skip(int(n))
}

func readValue(r *reader) (Value, error) {
	tag, err := r.u8()
	if err != nil {
		return Value{}, err
	}
	switch Kind(tag) {
	case KindInteger:
		n, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return IntegerValue(int64(n)), nil
	case KindBoolean:
		b, err := r.u8()
		if err != nil {
			return Value{}, err
		}
		return BooleanValue(int32(b)), nil
	case KindBinary, KindString:
		n, err := r.u32()
		if err != nil {
			return Value{}, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return Value{}, err
		}
		payload := make([]byte, len(b))
		copy(payload, b)
		return Value{Kind: Kind(tag), Bytes: payload}, nil
	default:
		return Value{}, errors.Wrapf(types.FailedDeserialize, "unknown value tag %d", tag)
	}
}
