package codec

import (
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"

	"github.com/wavesenterprise/wevm/types"
)

// Memory is where DeserializeParams copies Binary and String payloads.
// wazero's api.Memory satisfies it.
type Memory interface {
	Write(offset uint32, data []byte) bool
}

// ParameterList accumulates call arguments one value at a time.
type ParameterList struct {
	buf   []byte
	count uint16
}

func (p *ParameterList) Push(v Value) {
	p.buf = append(p.buf, v.Serialize(nil)...)
	p.count++
}

func (p *ParameterList) Len() int { return int(p.count) }

// Bytes returns the list encoding. Unlike SerializeSlice the count is always
// present, so an empty list encodes as two zero bytes.
func (p *ParameterList) Bytes() []byte {
	out := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(p.buf)), p.count)
	return append(out, p.buf...)
}

func (p *ParameterList) Reset() {
	p.buf = nil
	p.count = 0
}

// DeserializeParams decodes a parameter list into the textual arguments used
// to call an export. Integer and Boolean values become their decimal text.
// Binary and String payloads are copied into mem starting at *offset and
// contribute two arguments, the payload offset and its length; *offset is
// advanced past each payload.
//
// Empty input is an empty list.
func DeserializeParams(input []byte, mem Memory, offset *uint32) ([]string, error) {
	if len(input) == 0 {
		return nil, nil
	}
	r := newReader(input)
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	params := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		if err := skipKey(r); err != nil {
			return nil, err
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		switch v.Kind {
		case KindInteger, KindBoolean:
			params = append(params, strconv.FormatInt(v.Int, 10))
		case KindBinary, KindString:
			at := *offset
			if uint64(at)+uint64(len(v.Bytes)) > uint64(^uint32(0)) || !mem.Write(at, v.Bytes) {
				return nil, errors.Wrapf(types.MemoryError,
					"param %d: %d bytes at offset %d", i, len(v.Bytes), at)
			}
			params = append(params,
				strconv.FormatUint(uint64(at), 10),
				strconv.FormatUint(uint64(len(v.Bytes)), 10))
			*offset = at + uint32(len(v.Bytes))
		}
	}
	return params, nil
}
