package bytecode

import (
	"github.com/pkg/errors"
)

var (
	errOverflow = errors.New("leb128: value overflows")
	errShort    = errors.New("leb128: unexpected end of input")
)

// readU32 decodes an unsigned LEB128 value of at most 32 bits and returns the
// number of bytes consumed.
func readU32(b []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		if i >= len(b) {
			return 0, 0, errShort
		}
		c := b[i]
		if i == 4 && c&0x70 != 0 {
			return 0, 0, errOverflow
		}
		result |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errOverflow
}

// readSigned decodes a signed LEB128 value of at most size bits.
func readSigned(b []byte, size uint) (int64, int, error) {
	var result int64
	var shift uint
	max := int((size + 6) / 7)
	for i := 0; i < max; i++ {
		if i >= len(b) {
			return 0, 0, errShort
		}
		c := b[i]
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				result |= -1 << shift
			}
			if size < 64 {
				min, lim := int64(-1)<<(size-1), int64(1)<<(size-1)
				if result < min || result >= lim {
					return 0, 0, errOverflow
				}
			}
			return result, i + 1, nil
		}
	}
	return 0, 0, errOverflow
}

func readS32(b []byte) (int32, int, error) {
	v, n, err := readSigned(b, 32)
	return int32(v), n, err
}

func readS33(b []byte) (int64, int, error) {
	return readSigned(b, 33)
}

func readS64(b []byte) (int64, int, error) {
	return readSigned(b, 64)
}

func appendU32(out []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

func appendS64(out []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0)
		if !done {
			c |= 0x80
		}
		out = append(out, c)
		if done {
			return out
		}
	}
}
