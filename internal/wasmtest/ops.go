package wasmtest

// Instruction helpers. Each returns the encoded instruction so bodies can
// be written as a list of parts.

var (
	End         = []byte{0x0b}
	Unreachable = []byte{0x00}
	Nop         = []byte{0x01}
	Else        = []byte{0x05}
	Return      = []byte{0x0f}
	Drop        = []byte{0x1a}
	I32Add      = []byte{0x6a}
	I32Sub      = []byte{0x6b}
	I32Eqz      = []byte{0x45}
	I64Add      = []byte{0x7c}
	I64Mul      = []byte{0x7e}
	I32WrapI64  = []byte{0xa7}
	F32Add      = []byte{0x92}
	I32Extend8S = []byte{0xc0}
	MemorySize  = []byte{0x3f, 0x00}
)

// Block opens a block with no result. Loop and If do the same.
func Block() []byte { return []byte{0x02, 0x40} }
func Loop() []byte  { return []byte{0x03, 0x40} }
func If() []byte    { return []byte{0x04, 0x40} }

// BlockT opens a block producing one value of type t.
func BlockT(t byte) []byte { return []byte{0x02, t} }

func Br(depth uint32) []byte   { return u32([]byte{0x0c}, depth) }
func BrIf(depth uint32) []byte { return u32([]byte{0x0d}, depth) }

func Call(idx uint32) []byte { return u32([]byte{0x10}, idx) }

func LocalGet(idx uint32) []byte  { return u32([]byte{0x20}, idx) }
func LocalSet(idx uint32) []byte  { return u32([]byte{0x21}, idx) }
func LocalTee(idx uint32) []byte  { return u32([]byte{0x22}, idx) }
func GlobalGet(idx uint32) []byte { return u32([]byte{0x23}, idx) }
func GlobalSet(idx uint32) []byte { return u32([]byte{0x24}, idx) }

func I32Const(v int32) []byte { return s64([]byte{0x41}, int64(v)) }
func I64Const(v int64) []byte { return s64([]byte{0x42}, v) }

// F32Const is only used to build modules that must be rejected.
func F32Const(v uint32) []byte {
	return []byte{0x43, byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func I32Load(offset uint32) []byte  { return u32(u32([]byte{0x28}, 2), offset) }
func I32Store(offset uint32) []byte { return u32(u32([]byte{0x36}, 2), offset) }
func I32Load8U(offset uint32) []byte {
	return u32(u32([]byte{0x2d}, 0), offset)
}
func I32Store8(offset uint32) []byte {
	return u32(u32([]byte{0x3a}, 0), offset)
}

// Concat joins instruction parts.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
