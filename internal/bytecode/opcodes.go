package bytecode

import (
	"github.com/pkg/errors"
)

// ErrFeature marks constructs outside the deterministic subset: floating
// point, SIMD, sign extension, saturating conversions, bulk memory,
// reference types and mutable global imports or exports.
var ErrFeature = errors.New("bytecode: feature is disabled")

const (
	opUnreachable  byte = 0x00
	opNop          byte = 0x01
	opBlock        byte = 0x02
	opLoop         byte = 0x03
	opIf           byte = 0x04
	opElse         byte = 0x05
	opEnd          byte = 0x0b
	opBr           byte = 0x0c
	opBrIf         byte = 0x0d
	opBrTable      byte = 0x0e
	opReturn       byte = 0x0f
	opCall         byte = 0x10
	opCallIndirect byte = 0x11
	opDrop         byte = 0x1a
	opSelect       byte = 0x1b
	opSelectT      byte = 0x1c
	opLocalGet     byte = 0x20
	opGlobalSet    byte = 0x24
	opTableGet     byte = 0x25
	opTableSet     byte = 0x26
	opI32Load      byte = 0x28
	opF32Load      byte = 0x2a
	opF64Load      byte = 0x2b
	opF32Store     byte = 0x38
	opF64Store     byte = 0x39
	opI64Store32   byte = 0x3e
	opMemorySize   byte = 0x3f
	opMemoryGrow   byte = 0x40
	opI32Const     byte = 0x41
	opI64Const     byte = 0x42
	opF32Const     byte = 0x43
	opF64Const     byte = 0x44
	opGlobalGet    byte = 0x23
	opI32Eqz       byte = 0x45
	opI64Extend32S byte = 0xc4
	opRefNull      byte = 0xd0
	opRefFunc      byte = 0xd2
	opPrefixMisc   byte = 0xfc
	opPrefixSIMD   byte = 0xfd
)

// disabledNumeric reports numeric opcodes that touch floats or belong to the
// sign-extension proposal.
func disabledNumeric(op byte) bool {
	switch {
	case op >= 0x5b && op <= 0x66: // float comparisons
		return true
	case op >= 0x8b && op <= 0xa6: // float arithmetic
		return true
	case op >= 0xa8 && op <= 0xab: // i32.trunc_f*
		return true
	case op >= 0xae && op <= 0xbf: // float conversions and reinterprets
		return true
	case op >= 0xc0 && op <= 0xc4: // sign extension
		return true
	}
	return false
}

func isValTypeByte(b byte) bool {
	switch ValType(b) {
	case I32, I64, F32, F64, V128, FuncRef, ExternRef:
		return true
	}
	return false
}

func isIntType(t ValType) bool {
	return t == I32 || t == I64
}

// instruction is one decoded instruction. index holds the function index of
// a call, the type index of call_indirect or of a typed block.
type instruction struct {
	op    byte
	start int
	end   int
	index uint32
}

// decodeInstruction reads the instruction at pos. It rejects disabled
// features with ErrFeature and unknown opcodes with a plain error.
func decodeInstruction(code []byte, pos int, numTypes int) (instruction, error) {
	if pos >= len(code) {
		return instruction{}, errShort
	}
	ins := instruction{op: code[pos], start: pos}
	pos++
	op := ins.op

	u32 := func() (uint32, error) {
		v, n, err := readU32(code[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
		return v, nil
	}
	zeroByte := func() error {
		if pos >= len(code) {
			return errShort
		}
		if code[pos] != 0 {
			return errors.Wrapf(ErrFeature, "opcode 0x%02x with non-zero reserved byte", op)
		}
		pos++
		return nil
	}

	var err error
	switch {
	case op == opUnreachable, op == opNop, op == opElse, op == opEnd, op == opReturn,
		op == opDrop, op == opSelect:
	case op == opBlock, op == opLoop, op == opIf:
		if pos >= len(code) {
			return instruction{}, errShort
		}
		switch b := code[pos]; {
		case b == 0x40:
			pos++
		case isValTypeByte(b):
			if !isIntType(ValType(b)) {
				return instruction{}, errors.Wrapf(ErrFeature, "block result type 0x%02x", b)
			}
			pos++
		default:
			idx, n, rerr := readS33(code[pos:])
			if rerr != nil {
				return instruction{}, rerr
			}
			if idx < 0 || idx >= int64(numTypes) {
				return instruction{}, errors.Errorf("block type index %d out of range", idx)
			}
			pos += n
			ins.index = uint32(idx)
		}
	case op == opBr, op == opBrIf:
		_, err = u32()
	case op == opBrTable:
		var count uint32
		if count, err = u32(); err != nil {
			break
		}
		for i := uint32(0); i <= count && err == nil; i++ {
			_, err = u32()
		}
	case op == opCall:
		ins.index, err = u32()
	case op == opCallIndirect:
		if ins.index, err = u32(); err != nil {
			break
		}
		if int(ins.index) >= numTypes {
			return instruction{}, errors.Errorf("call_indirect type index %d out of range", ins.index)
		}
		err = zeroByte()
	case op >= opLocalGet && op <= opGlobalSet:
		_, err = u32()
	case op >= opI32Load && op <= opI64Store32:
		if op == opF32Load || op == opF64Load || op == opF32Store || op == opF64Store {
			return instruction{}, errors.Wrapf(ErrFeature, "float memory opcode 0x%02x", op)
		}
		if _, err = u32(); err == nil {
			_, err = u32()
		}
	case op == opMemorySize, op == opMemoryGrow:
		err = zeroByte()
	case op == opI32Const:
		var n int
		if _, n, err = readS32(code[pos:]); err == nil {
			pos += n
		}
	case op == opI64Const:
		var n int
		if _, n, err = readS64(code[pos:]); err == nil {
			pos += n
		}
	case op == opF32Const, op == opF64Const:
		return instruction{}, errors.Wrapf(ErrFeature, "float constant opcode 0x%02x", op)
	case op >= opI32Eqz && op <= opI64Extend32S:
		if disabledNumeric(op) {
			return instruction{}, errors.Wrapf(ErrFeature, "numeric opcode 0x%02x", op)
		}
	case op == opSelectT, op == opTableGet, op == opTableSet, op >= opRefNull && op <= opRefFunc:
		return instruction{}, errors.Wrapf(ErrFeature, "reference type opcode 0x%02x", op)
	case op == opPrefixMisc:
		return instruction{}, errors.Wrap(ErrFeature, "saturating conversion or bulk memory opcode")
	case op == opPrefixSIMD:
		return instruction{}, errors.Wrap(ErrFeature, "simd opcode")
	default:
		return instruction{}, errors.Errorf("unknown opcode 0x%02x", op)
	}
	if err != nil {
		return instruction{}, err
	}
	ins.end = pos
	return ins, nil
}
