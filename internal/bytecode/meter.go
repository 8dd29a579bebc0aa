package bytecode

import (
	"github.com/pkg/errors"
)

// The metering import injected into every module. Guests may not import
// from this namespace themselves.
const (
	GasModule = "wevm_metering"
	GasFunc   = "gas"
)

// Instrument injects fuel metering into m in place.
//
// A gas(i64) function import is appended after the existing function
// imports, so every defined function index moves up by one. Each function
// body is split into straight-line segments that start at function entry and
// after block, loop, if, else, end and br_if. Every non-empty segment is
// preceded by a charge equal to the number of original instructions in it.
//
// m must have passed Validate.
func Instrument(m *Module) error {
	gasType := uint32(len(m.Types))
	want := FuncType{Params: []ValType{I64}}
	for i, t := range m.Types {
		if t.equal(want) {
			gasType = uint32(i)
			break
		}
	}
	if gasType == uint32(len(m.Types)) {
		m.Types = append(m.Types, want)
	}

	imported := m.ImportedFuncs()
	m.Imports = append(m.Imports, Import{
		Module:    GasModule,
		Name:      GasFunc,
		Kind:      KindFunc,
		TypeIndex: gasType,
	})
	gasIndex := imported
	shift := func(idx uint32) uint32 {
		if idx >= imported {
			return idx + 1
		}
		return idx
	}

	for i := range m.Exports {
		if m.Exports[i].Kind == KindFunc {
			m.Exports[i].Index = shift(m.Exports[i].Index)
		}
	}
	if m.Start != nil {
		start := shift(*m.Start)
		m.Start = &start
	}
	for i := range m.Elements {
		for j, idx := range m.Elements[i].Funcs {
			m.Elements[i].Funcs[j] = shift(idx)
		}
	}

	for i := range m.Bodies {
		code, err := meterBody(m.Bodies[i].Code, len(m.Types), gasIndex, shift)
		if err != nil {
			return errors.Wrapf(err, "bytecode: metering function %d", i)
		}
		m.Bodies[i].Code = code
	}
	return nil
}

func meterBody(code []byte, numTypes int, gasIndex uint32, shift func(uint32) uint32) ([]byte, error) {
	out := make([]byte, 0, len(code)+len(code)/2)
	seg := make([]byte, 0, 64)
	var cost int64

	flush := func() {
		if cost > 0 {
			out = append(out, opI64Const)
			out = appendS64(out, cost)
			out = append(out, opCall)
			out = appendU32(out, gasIndex)
		}
		out = append(out, seg...)
		seg = seg[:0]
		cost = 0
	}

	for pos := 0; pos < len(code); {
		ins, err := decodeInstruction(code, pos, numTypes)
		if err != nil {
			return nil, err
		}
		if ins.op == opCall {
			seg = append(seg, opCall)
			seg = appendU32(seg, shift(ins.index))
		} else {
			seg = append(seg, code[ins.start:ins.end]...)
		}
		cost++
		pos = ins.end

		switch ins.op {
		case opBlock, opLoop, opIf, opElse, opEnd, opBrIf:
			flush()
		}
	}
	flush()
	return out, nil
}

// Prepare decodes bin, enforces the deterministic subset and injects fuel
// metering. It returns the decoded module alongside the instrumented binary.
func Prepare(bin []byte) (*Module, []byte, error) {
	m, err := Decode(bin)
	if err != nil {
		return nil, nil, err
	}
	if err := Validate(m); err != nil {
		return nil, nil, err
	}
	if err := Instrument(m); err != nil {
		return nil, nil, err
	}
	return m, m.Encode(), nil
}
