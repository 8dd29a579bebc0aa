package bytecode

import (
	"github.com/pkg/errors"
)

// MaxFunctionLocals bounds the locals one function body may declare.
const MaxFunctionLocals = 50_000

// Validate checks that m stays inside the deterministic subset the engine
// runs: integer-only value types, MVP opcodes plus multi-value, no mutable
// global imports or exports, and no imports of the metering namespace.
func Validate(m *Module) error {
	for i, t := range m.Types {
		for _, v := range append(append([]ValType{}, t.Params...), t.Results...) {
			if !isIntType(v) {
				return errors.Wrapf(ErrFeature, "type %d uses value type 0x%02x", i, byte(v))
			}
		}
	}

	for _, imp := range m.Imports {
		if imp.Module == GasModule {
			return errors.Errorf("bytecode: import %s.%s uses a reserved namespace", imp.Module, imp.Name)
		}
		switch imp.Kind {
		case KindFunc:
			if int(imp.TypeIndex) >= len(m.Types) {
				return errors.Errorf("bytecode: import %s.%s has type index %d out of range", imp.Module, imp.Name, imp.TypeIndex)
			}
		case KindTable:
			if ValType(imp.Desc[0]) != FuncRef {
				return errors.Wrapf(ErrFeature, "import %s.%s: table of 0x%02x", imp.Module, imp.Name, imp.Desc[0])
			}
		case KindGlobal:
			if !isIntType(imp.Global.Type) {
				return errors.Wrapf(ErrFeature, "import %s.%s: global of 0x%02x", imp.Module, imp.Name, byte(imp.Global.Type))
			}
			if imp.Global.Mutable {
				return errors.Wrapf(ErrFeature, "import %s.%s: mutable global", imp.Module, imp.Name)
			}
		}
	}

	for i, idx := range m.Functions {
		if int(idx) >= len(m.Types) {
			return errors.Errorf("bytecode: function %d has type index %d out of range", i, idx)
		}
	}

	for i, g := range m.Globals {
		if !isIntType(g.Type.Type) {
			return errors.Wrapf(ErrFeature, "global %d of 0x%02x", i, byte(g.Type.Type))
		}
	}

	globals := m.globalTypes()
	totalFuncs := m.ImportedFuncs() + uint32(len(m.Functions))
	for _, e := range m.Exports {
		switch e.Kind {
		case KindGlobal:
			if int(e.Index) >= len(globals) {
				return errors.Errorf("bytecode: export %q: global %d out of range", e.Name, e.Index)
			}
			if globals[e.Index].Mutable {
				return errors.Wrapf(ErrFeature, "export %q: mutable global", e.Name)
			}
		case KindFunc:
			if e.Index >= totalFuncs {
				return errors.Errorf("bytecode: export %q: function %d out of range", e.Name, e.Index)
			}
		}
	}

	if m.Start != nil && *m.Start >= totalFuncs {
		return errors.Errorf("bytecode: start function %d out of range", *m.Start)
	}
	for i, e := range m.Elements {
		for _, idx := range e.Funcs {
			if idx >= totalFuncs {
				return errors.Errorf("bytecode: element segment %d: function %d out of range", i, idx)
			}
		}
	}

	for i, body := range m.Bodies {
		var locals uint64
		for _, l := range body.Locals {
			if !isIntType(l.Type) {
				return errors.Wrapf(ErrFeature, "function %d: local of 0x%02x", i, byte(l.Type))
			}
			locals += uint64(l.Count)
			if locals > MaxFunctionLocals {
				return errors.Errorf("bytecode: function %d declares more than %d locals", i, MaxFunctionLocals)
			}
		}
		for pos := 0; pos < len(body.Code); {
			ins, err := decodeInstruction(body.Code, pos, len(m.Types))
			if err != nil {
				return errors.Wrapf(err, "bytecode: function %d at offset %d", i, pos)
			}
			if ins.op == opCall && ins.index >= totalFuncs {
				return errors.Errorf("bytecode: function %d calls %d out of range", i, ins.index)
			}
			pos = ins.end
		}
	}
	return nil
}
