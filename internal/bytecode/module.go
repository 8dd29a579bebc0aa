// Package bytecode decodes contract modules, enforces the deterministic
// feature subset and injects fuel metering before a module reaches wazero.
package bytecode

import (
	"bytes"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Section ids.
const (
	secCustom    byte = 0
	secType      byte = 1
	secImport    byte = 2
	secFunction  byte = 3
	secTable     byte = 4
	secMemory    byte = 5
	secGlobal    byte = 6
	secExport    byte = 7
	secStart     byte = 8
	secElement   byte = 9
	secCode      byte = 10
	secData      byte = 11
	secDataCount byte = 12
)

// sectionOrder is the order sections must appear in a module.
var sectionOrder = []byte{
	secType, secImport, secFunction, secTable, secMemory, secGlobal,
	secExport, secStart, secElement, secDataCount, secCode, secData,
}

// External kinds used by imports and exports.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)

// ValType is a value type byte.
type ValType byte

const (
	I32       ValType = 0x7f
	I64       ValType = 0x7e
	F32       ValType = 0x7d
	F64       ValType = 0x7c
	V128      ValType = 0x7b
	FuncRef   ValType = 0x70
	ExternRef ValType = 0x6f
)

type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (t FuncType) equal(o FuncType) bool {
	return bytes.Equal(valBytes(t.Params), valBytes(o.Params)) &&
		bytes.Equal(valBytes(t.Results), valBytes(o.Results))
}

type GlobalType struct {
	Type    ValType
	Mutable bool
}

type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// Import is one entry of the import section. Desc keeps the encoded
// descriptor so non-function imports are written back unchanged.
type Import struct {
	Module string
	Name   string
	Kind   byte
	// TypeIndex is set for function imports.
	TypeIndex uint32
	// Global is set for global imports.
	Global GlobalType
	Desc   []byte
}

type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

type Global struct {
	Type GlobalType
	Init []byte
}

// Element is an active segment for table 0 (flag 0).
type Element struct {
	Offset []byte
	Funcs  []uint32
}

type LocalDecl struct {
	Count uint32
	Type  ValType
}

// Body is a function body: local declarations and the instruction bytes,
// including the final end.
type Body struct {
	Locals []LocalDecl
	Code   []byte
}

// Module is a decoded module. Sections the engine never rewrites are kept
// as raw bytes in raw; custom sections are dropped.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Functions []uint32
	Globals   []Global
	Exports   []Export
	Start     *uint32
	Elements  []Element
	Bodies    []Body

	raw map[byte][]byte
}

// ImportedFuncs returns the number of imported functions.
func (m *Module) ImportedFuncs() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Kind == KindFunc {
			n++
		}
	}
	return n
}

// globalTypes returns the type of every global in index order.
func (m *Module) globalTypes() []GlobalType {
	var out []GlobalType
	for _, imp := range m.Imports {
		if imp.Kind == KindGlobal {
			out = append(out, imp.Global)
		}
	}
	for _, g := range m.Globals {
		out = append(out, g.Type)
	}
	return out
}

// ExportCount returns how many exports carry the given name.
func (m *Module) ExportCount(name string) int {
	n := 0
	for _, e := range m.Exports {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Decode parses a binary module. It checks structure only; Validate decides
// whether the module stays inside the deterministic subset.
func Decode(bin []byte) (*Module, error) {
	if len(bin) < 8 || !bytes.Equal(bin[:4], magic) {
		return nil, errors.New("bytecode: missing wasm magic number")
	}
	if !bytes.Equal(bin[4:8], version) {
		return nil, errors.Errorf("bytecode: unsupported version %x", bin[4:8])
	}

	m := &Module{raw: make(map[byte][]byte)}
	d := &decoder{buf: bin, off: 8}
	last := -1
	for !d.done() {
		id, err := d.u8()
		if err != nil {
			return nil, err
		}
		size, err := d.u32()
		if err != nil {
			return nil, errors.Wrap(err, "section size")
		}
		data, err := d.bytes(int(size))
		if err != nil {
			return nil, errors.Wrapf(err, "section %d", id)
		}
		if id == secCustom {
			continue
		}
		pos := orderOf(id)
		if pos < 0 {
			return nil, errors.Errorf("bytecode: unknown section %d", id)
		}
		if pos <= last {
			return nil, errors.Errorf("bytecode: section %d out of order", id)
		}
		last = pos

		sd := &decoder{buf: data}
		switch id {
		case secType:
			err = m.decodeTypes(sd)
		case secImport:
			err = m.decodeImports(sd)
		case secFunction:
			err = m.decodeFunctions(sd)
		case secGlobal:
			err = m.decodeGlobals(sd)
		case secExport:
			err = m.decodeExports(sd)
		case secStart:
			var idx uint32
			idx, err = sd.u32()
			m.Start = &idx
		case secElement:
			err = m.decodeElements(sd)
		case secCode:
			err = m.decodeCode(sd)
		default:
			m.raw[id] = data
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "bytecode: section %d", id)
		}
		if !sd.done() {
			return nil, errors.Errorf("bytecode: section %d has %d trailing bytes", id, len(sd.buf)-sd.off)
		}
	}
	if len(m.Functions) != len(m.Bodies) {
		return nil, errors.Errorf("bytecode: %d functions declared but %d bodies", len(m.Functions), len(m.Bodies))
	}
	return m, nil
}

func orderOf(id byte) int {
	for i, s := range sectionOrder {
		if s == id {
			return i
		}
	}
	return -1
}

func (m *Module) decodeTypes(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		form, err := d.u8()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return errors.Errorf("type %d: unexpected form 0x%x", i, form)
		}
		params, err := d.valTypes()
		if err != nil {
			return err
		}
		results, err := d.valTypes()
		if err != nil {
			return err
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}
	return nil
}

func (m *Module) decodeImports(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var imp Import
		if imp.Module, err = d.name(); err != nil {
			return err
		}
		if imp.Name, err = d.name(); err != nil {
			return err
		}
		if imp.Kind, err = d.u8(); err != nil {
			return err
		}
		start := d.off
		switch imp.Kind {
		case KindFunc:
			imp.TypeIndex, err = d.u32()
		case KindTable:
			if _, err = d.u8(); err == nil {
				_, err = d.limits()
			}
		case KindMemory:
			_, err = d.limits()
		case KindGlobal:
			imp.Global, err = d.globalType()
		default:
			err = errors.Errorf("import %d: unknown kind %d", i, imp.Kind)
		}
		if err != nil {
			return err
		}
		imp.Desc = d.buf[start:d.off]
		m.Imports = append(m.Imports, imp)
	}
	return nil
}

func (m *Module) decodeFunctions(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, err := d.u32()
		if err != nil {
			return err
		}
		m.Functions = append(m.Functions, idx)
	}
	return nil
}

func (m *Module) decodeGlobals(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		gt, err := d.globalType()
		if err != nil {
			return err
		}
		init, err := d.constExpr()
		if err != nil {
			return err
		}
		m.Globals = append(m.Globals, Global{Type: gt, Init: init})
	}
	return nil
}

func (m *Module) decodeExports(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var e Export
		if e.Name, err = d.name(); err != nil {
			return err
		}
		if e.Kind, err = d.u8(); err != nil {
			return err
		}
		if e.Kind > KindGlobal {
			return errors.Errorf("export %q: unknown kind %d", e.Name, e.Kind)
		}
		if e.Index, err = d.u32(); err != nil {
			return err
		}
		m.Exports = append(m.Exports, e)
	}
	return nil
}

func (m *Module) decodeElements(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flag, err := d.u32()
		if err != nil {
			return err
		}
		if flag != 0 {
			return errors.Wrapf(ErrFeature, "element segment %d uses flag %d", i, flag)
		}
		offset, err := d.constExpr()
		if err != nil {
			return err
		}
		count, err := d.u32()
		if err != nil {
			return err
		}
		// every index takes at least one byte
		if int64(count) > int64(len(d.buf)-d.off) {
			return errors.Errorf("bytecode: element segment %d declares %d entries past the section end", i, count)
		}
		funcs := make([]uint32, 0, count)
		for j := uint32(0); j < count; j++ {
			idx, err := d.u32()
			if err != nil {
				return err
			}
			funcs = append(funcs, idx)
		}
		m.Elements = append(m.Elements, Element{Offset: offset, Funcs: funcs})
	}
	return nil
}

func (m *Module) decodeCode(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		size, err := d.u32()
		if err != nil {
			return err
		}
		data, err := d.bytes(int(size))
		if err != nil {
			return err
		}
		bd := &decoder{buf: data}
		groups, err := bd.u32()
		if err != nil {
			return err
		}
		var body Body
		for j := uint32(0); j < groups; j++ {
			count, err := bd.u32()
			if err != nil {
				return err
			}
			t, err := bd.u8()
			if err != nil {
				return err
			}
			body.Locals = append(body.Locals, LocalDecl{Count: count, Type: ValType(t)})
		}
		body.Code = data[bd.off:]
		if len(body.Code) == 0 || body.Code[len(body.Code)-1] != opEnd {
			return errors.Errorf("function body %d does not end with end", i)
		}
		m.Bodies = append(m.Bodies, body)
	}
	return nil
}

// Encode writes the module back in binary form.
func (m *Module) Encode() []byte {
	out := append(append([]byte{}, magic...), version...)
	for _, id := range sectionOrder {
		var payload []byte
		switch id {
		case secType:
			if len(m.Types) == 0 {
				continue
			}
			payload = appendU32(nil, uint32(len(m.Types)))
			for _, t := range m.Types {
				payload = append(payload, 0x60)
				payload = appendU32(payload, uint32(len(t.Params)))
				payload = append(payload, valBytes(t.Params)...)
				payload = appendU32(payload, uint32(len(t.Results)))
				payload = append(payload, valBytes(t.Results)...)
			}
		case secImport:
			if len(m.Imports) == 0 {
				continue
			}
			payload = appendU32(nil, uint32(len(m.Imports)))
			for _, imp := range m.Imports {
				payload = appendName(payload, imp.Module)
				payload = appendName(payload, imp.Name)
				payload = append(payload, imp.Kind)
				if imp.Kind == KindFunc {
					payload = appendU32(payload, imp.TypeIndex)
				} else {
					payload = append(payload, imp.Desc...)
				}
			}
		case secFunction:
			if len(m.Functions) == 0 {
				continue
			}
			payload = appendU32(nil, uint32(len(m.Functions)))
			for _, idx := range m.Functions {
				payload = appendU32(payload, idx)
			}
		case secGlobal:
			if len(m.Globals) == 0 {
				continue
			}
			payload = appendU32(nil, uint32(len(m.Globals)))
			for _, g := range m.Globals {
				payload = append(payload, byte(g.Type.Type))
				if g.Type.Mutable {
					payload = append(payload, 1)
				} else {
					payload = append(payload, 0)
				}
				payload = append(payload, g.Init...)
			}
		case secExport:
			if len(m.Exports) == 0 {
				continue
			}
			payload = appendU32(nil, uint32(len(m.Exports)))
			for _, e := range m.Exports {
				payload = appendName(payload, e.Name)
				payload = append(payload, e.Kind)
				payload = appendU32(payload, e.Index)
			}
		case secStart:
			if m.Start == nil {
				continue
			}
			payload = appendU32(nil, *m.Start)
		case secElement:
			if len(m.Elements) == 0 {
				continue
			}
			payload = appendU32(nil, uint32(len(m.Elements)))
			for _, e := range m.Elements {
				payload = appendU32(payload, 0)
				payload = append(payload, e.Offset...)
				payload = appendU32(payload, uint32(len(e.Funcs)))
				for _, idx := range e.Funcs {
					payload = appendU32(payload, idx)
				}
			}
		case secCode:
			if len(m.Bodies) == 0 {
				continue
			}
			payload = appendU32(nil, uint32(len(m.Bodies)))
			for _, b := range m.Bodies {
				var fn []byte
				fn = appendU32(fn, uint32(len(b.Locals)))
				for _, l := range b.Locals {
					fn = appendU32(fn, l.Count)
					fn = append(fn, byte(l.Type))
				}
				fn = append(fn, b.Code...)
				payload = appendU32(payload, uint32(len(fn)))
				payload = append(payload, fn...)
			}
		default:
			raw, ok := m.raw[id]
			if !ok {
				continue
			}
			payload = raw
		}
		out = append(out, id)
		out = appendU32(out, uint32(len(payload)))
		out = append(out, payload...)
	}
	return out
}

func valBytes(ts []ValType) []byte {
	out := make([]byte, len(ts))
	for i, t := range ts {
		out[i] = byte(t)
	}
	return out
}

func appendName(out []byte, s string) []byte {
	out = appendU32(out, uint32(len(s)))
	return append(out, s...)
}

// decoder reads a byte buffer. All reads are bounds-checked.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) done() bool { return d.off >= len(d.buf) }

func (d *decoder) u8() (byte, error) {
	if d.off >= len(d.buf) {
		return 0, errShort
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 || n > len(d.buf)-d.off {
		return nil, errShort
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u32() (uint32, error) {
	v, n, err := readU32(d.buf[d.off:])
	if err != nil {
		return 0, err
	}
	d.off += n
	return v, nil
}

func (d *decoder) name() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	b, err := d.bytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("name is not valid utf-8")
	}
	return string(b), nil
}

func (d *decoder) valTypes() ([]ValType, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	b, err := d.bytes(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]ValType, n)
	for i, c := range b {
		out[i] = ValType(c)
	}
	return out, nil
}

func (d *decoder) limits() (Limits, error) {
	flag, err := d.u8()
	if err != nil {
		return Limits{}, err
	}
	var l Limits
	switch flag {
	case 0:
		l.Min, err = d.u32()
	case 1:
		if l.Min, err = d.u32(); err == nil {
			l.Max, err = d.u32()
			l.HasMax = true
		}
	default:
		return Limits{}, errors.Wrapf(ErrFeature, "limits flag %d", flag)
	}
	return l, err
}

func (d *decoder) globalType() (GlobalType, error) {
	t, err := d.u8()
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := d.u8()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, errors.Errorf("global mutability %d", mut)
	}
	return GlobalType{Type: ValType(t), Mutable: mut == 1}, nil
}

// constExpr reads an initializer expression up to and including its end.
// Only integer constants and global.get are accepted.
func (d *decoder) constExpr() ([]byte, error) {
	start := d.off
	for {
		op, err := d.u8()
		if err != nil {
			return nil, err
		}
		switch op {
		case opEnd:
			return d.buf[start:d.off], nil
		case opI32Const:
			_, n, err := readS32(d.buf[d.off:])
			if err != nil {
				return nil, err
			}
			d.off += n
		case opI64Const:
			_, n, err := readS64(d.buf[d.off:])
			if err != nil {
				return nil, err
			}
			d.off += n
		case opGlobalGet:
			if _, err := d.u32(); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Wrapf(ErrFeature, "opcode 0x%02x in constant expression", op)
		}
	}
}
