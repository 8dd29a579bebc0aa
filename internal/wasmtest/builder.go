// Package wasmtest assembles small WebAssembly binaries for tests.
package wasmtest

import (
	"fmt"
)

// Value types.
const (
	I32  byte = 0x7f
	I64  byte = 0x7e
	F32  byte = 0x7d
	F64  byte = 0x7c
	V128 byte = 0x7b
)

const (
	kindFunc   byte = 0
	kindMemory byte = 2
	kindGlobal byte = 3
)

type funcType struct {
	params  []byte
	results []byte
}

type importEntry struct {
	module string
	name   string
	kind   byte
	desc   []byte
}

type function struct {
	typ    uint32
	locals []byte
	body   []byte
}

type global struct {
	typ     byte
	mutable bool
	init    []byte
}

type export struct {
	name  string
	kind  byte
	index uint32
}

type segment struct {
	offset uint32
	data   []byte
}

// Builder collects module entries and encodes them with Build. Imports must
// be declared before any function is added so indices stay stable.
type Builder struct {
	types         []funcType
	imports       []importEntry
	importedFuncs uint32
	importedGlobs uint32
	funcs         []function
	memory        []byte
	globals       []global
	exports       []export
	start         *uint32
	data          []segment
	custom        [][]byte
}

func New() *Builder {
	return &Builder{}
}

func (b *Builder) typeIndex(params, results []byte) uint32 {
	for i, t := range b.types {
		if string(t.params) == string(params) && string(t.results) == string(results) {
			return uint32(i)
		}
	}
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// Type registers a function type and returns its index.
func (b *Builder) Type(params, results []byte) uint32 {
	return b.typeIndex(params, results)
}

// ImportFunc imports a function and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []byte) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmtest: imports must be declared before functions")
	}
	t := b.typeIndex(params, results)
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: kindFunc, desc: u32(nil, t)})
	b.importedFuncs++
	return b.importedFuncs - 1
}

// ImportMemory imports a linear memory without a maximum.
func (b *Builder) ImportMemory(module, name string, min uint32) {
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: kindMemory, desc: u32([]byte{0x00}, min)})
}

// ImportGlobal imports a global and returns its global index.
func (b *Builder) ImportGlobal(module, name string, typ byte, mutable bool) uint32 {
	mut := byte(0)
	if mutable {
		mut = 1
	}
	b.imports = append(b.imports, importEntry{module: module, name: name, kind: kindGlobal, desc: []byte{typ, mut}})
	b.importedGlobs++
	return b.importedGlobs - 1
}

// Memory defines the module's own memory.
func (b *Builder) Memory(min, max uint32) {
	b.memory = u32(u32([]byte{0x01}, min), max)
}

// Func adds a function and returns its index. body must not include the
// final end; Build appends it.
func (b *Builder) Func(params, results, locals []byte, body ...[]byte) uint32 {
	var code []byte
	for _, part := range body {
		code = append(code, part...)
	}
	b.funcs = append(b.funcs, function{typ: b.typeIndex(params, results), locals: locals, body: code})
	return b.importedFuncs + uint32(len(b.funcs)) - 1
}

// Global defines a global with a constant initializer and returns its index.
func (b *Builder) Global(typ byte, mutable bool, init []byte) uint32 {
	b.globals = append(b.globals, global{typ: typ, mutable: mutable, init: init})
	return b.importedGlobs + uint32(len(b.globals)) - 1
}

// HeapBase defines and exports the immutable __heap_base global.
func (b *Builder) HeapBase(v int32) *Builder {
	idx := b.Global(I32, false, I32Const(v))
	b.ExportGlobal("__heap_base", idx)
	return b
}

func (b *Builder) ExportFunc(name string, idx uint32) *Builder {
	b.exports = append(b.exports, export{name: name, kind: kindFunc, index: idx})
	return b
}

func (b *Builder) ExportGlobal(name string, idx uint32) *Builder {
	b.exports = append(b.exports, export{name: name, kind: kindGlobal, index: idx})
	return b
}

func (b *Builder) ExportMemory(name string) *Builder {
	b.exports = append(b.exports, export{name: name, kind: kindMemory, index: 0})
	return b
}

func (b *Builder) Start(idx uint32) *Builder {
	b.start = &idx
	return b
}

// Data adds an active data segment for memory 0.
func (b *Builder) Data(offset uint32, data []byte) *Builder {
	b.data = append(b.data, segment{offset: offset, data: data})
	return b
}

// Custom adds a custom section with the given name.
func (b *Builder) Custom(name string, payload []byte) *Builder {
	b.custom = append(b.custom, append(str(nil, name), payload...))
	return b
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(b.types) > 0 {
		p := u32(nil, uint32(len(b.types)))
		for _, t := range b.types {
			p = append(p, 0x60)
			p = append(u32(p, uint32(len(t.params))), t.params...)
			p = append(u32(p, uint32(len(t.results))), t.results...)
		}
		out = section(out, 1, p)
	}
	if len(b.imports) > 0 {
		p := u32(nil, uint32(len(b.imports)))
		for _, imp := range b.imports {
			p = str(p, imp.module)
			p = str(p, imp.name)
			p = append(p, imp.kind)
			p = append(p, imp.desc...)
		}
		out = section(out, 2, p)
	}
	if len(b.funcs) > 0 {
		p := u32(nil, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			p = u32(p, f.typ)
		}
		out = section(out, 3, p)
	}
	if b.memory != nil {
		out = section(out, 5, append(u32(nil, 1), b.memory...))
	}
	if len(b.globals) > 0 {
		p := u32(nil, uint32(len(b.globals)))
		for _, g := range b.globals {
			mut := byte(0)
			if g.mutable {
				mut = 1
			}
			p = append(p, g.typ, mut)
			p = append(p, g.init...)
			p = append(p, End...)
		}
		out = section(out, 6, p)
	}
	if len(b.exports) > 0 {
		p := u32(nil, uint32(len(b.exports)))
		for _, e := range b.exports {
			p = str(p, e.name)
			p = append(p, e.kind)
			p = u32(p, e.index)
		}
		out = section(out, 7, p)
	}
	if b.start != nil {
		out = section(out, 8, u32(nil, *b.start))
	}
	if len(b.funcs) > 0 {
		p := u32(nil, uint32(len(b.funcs)))
		for _, f := range b.funcs {
			var fn []byte
			if len(f.locals) == 0 {
				fn = u32(fn, 0)
			} else {
				fn = u32(fn, uint32(len(f.locals)))
				for _, l := range f.locals {
					fn = append(u32(fn, 1), l)
				}
			}
			fn = append(fn, f.body...)
			fn = append(fn, End...)
			p = append(u32(p, uint32(len(fn))), fn...)
		}
		out = section(out, 10, p)
	}
	if len(b.data) > 0 {
		p := u32(nil, uint32(len(b.data)))
		for _, d := range b.data {
			p = u32(p, 0)
			p = append(p, I32Const(int32(d.offset))...)
			p = append(p, End...)
			p = append(u32(p, uint32(len(d.data))), d.data...)
		}
		out = section(out, 11, p)
	}
	for _, c := range b.custom {
		out = section(out, 0, c)
	}
	return out
}

func section(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = u32(out, uint32(len(payload)))
	return append(out, payload...)
}

func str(out []byte, s string) []byte {
	return append(u32(out, uint32(len(s))), s...)
}

func u32(out []byte, v uint32) []byte {
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

func s64(out []byte, v int64) []byte {
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

// String renders a short description, handy in failure messages.
func (b *Builder) String() string {
	return fmt.Sprintf("module(types=%d imports=%d funcs=%d exports=%d)",
		len(b.types), len(b.imports), len(b.funcs), len(b.exports))
}
