// Package guest builds trampoline modules: core wasm modules that import
// functions from a host module and export one wrapper per import, so the
// host functions become callable through a regular guest instance.
package guest

import (
	"github.com/tetratelabs/wazero/api"
)

const (
	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionExport   = 0x07
	sectionCode     = 0x0a

	funcTypeByte = 0x60
	kindFunc     = 0x00

	opLocalGet = 0x20
	opCall     = 0x10
	opEnd      = 0x0b
)

// Builder collects the functions of one trampoline module.
type Builder struct {
	hostModule string
	funcs      []function
}

type function struct {
	importName string
	exportName string
	params     []api.ValueType
	results    []api.ValueType
}

// NewBuilder returns a builder importing from hostModule.
func NewBuilder(hostModule string) *Builder {
	return &Builder{hostModule: hostModule}
}

// AddFunc imports hostModule.name and exports a wrapper under the same
// name.
func (b *Builder) AddFunc(name string, params, results []api.ValueType) {
	b.funcs = append(b.funcs, function{
		importName: name,
		exportName: name,
		params:     params,
		results:    results,
	})
}

// Len returns the number of functions added.
func (b *Builder) Len() int {
	return len(b.funcs)
}

// Build encodes the module. A builder without functions yields a valid
// empty module.
func (b *Builder) Build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if len(b.funcs) == 0 {
		return out
	}

	out = appendSection(out, sectionType, b.typeSection())
	out = appendSection(out, sectionImport, b.importSection())
	out = appendSection(out, sectionFunction, b.funcSection())
	out = appendSection(out, sectionExport, b.exportSection())
	out = appendSection(out, sectionCode, b.codeSection())
	return out
}

// Each function gets its own type; index i is both its type and import index.
func (b *Builder) typeSection() []byte {
	sec := appendU32(nil, uint32(len(b.funcs)))
	for _, f := range b.funcs {
		sec = append(sec, funcTypeByte)
		sec = appendValTypes(sec, f.params)
		sec = appendValTypes(sec, f.results)
	}
	return sec
}

func (b *Builder) importSection() []byte {
	sec := appendU32(nil, uint32(len(b.funcs)))
	for i, f := range b.funcs {
		sec = appendName(sec, b.hostModule)
		sec = appendName(sec, f.importName)
		sec = append(sec, kindFunc)
		sec = appendU32(sec, uint32(i))
	}
	return sec
}

func (b *Builder) funcSection() []byte {
	sec := appendU32(nil, uint32(len(b.funcs)))
	for i := range b.funcs {
		sec = appendU32(sec, uint32(i))
	}
	return sec
}

// Wrappers follow the imports in the function index space.
func (b *Builder) exportSection() []byte {
	n := uint32(len(b.funcs))
	sec := appendU32(nil, n)
	for i, f := range b.funcs {
		sec = appendName(sec, f.exportName)
		sec = append(sec, kindFunc)
		sec = appendU32(sec, n+uint32(i))
	}
	return sec
}

func (b *Builder) codeSection() []byte {
	sec := appendU32(nil, uint32(len(b.funcs)))
	for i, f := range b.funcs {
		body := []byte{0x00} // no locals
		for p := range f.params {
			body = append(body, opLocalGet)
			body = appendU32(body, uint32(p))
		}
		body = append(body, opCall)
		body = appendU32(body, uint32(i))
		body = append(body, opEnd)

		sec = appendU32(sec, uint32(len(body)))
		sec = append(sec, body...)
	}
	return sec
}

func appendSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = appendU32(out, uint32(len(payload)))
	return append(out, payload...)
}

func appendValTypes(out []byte, types []api.ValueType) []byte {
	out = appendU32(out, uint32(len(types)))
	for _, t := range types {
		out = append(out, t)
	}
	return out
}

func appendName(out []byte, name string) []byte {
	out = appendU32(out, uint32(len(name)))
	return append(out, name...)
}

// appendU32 appends v as unsigned LEB128.
func appendU32(out []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, c|0x80)
			continue
		}
		return append(out, c)
	}
}
