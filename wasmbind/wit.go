package wasmbind

import (
	"reflect"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta"
)

// WitType maps a descriptor to its WIT shape. Builtins map to primitives,
// struct descriptors to named records holding the members of the type and
// its bases, slices to lists, arrays to tuples and pointer members to
// options.
func WitType(t *meta.Type) (wit.Type, error) {
	if t == nil || t.IsVoid() {
		return nil, nil
	}
	m := &mapper{done: make(map[*meta.Type]wit.Type), active: make(map[*meta.Type]bool)}
	return m.typeOf(t, []string{t.Name()})
}

type mapper struct {
	done   map[*meta.Type]wit.Type
	active map[*meta.Type]bool
}

func (m *mapper) typeOf(t *meta.Type, path []string) (wit.Type, error) {
	if wt, ok := m.done[t]; ok {
		return wt, nil
	}
	if m.active[t] {
		return nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
			Path(path...).
			MetaType(t.Name()).
			Detail("recursive type has no WIT representation").
			Build()
	}
	m.active[t] = true
	defer delete(m.active, t)

	wt, err := m.build(t, path)
	if err != nil {
		return nil, err
	}
	m.done[t] = wt
	return wt, nil
}

func (m *mapper) build(t *meta.Type, path []string) (wit.Type, error) {
	gt := t.GoType()
	if wt := primitive(gt.Kind()); wt != nil {
		return wt, nil
	}

	switch gt.Kind() {
	case reflect.Struct:
		return m.record(t, path)
	case reflect.Slice, reflect.Array:
		elem := t.Registry().LookupByGoType(gt.Elem())
		if elem == nil {
			return nil, errors.New(errors.PhaseBind, errors.KindNotFound).
				Path(path...).
				GoType(gt.Elem().String()).
				Detail("element type of %s is not registered", t.Name()).
				Build()
		}
		et, err := m.typeOf(elem, path)
		if err != nil {
			return nil, err
		}
		if gt.Kind() == reflect.Slice {
			return &wit.TypeDef{Kind: &wit.List{Type: et}}, nil
		}
		types := make([]wit.Type, gt.Len())
		for i := range types {
			types[i] = et
		}
		return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}, nil
	}

	return nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
		Path(path...).
		MetaType(t.Name()).
		GoType(gt.String()).
		Detail("no WIT mapping for %s", gt.Kind()).
		Build()
}

func (m *mapper) record(t *meta.Type, path []string) (wit.Type, error) {
	members := t.AllMembers()
	fields := make([]wit.Field, 0, len(members))
	for _, mem := range members {
		fieldPath := append(path[:len(path):len(path)], mem.Name())
		ft, err := m.typeOf(mem.Type(), fieldPath)
		if err != nil {
			return nil, err
		}
		if mem.Record().Qualifier == meta.QualPointer {
			ft = &wit.TypeDef{Kind: &wit.Option{Type: ft}}
		}
		fields = append(fields, wit.Field{Name: toKebabCase(mem.Name()), Type: ft})
	}
	name := toKebabCase(t.Name())
	return &wit.TypeDef{Name: &name, Kind: &wit.Record{Fields: fields}}, nil
}

func primitive(k reflect.Kind) wit.Type {
	switch k {
	case reflect.Bool:
		return wit.Bool{}
	case reflect.Int8:
		return wit.S8{}
	case reflect.Int16:
		return wit.S16{}
	case reflect.Int32:
		return wit.S32{}
	case reflect.Int, reflect.Int64:
		return wit.S64{}
	case reflect.Uint8:
		return wit.U8{}
	case reflect.Uint16:
		return wit.U16{}
	case reflect.Uint32:
		return wit.U32{}
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return wit.U64{}
	case reflect.Float32:
		return wit.F32{}
	case reflect.Float64:
		return wit.F64{}
	case reflect.String:
		return wit.String{}
	default:
		return nil
	}
}

// Flatten lowers a WIT type to core wasm value types following the
// canonical ABI flattening rules for the shapes WitType produces.
func Flatten(t wit.Type) []api.ValueType {
	switch v := t.(type) {
	case nil:
		return nil
	case wit.Bool, wit.U8, wit.U16, wit.U32, wit.S8, wit.S16, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.TypeDef:
		return flattenTypeDef(v)
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}

func flattenTypeDef(td *wit.TypeDef) []api.ValueType {
	switch kind := td.Kind.(type) {
	case *wit.Record:
		var flat []api.ValueType
		for _, f := range kind.Fields {
			flat = append(flat, Flatten(f.Type)...)
		}
		return flat
	case *wit.Tuple:
		var flat []api.ValueType
		for _, elem := range kind.Types {
			flat = append(flat, Flatten(elem)...)
		}
		return flat
	case *wit.List:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	case *wit.Option:
		return append([]api.ValueType{api.ValueTypeI32}, Flatten(kind.Type)...)
	default:
		return []api.ValueType{api.ValueTypeI32}
	}
}

// Signature returns the flattened parameter and result types of m.
// The receiver is bound by the host and takes no stack slot.
func Signature(m *meta.Method) (params, results []api.ValueType, err error) {
	for i, p := range m.Params() {
		wt, err := WitType(p.Type)
		if err != nil {
			return nil, nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
				Path(m.Owner().Name(), m.Name()).
				MetaType(p.String()).
				Cause(err).
				Detail("parameter %d", i).
				Build()
		}
		params = append(params, Flatten(wt)...)
	}

	ret := m.ReturnType()
	if ret.IsVoid() {
		return params, nil, nil
	}
	wt, err := WitType(ret.Type)
	if err != nil {
		return nil, nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
			Path(m.Owner().Name(), m.Name()).
			MetaType(ret.String()).
			Cause(err).
			Detail("result").
			Build()
	}
	return params, Flatten(wt), nil
}
