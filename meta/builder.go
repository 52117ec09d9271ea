package meta

import (
	"fmt"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta/internal/invoke"
	"github.com/wippyai/meta-runtime/meta/internal/layout"
)

// Builder completes a declared type during Seal. Every method appends to
// the type being built and returns the builder for chaining; violations are
// collected and reported by Seal.
type Builder[T any] struct {
	t          *Type
	reg        *Registry
	errs       []error
	unresolved []string
}

// Type returns the descriptor being built.
func (b *Builder[T]) Type() *Type {
	return b.t
}

// Base declares an embedded struct as a base of T. embed is either the
// embedded field's name or an accessor func(*T) *B returning its address.
// Only by-value embedding is supported.
func (b *Builder[T]) Base(embed any) *Builder[T] {
	owner := b.t.goType
	if owner.Kind() != reflect.Struct {
		return b.fail(errors.NotBase([]string{b.t.name}, owner.String(), fmt.Sprint(embed)))
	}

	var field reflect.StructField
	switch e := embed.(type) {
	case string:
		f, ok := owner.FieldByName(e)
		if !ok || !f.Anonymous || len(f.Index) != 1 {
			return b.fail(errors.NotBase([]string{b.t.name}, owner.String(), e))
		}
		field = f
	default:
		if target := accessorTarget(embed); target != nil {
			if f, ok := layout.Embedded(owner, target); ok && f.Type.Kind() == reflect.Pointer {
				field = f
				break
			}
		}
		bt, off, err := accessorOffset[T](embed)
		if err != nil {
			return b.fail(errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "base accessor of "+b.t.name))
		}
		f, ok := layout.EmbeddedAt(owner, off, bt)
		if !ok {
			return b.fail(errors.NotBase([]string{b.t.name}, owner.String(), bt.String()))
		}
		field = f
	}

	if field.Type.Kind() == reflect.Pointer {
		return b.fail(errors.New(errors.PhaseDefine, errors.KindUnsupported).
			Path(b.t.name, field.Name).
			GoType(field.Type.String()).
			Detail("base embedded through a pointer has no fixed offset").
			Build())
	}
	if field.Type.Kind() != reflect.Struct {
		return b.fail(errors.NotBase([]string{b.t.name}, owner.String(), field.Type.String()))
	}

	bt := b.resolve(field.Type)
	if bt == nil {
		return b
	}
	for _, existing := range b.t.bases {
		if existing.Type == bt {
			return b.fail(errors.Duplicate(errors.PhaseDefine, []string{b.t.name}, "base", bt.name))
		}
	}
	b.t.bases = append(b.t.bases, BaseRecord{Type: bt, Offset: field.Offset})
	return b
}

// Member declares a field of T under name. field is either the Go field
// name (promoted fields allowed) or an accessor func(*T) *F returning the
// field's address. A field of type *P is recorded as a pointer to P.
func (b *Builder[T]) Member(name string, field any) *Builder[T] {
	owner := b.t.goType
	path := []string{b.t.name, name}

	if name == "" {
		return b.fail(errors.InvalidInput(errors.PhaseDefine, "empty member name on "+b.t.name))
	}
	if owner.Kind() != reflect.Struct {
		return b.fail(errors.New(errors.PhaseDefine, errors.KindUnsupported).
			Path(path...).
			GoType(owner.String()).
			Detail("only struct types have members").
			Build())
	}
	for _, m := range b.t.members {
		if m.name == name {
			return b.fail(errors.Duplicate(errors.PhaseDefine, path, "member", name))
		}
	}

	var (
		ft  reflect.Type
		off uintptr
	)
	switch f := field.(type) {
	case string:
		sf, ok := owner.FieldByName(f)
		if !ok {
			return b.fail(errors.New(errors.PhaseDefine, errors.KindNotFound).
				Path(path...).
				GoType(owner.String()).
				Detail("no field %q", f).
				Build())
		}
		o, err := layout.Offset(owner, sf.Index)
		if err != nil {
			return b.fail(errors.Wrap(errors.PhaseDefine, errors.KindUnsupported, err, "member "+name))
		}
		ft, off = sf.Type, o
	default:
		t, o, err := accessorOffset[T](field)
		if err != nil {
			return b.fail(errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "member accessor "+name))
		}
		if fp, ok := layout.FieldAt(owner, o, t); !ok || len(fp) == 0 {
			return b.fail(errors.New(errors.PhaseDefine, errors.KindInvalidInput).
				Path(path...).
				GoType(t.String()).
				Detail("accessor does not address a field of %s", owner).
				Build())
		}
		ft, off = t, o
	}

	rec, ok := b.record(ft, path)
	if !ok {
		return b
	}
	m := &Member{name: name, rec: rec, offset: off}
	m.adopt(b.t)
	b.t.members = append(b.t.members, m)
	return b
}

// Method declares a method of T. fn must take T (read-only receiver) or *T
// (mutating receiver) as its first parameter and return at most one value;
// method expressions such as Point.Len and (*Point).Scale qualify.
func (b *Builder[T]) Method(name string, fn any) *Builder[T] {
	path := []string{b.t.name, name}

	if name == "" {
		return b.fail(errors.InvalidInput(errors.PhaseDefine, "empty method name on "+b.t.name))
	}
	for _, m := range b.t.methods {
		if m.name == name {
			return b.fail(errors.Duplicate(errors.PhaseDefine, path, "method", name))
		}
	}

	f, err := invoke.New(fn)
	if err != nil {
		return b.fail(errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "method "+name))
	}
	if f.NumIn() == 0 {
		return b.fail(errors.New(errors.PhaseDefine, errors.KindInvalidInput).
			Path(path...).
			Detail("method has no receiver").
			Build())
	}
	recv, byRef := f.In(0)
	if recv != b.t.goType {
		return b.fail(errors.TypeMismatch(errors.PhaseDefine, path, recv.String(), b.t.name))
	}

	return b.addMethod(&Method{
		name:      name,
		fn:        f,
		constRecv: !byRef,
	}, 1, path)
}

// Function declares a static function of T: fn takes no receiver and is
// called without an instance. It shares the method namespace.
func (b *Builder[T]) Function(name string, fn any) *Builder[T] {
	path := []string{b.t.name, name}

	if name == "" {
		return b.fail(errors.InvalidInput(errors.PhaseDefine, "empty function name on "+b.t.name))
	}
	for _, m := range b.t.methods {
		if m.name == name {
			return b.fail(errors.Duplicate(errors.PhaseDefine, path, "method", name))
		}
	}

	f, err := invoke.New(fn)
	if err != nil {
		return b.fail(errors.Wrap(errors.PhaseDefine, errors.KindInvalidInput, err, "function "+name))
	}
	return b.addMethod(&Method{
		name:      name,
		fn:        f,
		constRecv: true,
		static:    true,
	}, 0, path)
}

// addMethod records m's parameters from index first on, its result, and
// attaches it to T.
func (b *Builder[T]) addMethod(m *Method, first int, path []string) *Builder[T] {
	f := m.fn
	m.ret = b.reg.VoidRecord()
	m.params = make([]TypeRecord, 0, f.NumIn()-first)
	for i := first; i < f.NumIn(); i++ {
		pt, ptr := f.In(i)
		if ptr {
			pt = reflect.PointerTo(pt)
		}
		rec, ok := b.record(pt, path)
		if !ok {
			return b
		}
		m.params = append(m.params, rec)
	}
	if out := f.Out(); out != nil {
		rec, ok := b.record(out, path)
		if !ok {
			return b
		}
		m.ret = rec
	}

	m.adopt(b.t)
	b.t.methods = append(b.t.methods, m)
	return b
}

// record maps a Go type to a TypeRecord: P is by value, *P a pointer to P.
func (b *Builder[T]) record(rt reflect.Type, path []string) (TypeRecord, bool) {
	qual := QualValue
	if rt.Kind() == reflect.Pointer {
		qual = QualPointer
		rt = rt.Elem()
		if rt.Kind() == reflect.Pointer {
			b.fail(errors.New(errors.PhaseDefine, errors.KindUnsupported).
				Path(path...).
				GoType(reflect.PointerTo(rt).String()).
				Detail("multi-level pointers are not supported").
				Build())
			return TypeRecord{}, false
		}
	}
	t := b.resolve(rt)
	if t == nil {
		return TypeRecord{}, false
	}
	return TypeRecord{Type: t, Qualifier: qual}, true
}

func (b *Builder[T]) resolve(rt reflect.Type) *Type {
	if t, ok := b.reg.byGo[rt]; ok {
		return t
	}
	b.unresolved = append(b.unresolved, b.t.name+"#"+rt.String())
	return nil
}

func (b *Builder[T]) fail(err *errors.Error) *Builder[T] {
	Logger().Warn("definition rejected",
		zap.String("type", b.t.name),
		zap.Error(err))
	b.errs = append(b.errs, err)
	return b
}

// accessorTarget returns F for a func(...) *F, nil otherwise.
func accessorTarget(accessor any) reflect.Type {
	ft := reflect.TypeOf(accessor)
	if ft == nil || ft.Kind() != reflect.Func || ft.NumOut() != 1 || ft.Out(0).Kind() != reflect.Pointer {
		return nil
	}
	return ft.Out(0).Elem()
}

// accessorOffset calls accessor (a func(*T) *F) on a zero T and returns F
// and the byte distance of the returned address from the start of T.
func accessorOffset[T any](accessor any) (ft reflect.Type, off uintptr, err error) {
	fv := reflect.ValueOf(accessor)
	owner := reflect.TypeFor[T]()
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, 0, fmt.Errorf("accessor must be a func(*%s) *F, got %T", owner, accessor)
	}
	ftyp := fv.Type()
	if ftyp.NumIn() != 1 || ftyp.In(0) != reflect.PointerTo(owner) ||
		ftyp.NumOut() != 1 || ftyp.Out(0).Kind() != reflect.Pointer {
		return nil, 0, fmt.Errorf("accessor must be a func(*%s) *F, got %s", owner, ftyp)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("accessor panicked: %v", r)
		}
	}()

	obj := new(T)
	out := fv.Call([]reflect.Value{reflect.ValueOf(obj)})[0]
	if out.IsNil() {
		return nil, 0, fmt.Errorf("accessor returned nil")
	}
	base := uintptr(unsafe.Pointer(obj))
	addr := uintptr(out.UnsafePointer())
	if addr < base || addr >= base+owner.Size() {
		return nil, 0, fmt.Errorf("accessor returned an address outside %s", owner)
	}
	return ftyp.Out(0).Elem(), addr - base, nil
}
