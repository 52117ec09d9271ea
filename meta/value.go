package meta

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta/internal/layout"
)

// Value is a type-erased box: either an owned payload or a reference to an
// object stored elsewhere, tagged with the TypeRecord used for dynamic
// checks. Owned payloads that are pointer-free and small enough live in an
// inline buffer; larger ones are allocated separately.
//
// A Value is meant to live for one dynamic operation. Pass it by pointer;
// use Move to transfer ownership and Clone to copy explicitly. A plain
// struct copy of an owned heap Value shares its payload: writes through
// one are visible through the other. References returned by Member.Get on an inline Value
// point into that Value.
type Value struct {
	rec    TypeRecord
	ops    *typeOps
	ptr    unsafe.Pointer
	buf    [layout.InlineSize / 8]uint64
	inline bool
	owned  bool
}

// ValueOf boxes a copy of x. T must be registered in r.
func ValueOf[T any](r *Registry, x T) Value {
	v := typeOf[T](r).New()
	*(*T)(v.Pointer()) = x
	return v
}

// PointerTo references *p without copying it.
func PointerTo[T any](r *Registry, p *T) Value {
	t := typeOf[T](r)
	return Value{
		rec: TypeRecord{Type: t, Qualifier: QualPointer},
		ops: t.ops,
		ptr: unsafe.Pointer(p),
	}
}

// ConstPointerTo references *p read-only.
func ConstPointerTo[T any](r *Registry, p *T) Value {
	v := PointerTo(r, p)
	v.rec.Qualifier = QualConstPointer
	return v
}

// Record returns the type record.
func (v *Value) Record() TypeRecord { return v.rec }

// Type returns the descriptor, nil for an empty Value.
func (v *Value) Type() *Type { return v.rec.Type }

// Qualifier returns how the Value holds its payload.
func (v *Value) Qualifier() Qualifier { return v.rec.Qualifier }

// IsEmpty reports whether the Value holds nothing (zero, moved-from, reset
// or the result of a void call).
func (v *Value) IsEmpty() bool { return v.rec.IsVoid() }

// IsNil reports whether the Value has no payload address.
func (v *Value) IsNil() bool { return v.IsEmpty() || (!v.inline && v.ptr == nil) }

// IsConst reports true unless the Value is a mutable reference.
func (v *Value) IsConst() bool { return v.rec.Qualifier != QualPointer }

// Owns reports whether the Value owns its payload.
func (v *Value) Owns() bool { return v.owned }

// Inline reports whether the payload is stored in the inline buffer.
func (v *Value) Inline() bool { return v.inline }

// Pointer returns the payload address.
func (v *Value) Pointer() unsafe.Pointer {
	if v.inline {
		return unsafe.Pointer(&v.buf)
	}
	return v.ptr
}

// PointerFor returns the payload address adjusted to base t, or nil when
// the Value's type is not t or derived from it.
func (v *Value) PointerFor(t *Type) unsafe.Pointer {
	if v.IsNil() {
		return nil
	}
	return Adjust(t, v.Pointer(), v.rec.Type)
}

// Move transfers the payload and its operations out of v, leaving v empty.
func (v *Value) Move() Value {
	out := *v
	*v = Value{}
	return out
}

// Clone returns a copy: an owned Value gets a new payload assigned from
// v's, a reference is copied as a reference.
func (v *Value) Clone() Value {
	if !v.owned {
		return *v
	}
	out := v.rec.Type.New()
	v.ops.assign(out.Pointer(), v.Pointer())
	return out
}

// Reset destroys an inline payload and empties v. A heap payload is
// released to the collector untouched, since plain copies of v may still
// reference it. References are dropped without touching the referenced
// object.
func (v *Value) Reset() {
	if v.owned && v.inline && v.ops != nil {
		v.ops.destroy(v.Pointer())
	}
	*v = Value{}
}

// Interface returns a copy of the payload, nil when v is nil.
func (v *Value) Interface() any {
	if v.IsNil() {
		return nil
	}
	return v.ops.box(v.Pointer())
}

// Reflect returns an addressable reflect.Value for the payload, the zero
// reflect.Value when v is nil.
func (v *Value) Reflect() reflect.Value {
	if v.IsNil() {
		return reflect.Value{}
	}
	return reflect.NewAt(v.rec.Type.goType, v.Pointer()).Elem()
}

func (v *Value) String() string {
	if v.IsEmpty() {
		return "<empty>"
	}
	if v.IsNil() {
		return fmt.Sprintf("%s(nil)", v.rec)
	}
	return fmt.Sprintf("%s(%v)", v.rec, v.Interface())
}

// valueFromReflect boxes rv as an owned Value of t.
func valueFromReflect(t *Type, rv reflect.Value) Value {
	v := t.New()
	v.Reflect().Set(rv)
	return v
}

// GetPointer returns v's payload as *T when v holds a T or a type derived
// from T. A read-only reference yields no pointer; use GetValue.
func GetPointer[T any](v *Value) (*T, bool) {
	if v.rec.Qualifier == QualConstPointer {
		return nil, false
	}
	return pointerOf[T](v)
}

// MustGetPointer is GetPointer that panics on mismatch.
func MustGetPointer[T any](v *Value) *T {
	if v.rec.Qualifier == QualConstPointer && !v.IsNil() {
		panic(errors.ConstViolation(errors.PhaseCast, nil, v.rec.Type.name))
	}
	p, ok := pointerOf[T](v)
	if !ok {
		panic(castError[T](v))
	}
	return p
}

// GetValue returns a copy of v's payload as T.
func GetValue[T any](v *Value) (T, bool) {
	p, ok := pointerOf[T](v)
	if !ok {
		var zero T
		return zero, false
	}
	return *p, true
}

// MustGetValue is GetValue that panics on mismatch.
func MustGetValue[T any](v *Value) T {
	p, ok := pointerOf[T](v)
	if !ok {
		panic(castError[T](v))
	}
	return *p
}

func pointerOf[T any](v *Value) (*T, bool) {
	if v.IsNil() {
		return nil, false
	}
	t := v.rec.Type.reg.byGo[reflect.TypeFor[T]()]
	if t == nil {
		return nil, false
	}
	p := v.PointerFor(t)
	if p == nil {
		return nil, false
	}
	return (*T)(p), true
}

func castError[T any](v *Value) *errors.Error {
	meta := "<empty>"
	if !v.IsEmpty() {
		meta = v.rec.String()
	}
	if v.IsNil() && !v.IsEmpty() {
		return errors.NilPointer(errors.PhaseCast, nil, reflect.TypeFor[T]().String())
	}
	return errors.New(errors.PhaseCast, errors.KindTypeMismatch).
		GoType(reflect.TypeFor[T]().String()).
		MetaType(meta).
		Detail("value is not convertible to the requested type").
		Build()
}
