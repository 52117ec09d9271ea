package meta

import (
	"reflect"
	"slices"
	"unsafe"

	"github.com/wippyai/meta-runtime/meta/internal/layout"
)

// BaseRecord is a declared base of a type: an embedded struct at a fixed offset.
type BaseRecord struct {
	Type   *Type
	Offset uintptr
}

// Type describes one registered Go type. A Type is created by Declare,
// completed by Registry.Seal and immutable afterwards.
type Type struct {
	reg     *Registry
	goType  reflect.Type
	ops     *typeOps
	define  func() ([]error, []string)
	name    string
	rawName string
	bases   []BaseRecord
	members []*Member
	methods []*Method
	size    uintptr
	builtin bool
}

// typeOps is the operations table bound to one concrete Go type.
type typeOps struct {
	alloc   func() unsafe.Pointer
	assign  func(dst, src unsafe.Pointer)
	destroy func(p unsafe.Pointer)
	box     func(p unsafe.Pointer) any
	inline  bool
}

func opsFor[T any]() *typeOps {
	return &typeOps{
		alloc: func() unsafe.Pointer {
			return unsafe.Pointer(new(T))
		},
		assign: func(dst, src unsafe.Pointer) {
			*(*T)(dst) = *(*T)(src)
		},
		destroy: func(p unsafe.Pointer) {
			var zero T
			*(*T)(p) = zero
		},
		box: func(p unsafe.Pointer) any {
			return *(*T)(p)
		},
		inline: layout.Of(reflect.TypeFor[T]()).Inline,
	}
}

// Name returns the short registry name.
func (t *Type) Name() string { return t.name }

// RawName returns the name as given to Declare, before trimming.
func (t *Type) RawName() string { return t.rawName }

// Size returns the byte size of a value of the type.
func (t *Type) Size() uintptr { return t.size }

// GoType returns the described Go type, nil for void.
func (t *Type) GoType() reflect.Type { return t.goType }

// Registry returns the registry that owns the type.
func (t *Type) Registry() *Registry { return t.reg }

// Builtin reports whether the registry declared the type itself.
func (t *Type) Builtin() bool { return t.builtin }

// IsVoid reports whether t is the void descriptor.
func (t *Type) IsVoid() bool { return t.goType == nil }

// Bases returns the declared bases in declaration order.
func (t *Type) Bases() []BaseRecord { return slices.Clone(t.bases) }

// Members returns the type's own members in insertion order.
func (t *Type) Members() []*Member { return slices.Clone(t.members) }

// Methods returns the type's own methods in insertion order.
func (t *Type) Methods() []*Method { return slices.Clone(t.methods) }

// FindMember looks up a member by name in t, then in each base depth first.
// It returns nil when no member matches.
func (t *Type) FindMember(name string) *Member {
	for _, m := range t.members {
		if m.name == name {
			return m
		}
	}
	for _, b := range t.bases {
		if m := b.Type.FindMember(name); m != nil {
			return m
		}
	}
	return nil
}

// FindMethod looks up a method by name with the same search order as FindMember.
func (t *Type) FindMethod(name string) *Method {
	for _, m := range t.methods {
		if m.name == name {
			return m
		}
	}
	for _, b := range t.bases {
		if m := b.Type.FindMethod(name); m != nil {
			return m
		}
	}
	return nil
}

// AllMembers returns every member reachable from t, bases first, in
// declaration order. A base member shadowed by a member of the same name
// further down is omitted.
func (t *Type) AllMembers() []*Member {
	var out []*Member
	seen := make(map[string]int)
	var walk func(*Type)
	walk = func(cur *Type) {
		for _, b := range cur.bases {
			walk(b.Type)
		}
		for _, m := range cur.members {
			if i, ok := seen[m.name]; ok {
				out[i] = m
				continue
			}
			seen[m.name] = len(out)
			out = append(out, m)
		}
	}
	walk(t)
	return out
}

// IsDerivedFrom reports whether other appears anywhere among t's bases.
func (t *Type) IsDerivedFrom(other *Type) bool {
	for _, b := range t.bases {
		if b.Type == other || b.Type.IsDerivedFrom(other) {
			return true
		}
	}
	return false
}

// IsSameOrDerivedFrom reports t == other || t.IsDerivedFrom(other).
func (t *Type) IsSameOrDerivedFrom(other *Type) bool {
	return t == other || t.IsDerivedFrom(other)
}

// New returns an owned Value holding the zero value of t.
func (t *Type) New() Value {
	if t.IsVoid() {
		return Value{}
	}
	v := Value{
		rec:   TypeRecord{Type: t, Qualifier: QualValue},
		ops:   t.ops,
		owned: true,
	}
	if t.ops.inline {
		v.inline = true
	} else {
		v.ptr = t.ops.alloc()
	}
	return v
}

// Alloc returns a mutable reference to a newly allocated zero value of t.
// Unlike New, the payload never lives inside the Value, so the reference
// may be stored in a pointer member.
func (t *Type) Alloc() Value {
	if t.IsVoid() {
		return Value{}
	}
	return Value{
		rec: TypeRecord{Type: t, Qualifier: QualPointer},
		ops: t.ops,
		ptr: t.ops.alloc(),
	}
}

// Nil returns a nil mutable reference to t.
func (t *Type) Nil() Value {
	if t.IsVoid() {
		return Value{}
	}
	return Value{rec: TypeRecord{Type: t, Qualifier: QualPointer}, ops: t.ops}
}

func (t *Type) String() string {
	return t.name
}

// Adjust converts ptr, which points at an instance of own, into a pointer
// to its target base. It returns ptr unchanged when target == own and nil
// when target is not reachable through own's bases.
func Adjust(target *Type, ptr unsafe.Pointer, own *Type) unsafe.Pointer {
	if target == own || ptr == nil {
		return ptr
	}
	for _, b := range own.bases {
		if p := Adjust(target, unsafe.Add(ptr, b.Offset), b.Type); p != nil {
			return p
		}
	}
	return nil
}
