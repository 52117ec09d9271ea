package meta

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/meta-runtime/errors"
)

// Member gives dynamic read and write access to one field of one type.
type Member struct {
	owner  *Type
	name   string
	rec    TypeRecord
	offset uintptr
}

func (m *Member) adopt(owner *Type) {
	if m.owner != nil {
		panic(errors.New(errors.PhaseDefine, errors.KindDuplicate).
			Path(owner.name, m.name).
			MetaType(m.owner.name).
			Detail("member already owned").
			Build())
	}
	m.owner = owner
}

// Name returns the member name.
func (m *Member) Name() string { return m.name }

// Owner returns the type that declared the member.
func (m *Member) Owner() *Type { return m.owner }

// Type returns the descriptor of the field's type (the pointee for pointer fields).
func (m *Member) Type() *Type { return m.rec.Type }

// Record returns the declared type record.
func (m *Member) Record() TypeRecord { return m.rec }

// Offset returns the field's byte offset inside the owner.
func (m *Member) Offset() uintptr { return m.offset }

// TypeName renders the declared type, "*P" for pointer fields.
func (m *Member) TypeName() string { return m.rec.String() }

// CanGet reports whether inst is a non-nil instance of the owner or of a
// type derived from it.
func (m *Member) CanGet(inst *Value) bool {
	return inst != nil && !inst.IsNil() && inst.rec.Type.IsSameOrDerivedFrom(m.owner)
}

// Get returns a reference to the field of inst. The reference is read-only
// when inst is; for pointer fields it is the stored pointer. Get panics
// when CanGet is false.
func (m *Member) Get(inst *Value) Value {
	if !m.CanGet(inst) {
		panic(m.violation(errors.PhaseGet, inst, nil))
	}
	p := m.addr(inst)
	if m.rec.Qualifier == QualPointer {
		p = *(*unsafe.Pointer)(p)
	}
	qual := QualPointer
	if inst.rec.Qualifier == QualConstPointer {
		qual = QualConstPointer
	}
	return Value{
		rec: TypeRecord{Type: m.rec.Type, Qualifier: qual},
		ops: m.rec.Type.ops,
		ptr: p,
	}
}

// CanSet reports whether Set(inst, v) is valid: CanGet holds, inst is not
// read-only and v holds exactly the declared type. Pointer fields take a
// mutable reference (possibly nil); other fields take any non-nil Value.
func (m *Member) CanSet(inst, v *Value) bool {
	if !m.CanGet(inst) || inst.rec.Qualifier == QualConstPointer {
		return false
	}
	if v == nil || v.IsEmpty() || v.rec.Type != m.rec.Type {
		return false
	}
	if m.rec.Qualifier == QualPointer {
		return v.rec.Qualifier == QualPointer
	}
	return !v.IsNil()
}

// Set writes v into the field of inst. It panics when CanSet is false.
func (m *Member) Set(inst, v *Value) {
	if !m.CanSet(inst, v) {
		panic(m.violation(errors.PhaseSet, inst, v))
	}
	p := m.addr(inst)
	if m.rec.Qualifier == QualPointer {
		*(*unsafe.Pointer)(p) = v.ptr
		return
	}
	m.rec.Type.ops.assign(p, v.Pointer())
}

func (m *Member) addr(inst *Value) unsafe.Pointer {
	return unsafe.Add(inst.PointerFor(m.owner), m.offset)
}

func (m *Member) violation(phase errors.Phase, inst, v *Value) *errors.Error {
	path := []string{m.owner.name, m.name}
	var err *errors.Error
	switch {
	case inst == nil || inst.IsNil():
		err = errors.NilPointer(phase, path, m.owner.name)
	case !inst.rec.Type.IsSameOrDerivedFrom(m.owner):
		err = errors.New(phase, errors.KindTypeMismatch).
			Path(path...).
			MetaType(inst.rec.Type.name).
			Detail("instance is not a %s", m.owner.name).
			Build()
	case inst.rec.Qualifier == QualConstPointer:
		err = errors.ConstViolation(phase, path, inst.rec.Type.name)
	case v == nil || v.IsEmpty():
		err = errors.InvalidInput(phase, "empty value")
		err.Path = path
	case v.rec.Type != m.rec.Type:
		err = errors.TypeMismatch(phase, path, v.rec.Type.name, m.rec.String())
	case m.rec.Qualifier == QualPointer:
		err = errors.New(phase, errors.KindTypeMismatch).
			Path(path...).
			MetaType(m.rec.String()).
			Detail("pointer member requires a mutable reference, got %s", v.rec.Qualifier).
			Build()
	default:
		err = errors.NilPointer(phase, path, m.rec.String())
	}
	Logger().Warn("member access rejected",
		zap.String("type", m.owner.name),
		zap.String("member", m.name),
		zap.Error(err))
	return err
}
