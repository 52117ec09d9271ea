package meta

import (
	"strings"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta/internal/invoke"
)

// Method invokes one method of one type with dynamically checked arguments.
type Method struct {
	owner     *Type
	fn        *invoke.Func
	name      string
	ret       TypeRecord
	params    []TypeRecord
	constRecv bool
	static    bool
}

func (m *Method) adopt(owner *Type) {
	if m.owner != nil {
		panic(errors.New(errors.PhaseDefine, errors.KindDuplicate).
			Path(owner.name, m.name).
			MetaType(m.owner.name).
			Detail("method already owned").
			Build())
	}
	m.owner = owner
}

// Name returns the method name.
func (m *Method) Name() string { return m.name }

// Owner returns the type that declared the method.
func (m *Method) Owner() *Type { return m.owner }

// Arity returns the number of parameters, receiver excluded.
func (m *Method) Arity() int { return len(m.params) }

// ReturnType returns the result record, void when the method returns nothing.
func (m *Method) ReturnType() TypeRecord { return m.ret }

// ParamType returns the record of parameter i, void when i is out of range.
func (m *Method) ParamType(i int) TypeRecord {
	if i < 0 || i >= len(m.params) {
		return m.owner.reg.VoidRecord()
	}
	return m.params[i]
}

// Params returns the parameter records in order.
func (m *Method) Params() []TypeRecord {
	out := make([]TypeRecord, len(m.params))
	copy(out, m.params)
	return out
}

// IsConst reports whether the method takes its receiver by value. Static
// functions are const.
func (m *Method) IsConst() bool { return m.constRecv }

// IsStatic reports whether the method was declared with Builder.Function
// and takes no receiver.
func (m *Method) IsStatic() bool { return m.static }

// Signature renders the method as "name(p1, p2) ret".
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteString(m.name)
	b.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	if !m.ret.IsVoid() {
		b.WriteByte(' ')
		b.WriteString(m.ret.String())
	}
	return b.String()
}

// CanCall reports whether Call(inst, args) is valid. inst must be a non-nil
// instance of the owner or a derived type, mutable when the method mutates
// its receiver. args must match the arity; by-value parameters take exactly
// the declared type, pointer parameters take a mutable reference to the
// declared type or a type derived from it. A static function ignores inst,
// which may be nil.
func (m *Method) CanCall(inst *Value, args []Value) bool {
	return m.check(inst, args) == nil
}

// Call invokes the method and boxes its result. Arguments are passed in
// order. A method without a result returns an empty Value. Call panics
// when CanCall is false.
func (m *Method) Call(inst *Value, args []Value) Value {
	if err := m.check(inst, args); err != nil {
		Logger().Warn("method call rejected",
			zap.String("type", m.owner.name),
			zap.String("method", m.name),
			zap.Error(err))
		panic(err)
	}

	recv := 1
	if m.static {
		recv = 0
	}
	ptrs := make([]unsafe.Pointer, recv+len(args))
	if !m.static {
		ptrs[0] = inst.PointerFor(m.owner)
	}
	for i := range args {
		arg := &args[i]
		if m.params[i].Qualifier == QualPointer {
			ptrs[recv+i] = arg.PointerFor(m.params[i].Type)
		} else {
			ptrs[recv+i] = arg.Pointer()
		}
	}

	res, ok := m.fn.Call(ptrs)
	if !ok {
		return Value{rec: m.ret}
	}
	if m.ret.Qualifier == QualPointer {
		return Value{
			rec: m.ret,
			ops: m.ret.Type.ops,
			ptr: res.UnsafePointer(),
		}
	}
	return valueFromReflect(m.ret.Type, res)
}

func (m *Method) check(inst *Value, args []Value) *errors.Error {
	path := []string{m.owner.name, m.name}

	if !m.static {
		if err := m.checkReceiver(inst, path); err != nil {
			return err
		}
	}
	if len(args) != len(m.params) {
		return errors.ArityMismatch(errors.PhaseCall, path, len(args), len(m.params))
	}

	for i := range args {
		arg := &args[i]
		p := m.params[i]
		if arg.IsNil() {
			return errors.New(errors.PhaseCall, errors.KindNilPointer).
				Path(path...).
				MetaType(p.String()).
				Detail("argument %d is empty", i).
				Build()
		}
		if p.Qualifier == QualPointer {
			if !arg.rec.Type.IsSameOrDerivedFrom(p.Type) {
				return errors.TypeMismatch(errors.PhaseCall, path, arg.rec.Type.name, p.String())
			}
			if arg.rec.Qualifier == QualConstPointer {
				return errors.New(errors.PhaseCall, errors.KindConstViolation).
					Path(path...).
					MetaType(p.String()).
					Detail("argument %d is read-only", i).
					Build()
			}
			continue
		}
		if arg.rec.Type != p.Type {
			return errors.TypeMismatch(errors.PhaseCall, path, arg.rec.Type.name, p.String())
		}
	}
	return nil
}

func (m *Method) checkReceiver(inst *Value, path []string) *errors.Error {
	if inst == nil || inst.IsNil() {
		return errors.NilPointer(errors.PhaseCall, path, m.owner.name)
	}
	if !inst.rec.Type.IsSameOrDerivedFrom(m.owner) {
		return errors.New(errors.PhaseCall, errors.KindTypeMismatch).
			Path(path...).
			MetaType(inst.rec.Type.name).
			Detail("receiver is not a %s", m.owner.name).
			Build()
	}
	if !m.constRecv && inst.rec.Qualifier == QualConstPointer {
		return errors.ConstViolation(errors.PhaseCall, path, inst.rec.Type.name)
	}
	return nil
}
