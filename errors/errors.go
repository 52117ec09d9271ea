package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDeclare Phase = "declare" // type declaration
	PhaseDefine  Phase = "define"  // bases, members and methods resolved during Seal
	PhaseLookup  Phase = "lookup"  // registry queries
	PhaseGet     Phase = "get"     // member reads
	PhaseSet     Phase = "set"     // member writes
	PhaseCall    Phase = "call"    // method invocation
	PhaseCast    Phase = "cast"    // typed extraction from a Value
	PhaseDecode  Phase = "decode"  // JSON to object
	PhaseBind    Phase = "bind"    // wasm host function binding
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindDuplicate      Kind = "duplicate"
	KindNotFound       Kind = "not_found"
	KindNotBase        Kind = "not_base"
	KindConstViolation Kind = "const_violation"
	KindArityMismatch  Kind = "arity_mismatch"
	KindUnsupported    Kind = "unsupported"
	KindNilPointer     Kind = "nil_pointer"
	KindNotInitialized Kind = "not_initialized"
	KindSealed         Kind = "sealed"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindFieldUnknown   Kind = "field_unknown"
	KindOverflow       Kind = "overflow"
	KindRegistration   Kind = "registration"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	MetaType string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.MetaType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.MetaType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", meta type ")
			b.WriteString(e.MetaType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("meta type ")
			b.WriteString(e.MetaType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.MetaType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// MetaType sets the registered type name
func (b *Builder) MetaType(t string) *Builder {
	b.err.MetaType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, metaType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		MetaType: metaType,
	}
}

// Duplicate creates a duplicate registration error
func Duplicate(phase Phase, path []string, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Path:   path,
		Detail: fmt.Sprintf("%s %q already registered", what, name),
		Value:  name,
	}
}

// NotBase creates an error for a base declaration that is not an embedded struct
func NotBase(path []string, derived, base string) *Error {
	return &Error{
		Phase:    PhaseDefine,
		Kind:     KindNotBase,
		Path:     path,
		GoType:   derived,
		MetaType: base,
		Detail:   fmt.Sprintf("%s is not an embedded base of %s", base, derived),
	}
}

// ConstViolation creates an error for a write through a const-qualified value
func ConstViolation(phase Phase, path []string, metaType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindConstViolation,
		Path:     path,
		MetaType: metaType,
		Detail:   "mutable access through a const value",
	}
}

// ArityMismatch creates an argument count error
func ArityMismatch(phase Phase, path []string, got, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArityMismatch,
		Path:   path,
		Detail: fmt.Sprintf("got %d arguments, want %d", got, want),
		Value:  got,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		GoType: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// FieldUnknown creates an unknown member error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("unknown member %q", fieldName),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Sealed creates an error for a mutation attempted after registration finished
func Sealed(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSealed,
		Detail: fmt.Sprintf("registry sealed, cannot declare %q", name),
		Value:  name,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error for one owner type
func Registration(phase Phase, owner, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s.%s", owner, name),
		Cause:  cause,
	}
}

// UnresolvedRef is a single reference to a Go type that was never declared
type UnresolvedRef struct {
	Owner string // registered type holding the reference, e.g. "Thing"
	Ref   string // Go type spelling, e.g. "geom.Vector3"
}

// UnresolvedTypesError is returned by Seal when members, bases or method
// signatures name Go types that no Declare call registered
type UnresolvedTypesError struct {
	Refs []UnresolvedRef
}

// NewUnresolvedTypesError creates an error from a list of "owner#ref" strings
func NewUnresolvedTypesError(refs []string) *UnresolvedTypesError {
	result := &UnresolvedTypesError{
		Refs: make([]UnresolvedRef, 0, len(refs)),
	}
	for _, r := range refs {
		owner, ref := parseRefKey(r)
		result.Refs = append(result.Refs, UnresolvedRef{
			Owner: owner,
			Ref:   ref,
		})
	}
	return result
}

func parseRefKey(key string) (owner, ref string) {
	o, r, found := strings.Cut(key, "#")
	if found {
		return o, r
	}
	return key, ""
}

func (e *UnresolvedTypesError) Error() string {
	if len(e.Refs) == 0 {
		return "[define] not_found: no references specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d undeclared type reference(s):\n", len(e.Refs)))

	// Group by owner for cleaner output
	byOwner := make(map[string][]string)
	var order []string
	for _, r := range e.Refs {
		if _, exists := byOwner[r.Owner]; !exists {
			order = append(order, r.Owner)
		}
		byOwner[r.Owner] = append(byOwner[r.Owner], r.Ref)
	}

	for _, owner := range order {
		b.WriteString("\n  ")
		b.WriteString(owner)
		b.WriteString(":\n")
		for _, ref := range byOwner[owner] {
			b.WriteString("    - ")
			b.WriteString(ref)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *UnresolvedTypesError) Is(target error) bool {
	_, ok := target.(*UnresolvedTypesError)
	return ok
}
