package meta

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/meta-runtime/errors"
)

// Options configures a Registry.
type Options struct {
	// Builtins declares descriptors for bool, string and the numeric kinds.
	Builtins bool
}

// DefaultOptions returns the default registry configuration.
func DefaultOptions() Options {
	return Options{Builtins: true}
}

// Registry maps names and Go types to descriptors.
//
// Registration is two-phase. Declare records a type's identity and its
// define callback; Seal runs every callback in declaration order, once all
// types are known. Lookups are only allowed after a successful Seal, after
// which the registry is read-only and safe for concurrent use.
type Registry struct {
	byName  map[string]*Type
	byGo    map[reflect.Type]*Type
	void    *Type
	sealErr error
	types   []*Type
	errs    []error
	mu      sync.Mutex
	sealed  atomic.Bool
	sealing atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		byName: make(map[string]*Type),
		byGo:   make(map[reflect.Type]*Type),
	}
	r.void = &Type{reg: r, name: "void", rawName: "void", builtin: true}
	if opts.Builtins {
		declareBuiltins(r)
	}
	return r
}

// Declare registers T under name and schedules define to run during Seal.
// An empty name is derived from the Go type ("geom.Point" becomes "Point").
// Violations (duplicate name or Go type, unsupported kinds) are reported by
// Seal; Declare then returns nil. Declaring on a sealed registry, or from
// a define callback while Seal runs, panics.
func Declare[T any](r *Registry, name string, define func(*Builder[T])) *Type {
	rt := reflect.TypeFor[T]()

	// Seal holds r.mu while running define callbacks.
	if r.sealing.Load() {
		panic(errors.Sealed(errors.PhaseDeclare, rt.String()))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		panic(errors.Sealed(errors.PhaseDeclare, rt.String()))
	}

	raw := name
	if name == "" {
		raw = rt.String()
		name = nameOf(rt)
	} else {
		name = TrimName(name)
	}

	if err := r.checkDeclare(rt, name); err != nil {
		Logger().Warn("type declaration rejected",
			zap.String("name", name),
			zap.Stringer("go_type", rt),
			zap.Error(err))
		r.errs = append(r.errs, err)
		return nil
	}

	t := &Type{
		reg:     r,
		goType:  rt,
		ops:     opsFor[T](),
		name:    name,
		rawName: raw,
		size:    rt.Size(),
	}
	if define != nil {
		t.define = func() ([]error, []string) {
			b := &Builder[T]{t: t, reg: r}
			define(b)
			return b.errs, b.unresolved
		}
	}

	r.byName[name] = t
	r.byGo[rt] = t
	r.types = append(r.types, t)

	Logger().Debug("type declared",
		zap.String("name", name),
		zap.Stringer("go_type", rt),
		zap.Uintptr("size", t.size))
	return t
}

func (r *Registry) checkDeclare(rt reflect.Type, name string) error {
	switch rt.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return errors.New(errors.PhaseDeclare, errors.KindUnsupported).
			GoType(rt.String()).
			Detail("%s types cannot be registered", rt.Kind()).
			Build()
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseDeclare, "empty type name for "+rt.String())
	}
	if _, ok := r.byName[name]; ok {
		return errors.Duplicate(errors.PhaseDeclare, nil, "type", name)
	}
	if prev, ok := r.byGo[rt]; ok {
		return errors.New(errors.PhaseDeclare, errors.KindDuplicate).
			GoType(rt.String()).
			MetaType(prev.name).
			Detail("Go type already registered as %q", prev.name).
			Build()
	}
	return nil
}

// Seal runs every pending define callback in declaration order. On failure
// it returns all violations combined and the registry stays unusable.
// Sealing an already sealed registry is a no-op.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return nil
	}
	if r.sealErr != nil {
		return r.sealErr
	}

	r.sealing.Store(true)
	defer r.sealing.Store(false)

	errs := r.errs
	var unresolved []string
	for _, t := range r.types {
		if t.define == nil {
			continue
		}
		define := t.define
		t.define = nil
		typeErrs, refs := runDefine(t, define)
		errs = append(errs, typeErrs...)
		unresolved = append(unresolved, refs...)
	}
	if len(unresolved) > 0 {
		errs = append(errs, errors.NewUnresolvedTypesError(unresolved))
	}

	if err := multierr.Combine(errs...); err != nil {
		r.sealErr = err
		Logger().Warn("registry seal failed",
			zap.Int("types", len(r.types)),
			zap.Int("violations", len(multierr.Errors(err))),
			zap.Error(err))
		return err
	}

	r.sealed.Store(true)
	Logger().Debug("registry sealed", zap.Int("types", len(r.types)))
	return nil
}

// runDefine runs one define callback. A panic inside it becomes a
// registration violation of the owning type.
func runDefine(t *Type, define func() ([]error, []string)) (errs []error, refs []string) {
	defer func() {
		if p := recover(); p != nil {
			cause, ok := p.(error)
			if !ok {
				cause = fmt.Errorf("%v", p)
			}
			errs = append(errs, errors.Registration(errors.PhaseDefine, t.name, "define", cause))
		}
	}()
	return define()
}

// MustSeal is Seal that panics on error.
func (r *Registry) MustSeal() *Registry {
	if err := r.Seal(); err != nil {
		panic(err)
	}
	return r
}

// Sealed reports whether Seal completed successfully.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

func (r *Registry) mustBeSealed() {
	if !r.sealed.Load() {
		panic(errors.NotInitialized(errors.PhaseLookup, "registry"))
	}
}

// LookupByName returns the type registered under name, or nil.
func (r *Registry) LookupByName(name string) *Type {
	r.mustBeSealed()
	return r.byName[name]
}

// LookupByGoType returns the descriptor of rt, or nil.
func (r *Registry) LookupByGoType(rt reflect.Type) *Type {
	r.mustBeSealed()
	return r.byGo[rt]
}

// LookupByInstance returns the descriptor of obj's dynamic type. Pointers
// are dereferenced; a *Value resolves to the type it holds.
func (r *Registry) LookupByInstance(obj any) *Type {
	r.mustBeSealed()
	switch o := obj.(type) {
	case nil:
		return nil
	case *Value:
		return o.Type()
	}
	rt := reflect.TypeOf(obj)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return r.byGo[rt]
}

// LookupByType returns the descriptor of T, or nil.
func LookupByType[T any](r *Registry) *Type {
	return r.LookupByGoType(reflect.TypeFor[T]())
}

// Types returns every registered type in declaration order.
func (r *Registry) Types() []*Type {
	r.mustBeSealed()
	out := make([]*Type, len(r.types))
	copy(out, r.types)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.types)
}

// Void returns the void descriptor. It is not reachable by name.
func (r *Registry) Void() *Type {
	return r.void
}

// VoidRecord returns the record used for absent results and parameters.
func (r *Registry) VoidRecord() TypeRecord {
	return TypeRecord{Type: r.void, Qualifier: QualVoid}
}

// typeOf resolves T for a Value constructor and panics when T is unknown.
func typeOf[T any](r *Registry) *Type {
	t := LookupByType[T](r)
	if t == nil {
		panic(errors.NotFound(errors.PhaseLookup, "type", reflect.TypeFor[T]().String()))
	}
	return t
}
