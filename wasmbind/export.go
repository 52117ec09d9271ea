package wasmbind

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta"
	"github.com/wippyai/meta-runtime/wasmbind/internal/guest"
)

// Options configures Export.
type Options struct {
	// NameMapper turns a method name into an export name. Nil means kebab-case.
	NameMapper func(string) string
	// Strict fails the export when a reachable method cannot be bound
	// instead of skipping it.
	Strict bool
}

// DefaultOptions returns the default export configuration.
func DefaultOptions() Options {
	return Options{NameMapper: toKebabCase}
}

// Binding is an exported instance: the host module holding one function
// per bound method, and a guest module re-exporting them so they can be
// called from Go.
type Binding struct {
	host  api.Module
	guest api.Module
	names map[string]string
}

// Host returns the host module guests import from.
func (b *Binding) Host() api.Module { return b.host }

// Guest returns the module re-exporting the host functions.
func (b *Binding) Guest() api.Module { return b.guest }

// ExportName returns the export name of a bound method.
func (b *Binding) ExportName(method string) (string, bool) {
	name, ok := b.names[method]
	return name, ok
}

// Function returns the callable export for method, nil when the method
// was not bound.
func (b *Binding) Function(method string) api.Function {
	name, ok := b.names[method]
	if !ok {
		return nil
	}
	return b.guest.ExportedFunction(name)
}

// Call invokes a bound method with raw stack values.
func (b *Binding) Call(ctx context.Context, method string, params ...uint64) ([]uint64, error) {
	fn := b.Function(method)
	if fn == nil {
		return nil, errors.New(errors.PhaseBind, errors.KindNotFound).
			Path(b.host.Name(), method).
			Detail("method %q is not bound", method).
			Build()
	}
	return fn.Call(ctx, params...)
}

// Close closes the guest then the host module.
func (b *Binding) Close(ctx context.Context) error {
	return multierr.Combine(b.guest.Close(ctx), b.host.Close(ctx))
}

// Export instantiates a host module named moduleName whose functions call
// the methods reachable from instance: its type's own methods first, then
// those of its bases. Only methods taking and returning scalars by value
// are bound. A guest module named moduleName+".guest" re-exports them.
// instance must stay valid for the lifetime of the binding.
//
// A host call that fails the method's CanCall check panics with the
// *errors.Error, which wazero reports to the caller as a call error.
func Export(ctx context.Context, rt wazero.Runtime, moduleName string, instance *meta.Value, opts Options) (*Binding, error) {
	if instance == nil || instance.IsNil() {
		return nil, errors.NilPointer(errors.PhaseBind, []string{moduleName}, "instance")
	}
	mapName := opts.NameMapper
	if mapName == nil {
		mapName = toKebabCase
	}

	builder := rt.NewHostModuleBuilder(moduleName)
	trampoline := guest.NewBuilder(moduleName)
	exported := make(map[string]string)
	names := make(map[string]string)

	for _, m := range reachableMethods(instance.Type()) {
		params, results, err := bindable(m, instance)
		if err != nil {
			if opts.Strict {
				return nil, err
			}
			Logger().Debug("skipping method",
				zap.String("module", moduleName),
				zap.String("method", m.Signature()),
				zap.Error(err))
			continue
		}

		name := mapName(m.Name())
		if prev, dup := exported[name]; dup {
			return nil, errors.New(errors.PhaseBind, errors.KindDuplicate).
				Path(moduleName, name).
				Detail("methods %s and %s export the same name", prev, m.Name()).
				Build()
		}
		exported[name] = m.Name()
		names[m.Name()] = name

		builder.NewFunctionBuilder().
			WithGoModuleFunction(hostFunc(m, instance), params, results).
			Export(name)
		trampoline.AddFunc(name, params, results)

		Logger().Debug("method exported",
			zap.String("module", moduleName),
			zap.String("export", name),
			zap.String("method", m.Signature()))
	}

	host, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(errors.PhaseBind, moduleName, "host", err)
	}
	guestName := moduleName + ".guest"
	g, err := rt.InstantiateWithConfig(ctx, trampoline.Build(), wazero.NewModuleConfig().WithName(guestName))
	if err != nil {
		return nil, multierr.Append(
			errors.Registration(errors.PhaseBind, moduleName, "guest", err),
			host.Close(ctx))
	}
	return &Binding{host: host, guest: g, names: names}, nil
}

// reachableMethods lists t's methods then its bases' methods depth first.
// A base method hidden by a method of the same name is left out.
func reachableMethods(t *meta.Type) []*meta.Method {
	var out []*meta.Method
	seen := make(map[string]bool)
	var walk func(*meta.Type)
	walk = func(cur *meta.Type) {
		for _, m := range cur.Methods() {
			if seen[m.Name()] {
				continue
			}
			seen[m.Name()] = true
			out = append(out, m)
		}
		for _, b := range cur.Bases() {
			walk(b.Type)
		}
	}
	walk(t)
	return out
}

func bindable(m *meta.Method, instance *meta.Value) (params, results []api.ValueType, err error) {
	path := []string{m.Owner().Name(), m.Name()}

	if !m.IsConst() && instance.Qualifier() == meta.QualConstPointer {
		return nil, nil, errors.ConstViolation(errors.PhaseBind, path, instance.Type().Name())
	}
	for i, p := range m.Params() {
		if p.Qualifier != meta.QualValue || !scalar(p.Type) {
			return nil, nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
				Path(path...).
				MetaType(p.String()).
				Detail("parameter %d is not a scalar", i).
				Build()
		}
	}
	if ret := m.ReturnType(); !ret.IsVoid() && (ret.Qualifier != meta.QualValue || !scalar(ret.Type)) {
		return nil, nil, errors.New(errors.PhaseBind, errors.KindUnsupported).
			Path(path...).
			MetaType(ret.String()).
			Detail("result is not a scalar").
			Build()
	}
	return Signature(m)
}

func hostFunc(m *meta.Method, instance *meta.Value) api.GoModuleFunc {
	params := m.Params()
	return func(_ context.Context, _ api.Module, stack []uint64) {
		args := make([]meta.Value, len(params))
		for i, p := range params {
			args[i] = p.Type.New()
			lift(stack[i], args[i].Reflect())
		}
		res := m.Call(instance, args)
		if !res.IsEmpty() {
			stack[0] = lower(res.Reflect())
		}
	}
}
