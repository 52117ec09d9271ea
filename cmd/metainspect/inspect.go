package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/meta-runtime/jsonmeta"
	"github.com/wippyai/meta-runtime/meta"
	"github.com/wippyai/meta-runtime/wasmbind"
)

// describeType writes the layout of t: bases, members with offsets and
// method signatures.
func describeType(w io.Writer, t *meta.Type) {
	fmt.Fprintf(w, "type %s (size %d)\n", t.Name(), t.Size())
	for _, b := range t.Bases() {
		fmt.Fprintf(w, "  base   %-10s @%d\n", b.Type.Name(), b.Offset)
	}
	for _, m := range t.Members() {
		fmt.Fprintf(w, "  member %-10s %-10s @%d\n", m.Name(), m.TypeName(), m.Offset())
	}
	for _, m := range t.Methods() {
		suffix := ""
		switch {
		case m.IsStatic():
			suffix = " static"
		case m.IsConst():
			suffix = " const"
		}
		fmt.Fprintf(w, "  method %s%s\n", m.Signature(), suffix)
	}
}

// listTypes describes every registered type, or only the named one.
// Builtins are listed by name only.
func listTypes(w io.Writer, reg *meta.Registry, only string) error {
	if only != "" {
		t := reg.LookupByName(only)
		if t == nil {
			return fmt.Errorf("unknown type %q", only)
		}
		describeType(w, t)
		return nil
	}

	var builtins []string
	for _, t := range reg.Types() {
		if t.Builtin() {
			builtins = append(builtins, t.Name())
			continue
		}
		describeType(w, t)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "builtins: %s\n", strings.Join(builtins, ", "))
	return nil
}

// printObject writes v member by member, recursing into members that have
// members of their own.
func printObject(w io.Writer, v *meta.Value, indent string) {
	t := v.Type()
	fmt.Fprintf(w, "%s {\n", t.Name())
	for _, m := range t.AllMembers() {
		fv := m.Get(v)
		fmt.Fprintf(w, "%s  %s: ", indent, m.Name())
		switch {
		case fv.IsNil():
			fmt.Fprintln(w, "nil")
		case len(fv.Type().AllMembers()) > 0:
			printObject(w, &fv, indent+"  ")
		default:
			fmt.Fprintf(w, "%v\n", fv.Interface())
		}
	}
	fmt.Fprintf(w, "%s}\n", indent)
}

// parseArg decodes the text of one argument as JSON into a new value of
// the parameter's type. Bare words are accepted for string parameters.
func parseArg(dec *jsonmeta.Decoder, rec meta.TypeRecord, text string) (meta.Value, error) {
	text = strings.TrimSpace(text)
	if rec.Type.Name() == "string" && !strings.HasPrefix(text, `"`) {
		text = strconv.Quote(text)
	}

	v := rec.Type.New()
	if rec.Qualifier == meta.QualPointer {
		v = rec.Type.Alloc()
	}
	if err := dec.Decode(strings.NewReader(text), rec.Type.Name(), &v); err != nil {
		return meta.Value{}, err
	}
	return v, nil
}

// callMethod invokes the named method on obj with textual arguments.
func callMethod(dec *jsonmeta.Decoder, obj *meta.Value, name string, texts []string) (meta.Value, error) {
	m := obj.Type().FindMethod(name)
	if m == nil {
		return meta.Value{}, fmt.Errorf("%s has no method %q", obj.Type().Name(), name)
	}
	if len(texts) != m.Arity() {
		return meta.Value{}, fmt.Errorf("%s takes %d argument(s), got %d", m.Signature(), m.Arity(), len(texts))
	}

	args := make([]meta.Value, len(texts))
	for i, text := range texts {
		v, err := parseArg(dec, m.ParamType(i), text)
		if err != nil {
			return meta.Value{}, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	if !m.CanCall(obj, args) {
		return meta.Value{}, fmt.Errorf("cannot call %s on %s", m.Signature(), obj.Record())
	}
	return m.Call(obj, args), nil
}

// callThroughWasm exports obj through wasmbind and calls one of its scalar
// methods via the generated guest module. Arguments are parsed like
// callMethod's and lowered to stack values; the result is lifted back.
func callThroughWasm(ctx context.Context, dec *jsonmeta.Decoder, obj *meta.Value, name string, texts []string) (meta.Value, error) {
	m := obj.Type().FindMethod(name)
	if m == nil {
		return meta.Value{}, fmt.Errorf("%s has no method %q", obj.Type().Name(), name)
	}
	if len(texts) != m.Arity() {
		return meta.Value{}, fmt.Errorf("%s takes %d argument(s), got %d", m.Signature(), m.Arity(), len(texts))
	}

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	bind, err := wasmbind.Export(ctx, rt, strings.ToLower(obj.Type().Name()), obj, wasmbind.DefaultOptions())
	if err != nil {
		return meta.Value{}, err
	}
	defer bind.Close(ctx)

	if bind.Function(name) == nil {
		return meta.Value{}, fmt.Errorf("%s is not exported (non-scalar signature?)", m.Signature())
	}

	stack := make([]uint64, len(texts))
	for i, text := range texts {
		v, err := parseArg(dec, m.ParamType(i), text)
		if err != nil {
			return meta.Value{}, fmt.Errorf("argument %d: %w", i, err)
		}
		raw, err := wasmbind.EncodeValue(&v)
		if err != nil {
			return meta.Value{}, fmt.Errorf("argument %d: %w", i, err)
		}
		stack[i] = raw
	}

	res, err := bind.Call(ctx, name, stack...)
	if err != nil {
		return meta.Value{}, err
	}
	if m.ReturnType().IsVoid() {
		return meta.Value{}, nil
	}
	return wasmbind.DecodeValue(res[0], m.ReturnType().Type)
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ";")
}
