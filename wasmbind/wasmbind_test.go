package wasmbind

import (
	"context"
	stderrors "errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta"
	"github.com/wippyai/meta-runtime/wasmbind/internal/guest"
)


type Tally struct {
	Hits int32
}

func (t Tally) Count() int32 { return t.Hits }

func (t *Tally) Bump(n int32) { t.Hits += n }

type Counter struct {
	Tally
	Label string
	Step  uint8
	Ratio float64
	Next  *Counter
}

func (c Counter) Add(a, b int32) int32 { return a + b }

func (c Counter) Scale(f float64) float64 { return f * c.Ratio }

func (c Counter) IsZero() bool { return c.Hits == 0 }

func (c Counter) Describe() string { return c.Label }

func (c *Counter) Advance() { c.Hits += int32(c.Step) }

func (c Counter) Wide(x int64) uint64 { return uint64(x) * 2 }

type Grid struct {
	Cells [2]int16
	Tags  []string
}

func newRegistry(t *testing.T) *meta.Registry {
	t.Helper()

	r := meta.NewRegistry(meta.DefaultOptions())
	meta.Declare(r, "Tally", func(b *meta.Builder[Tally]) {
		b.Member("hits", "Hits").
			Method("count", Tally.Count).
			Method("bump", (*Tally).Bump)
	})
	meta.Declare(r, "Counter", func(b *meta.Builder[Counter]) {
		b.Base("Tally").
			Member("label", "Label").
			Member("step", "Step").
			Member("ratio", "Ratio").
			Member("next", "Next").
			Method("add", Counter.Add).
			Method("scale", Counter.Scale).
			Method("isZero", Counter.IsZero).
			Method("describe", Counter.Describe).
			Method("advance", (*Counter).Advance).
			Method("wide", Counter.Wide)
	})
	meta.Declare[[]string](r, "", nil)
	meta.Declare[[2]int16](r, "", nil)
	meta.Declare(r, "Grid", func(b *meta.Builder[Grid]) {
		b.Member("cells", "Cells").Member("tags", "Tags")
	})
	if err := r.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return r
}

func ptr(s string) *string { return &s }

func TestWitType(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		want wit.Type
		name string
	}{
		{wit.Bool{}, "bool"},
		{wit.S32{}, "int32"},
		{wit.S64{}, "int"},
		{wit.U8{}, "uint8"},
		{wit.U64{}, "uintptr"},
		{wit.F32{}, "float32"},
		{wit.String{}, "string"},
		{&wit.TypeDef{Name: ptr("tally"), Kind: &wit.Record{Fields: []wit.Field{
			{Name: "hits", Type: wit.S32{}},
		}}}, "Tally"},
		{&wit.TypeDef{Name: ptr("grid"), Kind: &wit.Record{Fields: []wit.Field{
			{Name: "cells", Type: &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.S16{}, wit.S16{}}}}},
			{Name: "tags", Type: &wit.TypeDef{Kind: &wit.List{Type: wit.String{}}}},
		}}}, "Grid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := WitType(r.LookupByName(tc.name))
			if err != nil {
				t.Fatalf("WitType: %v", err)
			}
			if diff := cmp.Diff(Flatten(tc.want), Flatten(got)); diff != "" {
				t.Errorf("flattened mismatch (-want +got):\n%s", diff)
			}
			wantDef, ok := tc.want.(*wit.TypeDef)
			if !ok {
				if got != tc.want {
					t.Errorf("WitType = %#v, want %#v", got, tc.want)
				}
				return
			}
			gotDef := got.(*wit.TypeDef)
			if *gotDef.Name != *wantDef.Name {
				t.Errorf("record name = %s, want %s", *gotDef.Name, *wantDef.Name)
			}
		})
	}
}

func TestWitTypeRecordBasesFirst(t *testing.T) {
	r := newRegistry(t)

	_, err := WitType(r.LookupByName("Counter"))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindUnsupported}) {
		t.Fatalf("self-referencing Counter: err = %v, want unsupported", err)
	}

	wt, err := WitType(r.LookupByName("Tally"))
	if err != nil {
		t.Fatalf("WitType: %v", err)
	}
	rec := wt.(*wit.TypeDef).Kind.(*wit.Record)
	if len(rec.Fields) != 1 || rec.Fields[0].Name != "hits" {
		t.Errorf("fields = %+v", rec.Fields)
	}
}

func TestWitTypeUnsupported(t *testing.T) {
	r := newRegistry(t)

	for _, name := range []string{"complex64", "complex128"} {
		_, err := WitType(r.LookupByName(name))
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindUnsupported}) {
			t.Errorf("%s: err = %v, want unsupported", name, err)
		}
	}
	if wt, err := WitType(r.Void()); wt != nil || err != nil {
		t.Errorf("void: %v, %v", wt, err)
	}
}

func TestFlatten(t *testing.T) {
	record := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "a", Type: wit.U8{}},
		{Name: "b", Type: wit.F64{}},
		{Name: "c", Type: &wit.TypeDef{Kind: &wit.Option{Type: wit.S64{}}}},
	}}}

	tests := []struct {
		typ  wit.Type
		name string
		want []api.ValueType
	}{
		{nil, "nil", nil},
		{wit.Bool{}, "bool", []api.ValueType{api.ValueTypeI32}},
		{wit.U64{}, "u64", []api.ValueType{api.ValueTypeI64}},
		{wit.F32{}, "f32", []api.ValueType{api.ValueTypeF32}},
		{wit.String{}, "string", []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
		{&wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, "list", []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
		{record, "record", []api.ValueType{api.ValueTypeI32, api.ValueTypeF64, api.ValueTypeI32, api.ValueTypeI64}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Flatten(tc.typ)); diff != "" {
				t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSignature(t *testing.T) {
	r := newRegistry(t)
	counter := r.LookupByName("Counter")

	params, results, err := Signature(counter.FindMethod("add"))
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}
	if diff := cmp.Diff([]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]api.ValueType{api.ValueTypeI32}, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	params, results, err = Signature(counter.FindMethod("describe"))
	if err != nil || len(params) != 0 || len(results) != 2 {
		t.Errorf("describe: %v %v %v", params, results, err)
	}

	params, results, err = Signature(counter.FindMethod("advance"))
	if err != nil || len(params) != 0 || len(results) != 0 {
		t.Errorf("advance: %v %v %v", params, results, err)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	c := Counter{Tally: Tally{Hits: 4}, Step: 3, Ratio: 0.5}
	inst := meta.PointerTo(r, &c)
	bind, err := Export(ctx, rt, "counter", &inst, DefaultOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer bind.Close(ctx)

	call := func(method string, params ...uint64) []uint64 {
		t.Helper()
		res, err := bind.Call(ctx, method, params...)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		return res
	}

	if got := api.DecodeI32(call("add", api.EncodeI32(2), api.EncodeI32(-5))[0]); got != -3 {
		t.Errorf("add = %d, want -3", got)
	}
	if got := api.DecodeF64(call("scale", api.EncodeF64(8))[0]); got != 4 {
		t.Errorf("scale = %v, want 4", got)
	}
	if got := call("wide", api.EncodeI64(21))[0]; got != 42 {
		t.Errorf("wide = %d, want 42", got)
	}
	if got := call("isZero")[0]; got != 0 {
		t.Errorf("isZero = %d, want 0", got)
	}

	call("advance")
	call("bump", api.EncodeI32(10))
	if c.Hits != 17 {
		t.Errorf("Hits = %d, want 17", c.Hits)
	}
	if got := api.DecodeI32(call("count")[0]); got != 17 {
		t.Errorf("count = %d, want 17", got)
	}

	if name, ok := bind.ExportName("isZero"); !ok || name != "is-zero" {
		t.Errorf("ExportName(isZero) = %q, %v", name, ok)
	}
	if bind.Guest().ExportedFunction("is-zero") == nil {
		t.Error("guest does not re-export is-zero")
	}
	if bind.Host().Name() != "counter" || bind.Guest().Name() != "counter.guest" {
		t.Errorf("modules = %q, %q", bind.Host().Name(), bind.Guest().Name())
	}

	if bind.Function("describe") != nil {
		t.Error("describe returns a string and should not be exported")
	}
	_, err = bind.Call(ctx, "describe")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindNotFound}) {
		t.Errorf("Call(describe) = %v, want not_found", err)
	}
}

func TestExportImportedByGuest(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	c := Counter{Tally: Tally{Hits: 1}}
	inst := meta.PointerTo(r, &c)
	bind, err := Export(ctx, rt, "counter", &inst, DefaultOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer bind.Close(ctx)

	// A second guest linking against the host module directly.
	b := guest.NewBuilder("counter")
	b.AddFunc("bump", []api.ValueType{api.ValueTypeI32}, nil)
	mod, err := rt.InstantiateWithConfig(ctx, b.Build(), wazero.NewModuleConfig().WithName("user"))
	if err != nil {
		t.Fatalf("instantiate user: %v", err)
	}
	defer mod.Close(ctx)

	if _, err := mod.ExportedFunction("bump").Call(ctx, api.EncodeI32(6)); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if c.Hits != 7 {
		t.Errorf("Hits = %d, want 7", c.Hits)
	}
}

func TestExportReadOnlyInstance(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	c := Counter{Step: 1}
	inst := meta.ConstPointerTo(r, &c)
	bind, err := Export(ctx, rt, "ro", &inst, DefaultOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer bind.Close(ctx)

	if bind.Function("advance") != nil || bind.Function("bump") != nil {
		t.Error("mutating methods exported for a read-only instance")
	}
	if bind.Function("add") == nil {
		t.Error("const method add missing")
	}

	skipped := logs.FilterMessage("skipping method").All()
	if len(skipped) != 3 {
		t.Errorf("skipped %d methods, want 3 (describe, advance, bump)", len(skipped))
	}
}

func TestExportStrict(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var c Counter
	inst := meta.PointerTo(r, &c)
	opts := DefaultOptions()
	opts.Strict = true
	_, err := Export(ctx, rt, "strict", &inst, opts)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindUnsupported}) {
		t.Errorf("err = %v, want unsupported", err)
	}
}

func TestExportNameMapper(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var c Counter
	inst := meta.PointerTo(r, &c)

	opts := Options{NameMapper: func(name string) string { return "counter." + name }}
	bind, err := Export(ctx, rt, "mapped", &inst, opts)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer bind.Close(ctx)

	if bind.Guest().ExportedFunction("counter.isZero") == nil {
		t.Error("mapped export name missing")
	}
	res, err := bind.Call(ctx, "isZero")
	if err != nil || len(res) != 1 || res[0] != 1 {
		t.Errorf("isZero = %v, %v", res, err)
	}

	opts = Options{NameMapper: func(string) string { return "same" }}
	_, err = Export(ctx, rt, "collide", &inst, opts)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindDuplicate}) {
		t.Errorf("err = %v, want duplicate", err)
	}
}

func TestExportModuleNameTaken(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var c Counter
	inst := meta.PointerTo(r, &c)
	bind, err := Export(ctx, rt, "twice", &inst, DefaultOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer bind.Close(ctx)

	_, err = Export(ctx, rt, "twice", &inst, DefaultOptions())
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindRegistration}) {
		t.Errorf("err = %v, want registration", err)
	}
}

func TestExportStaticFunction(t *testing.T) {
	ctx := context.Background()

	r := meta.NewRegistry(meta.DefaultOptions())
	meta.Declare(r, "Tally", func(b *meta.Builder[Tally]) {
		b.Member("hits", "Hits").
			Function("double", func(n uint16) uint16 { return n * 2 })
	})
	r.MustSeal()

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	tally := Tally{}
	inst := meta.ConstPointerTo(r, &tally)
	bind, err := Export(ctx, rt, "tally", &inst, DefaultOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer bind.Close(ctx)

	res, err := bind.Call(ctx, "double", api.EncodeU32(21))
	if err != nil {
		t.Fatalf("double: %v", err)
	}
	if got := api.DecodeU32(res[0]); got != 42 {
		t.Errorf("double = %d, want 42", got)
	}
}

func TestEncodeDecodeValue(t *testing.T) {
	r := newRegistry(t)

	flag := meta.ValueOf(r, true)
	raw, err := EncodeValue(&flag)
	if err != nil || raw != 1 {
		t.Errorf("EncodeValue(true) = %d, %v", raw, err)
	}

	n := meta.ValueOf(r, uint32(math.MaxUint32))
	raw, err = EncodeValue(&n)
	if err != nil || api.DecodeU32(raw) != math.MaxUint32 {
		t.Errorf("EncodeValue(uint32 max) = %#x, %v", raw, err)
	}

	v, err := DecodeValue(api.EncodeF32(0.25), r.LookupByName("float32"))
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if got := meta.MustGetValue[float32](&v); got != 0.25 {
		t.Errorf("DecodeValue = %v, want 0.25", got)
	}

	s := meta.ValueOf(r, "text")
	if _, err := EncodeValue(&s); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindUnsupported}) {
		t.Errorf("EncodeValue(string) = %v, want unsupported", err)
	}
	if _, err := DecodeValue(0, r.LookupByName("Tally")); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindUnsupported}) {
		t.Errorf("DecodeValue(Tally) = %v, want unsupported", err)
	}
	if _, err := DecodeValue(0, r.Void()); err == nil {
		t.Error("DecodeValue(void) accepted")
	}
	var empty meta.Value
	if _, err := EncodeValue(&empty); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindNilPointer}) {
		t.Errorf("EncodeValue(empty) = %v, want nil_pointer", err)
	}
}

func TestExportNilInstance(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var empty meta.Value
	_, err := Export(ctx, rt, "nil", &empty, DefaultOptions())
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindNilPointer}) {
		t.Errorf("err = %v, want nil_pointer", err)
	}
}

func TestCoerce(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name string
		raw  uint64
		want any
	}{
		{"bool", 1, true},
		{"int8", api.EncodeI32(-7), int8(-7)},
		{"int32", api.EncodeI32(math.MinInt32), int32(math.MinInt32)},
		{"int64", api.EncodeI64(-1), int64(-1)},
		{"uint16", api.EncodeU32(65535), uint16(65535)},
		{"uint64", math.MaxUint64, uint64(math.MaxUint64)},
		{"float32", api.EncodeF32(1.25), float32(1.25)},
		{"float64", api.EncodeF64(-2.5), -2.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			typ := r.LookupByName(tc.name)
			if !scalar(typ) {
				t.Fatalf("%s should be scalar", tc.name)
			}
			v := typ.New()
			lift(tc.raw, v.Reflect())
			if got := v.Interface(); got != tc.want {
				t.Errorf("lift = %v (%T), want %v", got, got, tc.want)
			}
			if got := lower(v.Reflect()); got != tc.raw {
				t.Errorf("lower = %#x, want %#x", got, tc.raw)
			}
		})
	}

	if scalar(r.LookupByName("string")) || scalar(r.Void()) {
		t.Error("string and void are not scalar")
	}
}

func TestToKebabCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"add", "add"},
		{"isZero", "is-zero"},
		{"Vector3", "vector3"},
		{"parseHTTPHeader", "parse-http-header"},
		{"set_ident", "set-ident"},
		{"URL", "url"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := toKebabCase(tc.in); got != tc.want {
			t.Errorf("toKebabCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
