package guest

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

var magicVersion = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestAppendU32(t *testing.T) {
	tests := []struct {
		want []byte
		in   uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xffffffff},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, appendU32(nil, tc.in)); diff != "" {
			t.Errorf("appendU32(%d) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	b := NewBuilder("host")
	wasm := b.Build()
	if !bytes.Equal(wasm, magicVersion) {
		t.Errorf("empty module = %x", wasm)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	if _, err := rt.CompileModule(ctx, wasm); err != nil {
		t.Fatalf("compile empty module: %v", err)
	}
}

func TestBuildForwardsCalls(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var seen []uint64
	_, err := rt.NewHostModuleBuilder("host").
		NewFunctionBuilder().
		WithFunc(func(a, b int32) int32 { return a - b }).
		Export("sub").
		NewFunctionBuilder().
		WithFunc(func(x float64) { seen = append(seen, api.EncodeF64(x)) }).
		Export("record").
		NewFunctionBuilder().
		WithFunc(func() int64 { return -9 }).
		Export("const").
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("host module: %v", err)
	}

	b := NewBuilder("host")
	b.AddFunc("sub", []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32})
	b.AddFunc("record", []api.ValueType{api.ValueTypeF64}, nil)
	b.AddFunc("const", nil, []api.ValueType{api.ValueTypeI64})
	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}

	wasm := b.Build()
	if !bytes.HasPrefix(wasm, magicVersion) {
		t.Fatal("missing wasm header")
	}
	mod, err := rt.InstantiateWithConfig(ctx, wasm, wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}

	res, err := mod.ExportedFunction("sub").Call(ctx, api.EncodeI32(2), api.EncodeI32(7))
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if got := api.DecodeI32(res[0]); got != -5 {
		t.Errorf("sub = %d, want -5", got)
	}

	if _, err := mod.ExportedFunction("record").Call(ctx, api.EncodeF64(1.5)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(seen) != 1 || api.DecodeF64(seen[0]) != 1.5 {
		t.Errorf("record saw %v", seen)
	}

	res, err = mod.ExportedFunction("const").Call(ctx)
	if err != nil {
		t.Fatalf("const: %v", err)
	}
	if got := int64(res[0]); got != -9 {
		t.Errorf("const = %d, want -9", got)
	}

	def := mod.ExportedFunction("sub").Definition()
	if diff := cmp.Diff([]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, def.ParamTypes()); diff != "" {
		t.Errorf("sub params mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMissingImport(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	b := NewBuilder("absent")
	b.AddFunc("f", nil, nil)
	if _, err := rt.Instantiate(ctx, b.Build()); err == nil {
		t.Error("instantiated a module with an unresolved import")
	}
}
