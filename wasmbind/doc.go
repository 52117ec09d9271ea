// Package wasmbind exposes registered types to WebAssembly.
//
// WitType maps a descriptor to WIT and Flatten lowers the result to core
// wasm value types. Export turns the methods reachable from a live
// instance into a wazero host module, so guest code can call into the
// object through plain imports. A generated guest module re-exports the
// same functions for callers on the Go side:
//
//	rt := wazero.NewRuntime(ctx)
//	defer rt.Close(ctx)
//
//	counter := meta.PointerTo(reg, &c)
//	bind, err := wasmbind.Export(ctx, rt, "counter", &counter, wasmbind.DefaultOptions())
//	...
//	res, err := bind.Call(ctx, "add", api.EncodeI32(1), api.EncodeI32(2))
//
// Method names become kebab-case export names. Methods with non-scalar
// parameters or results are skipped unless Options.Strict is set.
package wasmbind
