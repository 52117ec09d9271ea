// Package metaruntime provides runtime reflection over registered Go types.
//
// Types are declared once with their bases, members and methods. At run
// time, code that only knows names can find a type, read and write its
// fields and call its methods through type-erased values, with every access
// checked against the declared descriptors.
//
// # Architecture Overview
//
//	metaruntime/         Root package (documentation only)
//	├── meta/            Registry, type descriptors, Value, members, methods
//	├── jsonmeta/        JSON deserializer driven by the registry
//	├── wasmbind/        WIT mapping and wazero host modules for methods
//	├── errors/          Structured error types
//	└── cmd/metainspect/ Type browser and method caller
//
// # Quick Start
//
//	reg := meta.NewRegistry(meta.DefaultOptions())
//	meta.Declare(reg, "Point", func(b *meta.Builder[Point]) {
//	    b.Member("x", "X").Member("y", "Y").Method("add", Point.Add)
//	})
//	if err := reg.Seal(); err != nil {
//	    log.Fatal(err)
//	}
//
//	p := Point{X: 10}
//	obj := meta.PointerTo(reg, &p)
//	res := reg.LookupByName("Point").FindMethod("add").
//	    Call(&obj, []meta.Value{meta.ValueOf(reg, 1), meta.ValueOf(reg, 2)})
//
// # Registration
//
// Declare records a type and a definition callback. Seal runs the callbacks
// in order, so members may refer to types declared later. Seal fails with
// every violation found, and lookups panic until it succeeds.
//
// # Error Handling
//
// Failures are *errors.Error values carrying a Phase and a Kind:
//
//	var metaErr *errors.Error
//	if errors.As(err, &metaErr) {
//	    fmt.Printf("phase=%s kind=%s path=%v\n", metaErr.Phase, metaErr.Kind, metaErr.Path)
//	}
//
// Get, Set and Call panic with the same error when their Can* check fails.
//
// # Thread Safety
//
// A sealed Registry and its descriptors are safe for concurrent use. Values
// are not synchronized.
package metaruntime
