// Package meta implements runtime reflection over registered Go types.
//
// Types are declared ahead of time with their bases, members and methods;
// at run time callers resolve a descriptor by name or Go type, look up a
// member or method by name and read, write or call through type-erased
// Values with every access checked dynamically.
//
// # Main Types
//
//   - Registry: name and Go type to descriptor maps, two-phase registration
//   - Type: descriptor with size, bases, members and methods
//   - Value: type-erased payload or reference tagged with a TypeRecord
//   - Member: checked field access
//   - Method: checked invocation with positional arguments
//
// # Bases
//
// A base is a struct embedded by value. Its offset inside the derived type
// is fixed, so Adjust converts a derived pointer into a base pointer by
// walking the base list. Embedding through a pointer is rejected.
//
// # Thread Safety
//
// Declare and Seal are serialized. After Seal the registry and every
// descriptor are read-only and safe for concurrent use. Values and the
// objects they reference are not synchronized.
//
// # Preconditions
//
// CanGet, CanSet and CanCall never have side effects. Get, Set, Call and
// the Must* extractors panic with an *errors.Error when their predicate
// does not hold.
//
// # Example
//
//	reg := meta.NewRegistry(meta.DefaultOptions())
//	meta.Declare(reg, "Point", func(b *meta.Builder[Point]) {
//		b.Member("x", func(p *Point) *int { return &p.X }).
//			Member("y", "Y").
//			Method("add", Point.Add)
//	})
//	reg.MustSeal()
//
//	p := Point{}
//	inst := meta.PointerTo(reg, &p)
//	five := meta.ValueOf(reg, 5)
//	reg.LookupByName("Point").FindMember("x").Set(&inst, &five)
package meta
