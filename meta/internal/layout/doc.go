// Package layout answers storage questions about Go types for the meta registry.
//
// Go fixes struct layout at compile time, so every field and every embedded
// struct sits at a constant offset from the start of its enclosing value.
// This package resolves those offsets from reflect metadata and validates
// offsets computed by accessor functions.
//
// # Inline Storage
//
// A payload may be stored inside a Value's inline buffer only when it is
// pointer-free (the garbage collector never scans the buffer), fits in
// InlineSize bytes and needs no alignment stricter than a machine word.
//
// # Bases
//
// A base is a directly embedded, non-pointer struct field. Embedding through
// a pointer places the base at an offset only known at run time and is
// reported separately so callers can reject it.
//
// This package is internal to meta.
package layout
