// Package errors provides structured error types for the meta-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: member path, Go/meta type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSet, errors.KindTypeMismatch).
//		Path("Thing", "position").
//		GoType("float32").
//		MetaType("Vector3").
//		Detail("value is not assignable to member").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseSet, path, "float32", "Vector3")
//	err := errors.ArityMismatch(errors.PhaseCall, path, 1, 2)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
