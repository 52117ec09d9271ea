package meta

// declareBuiltins registers the scalar kinds every registry knows about.
func declareBuiltins(r *Registry) {
	builtin(Declare[bool](r, "", nil))
	builtin(Declare[string](r, "", nil))
	builtin(Declare[int](r, "", nil))
	builtin(Declare[int8](r, "", nil))
	builtin(Declare[int16](r, "", nil))
	builtin(Declare[int32](r, "", nil))
	builtin(Declare[int64](r, "", nil))
	builtin(Declare[uint](r, "", nil))
	builtin(Declare[uint8](r, "", nil))
	builtin(Declare[uint16](r, "", nil))
	builtin(Declare[uint32](r, "", nil))
	builtin(Declare[uint64](r, "", nil))
	builtin(Declare[uintptr](r, "", nil))
	builtin(Declare[float32](r, "", nil))
	builtin(Declare[float64](r, "", nil))
	builtin(Declare[complex64](r, "", nil))
	builtin(Declare[complex128](r, "", nil))
}

func builtin(t *Type) {
	if t != nil {
		t.builtin = true
	}
}
