package wasmbind

import (
	"reflect"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/meta-runtime/errors"
	"github.com/wippyai/meta-runtime/meta"
)

// EncodeValue lowers a scalar value to the stack slot a bound function
// expects for it.
func EncodeValue(v *meta.Value) (uint64, error) {
	if v == nil || v.IsNil() {
		return 0, errors.NilPointer(errors.PhaseBind, nil, "value")
	}
	if !scalar(v.Type()) {
		return 0, errors.Unsupported(errors.PhaseBind, v.Record().String()+" is not a scalar")
	}
	return lower(v.Reflect()), nil
}

// DecodeValue lifts a stack slot returned by a bound function into a new
// value of t.
func DecodeValue(raw uint64, t *meta.Type) (meta.Value, error) {
	if !scalar(t) {
		name := "void"
		if t != nil {
			name = t.Name()
		}
		return meta.Value{}, errors.Unsupported(errors.PhaseBind, name+" is not a scalar")
	}
	v := t.New()
	lift(raw, v.Reflect())
	return v, nil
}

// scalar reports whether values of t occupy exactly one core stack slot.
func scalar(t *meta.Type) bool {
	if t == nil || t.IsVoid() {
		return false
	}
	switch t.GoType().Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// lower encodes a scalar into its stack representation.
func lower(rv reflect.Value) uint64 {
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1
		}
		return 0
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return api.EncodeI32(int32(rv.Int()))
	case reflect.Int, reflect.Int64:
		return api.EncodeI64(rv.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return api.EncodeU32(uint32(rv.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32:
		return api.EncodeF32(float32(rv.Float()))
	case reflect.Float64:
		return api.EncodeF64(rv.Float())
	default:
		return 0
	}
}

// lift decodes a stack slot into rv. Narrow integers are truncated the way
// the canonical ABI lifts them from i32.
func lift(raw uint64, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Bool:
		rv.SetBool(api.DecodeU32(raw) != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		rv.SetInt(int64(api.DecodeI32(raw)))
	case reflect.Int, reflect.Int64:
		rv.SetInt(int64(raw))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		rv.SetUint(uint64(api.DecodeU32(raw)))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		rv.SetUint(raw)
	case reflect.Float32:
		rv.SetFloat(float64(api.DecodeF32(raw)))
	case reflect.Float64:
		rv.SetFloat(api.DecodeF64(raw))
	}
}
