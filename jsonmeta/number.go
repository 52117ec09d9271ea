package jsonmeta

import (
	"reflect"
	"strconv"
	"unsafe"

	"golang.org/x/exp/constraints"
)

func bitsOf[T constraints.Integer | constraints.Float]() int {
	var zero T
	return int(unsafe.Sizeof(zero)) * 8
}

func parseSigned[T constraints.Signed](lit string) (T, error) {
	n, err := strconv.ParseInt(lit, 10, bitsOf[T]())
	if err != nil {
		return 0, err
	}
	return T(n), nil
}

func parseUnsigned[T constraints.Unsigned](lit string) (T, error) {
	n, err := strconv.ParseUint(lit, 10, bitsOf[T]())
	if err != nil {
		return 0, err
	}
	return T(n), nil
}

func parseFloat[T constraints.Float](lit string) (T, error) {
	f, err := strconv.ParseFloat(lit, bitsOf[T]())
	if err != nil {
		return 0, err
	}
	return T(f), nil
}

func setSigned[T constraints.Signed](rv reflect.Value, lit string) error {
	n, err := parseSigned[T](lit)
	if err != nil {
		return err
	}
	rv.SetInt(int64(n))
	return nil
}

func setUnsigned[T constraints.Unsigned](rv reflect.Value, lit string) error {
	n, err := parseUnsigned[T](lit)
	if err != nil {
		return err
	}
	rv.SetUint(uint64(n))
	return nil
}

func setFloat[T constraints.Float](rv reflect.Value, lit string) error {
	f, err := parseFloat[T](lit)
	if err != nil {
		return err
	}
	rv.SetFloat(float64(f))
	return nil
}

// setNumber stores a JSON number literal into rv, which must be of a
// numeric kind. Out of range values fail with strconv.ErrRange.
func setNumber(rv reflect.Value, lit string) (bool, error) {
	switch rv.Kind() {
	case reflect.Int:
		return true, setSigned[int](rv, lit)
	case reflect.Int8:
		return true, setSigned[int8](rv, lit)
	case reflect.Int16:
		return true, setSigned[int16](rv, lit)
	case reflect.Int32:
		return true, setSigned[int32](rv, lit)
	case reflect.Int64:
		return true, setSigned[int64](rv, lit)
	case reflect.Uint:
		return true, setUnsigned[uint](rv, lit)
	case reflect.Uint8:
		return true, setUnsigned[uint8](rv, lit)
	case reflect.Uint16:
		return true, setUnsigned[uint16](rv, lit)
	case reflect.Uint32:
		return true, setUnsigned[uint32](rv, lit)
	case reflect.Uint64:
		return true, setUnsigned[uint64](rv, lit)
	case reflect.Uintptr:
		return true, setUnsigned[uintptr](rv, lit)
	case reflect.Float32:
		return true, setFloat[float32](rv, lit)
	case reflect.Float64:
		return true, setFloat[float64](rv, lit)
	default:
		return false, nil
	}
}
