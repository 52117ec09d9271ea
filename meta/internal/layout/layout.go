package layout

import (
	"fmt"
	"reflect"
)

// InlineSize is the capacity of a Value's inline buffer in bytes.
const InlineSize = 32

const maxInlineAlign = 8

// Info describes the storage of one Go type.
type Info struct {
	Size        uintptr
	Align       uintptr
	PointerFree bool
	Inline      bool
}

// Of computes storage info for t.
func Of(t reflect.Type) Info {
	info := Info{
		Size:        t.Size(),
		Align:       uintptr(t.Align()),
		PointerFree: PointerFree(t),
	}
	info.Inline = info.PointerFree && info.Size <= InlineSize && info.Align <= maxInlineAlign
	return info
}

// PointerFree reports whether values of t contain no pointers the
// garbage collector must trace.
func PointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || PointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !PointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Offset sums field offsets along an index path as returned by
// reflect.Type.FieldByName. Paths that pass through a pointer have no
// constant offset and are rejected.
func Offset(t reflect.Type, index []int) (uintptr, error) {
	var off uintptr
	cur := t
	for depth, i := range index {
		if cur.Kind() != reflect.Struct {
			return 0, fmt.Errorf("index %v: %s is not a struct", index[:depth+1], cur)
		}
		f := cur.Field(i)
		off += f.Offset
		cur = f.Type
		if depth < len(index)-1 && cur.Kind() == reflect.Pointer {
			return 0, fmt.Errorf("field %s is reached through pointer %s", f.Name, cur)
		}
	}
	return off, nil
}

// FieldAt finds a field of type ft located at byte offset off inside t,
// searching nested structs and arrays. It returns the field path.
func FieldAt(t reflect.Type, off uintptr, ft reflect.Type) ([]string, bool) {
	if off == 0 && t == ft {
		return nil, true
	}
	if off >= t.Size() {
		return nil, false
	}

	switch t.Kind() {
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if off < f.Offset || off >= f.Offset+f.Type.Size() {
				continue
			}
			if path, ok := FieldAt(f.Type, off-f.Offset, ft); ok {
				return append([]string{f.Name}, path...), true
			}
		}
	case reflect.Array:
		elem := t.Elem()
		if elem.Size() == 0 {
			return nil, false
		}
		i := off / elem.Size()
		if path, ok := FieldAt(elem, off-i*elem.Size(), ft); ok {
			return append([]string{fmt.Sprintf("[%d]", i)}, path...), true
		}
	}
	return nil, false
}

// Embedded returns the directly embedded field of t whose type is bt,
// either by value or through a pointer.
func Embedded(t, bt reflect.Type) (reflect.StructField, bool) {
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if f.Type == bt || (f.Type.Kind() == reflect.Pointer && f.Type.Elem() == bt) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// EmbeddedAt returns the directly embedded by-value field of type bt at off.
func EmbeddedAt(t reflect.Type, off uintptr, bt reflect.Type) (reflect.StructField, bool) {
	f, ok := Embedded(t, bt)
	if !ok || f.Type != bt || f.Offset != off {
		return reflect.StructField{}, false
	}
	return f, true
}
