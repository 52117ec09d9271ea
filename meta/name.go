package meta

import "reflect"

// TrimName shortens a scoped, possibly templated type name to its last
// top-level component: "ns::Vec<ns::T>" becomes "Vec<ns::T>".
func TrimName(raw string) string {
	return trim(raw, ':', '<', '>')
}

// TrimGoName is TrimName for Go spellings: "geom.Box[geom.Point]" becomes
// "Box[geom.Point]".
func TrimGoName(raw string) string {
	return trim(raw, '.', '[', ']')
}

// trim scans backward counting close/open nesting; the short name starts
// after the first separator seen at depth zero.
func trim(raw string, sep, open, close byte) string {
	nest := 0
	for i := len(raw) - 1; i >= 0; i-- {
		switch raw[i] {
		case close:
			nest++
		case open:
			nest--
		case sep:
			if nest == 0 {
				return raw[i+1:]
			}
		}
	}
	return raw
}

// nameOf derives a registry name from a Go type. Unnamed composite types
// such as []float32 keep their full spelling.
func nameOf(t reflect.Type) string {
	if t.Name() == "" {
		return t.String()
	}
	return TrimGoName(t.String())
}
