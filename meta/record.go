package meta

// Qualifier says how a type is used by a parameter, result, member or Value.
type Qualifier uint8

const (
	QualVoid         Qualifier = iota // no value
	QualValue                         // owned copy
	QualPointer                       // mutable reference
	QualConstPointer                  // read-only reference
)

func (q Qualifier) String() string {
	switch q {
	case QualVoid:
		return "void"
	case QualValue:
		return "value"
	case QualPointer:
		return "pointer"
	case QualConstPointer:
		return "const pointer"
	default:
		return "unknown"
	}
}

// TypeRecord pairs a descriptor with a qualifier. It is the dynamic
// counterpart of a static parameter or result type.
type TypeRecord struct {
	Type      *Type
	Qualifier Qualifier
}

// IsVoid reports whether the record describes the absence of a value.
func (r TypeRecord) IsVoid() bool {
	return r.Type == nil || r.Qualifier == QualVoid
}

// Mutable reports whether the record grants write access.
func (r TypeRecord) Mutable() bool {
	return r.Qualifier == QualPointer
}

func (r TypeRecord) String() string {
	if r.IsVoid() {
		return "void"
	}
	switch r.Qualifier {
	case QualPointer:
		return "*" + r.Type.name
	case QualConstPointer:
		return "const *" + r.Type.name
	default:
		return r.Type.name
	}
}
