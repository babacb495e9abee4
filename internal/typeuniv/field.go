package typeuniv

// FieldKind is the structural category of a field type. Layout compatibility
// is decided on categories, never on the precise declared type.
type FieldKind uint8

const (
	FieldBool FieldKind = iota
	FieldInt
	FieldLong
	FieldFloat
	FieldDouble
	FieldString
	FieldRef
	FieldArray
)

// String returns the lowercase category name used in dumps.
func (k FieldKind) String() string {
	switch k {
	case FieldBool:
		return "bool"
	case FieldInt:
		return "int"
	case FieldLong:
		return "long"
	case FieldFloat:
		return "float"
	case FieldDouble:
		return "double"
	case FieldString:
		return "string"
	case FieldRef:
		return "ref"
	case FieldArray:
		return "array"
	default:
		return "?"
	}
}

// Field is a declared field of a class, in declaration order within Class.Fields.
type Field struct {
	Name string
	Kind FieldKind
	// Static marks class-level fields. Static fields never contribute to the
	// instance shape.
	Static bool
	// EagerInit marks a static field whose initializer has observable side
	// effects. Merging such a class changes initialization order.
	EagerInit bool
}
