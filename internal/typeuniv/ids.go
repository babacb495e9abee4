package typeuniv

// TypeID identifies a class or interface in the universe arena.
type TypeID uint32

const (
	// NoTypeID marks the absence of a type reference.
	NoTypeID TypeID = 0
)

// IsValid reports whether the ID refers to an allocated type.
func (id TypeID) IsValid() bool { return id != NoTypeID }
