// Package shape computes the structural field-layout signature used to group
// merge candidates. Two classes share a shape iff their instance fields have
// the same category sequence in declaration order; order matters because it
// decides layout compatibility, not just grouping.
package shape

import (
	"fmt"
	"strings"

	"clsmerge/internal/typeuniv"
)

// Shape is an ordered sequence of field categories.
type Shape struct {
	kinds []typeuniv.FieldKind
}

// Of classifies a class by its declared instance fields.
func Of(fields []typeuniv.Field) Shape {
	kinds := make([]typeuniv.FieldKind, 0, len(fields))
	for _, f := range fields {
		if f.Static {
			continue
		}
		kinds = append(kinds, f.Kind)
	}
	return Shape{kinds: kinds}
}

// FromKinds builds a shape from an explicit category sequence.
func FromKinds(kinds ...typeuniv.FieldKind) Shape {
	out := make([]typeuniv.FieldKind, len(kinds))
	copy(out, kinds)
	return Shape{kinds: out}
}

// Len returns the number of field slots.
func (s Shape) Len() int { return len(s.kinds) }

// Kinds returns the category sequence. Callers must not mutate it.
func (s Shape) Kinds() []typeuniv.FieldKind { return s.kinds }

// Equal reports exact shape equality.
func (s Shape) Equal(o Shape) bool {
	if len(s.kinds) != len(o.kinds) {
		return false
	}
	for i := range s.kinds {
		if s.kinds[i] != o.kinds[i] {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether s is a (possibly equal) leading subsequence of o.
func (s Shape) IsPrefixOf(o Shape) bool {
	if len(s.kinds) > len(o.kinds) {
		return false
	}
	for i := range s.kinds {
		if s.kinds[i] != o.kinds[i] {
			return false
		}
	}
	return true
}

// Key returns a compact stable string usable as a map key.
func (s Shape) Key() string {
	var b strings.Builder
	for _, k := range s.kinds {
		b.WriteByte(kindLetter(k))
	}
	return b.String()
}

// String renders the shape for dumps, e.g. "(int,ref,string)".
func (s Shape) String() string {
	parts := make([]string, 0, len(s.kinds))
	for _, k := range s.kinds {
		parts = append(parts, k.String())
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Descriptor returns the per-category field counts in a fixed order, used in
// generated merger type names: string, ref, array, bool, int, long, double,
// float, concatenated as digits.
func (s Shape) Descriptor() string {
	var counts [8]int
	order := []typeuniv.FieldKind{
		typeuniv.FieldString, typeuniv.FieldRef, typeuniv.FieldArray,
		typeuniv.FieldBool, typeuniv.FieldInt, typeuniv.FieldLong,
		typeuniv.FieldDouble, typeuniv.FieldFloat,
	}
	for _, k := range s.kinds {
		for i, o := range order {
			if k == o {
				counts[i]++
				break
			}
		}
	}
	var b strings.Builder
	for _, c := range counts {
		fmt.Fprintf(&b, "%d", c)
	}
	return b.String()
}

func kindLetter(k typeuniv.FieldKind) byte {
	switch k {
	case typeuniv.FieldBool:
		return 'Z'
	case typeuniv.FieldInt:
		return 'I'
	case typeuniv.FieldLong:
		return 'J'
	case typeuniv.FieldFloat:
		return 'F'
	case typeuniv.FieldDouble:
		return 'D'
	case typeuniv.FieldString:
		return 'S'
	case typeuniv.FieldRef:
		return 'L'
	case typeuniv.FieldArray:
		return 'A'
	default:
		return '?'
	}
}
