package model

import (
	"fmt"
	"strings"
	"unicode"

	"clsmerge/internal/interdex"
	"clsmerge/internal/shape"
	"clsmerge/internal/typeuniv"
)

// CtorStrategy is the constructor protocol of a merger: how the original
// ctor arguments are extended to carry the identity tag, if any.
type CtorStrategy uint8

const (
	// CtorNoTag: ctors keep the original argument list; no identity tag.
	CtorNoTag CtorStrategy = iota
	// CtorAppendGeneratedTag: this pass synthesizes the tag value and
	// appends it to the ctor arguments.
	CtorAppendGeneratedTag
	// CtorForwardCallerTag: the caller passes the tag value through.
	CtorForwardCallerTag
	// CtorTagPresent: the input already carries and handles its own tag.
	CtorTagPresent
)

func ctorStrategyFor(tag TypeTagConfig) CtorStrategy {
	switch tag {
	case TagGenerate:
		return CtorAppendGeneratedTag
	case TagPassToCtor:
		return CtorForwardCallerTag
	case TagInputHandled:
		return CtorTagPresent
	default:
		return CtorNoTag
	}
}

// ConstEntry is one row of a lifted per-type constant table.
type ConstEntry struct {
	Owner typeuniv.TypeID
	Value int64
}

// SharedMethod is one deduplicated implementation serving every listed
// target. When ConstTable is non-nil the shared body consults the table
// instead of a per-type constant.
type SharedMethod struct {
	Sig typeuniv.MethodSig
	// Owner is the type whose body was chosen as the canonical one.
	Owner   typeuniv.TypeID
	Targets []typeuniv.TypeID
	// ConstTable maps each target to the constant its original body used;
	// nil for plain dedup.
	ConstTable []ConstEntry
}

// DispatchCase forwards one identity tag to the per-original-type private
// implementation.
type DispatchCase struct {
	Owner typeuniv.TypeID
}

// Dispatcher is a synthesized method branching on the identity tag. Cases
// follow mergeable declaration order.
type Dispatcher struct {
	Sig   typeuniv.MethodSig
	Cases []DispatchCase
}

// MergerType is a synthetic type subsuming one merged group. Once created it
// is immutable within the model except for the method distribution pass,
// which may demote members before the model is committed.
type MergerType struct {
	// Type is the synthetic ID allocated for the merger; it never collides
	// with universe IDs.
	Type typeuniv.TypeID
	Name string
	// Shape is the (possibly padded) shared field layout.
	Shape shape.Shape
	// Parent is the nearest retained ancestor common to all members.
	Parent     typeuniv.TypeID
	Interfaces []typeuniv.TypeID
	// Mergeables are the original types this merger subsumes, in
	// declaration order.
	Mergeables []typeuniv.TypeID
	Ctor       CtorStrategy
	// Interdex is the subgroup index when interdex grouping applied.
	Interdex *interdex.GroupIdx
	// Dex is the binary unit when per-dex grouping applied.
	Dex *int
	// Slice numbers max-count slices of one bucket.
	Slice uint32

	SharedCtors  []SharedMethod
	CtorDispatch []Dispatcher
	Shared       []SharedMethod
	Dispatch     []Dispatcher

	// ordinal numbers mergers of the same shape within one model; it feeds
	// the generated name.
	ordinal int
}

// rootNameTag extracts a minimal but identifiable tag from the root's simple
// name: the last word starting with a capital letter, plus the initial of
// the word before it. "TypedEventBase" becomes "EBase".
func rootNameTag(rootName string) string {
	simple := rootName
	if idx := strings.LastIndexAny(simple, "/."); idx >= 0 {
		simple = simple[idx+1:]
	}
	simple = strings.TrimSuffix(simple, ";")
	runes := []rune(simple)

	var tag []rune
	i := len(runes) - 1
	for ; i >= 0; i-- {
		tag = append(tag, runes[i])
		if unicode.IsUpper(runes[i]) {
			break
		}
	}
	for i--; i >= 0; i-- {
		if unicode.IsUpper(runes[i]) {
			tag = append(tag, runes[i])
			break
		}
	}
	for l, r := 0, len(tag)-1; l < r; l, r = l+1, r-1 {
		tag[l], tag[r] = tag[r], tag[l]
	}
	return string(tag)
}

// buildMergerName composes the generated class name: prefix, root name tag,
// shape ordinal, mergeable count, shape descriptor, then the optional
// interdex and slice suffixes.
func buildMergerName(prefix, rootName string, sh shape.Shape, ordinal, count int, idx *interdex.GroupIdx, slice uint32) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(rootNameTag(rootName))
	fmt.Fprintf(&b, "Shape%d_%dS%s", ordinal, count, sh.Descriptor())
	if idx != nil {
		fmt.Fprintf(&b, "_I%d", *idx)
	}
	if slice != 0 {
		fmt.Fprintf(&b, "_%d", slice)
	}
	return b.String()
}
