package model

import (
	"errors"
	"fmt"
	"slices"

	"clsmerge/internal/interdex"
	"clsmerge/internal/shape"
	"clsmerge/internal/typeuniv"
)

// TypeTagConfig describes how runtime type identity survives merging.
type TypeTagConfig uint8

const (
	// TagNone: no type tags exist and none are generated. Operations that
	// need the original type identity are unsupported under this config.
	TagNone TypeTagConfig = iota
	// TagGenerate: the input has no tags; this pass generates them and owns
	// all tag logic including ctor value passing.
	TagGenerate
	// TagPassToCtor: the input hierarchy has tags emitted; the merged ctors
	// receive the tag value from the caller.
	TagPassToCtor
	// TagInputHandled: the input has tags and fully handles them itself.
	TagInputHandled
)

func (c TypeTagConfig) String() string {
	switch c {
	case TagNone:
		return "none"
	case TagGenerate:
		return "generate"
	case TagPassToCtor:
		return "pass-to-ctor"
	case TagInputHandled:
		return "input-handled"
	default:
		return fmt.Sprintf("tag#%d", uint8(c))
	}
}

// ParseTypeTagConfig parses the config spelling of a tag policy.
func ParseTypeTagConfig(s string) (TypeTagConfig, error) {
	switch s {
	case "", "none":
		return TagNone, nil
	case "generate":
		return TagGenerate, nil
	case "pass-to-ctor":
		return TagPassToCtor, nil
	case "input-handled":
		return TagInputHandled, nil
	default:
		return TagNone, fmt.Errorf("unknown type tag config %q", s)
	}
}

// TypeLikeStringConfig decides what to do when a type-name-like string
// constant references a mergeable type.
type TypeLikeStringConfig uint8

const (
	// StringExclude drops the referenced type from merging. Conservative:
	// without full knowledge of the reflection pattern it is better not to
	// merge at all.
	StringExclude TypeLikeStringConfig = iota
	// StringReplace assumes reflection against the string still works after
	// merging and lets downstream rewriting replace the literal.
	StringReplace
)

// ParseTypeLikeStringConfig parses the config spelling of the policy.
func ParseTypeLikeStringConfig(s string) (TypeLikeStringConfig, error) {
	switch s {
	case "", "exclude":
		return StringExclude, nil
	case "replace":
		return StringReplace, nil
	default:
		return StringExclude, fmt.Errorf("unknown type-like string config %q", s)
	}
}

// ModelSpec configures one merging job.
type ModelSpec struct {
	Enabled bool
	// Name of the spec for debug/printing.
	Name string
	// ClassNamePrefix prefixes every generated class name for this model.
	ClassNamePrefix string
	// Roots are the base types from which all candidates are found.
	Roots []typeuniv.TypeID
	// MergingTargets optionally restricts merging to an explicit set; they
	// must be subtypes of the roots. Empty means every eligible subtype.
	MergingTargets []typeuniv.TypeID
	// ExcludeTypes are dropped from the model by configuration.
	ExcludeTypes []typeuniv.TypeID
	// ExcludePrefixes drop every type whose name carries one of the prefixes.
	ExcludePrefixes []string
	// MinCount is the minimum mergeables per merger (no merger otherwise).
	MinCount int
	// MaxCount bounds mergeables per merger; 0 means unbounded.
	MaxCount int
	TypeTag  TypeTagConfig
	Strings  TypeLikeStringConfig
	Grouping interdex.GroupingMode
	// PerDexGrouping splits every bucket by the dex its members reside in.
	PerDexGrouping bool
	// IncludePrimaryDex permits merging classes of the primary load unit.
	IncludePrimaryDex bool
	// IsGeneratedCode treats the merging targets as generated code:
	// reflection safety is assumed for types reachable from the roots.
	IsGeneratedCode bool
	// MergeTypesWithStaticFields permits classes whose static fields have
	// side-effecting initializers. Enabling this changes initialization
	// order.
	MergeTypesWithStaticFields bool
	Approx                     shape.ApproxPolicy
	// MaxDispatchTargets bounds the cases of one synthesized dispatcher;
	// 0 means unbounded.
	MaxDispatchTargets int
}

// Configuration errors surfaced before any analysis runs.
var (
	ErrNoRoots        = errors.New("model spec has no roots")
	ErrDuplicateRoot  = errors.New("model spec has duplicate roots")
	ErrRootExcluded   = errors.New("model spec roots overlap exclude set")
	ErrInvertedCounts = errors.New("model spec min count exceeds max count")
)

// Validate checks the spec before analysis. A failing spec never runs;
// other specs are unaffected.
func (s *ModelSpec) Validate() error {
	if len(s.Roots) == 0 {
		return fmt.Errorf("%w (spec %q)", ErrNoRoots, s.Name)
	}
	seen := make(map[typeuniv.TypeID]struct{}, len(s.Roots))
	for _, r := range s.Roots {
		if _, dup := seen[r]; dup {
			return fmt.Errorf("%w (spec %q)", ErrDuplicateRoot, s.Name)
		}
		seen[r] = struct{}{}
	}
	for _, e := range s.ExcludeTypes {
		if slices.Contains(s.Roots, e) {
			return fmt.Errorf("%w (spec %q)", ErrRootExcluded, s.Name)
		}
	}
	if s.MinCount < 1 {
		s.MinCount = 2
	}
	if s.MaxCount > 0 && s.MinCount > s.MaxCount {
		return fmt.Errorf("%w (spec %q: min %d max %d)", ErrInvertedCounts, s.Name, s.MinCount, s.MaxCount)
	}
	return nil
}

// GenerateTypeTag reports whether this pass synthesizes tag values.
func (s *ModelSpec) GenerateTypeTag() bool { return s.TypeTag == TagGenerate }

// HasTypeTag reports whether a tag is available for dispatch at all.
func (s *ModelSpec) HasTypeTag() bool { return s.TypeTag != TagNone }

// InputHasTypeTag reports whether the input hierarchy carries its own tags.
func (s *ModelSpec) InputHasTypeTag() bool {
	return s.TypeTag == TagPassToCtor || s.TypeTag == TagInputHandled
}

// PassTypeTagToCtor reports whether merged ctors receive a tag argument.
func (s *ModelSpec) PassTypeTagToCtor() bool {
	return s.TypeTag == TagGenerate || s.TypeTag == TagPassToCtor
}

// ReplaceTypeLikeStrings reports whether type-name-like literals are
// rewritten rather than blocking the referenced type.
func (s *ModelSpec) ReplaceTypeLikeStrings() bool { return s.Strings == StringReplace }
