package shape

import (
	"slices"

	"fortio.org/safecast"

	"clsmerge/internal/typeuniv"
)

// ApproxPolicy is the comparison policy for approximate shape merging. The
// shipped rule is prefix-extension padding: two groups unify iff one shape is
// a leading subsequence of the other and the extra slot count stays within
// MaxPadding; the shorter side's members are padded with unused trailing
// slots. Reordering is never permitted.
type ApproxPolicy struct {
	Enabled bool
	// MaxPadding bounds the number of unused trailing slots a padded class
	// may absorb. Zero means no bound.
	MaxPadding int
}

// Compatible reports whether the policy allows unifying small into large.
func (p ApproxPolicy) Compatible(small, large Shape) bool {
	if !p.Enabled {
		return false
	}
	if small.Len() >= large.Len() {
		return false
	}
	if p.MaxPadding > 0 && large.Len()-small.Len() > p.MaxPadding {
		return false
	}
	return small.IsPrefixOf(large)
}

// ApproxStats counts the effects of approximate merging.
type ApproxStats struct {
	ShapesMerged       uint32
	MergeablesAbsorbed uint32
	FieldsAdded        uint32
}

// Merge adds o into s. Addition keeps aggregation associative across models.
func (s *ApproxStats) Merge(o ApproxStats) {
	s.ShapesMerged += o.ShapesMerged
	s.MergeablesAbsorbed += o.MergeablesAbsorbed
	s.FieldsAdded += o.FieldsAdded
}

// Group is one set of classes sharing a shape, in declaration order.
type Group struct {
	Shape Shape
	Types []typeuniv.TypeID
}

// Approximate greedily unifies compatible groups: groups are visited by
// descending member count (ties keep first-seen order) and each absorbs any
// later prefix-related group unless the union would exceed maxCount (0 = no
// bound). The merged group always carries the longer of the two shapes; when
// the absorbed group owns it, the absorber's own members take the padding
// instead. Absorbed members are appended after the absorber's, so the result
// is deterministic for a given input order.
func Approximate(groups []Group, p ApproxPolicy, maxCount int) ([]Group, ApproxStats) {
	var stats ApproxStats
	if !p.Enabled || len(groups) < 2 {
		return groups, stats
	}

	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	slices.SortStableFunc(sorted, func(a, b Group) int {
		return len(b.Types) - len(a.Types)
	})

	absorbed := make([]bool, len(sorted))
	for i := range sorted {
		if absorbed[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if absorbed[j] {
				continue
			}
			if maxCount > 0 && len(sorted[i].Types)+len(sorted[j].Types) > maxCount {
				continue
			}
			switch {
			case p.Compatible(sorted[j].Shape, sorted[i].Shape):
				padded := sorted[i].Shape.Len() - sorted[j].Shape.Len()
				stats.FieldsAdded += mustU32(padded * len(sorted[j].Types))
			case p.Compatible(sorted[i].Shape, sorted[j].Shape):
				// The absorbed group owns the longer shape, so every member
				// already in the absorber gets the padding.
				padded := sorted[j].Shape.Len() - sorted[i].Shape.Len()
				stats.FieldsAdded += mustU32(padded * len(sorted[i].Types))
				sorted[i].Shape = sorted[j].Shape
			default:
				continue
			}
			stats.ShapesMerged++
			stats.MergeablesAbsorbed += mustU32(len(sorted[j].Types))
			sorted[i].Types = append(sorted[i].Types, sorted[j].Types...)
			absorbed[j] = true
		}
	}

	out := make([]Group, 0, len(sorted))
	for i := range sorted {
		if !absorbed[i] {
			out = append(out, sorted[i])
		}
	}
	return out, stats
}

func mustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}
