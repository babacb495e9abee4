package model

import (
	"fmt"
	"slices"
	"strings"

	"clsmerge/internal/interdex"
	"clsmerge/internal/shape"
)

// ModelStats aggregates the per-model counters. Every counter is local to
// one model build; cross-model aggregation happens through Merge, which is
// commutative and associative so the driver may reduce in any order.
type ModelStats struct {
	// Model level stats.
	AllTypes      uint32
	NonMergeables uint32
	Excluded      uint32
	Dropped       uint32
	// InterdexGroups counts merged classes per interdex subgroup.
	InterdexGroups map[interdex.GroupIdx]uint32
	Approx         shape.ApproxStats
	// Merging related stats.
	ClassesMerged         uint32
	GeneratedClasses      uint32
	CtorsDedupped         uint32
	StaticNonVirtDedupped uint32
	VMethodsDedupped      uint32
	ConstLiftedMethods    uint32
}

// Merge adds o into s counter-wise.
func (s *ModelStats) Merge(o *ModelStats) {
	if o == nil {
		return
	}
	s.AllTypes += o.AllTypes
	s.NonMergeables += o.NonMergeables
	s.Excluded += o.Excluded
	s.Dropped += o.Dropped
	if len(o.InterdexGroups) > 0 {
		if s.InterdexGroups == nil {
			s.InterdexGroups = make(map[interdex.GroupIdx]uint32, len(o.InterdexGroups))
		}
		for idx, n := range o.InterdexGroups {
			s.InterdexGroups[idx] += n
		}
	}
	s.Approx.Merge(o.Approx)
	s.ClassesMerged += o.ClassesMerged
	s.GeneratedClasses += o.GeneratedClasses
	s.CtorsDedupped += o.CtorsDedupped
	s.StaticNonVirtDedupped += o.StaticNonVirtDedupped
	s.VMethodsDedupped += o.VMethodsDedupped
	s.ConstLiftedMethods += o.ConstLiftedMethods
}

func (s *ModelStats) addInterdex(idx interdex.GroupIdx, n uint32) {
	if s.InterdexGroups == nil {
		s.InterdexGroups = make(map[interdex.GroupIdx]uint32)
	}
	s.InterdexGroups[idx] += n
}

// Summary renders the per-spec summary. It is emitted even for zero-merger
// runs so low merge yield stays diagnosable without debug flags.
func (s *ModelStats) Summary(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s:\n", name)
	fmt.Fprintf(&b, "  types considered   %d\n", s.AllTypes)
	fmt.Fprintf(&b, "  excluded           %d\n", s.Excluded)
	fmt.Fprintf(&b, "  non-mergeable      %d\n", s.NonMergeables)
	fmt.Fprintf(&b, "  dropped            %d\n", s.Dropped)
	fmt.Fprintf(&b, "  classes merged     %d\n", s.ClassesMerged)
	fmt.Fprintf(&b, "  generated classes  %d\n", s.GeneratedClasses)
	fmt.Fprintf(&b, "  ctors dedupped     %d\n", s.CtorsDedupped)
	fmt.Fprintf(&b, "  statics dedupped   %d\n", s.StaticNonVirtDedupped)
	fmt.Fprintf(&b, "  vmethods dedupped  %d\n", s.VMethodsDedupped)
	fmt.Fprintf(&b, "  consts lifted      %d\n", s.ConstLiftedMethods)
	if s.Approx.ShapesMerged > 0 {
		fmt.Fprintf(&b, "  approx shapes merged %d (mergeables %d, fields added %d)\n",
			s.Approx.ShapesMerged, s.Approx.MergeablesAbsorbed, s.Approx.FieldsAdded)
	}
	if len(s.InterdexGroups) > 0 {
		idxs := make([]interdex.GroupIdx, 0, len(s.InterdexGroups))
		for idx := range s.InterdexGroups {
			idxs = append(idxs, idx)
		}
		slices.Sort(idxs)
		for _, idx := range idxs {
			fmt.Fprintf(&b, "  interdex group %d   %d\n", idx, s.InterdexGroups[idx])
		}
	}
	return b.String()
}
