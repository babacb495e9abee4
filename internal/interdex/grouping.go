// Package interdex refines shape groups by deployment constraints: the
// interdex load-order group a type belongs to, and optionally the dex file it
// currently resides in. The group assignment itself is computed elsewhere and
// consumed here through oracles.
package interdex

import (
	"fmt"
	"slices"

	"clsmerge/internal/typeuniv"
)

// GroupIdx is the index of an interdex subgroup.
type GroupIdx uint32

// GroupingMode selects how much of the input is subject to interdex
// grouping.
type GroupingMode uint8

const (
	// GroupingDisabled passes shape groups through unchanged.
	GroupingDisabled GroupingMode = iota
	// GroupingNonHot splits by group index but keeps the hot/startup set in
	// one unsplit bucket.
	GroupingNonHot
	// GroupingNonOrdered additionally exempts every type with a defined load
	// order.
	GroupingNonOrdered
	// GroupingFull applies grouping to the entire input.
	GroupingFull
)

func (m GroupingMode) String() string {
	switch m {
	case GroupingDisabled:
		return "disabled"
	case GroupingNonHot:
		return "non-hot"
	case GroupingNonOrdered:
		return "non-ordered"
	case GroupingFull:
		return "full"
	default:
		return fmt.Sprintf("mode#%d", uint8(m))
	}
}

// ParseGroupingMode parses the config spelling of a grouping mode.
func ParseGroupingMode(s string) (GroupingMode, error) {
	switch s {
	case "", "disabled":
		return GroupingDisabled, nil
	case "non-hot":
		return GroupingNonHot, nil
	case "non-ordered":
		return GroupingNonOrdered, nil
	case "full":
		return GroupingFull, nil
	default:
		return GroupingDisabled, fmt.Errorf("unknown interdex grouping mode %q", s)
	}
}

// Oracle answers interdex placement questions. Implementations must be
// side-effect-free and safe for concurrent reads.
type Oracle interface {
	// GroupOf maps a type to its interdex subgroup, if it has one.
	GroupOf(t typeuniv.TypeID) (GroupIdx, bool)
	// IsHot reports membership in the hot/startup set.
	IsHot(t typeuniv.TypeID) bool
	// HasLoadOrder reports whether the type has a defined load order.
	HasLoadOrder(t typeuniv.TypeID) bool
}

// DexMap assigns each type to the binary unit (dex file) it resides in.
type DexMap interface {
	UnitOf(t typeuniv.TypeID) int
}

// StaticOracle is a map-backed Oracle for offline snapshots and tests.
type StaticOracle struct {
	Groups  map[typeuniv.TypeID]GroupIdx
	Hot     map[typeuniv.TypeID]bool
	Ordered map[typeuniv.TypeID]bool
}

func (o *StaticOracle) GroupOf(t typeuniv.TypeID) (GroupIdx, bool) {
	idx, ok := o.Groups[t]
	return idx, ok
}

func (o *StaticOracle) IsHot(t typeuniv.TypeID) bool { return o.Hot[t] }

func (o *StaticOracle) HasLoadOrder(t typeuniv.TypeID) bool {
	return o.Ordered[t] || o.Hot[t]
}

// StaticDexMap is a map-backed DexMap; absent types live in unit 0.
type StaticDexMap map[typeuniv.TypeID]int

func (m StaticDexMap) UnitOf(t typeuniv.TypeID) int { return m[t] }

// Bucket is one partitioned slice of a shape group.
type Bucket struct {
	Types []typeuniv.TypeID
	// Interdex is the subgroup index, nil for exempt or ungrouped types.
	Interdex *GroupIdx
	// Dex is the binary unit, nil when per-dex grouping is off.
	Dex *int
	// Slice numbers consecutive max-count slices of one bucket, starting 0.
	Slice uint32
}

// Options configures one Partition call.
type Options struct {
	Mode     GroupingMode
	PerDex   bool
	MinCount int
	// MaxCount bounds the mergeables per bucket; 0 means unbounded.
	MaxCount int
	Oracle   Oracle
	Dex      DexMap
}

// Result carries the surviving buckets plus the members of dissolved ones.
type Result struct {
	Buckets []Bucket
	// Dropped holds types whose bucket fell below MinCount; they revert to
	// non-mergeable. Merging fewer than the minimum never pays for the fixed
	// overhead of a synthetic type.
	Dropped []typeuniv.TypeID
}

// Partition splits one shape group into deployment buckets. Input order is
// declaration order and is preserved within every bucket, so the result is
// identical across re-runs with unchanged oracle answers.
func Partition(types []typeuniv.TypeID, opts Options) Result {
	var res Result
	if len(types) == 0 {
		return res
	}

	proto := splitByInterdex(types, opts)
	if opts.PerDex && opts.Dex != nil {
		proto = splitByDex(proto, opts.Dex)
	}

	for _, b := range proto {
		if len(b.Types) < opts.MinCount {
			res.Dropped = append(res.Dropped, b.Types...)
			continue
		}
		if opts.MaxCount <= 0 || len(b.Types) <= opts.MaxCount {
			res.Buckets = append(res.Buckets, b)
			continue
		}
		var slice uint32
		for start := 0; start < len(b.Types); start += opts.MaxCount {
			end := min(start+opts.MaxCount, len(b.Types))
			part := b.Types[start:end]
			if len(part) < opts.MinCount {
				// Trailing remainder too small to stand alone.
				res.Dropped = append(res.Dropped, part...)
				continue
			}
			res.Buckets = append(res.Buckets, Bucket{
				Types:    slices.Clone(part),
				Interdex: b.Interdex,
				Dex:      b.Dex,
				Slice:    slice,
			})
			slice++
		}
	}
	return res
}

func splitByInterdex(types []typeuniv.TypeID, opts Options) []Bucket {
	if opts.Mode == GroupingDisabled || opts.Oracle == nil {
		return []Bucket{{Types: slices.Clone(types)}}
	}

	exempt := func(t typeuniv.TypeID) bool {
		switch opts.Mode {
		case GroupingNonHot:
			return opts.Oracle.IsHot(t)
		case GroupingNonOrdered:
			return opts.Oracle.IsHot(t) || opts.Oracle.HasLoadOrder(t)
		default:
			return false
		}
	}

	var ungrouped []typeuniv.TypeID
	grouped := make(map[GroupIdx][]typeuniv.TypeID)
	var order []GroupIdx
	for _, t := range types {
		if exempt(t) {
			ungrouped = append(ungrouped, t)
			continue
		}
		idx, ok := opts.Oracle.GroupOf(t)
		if !ok {
			ungrouped = append(ungrouped, t)
			continue
		}
		if _, seen := grouped[idx]; !seen {
			order = append(order, idx)
		}
		grouped[idx] = append(grouped[idx], t)
	}
	slices.Sort(order)

	var out []Bucket
	if len(ungrouped) > 0 {
		out = append(out, Bucket{Types: ungrouped})
	}
	for _, idx := range order {
		idx := idx
		out = append(out, Bucket{Types: grouped[idx], Interdex: &idx})
	}
	return out
}

func splitByDex(in []Bucket, dex DexMap) []Bucket {
	var out []Bucket
	for _, b := range in {
		byUnit := make(map[int][]typeuniv.TypeID)
		var units []int
		for _, t := range b.Types {
			unit := dex.UnitOf(t)
			if _, seen := byUnit[unit]; !seen {
				units = append(units, unit)
			}
			byUnit[unit] = append(byUnit[unit], t)
		}
		slices.Sort(units)
		for _, unit := range units {
			unit := unit
			out = append(out, Bucket{
				Types:    byUnit[unit],
				Interdex: b.Interdex,
				Dex:      &unit,
			})
		}
	}
	return out
}
