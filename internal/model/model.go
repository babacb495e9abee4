// Package model builds the revised hierarchy for a class set under analysis:
// a small number of synthetic merger types that subsume families of
// structurally similar classes. The model owns every piece of derived state;
// the universe snapshot it reads is never mutated, so independent models can
// be built concurrently over the same snapshot.
package model

import (
	"fmt"

	"clsmerge/internal/hierarchy"
	"clsmerge/internal/interdex"
	"clsmerge/internal/typeuniv"
)

// RefChecker is the external reference-safety oracle: whether a type can be
// moved across the current boundary without breaking references.
type RefChecker interface {
	IsSafeToMerge(t typeuniv.TypeID) bool
}

// AllowAll is a RefChecker admitting every type.
type AllowAll struct{}

func (AllowAll) IsSafeToMerge(typeuniv.TypeID) bool { return true }

// DenySet is a RefChecker rejecting an explicit set of types.
type DenySet map[typeuniv.TypeID]struct{}

func (d DenySet) IsSafeToMerge(t typeuniv.TypeID) bool {
	_, unsafe := d[t]
	return !unsafe
}

// Model is the committed result of one merging job.
type Model struct {
	spec     ModelSpec
	stats    ModelStats
	universe *typeuniv.Universe
	ref      RefChecker
	oracle   interdex.Oracle
	dex      interdex.DexMap

	hier  *hierarchy.Hierarchy
	roots []typeuniv.TypeID
	// inModel holds the restricted subtree: roots plus transitive subtypes.
	inModel map[typeuniv.TypeID]struct{}
	// classToIntfs / intfToClasses as known to the analysis.
	classToIntfs  map[typeuniv.TypeID][]typeuniv.TypeID
	intfToClasses map[typeuniv.TypeID][]typeuniv.TypeID
	// mergers maps synthetic IDs to real merger types; scaffolds never
	// appear here, so a traversal cannot hand out a scaffold.
	mergers     map[typeuniv.TypeID]*MergerType
	mergerOrder []typeuniv.TypeID
	// scaffolds are hierarchy nodes kept only for structural continuity:
	// roots and configuration-excluded types bridging a gap.
	scaffolds map[typeuniv.TypeID]struct{}
	excluded  map[typeuniv.TypeID]struct{}
	// nonMergeable holds types disqualified for structural or safety
	// reasons, distinct from configuration-excluded ones.
	nonMergeable map[typeuniv.TypeID]struct{}
	// origParent remembers where a mergeable hung before it was folded, so
	// the demotion path can restore it.
	origParent    map[typeuniv.TypeID]typeuniv.TypeID
	shapeOrdinals map[string]int
	targets       map[typeuniv.TypeID]struct{}
	nextType      uint32
}

// BuildModel runs the full analysis for one spec against a scope of types.
// Configuration errors fail the build before any work; everything else is a
// local recovery (types route to the non-mergeable set instead).
func BuildModel(
	scope []typeuniv.TypeID,
	spec ModelSpec,
	universe *typeuniv.Universe,
	ref RefChecker,
	oracle interdex.Oracle,
	dex interdex.DexMap,
) (*Model, error) {
	if universe == nil {
		return nil, fmt.Errorf("model: nil universe")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if ref == nil {
		ref = AllowAll{}
	}
	m := &Model{
		spec:          spec,
		universe:      universe,
		ref:           ref,
		oracle:        oracle,
		dex:           dex,
		hier:          hierarchy.New(),
		roots:         spec.Roots,
		inModel:       make(map[typeuniv.TypeID]struct{}),
		classToIntfs:  make(map[typeuniv.TypeID][]typeuniv.TypeID),
		intfToClasses: make(map[typeuniv.TypeID][]typeuniv.TypeID),
		mergers:       make(map[typeuniv.TypeID]*MergerType),
		scaffolds:     make(map[typeuniv.TypeID]struct{}),
		excluded:      make(map[typeuniv.TypeID]struct{}),
		nonMergeable:  make(map[typeuniv.TypeID]struct{}),
		origParent:    make(map[typeuniv.TypeID]typeuniv.TypeID),
		shapeOrdinals: make(map[string]int),
	}
	if len(spec.MergingTargets) > 0 {
		m.targets = make(map[typeuniv.TypeID]struct{}, len(spec.MergingTargets))
		for _, t := range spec.MergingTargets {
			m.targets[t] = struct{}{}
		}
	}

	m.buildHierarchy(scope)
	m.buildInterfaceMaps()
	m.shapeModel()
	m.collectMethods()
	m.commit()
	return m, nil
}

// Name returns the spec name.
func (m *Model) Name() string { return m.spec.Name }

// Spec returns the spec this model was built from.
func (m *Model) Spec() *ModelSpec { return &m.spec }

// Stats returns a copy of the model statistics.
func (m *Model) Stats() ModelStats { return m.stats }

// Roots returns the configured root types.
func (m *Model) Roots() []typeuniv.TypeID { return m.roots }

// Parent returns the analysis-time parent of a type.
func (m *Model) Parent(t typeuniv.TypeID) (typeuniv.TypeID, bool) {
	return m.hier.Parent(t)
}

// Interfaces returns the interfaces a class implements as known to the
// analysis.
func (m *Model) Interfaces(t typeuniv.TypeID) []typeuniv.TypeID {
	return m.classToIntfs[t]
}

// Mergers returns every committed merger in synthesis order.
func (m *Model) Mergers() []*MergerType {
	out := make([]*MergerType, 0, len(m.mergerOrder))
	for _, id := range m.mergerOrder {
		if mg := m.mergers[id]; mg != nil {
			out = append(out, mg)
		}
	}
	return out
}

// IsNonMergeable reports whether t was disqualified from merging.
func (m *Model) IsNonMergeable(t typeuniv.TypeID) bool {
	_, ok := m.nonMergeable[t]
	return ok
}

// IsExcluded reports whether t was excluded by configuration.
func (m *Model) IsExcluded(t typeuniv.TypeID) bool {
	_, ok := m.excluded[t]
	return ok
}

// WalkHierarchy traverses all real mergers depth-first, parent before
// children. The traversal is stateless and restartable.
func (m *Model) WalkHierarchy(fn func(*MergerType)) {
	for _, root := range m.roots {
		if mg := m.mergers[root]; mg != nil {
			fn(mg)
		}
		m.walkHelper(root, fn)
	}
}

func (m *Model) walkHelper(t typeuniv.TypeID, fn func(*MergerType)) {
	for _, child := range m.hier.Children(t) {
		if mg := m.mergers[child]; mg != nil {
			fn(mg)
		}
		m.walkHelper(child, fn)
	}
}

func (m *Model) allocTypeID() typeuniv.TypeID {
	id := typeuniv.TypeID(0x8000_0000 + m.nextType)
	m.nextType++
	return id
}

// typeName resolves merger and universe names alike.
func (m *Model) typeName(t typeuniv.TypeID) string {
	if mg := m.mergers[t]; mg != nil {
		return mg.Name
	}
	return m.universe.Name(t)
}

// commit finalizes the model: names reflect final membership, the hierarchy
// invariant is re-checked, zeroed counters are cleaned up.
func (m *Model) commit() {
	if err := m.hier.Validate(); err != nil {
		panic(fmt.Errorf("model %q: corrupt hierarchy at commit: %w", m.spec.Name, err))
	}
	order := m.mergerOrder[:0]
	for _, id := range m.mergerOrder {
		mg := m.mergers[id]
		if mg == nil {
			continue
		}
		order = append(order, id)
		root := m.rootOf(mg.Parent)
		mg.Name = buildMergerName(m.spec.ClassNamePrefix, m.universe.Name(root),
			mg.Shape, mg.ordinal, len(mg.Mergeables), mg.Interdex, mg.Slice)
	}
	m.mergerOrder = order
	for idx, n := range m.stats.InterdexGroups {
		if n == 0 {
			delete(m.stats.InterdexGroups, idx)
		}
	}
}

// rootOf walks the analysis hierarchy up to the configured root above t.
func (m *Model) rootOf(t typeuniv.TypeID) typeuniv.TypeID {
	for cur := t; cur.IsValid(); {
		for _, r := range m.roots {
			if cur == r {
				return cur
			}
		}
		p, ok := m.hier.Parent(cur)
		if !ok {
			return cur
		}
		cur = p
	}
	return t
}
