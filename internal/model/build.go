package model

import (
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"clsmerge/internal/interdex"
	"clsmerge/internal/shape"
	"clsmerge/internal/typeuniv"
)

// buildHierarchy restricts the universe to the subtree under the roots and
// records every disqualification that can be decided per-type: config
// exclusion, external definition, reference safety, native methods, eager
// statics, primary-dex residence, type-like string references.
func (m *Model) buildHierarchy(scope []typeuniv.TypeID) {
	rootSet := make(map[typeuniv.TypeID]struct{}, len(m.roots))
	for _, r := range m.roots {
		rootSet[r] = struct{}{}
		m.inModel[r] = struct{}{}
		m.scaffolds[r] = struct{}{}
	}

	// Membership first: every transitive subtype of a root is in the model.
	for _, t := range scope {
		if _, isRoot := rootSet[t]; isRoot {
			continue
		}
		cls := m.universe.Get(t)
		if cls == nil || cls.IsInterface {
			continue
		}
		if m.underAnyRoot(t, rootSet) {
			m.inModel[t] = struct{}{}
			m.stats.AllTypes++
		}
	}

	// Hierarchy edges in declaration order; a type whose direct super was
	// not retained attaches to the nearest retained ancestor.
	for _, t := range scope {
		if _, ok := m.inModel[t]; !ok {
			continue
		}
		if _, isRoot := rootSet[t]; isRoot {
			continue
		}
		m.hier.SetParentChild(m.nearestRetainedAncestor(t), t)

		cls := m.universe.Get(t)
		switch {
		case m.excludedByConfig(t, cls):
			m.excluded[t] = struct{}{}
			m.scaffolds[t] = struct{}{}
			m.stats.Excluded++
		case cls.External:
			m.markNonMergeable(t)
		case !m.ref.IsSafeToMerge(t):
			m.markNonMergeable(t)
		case cls.HasNativeMethods():
			m.markNonMergeable(t)
		case cls.HasEagerStatics() && !m.spec.MergeTypesWithStaticFields:
			m.markNonMergeable(t)
		case !m.spec.IncludePrimaryDex && m.dex != nil && m.dex.UnitOf(t) == 0:
			m.markNonMergeable(t)
		}
	}

	m.scanTypeLikeStrings(scope)
}

func (m *Model) underAnyRoot(t typeuniv.TypeID, roots map[typeuniv.TypeID]struct{}) bool {
	for cur := t; cur.IsValid(); {
		if _, ok := roots[cur]; ok {
			return true
		}
		cls := m.universe.Get(cur)
		if cls == nil {
			return false
		}
		cur = cls.Super
	}
	return false
}

func (m *Model) nearestRetainedAncestor(t typeuniv.TypeID) typeuniv.TypeID {
	cls := m.universe.Get(t)
	for cur := cls.Super; cur.IsValid(); {
		if _, ok := m.inModel[cur]; ok {
			return cur
		}
		sup := m.universe.Get(cur)
		if sup == nil {
			break
		}
		cur = sup.Super
	}
	// Roots are always retained, so reaching here means the super chain
	// left the scope; anchor under the first root.
	return m.roots[0]
}

func (m *Model) excludedByConfig(t typeuniv.TypeID, cls *typeuniv.Class) bool {
	if slices.Contains(m.spec.ExcludeTypes, t) {
		return true
	}
	for _, prefix := range m.spec.ExcludePrefixes {
		if strings.HasPrefix(cls.Name, prefix) {
			return true
		}
	}
	return false
}

func (m *Model) markNonMergeable(t typeuniv.TypeID) {
	if _, ok := m.nonMergeable[t]; ok {
		return
	}
	m.nonMergeable[t] = struct{}{}
	m.stats.NonMergeables++
}

// scanTypeLikeStrings disqualifies model types referenced by type-name-like
// string constants anywhere in scope, unless the policy rewrites such
// literals or the targets are generated code with assumed reflection safety.
func (m *Model) scanTypeLikeStrings(scope []typeuniv.TypeID) {
	if m.spec.ReplaceTypeLikeStrings() || m.spec.IsGeneratedCode {
		return
	}
	for _, t := range scope {
		cls := m.universe.Get(t)
		if cls == nil {
			continue
		}
		for i := range cls.Methods {
			for _, instr := range cls.Methods[i].Body {
				if instr.Op != "const-string" || instr.Ref == "" {
					continue
				}
				ref, ok := m.universe.ByName(instr.Ref)
				if !ok {
					continue
				}
				if _, inModel := m.inModel[ref]; inModel {
					m.markNonMergeable(ref)
				}
			}
		}
	}
}

// buildInterfaceMaps records, per retained class, the transitively
// implemented interfaces, and the reverse map.
func (m *Model) buildInterfaceMaps() {
	ids := make([]typeuniv.TypeID, 0, len(m.inModel))
	for t := range m.inModel {
		ids = append(ids, t)
	}
	slices.Sort(ids)
	for _, t := range ids {
		intfs := m.collectInterfaces(t)
		if len(intfs) == 0 {
			continue
		}
		m.classToIntfs[t] = intfs
		for _, intf := range intfs {
			m.intfToClasses[intf] = append(m.intfToClasses[intf], t)
		}
	}
}

func (m *Model) collectInterfaces(t typeuniv.TypeID) []typeuniv.TypeID {
	seen := make(map[typeuniv.TypeID]struct{})
	var out []typeuniv.TypeID
	var add func(typeuniv.TypeID)
	add = func(intf typeuniv.TypeID) {
		if _, ok := seen[intf]; ok {
			return
		}
		seen[intf] = struct{}{}
		out = append(out, intf)
		if cls := m.universe.Get(intf); cls != nil {
			for _, super := range cls.Interfaces {
				add(super)
			}
		}
	}
	for cur := t; cur.IsValid(); {
		cls := m.universe.Get(cur)
		if cls == nil {
			break
		}
		for _, intf := range cls.Interfaces {
			add(intf)
		}
		cur = cls.Super
	}
	slices.Sort(out)
	return out
}

// shapeModel classifies the mergeable candidates under every root by
// interface contract and shape, approximates shapes when the policy allows,
// partitions each group by deployment constraints, and synthesizes a merger
// per surviving bucket.
func (m *Model) shapeModel() {
	for _, root := range m.roots {
		m.shapeRoot(root)
	}
}

type shapeGroup struct {
	intfKey string
	intfs   []typeuniv.TypeID
	group   shape.Group
}

func (m *Model) shapeRoot(root typeuniv.TypeID) {
	var groups []*shapeGroup
	index := make(map[string]*shapeGroup)

	visit := func(t typeuniv.TypeID) {
		if !m.isCandidate(t) {
			return
		}
		sh := shape.Of(m.universe.Get(t).InstanceFields())
		intfs := m.classToIntfs[t]
		key := intfSetKey(intfs) + "|" + sh.Key()
		g, ok := index[key]
		if !ok {
			g = &shapeGroup{intfKey: intfSetKey(intfs), intfs: intfs, group: shape.Group{Shape: sh}}
			index[key] = g
			groups = append(groups, g)
		}
		g.group.Types = append(g.group.Types, t)
	}
	// Subtree visit follows hierarchy (declaration) order, which keeps
	// grouping deterministic.
	for _, child := range m.hier.Children(root) {
		m.visitSubtree(child, visit)
	}

	// Approximate within one interface contract only: padding never crosses
	// dispatch boundaries.
	byIntf := make(map[string][]shape.Group)
	var intfOrder []string
	intfSets := make(map[string][]typeuniv.TypeID)
	for _, g := range groups {
		if _, ok := byIntf[g.intfKey]; !ok {
			intfOrder = append(intfOrder, g.intfKey)
			intfSets[g.intfKey] = g.intfs
		}
		byIntf[g.intfKey] = append(byIntf[g.intfKey], g.group)
	}

	for _, key := range intfOrder {
		approxed, astats := shape.Approximate(byIntf[key], m.spec.Approx, m.spec.MaxCount)
		m.stats.Approx.Merge(astats)
		for _, g := range approxed {
			m.partitionGroup(intfSets[key], g)
		}
	}
}

// visitSubtree runs fn on every node of the subtree rooted at t, children
// before the node itself.
func (m *Model) visitSubtree(t typeuniv.TypeID, fn func(typeuniv.TypeID)) {
	for _, child := range m.hier.Children(t) {
		m.visitSubtree(child, fn)
	}
	fn(t)
}

func (m *Model) isCandidate(t typeuniv.TypeID) bool {
	if m.hier.HasChildren(t) {
		return false
	}
	if _, scaffold := m.scaffolds[t]; scaffold {
		return false
	}
	if _, excluded := m.excluded[t]; excluded {
		return false
	}
	if _, bad := m.nonMergeable[t]; bad {
		return false
	}
	if m.targets != nil {
		if _, ok := m.targets[t]; !ok {
			return false
		}
	}
	cls := m.universe.Get(t)
	return cls != nil && !cls.IsInterface
}

func intfSetKey(intfs []typeuniv.TypeID) string {
	var b strings.Builder
	for _, intf := range intfs {
		b.WriteString(strconv.FormatUint(uint64(intf), 10))
		b.WriteByte(',')
	}
	return b.String()
}

func (m *Model) partitionGroup(intfs []typeuniv.TypeID, g shape.Group) {
	res := interdex.Partition(g.Types, interdex.Options{
		Mode:     m.spec.Grouping,
		PerDex:   m.spec.PerDexGrouping,
		MinCount: m.spec.MinCount,
		MaxCount: m.spec.MaxCount,
		Oracle:   m.oracle,
		Dex:      m.dex,
	})
	for _, t := range res.Dropped {
		m.markDropped(t)
	}
	for _, bucket := range res.Buckets {
		m.createMerger(intfs, g.Shape, bucket)
	}
}

// markDropped routes a type whose bucket dissolved to the non-mergeable set.
// Dropped is counted separately from structural non-mergeables.
func (m *Model) markDropped(t typeuniv.TypeID) {
	if _, ok := m.nonMergeable[t]; !ok {
		m.nonMergeable[t] = struct{}{}
	}
	m.stats.Dropped++
}

func (m *Model) createMerger(intfs []typeuniv.TypeID, sh shape.Shape, bucket interdex.Bucket) {
	parent := m.nearestCommonAncestor(bucket.Types)
	ordinal := m.shapeOrdinals[sh.Key()]
	m.shapeOrdinals[sh.Key()]++

	id := m.allocTypeID()
	mg := &MergerType{
		Type:       id,
		Shape:      sh,
		Parent:     parent,
		Interfaces: intfs,
		Ctor:       ctorStrategyFor(m.spec.TypeTag),
		Interdex:   bucket.Interdex,
		Dex:        bucket.Dex,
		Slice:      bucket.Slice,
		ordinal:    ordinal,
	}
	m.mergers[id] = mg
	m.mergerOrder = append(m.mergerOrder, id)
	m.hier.SetParentChild(parent, id)

	for _, t := range bucket.Types {
		m.foldIntoMerger(mg, t)
	}
	m.stats.GeneratedClasses++
	m.stats.ClassesMerged += mustU32(len(bucket.Types))
	if bucket.Interdex != nil {
		m.stats.addInterdex(*bucket.Interdex, mustU32(len(bucket.Types)))
	}
}

// foldIntoMerger is the single mutation point moving a child out of the
// hierarchy and into a merger's mergeable set. Remove and insert form one
// atomic step so the hierarchy and parent maps never desynchronize.
func (m *Model) foldIntoMerger(mg *MergerType, t typeuniv.TypeID) {
	parent, ok := m.hier.Parent(t)
	if !ok {
		panic("model: folding a type with no recorded parent")
	}
	m.origParent[t] = parent
	m.hier.RemoveChild(t)
	mg.Mergeables = append(mg.Mergeables, t)
}

func (m *Model) nearestCommonAncestor(types []typeuniv.TypeID) typeuniv.TypeID {
	chain := m.parentChain(types[0])
	for _, t := range types[1:] {
		depth := make(map[typeuniv.TypeID]struct{}, len(chain))
		for _, a := range chain {
			depth[a] = struct{}{}
		}
		var trimmed []typeuniv.TypeID
		for cur, ok := m.hier.Parent(t); ok; cur, ok = m.hier.Parent(cur) {
			if _, shared := depth[cur]; shared {
				// Keep the shared suffix of the first chain.
				for i, a := range chain {
					if a == cur {
						trimmed = chain[i:]
						break
					}
				}
				break
			}
		}
		if trimmed == nil {
			trimmed = chain[len(chain)-1:]
		}
		chain = trimmed
	}
	return chain[0]
}

func (m *Model) parentChain(t typeuniv.TypeID) []typeuniv.TypeID {
	var out []typeuniv.TypeID
	for cur, ok := m.hier.Parent(t); ok; cur, ok = m.hier.Parent(cur) {
		out = append(out, cur)
	}
	return out
}

func mustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}
