package model

import (
	"fmt"
	"slices"

	"clsmerge/internal/typeuniv"
)

// constLiftMaxLen bounds the body length of accessor-style methods eligible
// for constant lifting.
const constLiftMaxLen = 8

// collectMethods distributes every method signature of every merger:
// identical bodies dedupe into one shared implementation, divergent bodies
// become a tag dispatcher, and divergence without a tag demotes the
// offending members (correctness over merge ratio).
func (m *Model) collectMethods() {
	for _, id := range slices.Clone(m.mergerOrder) {
		mg := m.mergers[id]
		if mg == nil {
			continue
		}
		m.distributeMerger(mg)
	}
}

func (m *Model) distributeMerger(mg *MergerType) {
	for {
		demoted := m.distributeOnce(mg)
		if !demoted {
			return
		}
		// Demotion re-enters distribution with the reduced membership; a
		// membership below the minimum dissolves the whole bucket.
		if len(mg.Mergeables) < m.spec.MinCount {
			m.dissolveMerger(mg)
			return
		}
	}
}

// distDelta holds dedup counters pending until a distribution pass commits
// without demotions.
type distDelta struct {
	ctors   uint32
	statics uint32
	vmeths  uint32
	lifted  uint32
}

// resolvedImpl is one row of the per-signature resolution table: the member,
// the class whose declaration provides the body, and the body itself (nil
// when no ancestor implements the signature).
type resolvedImpl struct {
	member typeuniv.TypeID
	owner  typeuniv.TypeID
	method *typeuniv.Method
}

func (m *Model) distributeOnce(mg *MergerType) bool {
	mg.Shared, mg.Dispatch, mg.SharedCtors, mg.CtorDispatch = nil, nil, nil, nil
	var delta distDelta

	for _, sig := range m.signatureSet(mg, sigVirtual) {
		impls := m.resolveVirtuals(mg, sig)
		if demoted := m.distributeVirtual(mg, sig, impls, &delta); demoted {
			return true
		}
	}
	for _, sig := range m.signatureSet(mg, sigCtor) {
		impls := m.resolveDeclared(mg, sig, sigCtor)
		if demoted := m.distributeCtor(mg, sig, impls, &delta); demoted {
			return true
		}
	}
	for _, sig := range m.signatureSet(mg, sigStatic) {
		impls := m.resolveDeclared(mg, sig, sigStatic)
		m.dedupeStatic(mg, sig, impls, &delta)
	}

	m.stats.CtorsDedupped += delta.ctors
	m.stats.StaticNonVirtDedupped += delta.statics
	m.stats.VMethodsDedupped += delta.vmeths
	m.stats.ConstLiftedMethods += delta.lifted
	return false
}

type sigKind uint8

const (
	sigVirtual sigKind = iota
	sigCtor
	sigStatic
)

func methodKind(method *typeuniv.Method) sigKind {
	switch {
	case method.Ctor:
		return sigCtor
	case method.Virtual:
		return sigVirtual
	default:
		return sigStatic
	}
}

// signatureSet returns the signatures of the given kind declared by any
// member, in first-seen declaration order.
func (m *Model) signatureSet(mg *MergerType, kind sigKind) []typeuniv.MethodSig {
	var out []typeuniv.MethodSig
	seen := make(map[typeuniv.MethodSig]struct{})
	for _, t := range mg.Mergeables {
		cls := m.universe.Get(t)
		for i := range cls.Methods {
			method := &cls.Methods[i]
			if methodKind(method) != kind {
				continue
			}
			sig := method.Sig()
			if _, ok := seen[sig]; ok {
				continue
			}
			seen[sig] = struct{}{}
			out = append(out, sig)
		}
	}
	return out
}

// resolveVirtuals builds the resolution table for a virtual signature: a
// member without its own override inherits the nearest ancestor's body.
func (m *Model) resolveVirtuals(mg *MergerType, sig typeuniv.MethodSig) []resolvedImpl {
	impls := make([]resolvedImpl, 0, len(mg.Mergeables))
	for _, t := range mg.Mergeables {
		owner, method := m.universe.ResolveVirtual(t, sig)
		impls = append(impls, resolvedImpl{member: t, owner: owner, method: method})
	}
	return impls
}

// resolveDeclared resolves ctor and static/direct signatures, which never
// inherit.
func (m *Model) resolveDeclared(mg *MergerType, sig typeuniv.MethodSig, kind sigKind) []resolvedImpl {
	impls := make([]resolvedImpl, 0, len(mg.Mergeables))
	for _, t := range mg.Mergeables {
		row := resolvedImpl{member: t}
		cls := m.universe.Get(t)
		for i := range cls.Methods {
			method := &cls.Methods[i]
			if methodKind(method) == kind && method.Name == sig.Name && method.Proto == sig.Proto {
				row.owner = t
				row.method = method
				break
			}
		}
		impls = append(impls, row)
	}
	return impls
}

// bodyClasses partitions the resolution table into body-equality classes,
// first-seen order. Absent implementations form their own class.
func (m *Model) bodyClasses(impls []resolvedImpl) [][]int {
	var classes [][]int
	for i := range impls {
		placed := false
		for ci, class := range classes {
			if m.implsEqual(impls[class[0]], impls[i]) {
				classes[ci] = append(classes[ci], i)
				placed = true
				break
			}
		}
		if !placed {
			classes = append(classes, []int{i})
		}
	}
	return classes
}

func (m *Model) implsEqual(a, b resolvedImpl) bool {
	if (a.method == nil) != (b.method == nil) {
		return false
	}
	if a.method == nil {
		return true
	}
	return typeuniv.BodiesEqual(a.method.Body, b.method.Body,
		m.universe.Name(a.owner), m.universe.Name(b.owner))
}

func (m *Model) distributeVirtual(mg *MergerType, sig typeuniv.MethodSig, impls []resolvedImpl, delta *distDelta) bool {
	classes := m.bodyClasses(impls)
	if len(classes) == 1 {
		if impls[0].method == nil {
			return false
		}
		mg.Shared = append(mg.Shared, sharedFrom(sig, impls))
		delta.vmeths += mustU32(len(impls) - 1)
		return false
	}

	if table, ok := m.liftConsts(impls); ok {
		mg.Shared = append(mg.Shared, SharedMethod{
			Sig:        sig,
			Owner:      impls[0].owner,
			Targets:    membersOf(impls),
			ConstTable: table,
		})
		delta.lifted += mustU32(len(impls))
		return false
	}

	if m.spec.HasTypeTag() && m.withinDispatchCeiling(len(impls)) {
		mg.Dispatch = append(mg.Dispatch, dispatcherFrom(sig, impls))
		return false
	}

	m.demoteMinority(mg, classes, impls)
	return true
}

func (m *Model) distributeCtor(mg *MergerType, sig typeuniv.MethodSig, impls []resolvedImpl, delta *distDelta) bool {
	classes := m.bodyClasses(impls)
	if len(classes) == 1 {
		if impls[0].method == nil {
			return false
		}
		mg.SharedCtors = append(mg.SharedCtors, sharedFrom(sig, impls))
		delta.ctors += mustU32(len(impls) - 1)
		return false
	}
	if m.spec.HasTypeTag() && m.withinDispatchCeiling(len(impls)) {
		mg.CtorDispatch = append(mg.CtorDispatch, dispatcherFrom(sig, impls))
		return false
	}
	m.demoteMinority(mg, classes, impls)
	return true
}

// dedupeStatic folds identical static/direct bodies. Divergent statics stay
// as distinct per-type methods; they need no tag and force no demotion.
func (m *Model) dedupeStatic(mg *MergerType, sig typeuniv.MethodSig, impls []resolvedImpl, delta *distDelta) {
	classes := m.bodyClasses(impls)
	if len(classes) != 1 || impls[0].method == nil {
		return
	}
	mg.Shared = append(mg.Shared, sharedFrom(sig, impls))
	delta.statics += mustU32(len(impls) - 1)
}

// liftConsts recognizes bodies identical up to constant literals in short
// accessor-style methods and produces the per-type constant table consulted
// by the shared body.
func (m *Model) liftConsts(impls []resolvedImpl) ([]ConstEntry, bool) {
	first := impls[0]
	if first.method == nil || len(first.method.Body) == 0 || len(first.method.Body) > constLiftMaxLen {
		return nil, false
	}
	for _, impl := range impls[1:] {
		if impl.method == nil {
			return nil, false
		}
		if !typeuniv.BodiesEqualModuloConsts(first.method.Body, impl.method.Body,
			m.universe.Name(first.owner), m.universe.Name(impl.owner)) {
			return nil, false
		}
	}
	table := make([]ConstEntry, 0, len(impls))
	for _, impl := range impls {
		table = append(table, ConstEntry{Owner: impl.member, Value: firstLiteral(impl.method.Body)})
	}
	return table, true
}

func firstLiteral(body []typeuniv.Instr) int64 {
	for _, instr := range body {
		if instr.HasLit {
			return instr.Lit
		}
	}
	return 0
}

func (m *Model) withinDispatchCeiling(targets int) bool {
	return m.spec.MaxDispatchTargets <= 0 || targets <= m.spec.MaxDispatchTargets
}

// demoteMinority keeps the largest body-equality class (ties go to the
// earliest) and demotes every other member back to non-mergeable.
func (m *Model) demoteMinority(mg *MergerType, classes [][]int, impls []resolvedImpl) {
	keep := 0
	for ci := 1; ci < len(classes); ci++ {
		if len(classes[ci]) > len(classes[keep]) {
			keep = ci
		}
	}
	for ci, class := range classes {
		if ci == keep {
			continue
		}
		for _, i := range class {
			m.demote(mg, impls[i].member)
		}
	}
}

// demote is the inverse of foldIntoMerger: the member leaves the merger and
// re-attaches under its original parent as a non-mergeable type.
func (m *Model) demote(mg *MergerType, t typeuniv.TypeID) {
	idx := slices.Index(mg.Mergeables, t)
	if idx < 0 {
		panic(fmt.Errorf("model: demoting %d which is not in merger %d", t, mg.Type))
	}
	mg.Mergeables = slices.Delete(mg.Mergeables, idx, idx+1)
	m.hier.SetParentChild(m.origParent[t], t)
	if _, ok := m.nonMergeable[t]; !ok {
		m.nonMergeable[t] = struct{}{}
	}
	m.stats.Dropped++
	m.stats.ClassesMerged--
	if mg.Interdex != nil {
		m.stats.InterdexGroups[*mg.Interdex]--
	}
}

// dissolveMerger demotes every remaining member and removes the merger node.
func (m *Model) dissolveMerger(mg *MergerType) {
	for _, t := range slices.Clone(mg.Mergeables) {
		m.demote(mg, t)
	}
	m.hier.RemoveChild(mg.Type)
	delete(m.mergers, mg.Type)
	m.stats.GeneratedClasses--
}

func sharedFrom(sig typeuniv.MethodSig, impls []resolvedImpl) SharedMethod {
	return SharedMethod{Sig: sig, Owner: impls[0].owner, Targets: membersOf(impls)}
}

func dispatcherFrom(sig typeuniv.MethodSig, impls []resolvedImpl) Dispatcher {
	cases := make([]DispatchCase, 0, len(impls))
	for _, impl := range impls {
		if impl.method == nil {
			continue
		}
		cases = append(cases, DispatchCase{Owner: impl.member})
	}
	return Dispatcher{Sig: sig, Cases: cases}
}

func membersOf(impls []resolvedImpl) []typeuniv.TypeID {
	out := make([]typeuniv.TypeID, 0, len(impls))
	for _, impl := range impls {
		out = append(out, impl.member)
	}
	return out
}
