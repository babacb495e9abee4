// Package hierarchy maintains the analysis-time view of the class tree: a
// child index and a parent index that must stay mutual inverses. The live
// class objects are never consulted once a model build starts, so this index
// is the single source of truth for parent/child relationships, including
// the ones the synthesizer rewrites.
package hierarchy

import (
	"fmt"
	"slices"

	"clsmerge/internal/typeuniv"
)

// Hierarchy is the double index. Children keep insertion order, which the
// builder feeds in declaration order, so every walk over the tree is
// deterministic.
type Hierarchy struct {
	children map[typeuniv.TypeID][]typeuniv.TypeID
	parents  map[typeuniv.TypeID]typeuniv.TypeID
}

// New creates an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{
		children: make(map[typeuniv.TypeID][]typeuniv.TypeID),
		parents:  make(map[typeuniv.TypeID]typeuniv.TypeID),
	}
}

// SetParentChild records child under parent. A child may have at most one
// parent; re-parenting without an intervening RemoveChild is an internal bug
// and aborts the run.
func (h *Hierarchy) SetParentChild(parent, child typeuniv.TypeID) {
	if !parent.IsValid() || !child.IsValid() {
		panic(fmt.Errorf("hierarchy: invalid edge %d -> %d", parent, child))
	}
	if prev, ok := h.parents[child]; ok {
		panic(fmt.Errorf("hierarchy: type %d already has parent %d", child, prev))
	}
	h.children[parent] = append(h.children[parent], child)
	h.parents[child] = parent
}

// RemoveChild detaches child from its parent and drops the parent's entry
// when its child set becomes empty. A remove against a desynchronized index
// aborts the run: a half-updated hierarchy must never reach the rewriter.
func (h *Hierarchy) RemoveChild(child typeuniv.TypeID) {
	parent, ok := h.parents[child]
	if !ok {
		panic(fmt.Errorf("hierarchy: remove of unparented type %d", child))
	}
	kids, ok := h.children[parent]
	if !ok {
		panic(fmt.Errorf("hierarchy: parent %d missing from child index", parent))
	}
	idx := slices.Index(kids, child)
	if idx < 0 {
		panic(fmt.Errorf("hierarchy: type %d not recorded under parent %d", child, parent))
	}
	kids = slices.Delete(kids, idx, idx+1)
	if len(kids) == 0 {
		delete(h.children, parent)
	} else {
		h.children[parent] = kids
	}
	delete(h.parents, child)
}

// Reparent atomically moves child under a new parent.
func (h *Hierarchy) Reparent(newParent, child typeuniv.TypeID) {
	h.RemoveChild(child)
	h.SetParentChild(newParent, child)
}

// Parent returns the recorded parent of child.
func (h *Hierarchy) Parent(child typeuniv.TypeID) (typeuniv.TypeID, bool) {
	p, ok := h.parents[child]
	return p, ok
}

// Children returns the ordered child set of parent. Callers must not mutate
// the returned slice.
func (h *Hierarchy) Children(parent typeuniv.TypeID) []typeuniv.TypeID {
	return h.children[parent]
}

// HasChildren reports whether parent has at least one recorded child.
func (h *Hierarchy) HasChildren(parent typeuniv.TypeID) bool {
	return len(h.children[parent]) > 0
}

// Contains reports whether t appears in the hierarchy as a parent or child.
func (h *Hierarchy) Contains(t typeuniv.TypeID) bool {
	if _, ok := h.parents[t]; ok {
		return true
	}
	_, ok := h.children[t]
	return ok
}

// Len reports the number of parent entries in the child index.
func (h *Hierarchy) Len() int { return len(h.children) }

// Validate checks the mutual-inverse property between the two indices:
// parents[c] == p iff c appears in children[p].
func (h *Hierarchy) Validate() error {
	for parent, kids := range h.children {
		if len(kids) == 0 {
			return fmt.Errorf("hierarchy: dangling empty entry for %d", parent)
		}
		for _, child := range kids {
			if got, ok := h.parents[child]; !ok || got != parent {
				return fmt.Errorf("hierarchy: child %d under %d but parent index says %d", child, parent, got)
			}
		}
	}
	for child, parent := range h.parents {
		if !slices.Contains(h.children[parent], child) {
			return fmt.Errorf("hierarchy: parent index has %d -> %d without child entry", child, parent)
		}
	}
	return nil
}
