package model

import (
	"fmt"
	"strings"

	"clsmerge/internal/typeuniv"
)

// Print renders the whole model, one line per node. The format is a contract
// for grep-based inspection and must stay stable:
//
//	+ TypeName type_info        retained hierarchy node, depth in '+' count
//	- ErasedName                merged member of the enclosing merger
//	-* kind fieldN              merger shape field
//	-# sig shared|dispatch(n)   merger method
//
// grep -e "^+* " isolates the hierarchy; adding "^-* " shows the erased
// members and their fields/methods.
func (m *Model) Print() string {
	var b strings.Builder
	for _, root := range m.roots {
		m.printNode(&b, root, 1)
	}
	return b.String()
}

func (m *Model) printNode(b *strings.Builder, t typeuniv.TypeID, depth int) {
	if mg := m.mergers[t]; mg != nil {
		m.printMerger(b, mg, depth)
	} else {
		m.printRetained(b, t, depth)
	}
	for _, child := range m.hier.Children(t) {
		m.printNode(b, child, depth+1)
	}
}

func (m *Model) printRetained(b *strings.Builder, t typeuniv.TypeID, depth int) {
	b.WriteString(strings.Repeat("+", depth))
	b.WriteByte(' ')
	b.WriteString(m.typeName(t))
	fmt.Fprintf(b, " children(%d), interfaces(%d)", len(m.hier.Children(t)), len(m.classToIntfs[t]))
	for _, intf := range m.classToIntfs[t] {
		b.WriteString(", ")
		b.WriteString(m.universe.Name(intf))
	}
	b.WriteByte('\n')
}

func (m *Model) printMerger(b *strings.Builder, mg *MergerType, depth int) {
	b.WriteString(strings.Repeat("+", depth))
	fmt.Fprintf(b, " %s mergeables(%d), shape%s\n", mg.Name, len(mg.Mergeables), mg.Shape.String())

	erased := strings.Repeat("-", depth)
	for _, t := range mg.Mergeables {
		b.WriteString(erased)
		b.WriteByte(' ')
		b.WriteString(m.universe.Name(t))
		b.WriteByte('\n')
	}
	for i, kind := range mg.Shape.Kinds() {
		fmt.Fprintf(b, "%s* %s field%d\n", erased, kind, i)
	}
	for _, sm := range mg.SharedCtors {
		fmt.Fprintf(b, "%s# %s shared\n", erased, sm.Sig)
	}
	for _, d := range mg.CtorDispatch {
		fmt.Fprintf(b, "%s# %s dispatch(%d)\n", erased, d.Sig, len(d.Cases))
	}
	for _, sm := range mg.Shared {
		fmt.Fprintf(b, "%s# %s shared\n", erased, sm.Sig)
	}
	for _, d := range mg.Dispatch {
		fmt.Fprintf(b, "%s# %s dispatch(%d)\n", erased, d.Sig, len(d.Cases))
	}
}
