package typeuniv

// Instr is one instruction of a method body in body-equality comparable form.
// The analysis never interprets instructions; it only compares them.
type Instr struct {
	// Op is the opcode mnemonic.
	Op string
	// Ref is a symbolic operand naming a type, field or method, empty when
	// the instruction has no symbolic operand.
	Ref string
	// Lit is a constant literal operand, meaningful only when HasLit is set.
	Lit    int64
	HasLit bool
}

// MethodSig identifies a method independent of its owner.
type MethodSig struct {
	Name  string
	Proto string
}

func (s MethodSig) String() string { return s.Name + s.Proto }

// Method is a declared method with a comparable body.
type Method struct {
	Name  string
	Proto string
	// Virtual marks instance methods participating in dynamic dispatch.
	Virtual bool
	// Ctor marks instance constructors.
	Ctor   bool
	Static bool
	Native bool
	Body   []Instr
}

// Sig returns the owner-independent signature of the method.
func (m *Method) Sig() MethodSig { return MethodSig{Name: m.Name, Proto: m.Proto} }

// BodiesEqual reports whether two bodies are the same instruction sequence
// modulo operands that name the respective owner type. Two empty bodies are
// equal; a nil body is only equal to another nil body, never to an empty one.
func BodiesEqual(a, b []Instr, ownerA, ownerB string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !instrEqual(a[i], b[i], ownerA, ownerB) {
			return false
		}
	}
	return true
}

func instrEqual(a, b Instr, ownerA, ownerB string) bool {
	if a.Op != b.Op || a.HasLit != b.HasLit {
		return false
	}
	if a.HasLit && a.Lit != b.Lit {
		return false
	}
	if a.Ref == b.Ref {
		return true
	}
	// Receiver-type-sensitive operand: each body referring to its own owner
	// still counts as the same instruction.
	return a.Ref == ownerA && b.Ref == ownerB
}

// BodiesEqualModuloConsts reports whether two bodies have identical opcode
// and reference sequences (modulo owner, as in BodiesEqual) and differ at
// most in constant literal operands. Positions that differ must carry
// literals in both bodies.
func BodiesEqualModuloConsts(a, b []Instr, ownerA, ownerB string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ai, bi := a[i], b[i]
		if ai.Op != bi.Op || ai.HasLit != bi.HasLit {
			return false
		}
		if ai.Ref != bi.Ref && !(ai.Ref == ownerA && bi.Ref == ownerB) {
			return false
		}
		if !ai.HasLit && instrEqual(ai, bi, ownerA, ownerB) {
			continue
		}
		if !ai.HasLit {
			return false
		}
	}
	return true
}
