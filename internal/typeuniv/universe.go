// Package typeuniv holds the read-only snapshot of the class hierarchy the
// merging analysis runs against. Types live in a compact slice arena keyed by
// TypeID; the snapshot is never mutated once a model build starts, so
// concurrent model builds may share one Universe.
package typeuniv

import (
	"fmt"

	"fortio.org/safecast"
)

// Class describes one class or interface of the application under analysis.
type Class struct {
	Name       string
	Super      TypeID
	Interfaces []TypeID
	// IsInterface distinguishes interfaces from classes.
	IsInterface bool
	// External marks types defined outside the optimizable scope. External
	// types are never mergeable.
	External bool
	Fields   []Field
	Methods  []Method
}

// InstanceFields returns the declared non-static fields in declaration order.
func (c *Class) InstanceFields() []Field {
	out := make([]Field, 0, len(c.Fields))
	for _, f := range c.Fields {
		if !f.Static {
			out = append(out, f)
		}
	}
	return out
}

// HasNativeMethods reports whether any declared method is native.
func (c *Class) HasNativeMethods() bool {
	for i := range c.Methods {
		if c.Methods[i].Native {
			return true
		}
	}
	return false
}

// HasEagerStatics reports whether any static field carries a side-effecting
// initializer.
func (c *Class) HasEagerStatics() bool {
	for i := range c.Fields {
		if c.Fields[i].Static && c.Fields[i].EagerInit {
			return true
		}
	}
	return false
}

// Universe stores all known types in a compact slice-based arena.
type Universe struct {
	data   []Class
	byName map[string]TypeID
}

// NewUniverse creates an arena with optional capacity hint.
func NewUniverse(capacity uint32) *Universe {
	if capacity == 0 {
		capacity = 64
	}
	return &Universe{
		data:   make([]Class, 1, capacity+1), // index 0 reserved for NoTypeID
		byName: make(map[string]TypeID, capacity),
	}
}

// Define allocates a class in the arena and returns its ID. Duplicate names
// and arena overflow indicate a corrupt snapshot and abort the run.
func (u *Universe) Define(cls *Class) TypeID {
	if cls == nil {
		panic("typeuniv.Define: nil class")
	}
	if _, ok := u.byName[cls.Name]; ok {
		panic(fmt.Errorf("typeuniv: duplicate type %q", cls.Name))
	}
	value, err := safecast.Conv[uint32](len(u.data))
	if err != nil {
		panic(fmt.Errorf("typeuniv arena overflow: %w", err))
	}
	id := TypeID(value)
	u.data = append(u.data, *cls)
	u.byName[cls.Name] = id
	return id
}

// Get returns the class pointer or nil for an invalid ID.
func (u *Universe) Get(id TypeID) *Class {
	if !id.IsValid() || int(id) >= len(u.data) {
		return nil
	}
	return &u.data[id]
}

// ByName resolves a type name to its ID.
func (u *Universe) ByName(name string) (TypeID, bool) {
	id, ok := u.byName[name]
	return id, ok
}

// Name returns the type name or a stable placeholder for invalid IDs.
func (u *Universe) Name(id TypeID) string {
	if c := u.Get(id); c != nil {
		return c.Name
	}
	return fmt.Sprintf("type#%d", id)
}

// Len reports the number of stored types excluding the sentinel.
func (u *Universe) Len() int { return len(u.data) - 1 }

// Scope returns every allocated TypeID in declaration order.
func (u *Universe) Scope() []TypeID {
	out := make([]TypeID, 0, u.Len())
	for i := 1; i < len(u.data); i++ {
		out = append(out, TypeID(i))
	}
	return out
}

// IsSubtypeOf reports whether t transitively extends ancestor via the super
// chain. A type is a subtype of itself.
func (u *Universe) IsSubtypeOf(t, ancestor TypeID) bool {
	for cur := t; cur.IsValid(); {
		if cur == ancestor {
			return true
		}
		cls := u.Get(cur)
		if cls == nil {
			return false
		}
		cur = cls.Super
	}
	return false
}

// ResolveVirtual finds the implementation of sig on t, walking the super
// chain when t declares no override. Returns the owner type and the method,
// or NoTypeID when no ancestor implements the signature.
func (u *Universe) ResolveVirtual(t TypeID, sig MethodSig) (TypeID, *Method) {
	for cur := t; cur.IsValid(); {
		cls := u.Get(cur)
		if cls == nil {
			return NoTypeID, nil
		}
		for i := range cls.Methods {
			m := &cls.Methods[i]
			if m.Virtual && m.Name == sig.Name && m.Proto == sig.Proto {
				return cur, m
			}
		}
		cur = cls.Super
	}
	return NoTypeID, nil
}
