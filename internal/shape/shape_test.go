package shape

import (
	"testing"

	"clsmerge/internal/typeuniv"
)

func TestOfSkipsStaticsKeepsOrder(t *testing.T) {
	fields := []typeuniv.Field{
		{Name: "a", Kind: typeuniv.FieldInt},
		{Name: "s", Kind: typeuniv.FieldLong, Static: true},
		{Name: "b", Kind: typeuniv.FieldRef},
		{Name: "c", Kind: typeuniv.FieldString},
	}
	sh := Of(fields)
	want := FromKinds(typeuniv.FieldInt, typeuniv.FieldRef, typeuniv.FieldString)
	if !sh.Equal(want) {
		t.Fatalf("Of() = %s, want %s", sh, want)
	}
}

func TestOrderDistinguishesShapes(t *testing.T) {
	a := FromKinds(typeuniv.FieldInt, typeuniv.FieldRef)
	b := FromKinds(typeuniv.FieldRef, typeuniv.FieldInt)
	if a.Equal(b) {
		t.Fatal("shapes with reordered categories must differ")
	}
	if a.Key() == b.Key() {
		t.Fatalf("keys collide: %q", a.Key())
	}
}

func TestKeyLetters(t *testing.T) {
	sh := FromKinds(
		typeuniv.FieldBool, typeuniv.FieldInt, typeuniv.FieldLong,
		typeuniv.FieldFloat, typeuniv.FieldDouble, typeuniv.FieldString,
		typeuniv.FieldRef, typeuniv.FieldArray,
	)
	if got := sh.Key(); got != "ZIJFDSLA" {
		t.Fatalf("Key() = %q, want ZIJFDSLA", got)
	}
}

func TestIsPrefixOf(t *testing.T) {
	small := FromKinds(typeuniv.FieldInt, typeuniv.FieldRef)
	large := FromKinds(typeuniv.FieldInt, typeuniv.FieldRef, typeuniv.FieldLong)
	if !small.IsPrefixOf(large) {
		t.Fatal("leading subsequence not recognized")
	}
	if large.IsPrefixOf(small) {
		t.Fatal("longer shape cannot be a prefix of a shorter one")
	}
	if !small.IsPrefixOf(small) {
		t.Fatal("a shape is a prefix of itself")
	}
	other := FromKinds(typeuniv.FieldRef, typeuniv.FieldInt, typeuniv.FieldLong)
	if small.IsPrefixOf(other) {
		t.Fatal("mismatched leading categories accepted as prefix")
	}
}

func TestDescriptorCountsFixedOrder(t *testing.T) {
	sh := FromKinds(
		typeuniv.FieldInt, typeuniv.FieldInt,
		typeuniv.FieldRef,
		typeuniv.FieldString,
	)
	// Order: string, ref, array, bool, int, long, double, float.
	if got := sh.Descriptor(); got != "11002000" {
		t.Fatalf("Descriptor() = %q, want 11002000", got)
	}
}

func TestStringRendering(t *testing.T) {
	sh := FromKinds(typeuniv.FieldInt, typeuniv.FieldRef)
	if got := sh.String(); got != "(int,ref)" {
		t.Fatalf("String() = %q, want (int,ref)", got)
	}
}
