package typeuniv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func testUniverse(t *testing.T) *Universe {
	t.Helper()
	u := NewUniverse(0)
	runnable := u.Define(&Class{Name: "LRunnable;", IsInterface: true})
	base := u.Define(&Class{
		Name: "LBase;",
		Methods: []Method{
			{Name: "toString", Proto: "()Ljava/lang/String;", Virtual: true, Body: []Instr{{Op: "return"}}},
		},
	})
	u.Define(&Class{
		Name:       "LSub;",
		Super:      base,
		Interfaces: []TypeID{runnable},
		Fields: []Field{
			{Name: "count", Kind: FieldInt},
			{Name: "next", Kind: FieldRef},
			{Name: "shared", Kind: FieldInt, Static: true, EagerInit: true},
		},
	})
	return u
}

func TestSnapshotRoundTrip(t *testing.T) {
	u := testUniverse(t)
	path := filepath.Join(t.TempDir(), "universe.bin")

	if err := WriteSnapshot(path, u); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if loaded.Len() != u.Len() {
		t.Fatalf("loaded %d types, want %d", loaded.Len(), u.Len())
	}
	sub, ok := loaded.ByName("LSub;")
	if !ok {
		t.Fatal("LSub; missing after round trip")
	}
	cls := loaded.Get(sub)
	if loaded.Name(cls.Super) != "LBase;" {
		t.Fatalf("LSub; super = %q, want LBase;", loaded.Name(cls.Super))
	}
	if len(cls.Interfaces) != 1 || loaded.Name(cls.Interfaces[0]) != "LRunnable;" {
		t.Fatalf("LSub; interfaces = %v", cls.Interfaces)
	}
	if len(cls.Fields) != 3 || cls.Fields[0].Kind != FieldInt || !cls.Fields[2].EagerInit {
		t.Fatalf("LSub; fields corrupted: %+v", cls.Fields)
	}
	base, _ := loaded.ByName("LBase;")
	if got := loaded.Get(base).Methods; len(got) != 1 || !got[0].Virtual {
		t.Fatalf("LBase; methods corrupted: %+v", got)
	}
}

func TestSnapshotMissingFile(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.bin")); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}

func TestSnapshotRejectsWrongSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.bin")
	payload := snapshotPayload{Schema: snapshotSchemaVersion + 1}
	data, err := msgpack.Marshal(&payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}

func TestSnapshotRejectsUnknownSuper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dangling.bin")
	payload := snapshotPayload{
		Schema:  snapshotSchemaVersion,
		Classes: []snapshotClass{{Name: "LOrphan;", Super: "LMissing;"}},
	}
	data, err := msgpack.Marshal(&payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Fatal("expected unknown super error")
	}
}
