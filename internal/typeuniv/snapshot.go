package typeuniv

import (
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

func safeLen(n int) (uint32, error) {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, fmt.Errorf("typeuniv: snapshot too large: %w", err)
	}
	return v, nil
}

// Current schema version - increment when the snapshot format changes.
const snapshotSchemaVersion uint16 = 1

type snapshotClass struct {
	Name        string
	Super       string
	Interfaces  []string
	IsInterface bool
	External    bool
	Fields      []Field
	Methods     []Method
}

type snapshotPayload struct {
	Schema  uint16
	Classes []snapshotClass
}

// WriteSnapshot serializes the universe to path. The write is atomic: the
// payload goes to a temp file that replaces path on success.
func WriteSnapshot(path string, u *Universe) error {
	if u == nil {
		return fmt.Errorf("typeuniv: nil universe")
	}
	payload := snapshotPayload{
		Schema:  snapshotSchemaVersion,
		Classes: make([]snapshotClass, 0, u.Len()),
	}
	for _, id := range u.Scope() {
		cls := u.Get(id)
		sc := snapshotClass{
			Name:        cls.Name,
			IsInterface: cls.IsInterface,
			External:    cls.External,
			Fields:      cls.Fields,
			Methods:     cls.Methods,
		}
		if cls.Super.IsValid() {
			sc.Super = u.Name(cls.Super)
		}
		for _, intf := range cls.Interfaces {
			sc.Interfaces = append(sc.Interfaces, u.Name(intf))
		}
		payload.Classes = append(payload.Classes, sc)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// LoadSnapshot reads a universe snapshot written by WriteSnapshot. Link
// targets (super, interfaces) are resolved by name in a second pass so
// forward references in the dump are fine.
func LoadSnapshot(path string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var payload snapshotPayload
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: failed to decode snapshot: %w", path, err)
	}
	if payload.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("%s: snapshot schema %d, want %d", path, payload.Schema, snapshotSchemaVersion)
	}

	count, err := safeLen(len(payload.Classes))
	if err != nil {
		return nil, err
	}
	u := NewUniverse(count)
	for i := range payload.Classes {
		sc := &payload.Classes[i]
		u.Define(&Class{
			Name:        sc.Name,
			IsInterface: sc.IsInterface,
			External:    sc.External,
			Fields:      sc.Fields,
			Methods:     sc.Methods,
		})
	}
	for i := range payload.Classes {
		sc := &payload.Classes[i]
		id, _ := u.ByName(sc.Name)
		cls := u.Get(id)
		if sc.Super != "" {
			super, ok := u.ByName(sc.Super)
			if !ok {
				return nil, fmt.Errorf("%s: %s extends unknown type %s", path, sc.Name, sc.Super)
			}
			cls.Super = super
		}
		for _, name := range sc.Interfaces {
			intf, ok := u.ByName(name)
			if !ok {
				return nil, fmt.Errorf("%s: %s implements unknown type %s", path, sc.Name, name)
			}
			cls.Interfaces = append(cls.Interfaces, intf)
		}
	}
	return u, nil
}
