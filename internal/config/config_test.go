package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clsmerge/internal/interdex"
	"clsmerge/internal/model"
	"clsmerge/internal/typeuniv"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func testUniverse(t *testing.T) *typeuniv.Universe {
	t.Helper()
	u := typeuniv.NewUniverse(0)
	u.Define(&typeuniv.Class{Name: "ItemBase"})
	base, _ := u.ByName("ItemBase")
	u.Define(&typeuniv.Class{Name: "ItemA", Super: base})
	u.Define(&typeuniv.Class{Name: "ItemB", Super: base})
	return u
}

const validConfig = `
[universe]
snapshot = "universe.bin"

[oracle]
hot = ["ItemA"]

[oracle.groups]
"ItemA" = 0
"ItemB" = 1

[oracle.dex]
"ItemB" = 2

[[models]]
name = "items"
class_name_prefix = "Gen"
roots = ["ItemBase"]
exclude = ["ItemB"]
min_count = 2
type_tag = "generate"
interdex_grouping = "full"

[models.approx]
enabled = true
max_padding = 2
`

func TestLoadAndResolve(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SnapshotPath != "universe.bin" {
		t.Fatalf("SnapshotPath = %q", cfg.SnapshotPath)
	}

	u := testUniverse(t)
	res, err := cfg.Resolve(u)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(res.Specs))
	}
	spec := res.Specs[0]
	if !spec.Enabled {
		t.Fatal("enabled must default to true")
	}
	if spec.Name != "items" || spec.ClassNamePrefix != "Gen" {
		t.Fatalf("spec identity = %q/%q", spec.Name, spec.ClassNamePrefix)
	}
	base, _ := u.ByName("ItemBase")
	if len(spec.Roots) != 1 || spec.Roots[0] != base {
		t.Fatalf("roots = %v", spec.Roots)
	}
	if spec.TypeTag != model.TagGenerate {
		t.Fatalf("type tag = %v", spec.TypeTag)
	}
	if spec.Grouping != interdex.GroupingFull {
		t.Fatalf("grouping = %v", spec.Grouping)
	}
	if !spec.Approx.Enabled || spec.Approx.MaxPadding != 2 {
		t.Fatalf("approx = %+v", spec.Approx)
	}

	a, _ := u.ByName("ItemA")
	b, _ := u.ByName("ItemB")
	if !res.Oracle.IsHot(a) {
		t.Fatal("hot set not resolved")
	}
	if idx, ok := res.Oracle.GroupOf(b); !ok || idx != 1 {
		t.Fatalf("GroupOf(ItemB) = %d, %v", idx, ok)
	}
	if res.Dex == nil || res.Dex.UnitOf(b) != 2 {
		t.Fatalf("dex map = %v", res.Dex)
	}
}

func TestLoadRequiresSnapshot(t *testing.T) {
	path := writeConfig(t, `
[[models]]
name = "x"
roots = ["ItemBase"]
`)
	if _, err := Load(path); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestLoadRequiresModels(t *testing.T) {
	path := writeConfig(t, `
[universe]
snapshot = "u.bin"
`)
	if _, err := Load(path); !errors.Is(err, ErrNoModels) {
		t.Fatalf("err = %v, want ErrNoModels", err)
	}
}

func TestResolveRejectsUnknownType(t *testing.T) {
	path := writeConfig(t, `
[universe]
snapshot = "u.bin"

[[models]]
name = "x"
roots = ["Nope"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.Resolve(testUniverse(t)); err == nil {
		t.Fatal("unknown root name must fail resolution")
	}
}

func TestResolveRejectsBadEnum(t *testing.T) {
	path := writeConfig(t, `
[universe]
snapshot = "u.bin"

[[models]]
name = "x"
roots = ["ItemBase"]
type_tag = "sideways"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.Resolve(testUniverse(t)); err == nil {
		t.Fatal("unknown type_tag must fail resolution")
	}
}

func TestResolveOmitsDexWhenUndeclared(t *testing.T) {
	path := writeConfig(t, `
[universe]
snapshot = "u.bin"

[[models]]
name = "x"
roots = ["ItemBase"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := cfg.Resolve(testUniverse(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Dex != nil {
		t.Fatal("dex map must stay nil without [oracle.dex] entries")
	}
}

func TestLoadBadTOML(t *testing.T) {
	path := writeConfig(t, "[[models\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
