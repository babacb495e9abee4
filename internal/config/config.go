// Package config loads merging configuration from a models.toml file. The
// file names types by universe name; resolution to type IDs happens against
// a loaded universe snapshot, after parsing.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"clsmerge/internal/interdex"
	"clsmerge/internal/model"
	"clsmerge/internal/shape"
	"clsmerge/internal/typeuniv"
)

var (
	// ErrNoModels indicates that the file declares no [[models]] entries.
	ErrNoModels = errors.New("no [[models]] declared")
	// ErrNoSnapshot indicates that [universe].snapshot is missing.
	ErrNoSnapshot = errors.New("missing [universe].snapshot")
)

// File is a parsed but unresolved configuration.
type File struct {
	// SnapshotPath locates the universe snapshot the models run against.
	SnapshotPath string
	models       []rawModel
	oracle       rawOracle
}

// Resolved is a configuration bound to one universe. Dex is nil when the
// file declares no [oracle.dex] entries; a present-but-empty map would put
// every type into the primary unit and silently disqualify it under
// include_primary_dex = false.
type Resolved struct {
	Specs  []model.ModelSpec
	Oracle *interdex.StaticOracle
	Dex    interdex.StaticDexMap
}

type rawConfig struct {
	Universe rawUniverse `toml:"universe"`
	Oracle   rawOracle   `toml:"oracle"`
	Models   []rawModel  `toml:"models"`
}

type rawUniverse struct {
	Snapshot string `toml:"snapshot"`
}

type rawOracle struct {
	Hot     []string          `toml:"hot"`
	Ordered []string          `toml:"ordered"`
	Groups  map[string]uint32 `toml:"groups"`
	Dex     map[string]int    `toml:"dex"`
}

type rawApprox struct {
	Enabled    bool `toml:"enabled"`
	MaxPadding int  `toml:"max_padding"`
}

type rawModel struct {
	Enabled            *bool     `toml:"enabled"`
	Name               string    `toml:"name"`
	ClassNamePrefix    string    `toml:"class_name_prefix"`
	Roots              []string  `toml:"roots"`
	MergingTargets     []string  `toml:"merging_targets"`
	Exclude            []string  `toml:"exclude"`
	ExcludePrefixes    []string  `toml:"exclude_prefixes"`
	MinCount           int       `toml:"min_count"`
	MaxCount           int       `toml:"max_count"`
	TypeTag            string    `toml:"type_tag"`
	TypeLikeStrings    string    `toml:"type_like_strings"`
	InterdexGrouping   string    `toml:"interdex_grouping"`
	PerDexGrouping     bool      `toml:"per_dex_grouping"`
	IncludePrimaryDex  bool      `toml:"include_primary_dex"`
	IsGeneratedCode    bool      `toml:"is_generated_code"`
	MergeStaticFields  bool      `toml:"merge_types_with_static_fields"`
	MaxDispatchTargets int       `toml:"max_dispatch_targets"`
	Approx             rawApprox `toml:"approx"`
}

// Load parses a models.toml file. Resolution against a universe is a
// separate step because the universe itself is located by this file.
func Load(path string) (*File, error) {
	var cfg rawConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("universe", "snapshot") || cfg.Universe.Snapshot == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSnapshot)
	}
	if !meta.IsDefined("models") || len(cfg.Models) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoModels)
	}
	return &File{
		SnapshotPath: cfg.Universe.Snapshot,
		models:       cfg.Models,
		oracle:       cfg.Oracle,
	}, nil
}

// Resolve binds every type name in the file to the given universe. Unknown
// names are configuration errors; nothing is silently dropped.
func (f *File) Resolve(u *typeuniv.Universe) (*Resolved, error) {
	res := &Resolved{
		Oracle: &interdex.StaticOracle{
			Groups:  make(map[typeuniv.TypeID]interdex.GroupIdx),
			Hot:     make(map[typeuniv.TypeID]bool),
			Ordered: make(map[typeuniv.TypeID]bool),
		},
	}
	if len(f.oracle.Dex) > 0 {
		res.Dex = make(interdex.StaticDexMap, len(f.oracle.Dex))
	}

	for _, name := range f.oracle.Hot {
		t, err := lookup(u, name, "[oracle].hot")
		if err != nil {
			return nil, err
		}
		res.Oracle.Hot[t] = true
	}
	for _, name := range f.oracle.Ordered {
		t, err := lookup(u, name, "[oracle].ordered")
		if err != nil {
			return nil, err
		}
		res.Oracle.Ordered[t] = true
	}
	for name, idx := range f.oracle.Groups {
		t, err := lookup(u, name, "[oracle.groups]")
		if err != nil {
			return nil, err
		}
		res.Oracle.Groups[t] = interdex.GroupIdx(idx)
	}
	for name, unit := range f.oracle.Dex {
		t, err := lookup(u, name, "[oracle.dex]")
		if err != nil {
			return nil, err
		}
		res.Dex[t] = unit
	}

	for i := range f.models {
		spec, err := f.resolveModel(u, &f.models[i])
		if err != nil {
			return nil, err
		}
		res.Specs = append(res.Specs, spec)
	}
	return res, nil
}

func (f *File) resolveModel(u *typeuniv.Universe, raw *rawModel) (model.ModelSpec, error) {
	spec := model.ModelSpec{
		Enabled:                    raw.Enabled == nil || *raw.Enabled,
		Name:                       raw.Name,
		ClassNamePrefix:            raw.ClassNamePrefix,
		ExcludePrefixes:            raw.ExcludePrefixes,
		MinCount:                   raw.MinCount,
		MaxCount:                   raw.MaxCount,
		PerDexGrouping:             raw.PerDexGrouping,
		IncludePrimaryDex:          raw.IncludePrimaryDex,
		IsGeneratedCode:            raw.IsGeneratedCode,
		MergeTypesWithStaticFields: raw.MergeStaticFields,
		MaxDispatchTargets:         raw.MaxDispatchTargets,
		Approx: shape.ApproxPolicy{
			Enabled:    raw.Approx.Enabled,
			MaxPadding: raw.Approx.MaxPadding,
		},
	}

	var err error
	where := fmt.Sprintf("[[models]] %q", raw.Name)
	if spec.Roots, err = lookupAll(u, raw.Roots, where+" roots"); err != nil {
		return spec, err
	}
	if spec.MergingTargets, err = lookupAll(u, raw.MergingTargets, where+" merging_targets"); err != nil {
		return spec, err
	}
	if spec.ExcludeTypes, err = lookupAll(u, raw.Exclude, where+" exclude"); err != nil {
		return spec, err
	}
	if spec.TypeTag, err = model.ParseTypeTagConfig(raw.TypeTag); err != nil {
		return spec, fmt.Errorf("%s: %w", where, err)
	}
	if spec.Strings, err = model.ParseTypeLikeStringConfig(raw.TypeLikeStrings); err != nil {
		return spec, fmt.Errorf("%s: %w", where, err)
	}
	if spec.Grouping, err = interdex.ParseGroupingMode(raw.InterdexGrouping); err != nil {
		return spec, fmt.Errorf("%s: %w", where, err)
	}
	return spec, nil
}

func lookup(u *typeuniv.Universe, name, where string) (typeuniv.TypeID, error) {
	t, ok := u.ByName(name)
	if !ok {
		return typeuniv.NoTypeID, fmt.Errorf("%s: unknown type %q", where, name)
	}
	return t, nil
}

func lookupAll(u *typeuniv.Universe, names []string, where string) ([]typeuniv.TypeID, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]typeuniv.TypeID, 0, len(names))
	for _, name := range names {
		t, err := lookup(u, name, where)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
