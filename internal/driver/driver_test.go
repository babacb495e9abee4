package driver

import (
	"context"
	"errors"
	"testing"

	"clsmerge/internal/model"
	"clsmerge/internal/typeuniv"
)

func testUniverse(t *testing.T) (*typeuniv.Universe, typeuniv.TypeID) {
	t.Helper()
	u := typeuniv.NewUniverse(0)
	base := u.Define(&typeuniv.Class{Name: "WidgetBase"})
	for _, name := range []string{"WidgetA", "WidgetB", "WidgetC"} {
		u.Define(&typeuniv.Class{
			Name:  name,
			Super: base,
			Fields: []typeuniv.Field{
				{Name: "id", Kind: typeuniv.FieldInt},
			},
		})
	}
	return u, base
}

func TestBuildAllIsolatesSpecFailures(t *testing.T) {
	u, base := testUniverse(t)
	specs := []model.ModelSpec{
		{Enabled: true, Name: "good", Roots: []typeuniv.TypeID{base}, MinCount: 2, ClassNamePrefix: "Gen"},
		{Enabled: false, Name: "off", Roots: []typeuniv.TypeID{base}},
		{Enabled: true, Name: "bad"}, // no roots
	}

	results, err := BuildAll(context.Background(), u, u.Scope(), specs, Options{Jobs: 2})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	if results[0].Err != nil || results[0].Model == nil {
		t.Fatalf("good spec failed: %+v", results[0])
	}
	if got := results[0].Model.Stats().ClassesMerged; got != 3 {
		t.Fatalf("good spec merged %d classes, want 3", got)
	}

	if !results[1].Skipped || results[1].Model != nil {
		t.Fatalf("disabled spec not skipped: %+v", results[1])
	}

	if !errors.Is(results[2].Err, model.ErrNoRoots) {
		t.Fatalf("bad spec err = %v, want ErrNoRoots", results[2].Err)
	}
	if results[2].Model != nil {
		t.Fatal("failed spec must not produce a model")
	}
}

func TestBuildAllEmptySpecList(t *testing.T) {
	u, _ := testUniverse(t)
	results, err := BuildAll(context.Background(), u, u.Scope(), nil, Options{})
	if err != nil || len(results) != 0 {
		t.Fatalf("results = %v, err = %v", results, err)
	}
}

func TestAggregateStatsSkipsFailures(t *testing.T) {
	u, base := testUniverse(t)
	specs := []model.ModelSpec{
		{Enabled: true, Name: "one", Roots: []typeuniv.TypeID{base}, MinCount: 2},
		{Enabled: true, Name: "broken"},
	}
	results, err := BuildAll(context.Background(), u, u.Scope(), specs, Options{Jobs: 1})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}

	agg := AggregateStats(results)
	if agg.ClassesMerged != 3 || agg.GeneratedClasses != 1 {
		t.Fatalf("aggregate = %+v", agg)
	}
}

func TestBuildAllHonorsCancellation(t *testing.T) {
	u, base := testUniverse(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	specs := []model.ModelSpec{
		{Enabled: true, Name: "late", Roots: []typeuniv.TypeID{base}, MinCount: 2},
	}
	if _, err := BuildAll(ctx, u, u.Scope(), specs, Options{Jobs: 1}); err == nil {
		t.Fatal("expected context error after cancellation")
	}
}
