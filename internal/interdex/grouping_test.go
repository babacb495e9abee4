package interdex

import (
	"slices"
	"testing"

	"clsmerge/internal/typeuniv"
)

func ids(ns ...uint32) []typeuniv.TypeID {
	out := make([]typeuniv.TypeID, len(ns))
	for i, n := range ns {
		out[i] = typeuniv.TypeID(n)
	}
	return out
}

func bucketTypes(t *testing.T, res Result) [][]typeuniv.TypeID {
	t.Helper()
	out := make([][]typeuniv.TypeID, 0, len(res.Buckets))
	for _, b := range res.Buckets {
		out = append(out, b.Types)
	}
	return out
}

func TestPartitionDisabledPassesThrough(t *testing.T) {
	res := Partition(ids(1, 2, 3), Options{Mode: GroupingDisabled, MinCount: 2})
	if len(res.Buckets) != 1 || !slices.Equal(res.Buckets[0].Types, ids(1, 2, 3)) {
		t.Fatalf("buckets = %v", bucketTypes(t, res))
	}
	if res.Buckets[0].Interdex != nil {
		t.Fatal("disabled grouping must not assign a subgroup index")
	}
	if len(res.Dropped) != 0 {
		t.Fatalf("dropped = %v", res.Dropped)
	}
}

func TestPartitionFullSplitsByGroup(t *testing.T) {
	oracle := &StaticOracle{Groups: map[typeuniv.TypeID]GroupIdx{1: 0, 2: 1, 3: 1, 4: 0}}
	res := Partition(ids(1, 2, 3, 4), Options{Mode: GroupingFull, MinCount: 2, Oracle: oracle})

	if len(res.Buckets) != 2 {
		t.Fatalf("buckets = %v", bucketTypes(t, res))
	}
	if !slices.Equal(res.Buckets[0].Types, ids(1, 4)) || *res.Buckets[0].Interdex != 0 {
		t.Fatalf("bucket 0 = %v idx %v", res.Buckets[0].Types, res.Buckets[0].Interdex)
	}
	if !slices.Equal(res.Buckets[1].Types, ids(2, 3)) || *res.Buckets[1].Interdex != 1 {
		t.Fatalf("bucket 1 = %v idx %v", res.Buckets[1].Types, res.Buckets[1].Interdex)
	}
}

func TestPartitionNonHotKeepsHotTogether(t *testing.T) {
	oracle := &StaticOracle{
		Groups: map[typeuniv.TypeID]GroupIdx{1: 0, 2: 1, 3: 0, 4: 1},
		Hot:    map[typeuniv.TypeID]bool{2: true, 3: true},
	}
	res := Partition(ids(1, 2, 3, 4), Options{Mode: GroupingNonHot, MinCount: 1, Oracle: oracle})

	// Hot types land in one unsplit leading bucket regardless of group index.
	if len(res.Buckets) != 3 {
		t.Fatalf("buckets = %v", bucketTypes(t, res))
	}
	if !slices.Equal(res.Buckets[0].Types, ids(2, 3)) || res.Buckets[0].Interdex != nil {
		t.Fatalf("hot bucket = %v idx %v", res.Buckets[0].Types, res.Buckets[0].Interdex)
	}
}

func TestPartitionNonOrderedExemptsLoadOrder(t *testing.T) {
	oracle := &StaticOracle{
		Groups:  map[typeuniv.TypeID]GroupIdx{1: 0, 2: 0, 3: 1},
		Ordered: map[typeuniv.TypeID]bool{3: true},
	}
	res := Partition(ids(1, 2, 3), Options{Mode: GroupingNonOrdered, MinCount: 1, Oracle: oracle})
	if len(res.Buckets) != 2 {
		t.Fatalf("buckets = %v", bucketTypes(t, res))
	}
	if !slices.Equal(res.Buckets[0].Types, ids(3)) {
		t.Fatalf("ordered type not exempted: %v", res.Buckets[0].Types)
	}
}

func TestPartitionPerDexSplit(t *testing.T) {
	dex := StaticDexMap{1: 1, 2: 2, 3: 1, 4: 2}
	res := Partition(ids(1, 2, 3, 4), Options{Mode: GroupingDisabled, PerDex: true, MinCount: 2, Dex: dex})
	if len(res.Buckets) != 2 {
		t.Fatalf("buckets = %v", bucketTypes(t, res))
	}
	if !slices.Equal(res.Buckets[0].Types, ids(1, 3)) || *res.Buckets[0].Dex != 1 {
		t.Fatalf("unit 1 bucket = %v", res.Buckets[0].Types)
	}
	if !slices.Equal(res.Buckets[1].Types, ids(2, 4)) || *res.Buckets[1].Dex != 2 {
		t.Fatalf("unit 2 bucket = %v", res.Buckets[1].Types)
	}
}

func TestPartitionDissolvesBelowMinCount(t *testing.T) {
	oracle := &StaticOracle{Groups: map[typeuniv.TypeID]GroupIdx{1: 0, 2: 1, 3: 1}}
	res := Partition(ids(1, 2, 3), Options{Mode: GroupingFull, MinCount: 2, Oracle: oracle})

	if len(res.Buckets) != 1 || !slices.Equal(res.Buckets[0].Types, ids(2, 3)) {
		t.Fatalf("buckets = %v", bucketTypes(t, res))
	}
	if !slices.Equal(res.Dropped, ids(1)) {
		t.Fatalf("dropped = %v, want [1]", res.Dropped)
	}
}

func TestPartitionSlicesAboveMaxCount(t *testing.T) {
	res := Partition(ids(1, 2, 3, 4, 5), Options{Mode: GroupingDisabled, MinCount: 2, MaxCount: 2})

	if len(res.Buckets) != 2 {
		t.Fatalf("buckets = %v", bucketTypes(t, res))
	}
	if !slices.Equal(res.Buckets[0].Types, ids(1, 2)) || res.Buckets[0].Slice != 0 {
		t.Fatalf("slice 0 = %v #%d", res.Buckets[0].Types, res.Buckets[0].Slice)
	}
	if !slices.Equal(res.Buckets[1].Types, ids(3, 4)) || res.Buckets[1].Slice != 1 {
		t.Fatalf("slice 1 = %v #%d", res.Buckets[1].Types, res.Buckets[1].Slice)
	}
	// Trailing remainder of one falls below MinCount.
	if !slices.Equal(res.Dropped, ids(5)) {
		t.Fatalf("dropped = %v, want [5]", res.Dropped)
	}
}

func TestPartitionIdempotent(t *testing.T) {
	oracle := &StaticOracle{
		Groups: map[typeuniv.TypeID]GroupIdx{1: 2, 2: 0, 3: 2, 4: 0, 5: 1},
		Hot:    map[typeuniv.TypeID]bool{5: true},
	}
	opts := Options{Mode: GroupingNonHot, MinCount: 1, Oracle: oracle}

	first := Partition(ids(1, 2, 3, 4, 5), opts)
	second := Partition(ids(1, 2, 3, 4, 5), opts)

	if len(first.Buckets) != len(second.Buckets) {
		t.Fatalf("bucket counts differ: %d vs %d", len(first.Buckets), len(second.Buckets))
	}
	for i := range first.Buckets {
		if !slices.Equal(first.Buckets[i].Types, second.Buckets[i].Types) {
			t.Fatalf("bucket %d differs: %v vs %v", i, first.Buckets[i].Types, second.Buckets[i].Types)
		}
	}
	if !slices.Equal(first.Dropped, second.Dropped) {
		t.Fatalf("dropped differ: %v vs %v", first.Dropped, second.Dropped)
	}
}

func TestParseGroupingMode(t *testing.T) {
	cases := []struct {
		in      string
		want    GroupingMode
		wantErr bool
	}{
		{"", GroupingDisabled, false},
		{"disabled", GroupingDisabled, false},
		{"non-hot", GroupingNonHot, false},
		{"non-ordered", GroupingNonOrdered, false},
		{"full", GroupingFull, false},
		{"sideways", GroupingDisabled, true},
	}
	for _, tc := range cases {
		got, err := ParseGroupingMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseGroupingMode(%q) err = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseGroupingMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
