package facet

import (
	"math"
	"testing"

	"github.com/faceton/faceton/internal/errors"
)

func fullEntry(time, count int64, min, max float64, totalCount int64, total float64) *Entry {
	return &Entry{Time: time, Count: count, Min: min, Max: max, TotalCount: totalCount, Total: total}
}

func TestReduce_EmptyPartials(t *testing.T) {
	r := NewReducer(nil)
	_, err := r.Reduce("latency", TimeAsc, nil)
	if err == nil {
		t.Fatal("expected error for empty partials")
	}
	if errors.GetCode(err) != errors.CodeEmptyPartials {
		t.Fatalf("expected code %s, got %s", errors.CodeEmptyPartials, errors.GetCode(err))
	}
}

func TestReduce_SinglePartialIdentity(t *testing.T) {
	r := NewReducer(nil)
	partial := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(200, 3, 1, 4, 3, 7),
		fullEntry(100, 2, 2, 5, 2, 7),
	})

	result, err := r.Reduce("latency", TimeDesc, []*Histogram{partial})
	if err != nil {
		t.Fatal(err)
	}
	if result != partial {
		t.Fatal("single-partial reduce must return the same result object")
	}
	if result.Ordering != TimeDesc {
		t.Fatalf("expected ordering %s, got %s", TimeDesc, result.Ordering)
	}
	expectOrder(t, result.Entries, []int64{200, 100})

	// Statistics pass through untouched.
	e := result.Entries[0]
	if e.Count != 3 || e.Min != 1 || e.Max != 4 || e.TotalCount != 3 || e.Total != 7 {
		t.Fatalf("entry statistics changed during identity reduce: %+v", e)
	}
}

func TestReduce_OverlappingBuckets(t *testing.T) {
	r := NewReducer(nil)
	a := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(100, 2, 1, 5, 2, 6),
	})
	b := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(100, 3, -1, 2, 3, 0),
	})

	result, err := r.Reduce("latency", TimeAsc, []*Histogram{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	e := result.Entries[0]
	if e.Time != 100 {
		t.Fatalf("expected time 100, got %d", e.Time)
	}
	if e.Count != 5 {
		t.Fatalf("expected count 5, got %d", e.Count)
	}
	if e.Min != -1 {
		t.Fatalf("expected min -1, got %v", e.Min)
	}
	if e.Max != 5 {
		t.Fatalf("expected max 5, got %v", e.Max)
	}
	if e.TotalCount != 5 {
		t.Fatalf("expected totalCount 5, got %d", e.TotalCount)
	}
	if e.Total != 6 {
		t.Fatalf("expected total 6, got %v", e.Total)
	}
	if e.Mean() != 1.2 {
		t.Fatalf("expected mean 1.2, got %v", e.Mean())
	}
}

func TestReduce_DisjointBuckets(t *testing.T) {
	r := NewReducer(nil)
	a := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(100, 1, 1, 1, 1, 1),
		fullEntry(300, 2, 2, 2, 2, 4),
	})
	b := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(200, 3, 3, 3, 3, 9),
	})

	result, err := r.Reduce("latency", TimeAsc, []*Histogram{a, b})
	if err != nil {
		t.Fatal(err)
	}
	expectOrder(t, result.Entries, []int64{100, 200, 300})
	// A disjoint merge donates each entry untouched.
	for i, want := range []int64{1, 3, 2} {
		if got := result.Entries[i].Count; got != want {
			t.Fatalf("entry %d: expected count %d, got %d", i, want, got)
		}
	}
	if result.Entries[1].Total != 9 {
		t.Fatalf("entry statistics changed during disjoint merge: %+v", result.Entries[1])
	}
}

func TestReduce_EmptyBucketDoesNotCorruptBounds(t *testing.T) {
	r := NewReducer(nil)
	// A bucket with documents but no contributed values carries the Inf
	// sentinels. Folding it into a bucket with negative values must leave
	// the real bounds alone.
	empty := NewHistogram("latency", KindFull, TimeAsc, []*Entry{NewEntry(100)})
	empty.Entries[0].Count = 4
	real := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(100, 2, -9, -3, 2, -12),
	})

	result, err := r.Reduce("latency", TimeAsc, []*Histogram{empty, real})
	if err != nil {
		t.Fatal(err)
	}
	e := result.Entries[0]
	if e.Count != 6 {
		t.Fatalf("expected count 6, got %d", e.Count)
	}
	if e.Min != -9 || e.Max != -3 {
		t.Fatalf("bounds corrupted by sentinel fold: min=%v max=%v", e.Min, e.Max)
	}
}

func TestReduce_AllEmptyBucketsKeepSentinels(t *testing.T) {
	r := NewReducer(nil)
	a := NewHistogram("latency", KindFull, TimeAsc, []*Entry{NewEntry(100)})
	b := NewHistogram("latency", KindFull, TimeAsc, []*Entry{NewEntry(100)})

	result, err := r.Reduce("latency", TimeAsc, []*Histogram{a, b})
	if err != nil {
		t.Fatal(err)
	}
	e := result.Entries[0]
	if !math.IsInf(e.Min, 1) || !math.IsInf(e.Max, -1) {
		t.Fatalf("expected sentinel bounds, got min=%v max=%v", e.Min, e.Max)
	}
	if !math.IsNaN(e.Mean()) {
		t.Fatalf("expected NaN mean, got %v", e.Mean())
	}
}

func TestReduce_CountKindIgnoresStatistics(t *testing.T) {
	r := NewReducer(nil)
	a := NewHistogram("hits", KindCount, TimeAsc, []*Entry{
		fullEntry(100, 2, 1, 5, 2, 6),
	})
	b := NewHistogram("hits", KindCount, TimeAsc, []*Entry{
		fullEntry(100, 3, -1, 9, 3, 4),
	})

	result, err := r.Reduce("hits", TimeAsc, []*Histogram{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if result.Kind != KindCount {
		t.Fatalf("expected count kind, got %s", result.Kind)
	}
	e := result.Entries[0]
	if e.Count != 5 {
		t.Fatalf("expected count 5, got %d", e.Count)
	}
	// Count-only merges leave the donated entry's statistics as they were.
	if e.Min != 1 || e.Max != 5 || e.TotalCount != 2 || e.Total != 6 {
		t.Fatalf("count-kind merge touched statistics: %+v", e)
	}
}

func TestReduce_OrderingApplied(t *testing.T) {
	r := NewReducer(nil)
	a := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(100, 9, 0, 0, 0, 0),
		fullEntry(200, 1, 0, 0, 0, 0),
	})
	b := NewHistogram("latency", KindFull, TimeAsc, []*Entry{
		fullEntry(300, 5, 0, 0, 0, 0),
	})

	result, err := r.Reduce("latency", CountDesc, []*Histogram{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if result.Ordering != CountDesc {
		t.Fatalf("expected ordering %s, got %s", CountDesc, result.Ordering)
	}
	expectOrder(t, result.Entries, []int64{100, 300, 200})
}

func TestReduce_WithRecycler(t *testing.T) {
	pool := NewRecycler(2, 4)
	r := NewReducer(pool)

	// Run a large merge, then a small one through the same pool. The small
	// result must not see buckets left over from the large merge.
	large := make([]*Entry, 0, 64)
	for i := int64(0); i < 64; i++ {
		large = append(large, fullEntry(i, 1, 0, 0, 1, 1))
	}
	_, err := r.Reduce("latency", TimeAsc, []*Histogram{
		NewHistogram("latency", KindFull, TimeAsc, large[:32]),
		NewHistogram("latency", KindFull, TimeAsc, large[32:]),
	})
	if err != nil {
		t.Fatal(err)
	}

	small, err := r.Reduce("latency", TimeAsc, []*Histogram{
		NewHistogram("latency", KindFull, TimeAsc, []*Entry{fullEntry(1000, 1, 0, 0, 0, 0)}),
		NewHistogram("latency", KindFull, TimeAsc, []*Entry{fullEntry(2000, 1, 0, 0, 0, 0)}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(small.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d (pool leaked previous merge)", len(small.Entries))
	}
	expectOrder(t, small.Entries, []int64{1000, 2000})

	stats := pool.Stats()
	if stats.Hits == 0 {
		t.Fatalf("expected at least one pool hit, got %+v", stats)
	}
}
