package facet

import (
	"testing"

	"github.com/faceton/faceton/internal/errors"
)

func entry(time, count int64, total float64) *Entry {
	e := NewEntry(time)
	e.Count = count
	e.Total = total
	return e
}

func times(entries []*Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.Time
	}
	return out
}

func expectOrder(t *testing.T, entries []*Entry, want []int64) {
	t.Helper()
	got := times(entries)
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected time %d, got %d (full order %v)", i, want[i], got[i], got)
		}
	}
}

func TestSort_TimeAsc(t *testing.T) {
	entries := []*Entry{entry(300, 1, 0), entry(100, 2, 0), entry(200, 3, 0)}
	TimeAsc.Sort(entries)
	expectOrder(t, entries, []int64{100, 200, 300})
}

func TestSort_TimeDesc(t *testing.T) {
	entries := []*Entry{entry(300, 1, 0), entry(100, 2, 0), entry(200, 3, 0)}
	TimeDesc.Sort(entries)
	expectOrder(t, entries, []int64{300, 200, 100})
}

func TestSort_CountAsc(t *testing.T) {
	entries := []*Entry{entry(100, 5, 0), entry(200, 1, 0), entry(300, 3, 0)}
	CountAsc.Sort(entries)
	expectOrder(t, entries, []int64{200, 300, 100})
}

func TestSort_CountDesc(t *testing.T) {
	entries := []*Entry{entry(100, 5, 0), entry(200, 1, 0), entry(300, 3, 0)}
	CountDesc.Sort(entries)
	expectOrder(t, entries, []int64{100, 300, 200})
}

func TestSort_TotalAsc(t *testing.T) {
	entries := []*Entry{entry(100, 0, 9.5), entry(200, 0, -3), entry(300, 0, 2)}
	TotalAsc.Sort(entries)
	expectOrder(t, entries, []int64{200, 300, 100})
}

func TestSort_TotalDesc(t *testing.T) {
	entries := []*Entry{entry(100, 0, 9.5), entry(200, 0, -3), entry(300, 0, 2)}
	TotalDesc.Sort(entries)
	expectOrder(t, entries, []int64{100, 300, 200})
}

func TestSort_CountTieBreaksByAscendingTime(t *testing.T) {
	entries := []*Entry{entry(300, 7, 0), entry(100, 7, 0), entry(200, 7, 0)}
	CountDesc.Sort(entries)
	expectOrder(t, entries, []int64{100, 200, 300})

	entries = []*Entry{entry(300, 7, 0), entry(100, 7, 0), entry(200, 7, 0)}
	CountAsc.Sort(entries)
	expectOrder(t, entries, []int64{100, 200, 300})
}

func TestSort_TotalTieBreaksByAscendingTime(t *testing.T) {
	entries := []*Entry{entry(900, 1, 4.25), entry(100, 2, 4.25), entry(500, 3, 4.25)}
	TotalDesc.Sort(entries)
	expectOrder(t, entries, []int64{100, 500, 900})
}

func TestSort_Deterministic(t *testing.T) {
	build := func() []*Entry {
		return []*Entry{
			entry(4, 2, 1), entry(1, 2, 1), entry(3, 2, 9), entry(2, 5, 1),
		}
	}
	first := build()
	CountAsc.Sort(first)
	for i := 0; i < 50; i++ {
		again := build()
		CountAsc.Sort(again)
		expectOrder(t, again, times(first))
	}
}

func TestComparatorType_TagRoundTrip(t *testing.T) {
	all := []ComparatorType{TimeAsc, TimeDesc, CountAsc, CountDesc, TotalAsc, TotalDesc}
	for _, c := range all {
		got, err := ComparatorFromTag(c.Tag())
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if got != c {
			t.Fatalf("tag round trip: expected %s, got %s", c, got)
		}
	}
}

func TestComparatorFromTag_Unknown(t *testing.T) {
	_, err := ComparatorFromTag(6)
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
	if errors.GetCode(err) != errors.CodeUnknownOrdering {
		t.Fatalf("expected code %s, got %s", errors.CodeUnknownOrdering, errors.GetCode(err))
	}
}

func TestParseComparatorType(t *testing.T) {
	c, err := ParseComparatorType("count_desc")
	if err != nil {
		t.Fatal(err)
	}
	if c != CountDesc {
		t.Fatalf("expected CountDesc, got %s", c)
	}

	if _, err := ParseComparatorType("alphabetical"); err == nil {
		t.Fatal("expected error for unknown ordering name")
	}
}

func TestComparatorType_StableTagValues(t *testing.T) {
	// The tags are wire format; renumbering them breaks decoding of
	// payloads already in flight or archived.
	want := map[ComparatorType]byte{
		TimeAsc: 0, TimeDesc: 1, CountAsc: 2, CountDesc: 3, TotalAsc: 4, TotalDesc: 5,
	}
	for c, tag := range want {
		if c.Tag() != tag {
			t.Fatalf("%s: expected tag %d, got %d", c, tag, c.Tag())
		}
	}
}
