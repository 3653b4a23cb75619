// Package facet provides time-bucketed histogram facet results and the
// coordinator-side merge that combines per-shard partials into one
// deduplicated, ordered result.
package facet

import "math"

// Kind selects the facet variant: a count-only histogram or a full
// histogram that also carries value statistics per bucket.
type Kind byte

const (
	// KindCount tracks only the document count per bucket.
	KindCount Kind = iota
	// KindFull tracks count, contributing-value count, sum, min and max.
	KindFull
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindCount:
		return "count"
	case KindFull:
		return "full"
	}
	return "unknown"
}

// Entry holds the statistics of a single time bucket. Time is the bucket
// key, treated as an opaque int64 computed upstream, and is unique within
// a single result. TotalCount is the number of documents that contributed
// a numeric value (TotalCount <= Count); Total, Min and Max describe those
// contributed values.
type Entry struct {
	Time       int64
	Count      int64
	TotalCount int64
	Total      float64
	Min        float64
	Max        float64
}

// NewEntry returns an empty entry for the given bucket with Min/Max set to
// true +Inf/-Inf sentinels, so combining a zero-contribution bucket with a
// real one never corrupts the merged bounds even for negative values.
func NewEntry(time int64) *Entry {
	return &Entry{
		Time: time,
		Min:  math.Inf(1),
		Max:  math.Inf(-1),
	}
}

// Mean returns Total / TotalCount, computed fresh on every call. For a
// bucket with no contributed values the result is a non-finite float64 per
// IEEE-754 division semantics; that is a valid answer, not an error.
func (e *Entry) Mean() float64 {
	return e.Total / float64(e.TotalCount)
}

// Histogram is a named histogram facet result: a set of entries unique by
// bucket time. A partial Histogram is produced by a single shard and its
// entry order is not significant; order becomes canonical only after the
// result has passed through Reduce.
type Histogram struct {
	Name     string
	Kind     Kind
	Ordering ComparatorType
	Entries  []*Entry
}

// NewHistogram creates a histogram facet result with the given entries.
func NewHistogram(name string, kind Kind, ordering ComparatorType, entries []*Entry) *Histogram {
	return &Histogram{
		Name:     name,
		Kind:     kind,
		Ordering: ordering,
		Entries:  entries,
	}
}
