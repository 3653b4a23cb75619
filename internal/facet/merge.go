package facet

import (
	"github.com/faceton/faceton/internal/errors"
)

// Reducer merges per-shard partial histogram results into a single final
// result. A Reducer is stateless apart from its scratch pool and is safe
// for concurrent use; each Reduce call runs synchronously to completion on
// the calling goroutine.
type Reducer struct {
	pool Pool
}

// NewReducer creates a reducer using the given scratch pool. A nil pool
// gets a FreshPool, which allocates per merge.
func NewReducer(pool Pool) *Reducer {
	if pool == nil {
		pool = NewFreshPool()
	}
	return &Reducer{pool: pool}
}

// Reduce combines the partial results of one aggregation request into a
// single deduplicated histogram ordered by the given comparator.
//
// All partials must carry the same name and kind; shards answering the same
// request produce them that way, so this is not re-validated. Entries of
// the partials are consumed: the first partial owning a bucket donates its
// entry to the result and later occurrences are folded into it in place.
// Callers must not touch a partial after passing it in.
func (r *Reducer) Reduce(name string, ordering ComparatorType, partials []*Histogram) (*Histogram, error) {
	if len(partials) == 0 {
		return nil, errors.NewValidationError(errors.CodeEmptyPartials,
			"facet: reduce requires at least one partial result")
	}

	// A single partial has nothing to combine; the merge degenerates to an
	// in-place sort of that same result object.
	if len(partials) == 1 {
		h := partials[0]
		ordering.Sort(h.Entries)
		h.Ordering = ordering
		return h, nil
	}

	kind := partials[0].Kind

	scratch := r.pool.Acquire(name)
	defer r.pool.Release(scratch)

	for _, p := range partials {
		for _, e := range p.Entries {
			current, ok := scratch.entries[e.Time]
			if !ok {
				// First sighting of this bucket: the accumulator takes
				// ownership of the entry, no copy.
				scratch.entries[e.Time] = e
				continue
			}
			current.Count += e.Count
			if kind == KindFull {
				current.TotalCount += e.TotalCount
				current.Total += e.Total
				if e.Min < current.Min {
					current.Min = e.Min
				}
				if e.Max > current.Max {
					current.Max = e.Max
				}
			}
		}
	}

	// Extract exactly the live entries; the map's backing storage may hold
	// more capacity than populated buckets and none of it leaks through.
	ordered := make([]*Entry, 0, scratch.Len())
	for _, e := range scratch.entries {
		ordered = append(ordered, e)
	}
	ordering.Sort(ordered)

	return NewHistogram(name, kind, ordering, ordered), nil
}
