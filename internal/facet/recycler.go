package facet

import (
	"sync"
	"sync/atomic"

	"github.com/spaolacci/murmur3"
)

// Scratch is a reusable time→entry accumulator borrowed for the duration of
// a single merge. It is never shared between two concurrently-running
// merges; the pool hands each caller an exclusive instance.
type Scratch struct {
	entries map[int64]*Entry
	stripe  int
}

// Len returns the number of live entries in the accumulator.
func (s *Scratch) Len() int {
	return len(s.entries)
}

// Pool supplies scratch accumulators for multi-partial merges. Acquire
// always returns a cleared instance; Release clears it again and makes it
// available for a future merge. Implementations must be safe for
// concurrent use.
type Pool interface {
	Acquire(name string) *Scratch
	Release(s *Scratch)
}

// PoolStats reports how often Acquire was served from the free list.
type PoolStats struct {
	Hits   uint64
	Misses uint64
}

// Recycler is a striped free-list of scratch accumulators. Reusing map
// storage keeps a high-rate coordinator from allocating a fresh
// accumulator per merge. The stripe is chosen by a murmur3 hash of the
// facet name so concurrent merges of different facets tend to hit
// different locks.
type Recycler struct {
	stripes []recyclerStripe

	maxPerStripe int
	hits         uint64
	misses       uint64
}

type recyclerStripe struct {
	mu   sync.Mutex
	free []*Scratch
	_    [40]byte // keep stripes off the same cache line
}

const (
	defaultStripes      = 8
	defaultMaxPerStripe = 16
)

// NewRecycler creates a recycler with the given stripe count and per-stripe
// free-list bound. Non-positive arguments fall back to defaults.
func NewRecycler(stripes, maxPerStripe int) *Recycler {
	if stripes <= 0 {
		stripes = defaultStripes
	}
	if maxPerStripe <= 0 {
		maxPerStripe = defaultMaxPerStripe
	}
	return &Recycler{
		stripes:      make([]recyclerStripe, stripes),
		maxPerStripe: maxPerStripe,
	}
}

// Acquire returns an empty scratch accumulator, reusing a pooled one when
// available and allocating otherwise.
func (r *Recycler) Acquire(name string) *Scratch {
	i := int(murmur3.Sum32([]byte(name)) % uint32(len(r.stripes)))
	st := &r.stripes[i]

	st.mu.Lock()
	if n := len(st.free); n > 0 {
		s := st.free[n-1]
		st.free[n-1] = nil
		st.free = st.free[:n-1]
		st.mu.Unlock()
		atomic.AddUint64(&r.hits, 1)
		return s
	}
	st.mu.Unlock()

	atomic.AddUint64(&r.misses, 1)
	return &Scratch{entries: make(map[int64]*Entry), stripe: i}
}

// Release clears the accumulator and returns it to its stripe's free list.
// Accumulators beyond the stripe bound are dropped for the GC to reclaim.
func (r *Recycler) Release(s *Scratch) {
	if s == nil {
		return
	}
	clear(s.entries)

	st := &r.stripes[s.stripe]
	st.mu.Lock()
	if len(st.free) < r.maxPerStripe {
		st.free = append(st.free, s)
	}
	st.mu.Unlock()
}

// Stats returns cumulative acquire hit/miss counters.
func (r *Recycler) Stats() PoolStats {
	return PoolStats{
		Hits:   atomic.LoadUint64(&r.hits),
		Misses: atomic.LoadUint64(&r.misses),
	}
}

// FreshPool allocates a new accumulator on every Acquire and discards it on
// Release. Merge behavior is identical to the Recycler; tests use it to
// rule out reuse effects.
type FreshPool struct{}

// NewFreshPool returns a pool that never reuses accumulators.
func NewFreshPool() *FreshPool {
	return &FreshPool{}
}

// Acquire returns a new empty accumulator.
func (*FreshPool) Acquire(string) *Scratch {
	return &Scratch{entries: make(map[int64]*Entry)}
}

// Release discards the accumulator.
func (*FreshPool) Release(*Scratch) {}
