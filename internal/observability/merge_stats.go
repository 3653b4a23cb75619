// Package observability provides merge statistics tracking and Prometheus
// metrics for the coordinator.
package observability

import (
	"sort"
	"sync"
	"time"
)

// MergeStats tracks per-facet merge activity over a sliding window. Hot
// facets surface in operational dashboards and guide pool sizing.
type MergeStats struct {
	mu       sync.RWMutex
	perFacet map[string]*FacetStats
	window   time.Duration
}

// FacetStats holds cumulative statistics for one facet name.
type FacetStats struct {
	Facet        string
	Merges       int64
	Partials     int64
	Entries      int64
	TotalElapsed time.Duration
	LastSeen     time.Time
}

// NewMergeStats creates a merge statistics tracker.
// window: how long an idle facet's stats are retained before pruning.
func NewMergeStats(window time.Duration) *MergeStats {
	return &MergeStats{
		perFacet: make(map[string]*FacetStats),
		window:   window,
	}
}

// Record registers one completed merge. O(1) and thread-safe.
func (m *MergeStats) Record(facetName string, partials, entries int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.perFacet[facetName]
	if !exists {
		stats = &FacetStats{Facet: facetName}
		m.perFacet[facetName] = stats
	}

	stats.Merges++
	stats.Partials += int64(partials)
	stats.Entries += int64(entries)
	stats.TotalElapsed += elapsed
	stats.LastSeen = time.Now()
}

// Top returns the n most merged facets, most active first.
// Returns copies so callers cannot mutate tracked state.
func (m *MergeStats) Top(n int) []FacetStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || len(m.perFacet) == 0 {
		return []FacetStats{}
	}

	stats := make([]FacetStats, 0, len(m.perFacet))
	for _, s := range m.perFacet {
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Merges > stats[j].Merges
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes facets idle longer than the window. Call periodically.
func (m *MergeStats) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := time.Now().Add(-m.window)
	for name, stats := range m.perFacet {
		if stats.LastSeen.Before(threshold) {
			delete(m.perFacet, name)
		}
	}
}
