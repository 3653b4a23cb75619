package http

import (
	"net/http"
	"strconv"

	"github.com/faceton/faceton/internal/observability"
)

// StatsHandler handles GET /v1/facets/stats, reporting the most merged
// facets in the current window.
type StatsHandler struct {
	stats *observability.MergeStats
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(stats *observability.MergeStats) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// StatsResponse lists per-facet merge statistics, most active first.
type StatsResponse struct {
	RequestID string       `json:"request_id"`
	Facets    []FacetStats `json:"facets"`
}

// FacetStats is one facet's merge activity.
type FacetStats struct {
	Facet         string `json:"facet"`
	Merges        int64  `json:"merges"`
	Partials      int64  `json:"partials"`
	Entries       int64  `json:"entries"`
	TotalTimeMs   int64  `json:"total_time_ms"`
	LastSeenMilli int64  `json:"last_seen_ms"`
}

// ServeHTTP handles the stats HTTP request.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	n := 20
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	top := h.stats.Top(n)
	facets := make([]FacetStats, 0, len(top))
	for _, s := range top {
		facets = append(facets, FacetStats{
			Facet:         s.Facet,
			Merges:        s.Merges,
			Partials:      s.Partials,
			Entries:       s.Entries,
			TotalTimeMs:   s.TotalElapsed.Milliseconds(),
			LastSeenMilli: s.LastSeen.UnixMilli(),
		})
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		RequestID: requestID,
		Facets:    facets,
	})
}
