package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faceton/faceton/internal/archive"
	"github.com/faceton/faceton/internal/errors"
	"github.com/faceton/faceton/internal/facet"
	"github.com/faceton/faceton/internal/observability"
	"github.com/faceton/faceton/internal/render"
	"github.com/faceton/faceton/internal/wire"
)

// MergeRequest carries one aggregation's shard payloads to the coordinator.
// Each partial is a base64 string of the snappy-compressed wire encoding.
type MergeRequest struct {
	Facet      string   `json:"facet"`
	Ordering   string   `json:"ordering"`
	StreamType string   `json:"stream_type"`
	Partials   []string `json:"partials"`
	Archive    bool     `json:"archive,omitempty"`
}

// MergeResponse returns the rendered merged document plus merge statistics.
type MergeResponse struct {
	RequestID string          `json:"request_id"`
	Result    json.RawMessage `json:"result"`
	Stats     MergeStats      `json:"stats"`
}

// MergeStats summarizes one merge for the caller.
type MergeStats struct {
	Partials    int   `json:"partials"`
	Entries     int   `json:"entries"`
	MergeTimeMs int64 `json:"merge_time_ms"`
}

// MergeHandler handles POST /v1/facets/merge.
type MergeHandler struct {
	reducer     *facet.Reducer
	stats       *observability.MergeStats
	metrics     *observability.Metrics
	archive     archive.Archive // nil when archiving is disabled
	maxPartials int
	log         *logrus.Logger
}

// NewMergeHandler creates a merge handler. arc may be nil to disable
// archiving regardless of what requests ask for.
func NewMergeHandler(
	reducer *facet.Reducer,
	stats *observability.MergeStats,
	metrics *observability.Metrics,
	arc archive.Archive,
	maxPartials int,
	log *logrus.Logger,
) *MergeHandler {
	return &MergeHandler{
		reducer:     reducer,
		stats:       stats,
		metrics:     metrics,
		archive:     arc,
		maxPartials: maxPartials,
		log:         log,
	}
}

// ServeHTTP handles the merge HTTP request.
func (h *MergeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", requestID)
		return
	}

	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err),
			errors.CodeInvalidRequest, requestID)
		return
	}

	if req.Facet == "" {
		writeError(w, http.StatusBadRequest, "facet is required", errors.CodeInvalidRequest, requestID)
		return
	}
	if len(req.Partials) == 0 {
		writeError(w, http.StatusBadRequest, "partials must not be empty", errors.CodeEmptyPartials, requestID)
		return
	}
	if len(req.Partials) > h.maxPartials {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many partials: %d (limit %d)", len(req.Partials), h.maxPartials),
			errors.CodeInvalidRequest, requestID)
		return
	}

	ordering, err := facet.ParseComparatorType(req.Ordering)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), errors.GetCode(err), requestID)
		return
	}

	decodeFn, err := wire.Lookup(req.StreamType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), errors.GetCode(err), requestID)
		return
	}

	partials := make([]*facet.Histogram, 0, len(req.Partials))
	for i, encoded := range req.Partials {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("partial %d is not valid base64: %v", i, err),
				errors.CodeInvalidRequest, requestID)
			return
		}
		payload, err := wire.Decompress(raw)
		if err != nil {
			h.metrics.ObserveDecodeError()
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("partial %d: %v", i, err), errors.GetCode(err), requestID)
			return
		}
		partial, err := decodeFn(payload)
		if err != nil {
			h.metrics.ObserveDecodeError()
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("partial %d: %v", i, err), errors.GetCode(err), requestID)
			return
		}
		partials = append(partials, partial)
	}

	start := time.Now()
	merged, err := h.reducer.Reduce(req.Facet, ordering, partials)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), errors.GetCode(err), requestID)
		return
	}
	elapsed := time.Since(start)

	h.stats.Record(req.Facet, len(partials), len(merged.Entries), elapsed)
	h.metrics.ObserveMerge(merged.Kind, len(merged.Entries), elapsed)

	rendered, err := render.Render(merged)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render result: %v", err), errors.CodeUnexpected, requestID)
		return
	}

	if req.Archive && h.archive != nil {
		rec := &archive.Record{
			RequestID:  requestID,
			Facet:      req.Facet,
			StreamType: wire.StreamType(merged),
			Payload:    wire.Encode(merged),
		}
		if err := h.archive.Put(r.Context(), rec); err != nil {
			// The merge succeeded; a failed archive write must not fail
			// the response.
			h.log.WithError(err).WithFields(logrus.Fields{
				"request_id": requestID,
				"facet":      req.Facet,
			}).Warn("failed to archive merged result")
		}
	}

	writeJSON(w, http.StatusOK, MergeResponse{
		RequestID: requestID,
		Result:    rendered,
		Stats: MergeStats{
			Partials:    len(partials),
			Entries:     len(merged.Entries),
			MergeTimeMs: elapsed.Milliseconds(),
		},
	})
}
