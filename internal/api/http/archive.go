package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/faceton/faceton/internal/archive"
	"github.com/faceton/faceton/internal/errors"
	"github.com/faceton/faceton/internal/render"
	"github.com/faceton/faceton/internal/wire"
)

// ArchiveHandler serves archived merged results:
//
//	GET /v1/facets/archive                      → list keys
//	GET /v1/facets/archive/{request_id}/{facet} → decode + render one record
type ArchiveHandler struct {
	archive archive.Archive
}

// NewArchiveHandler creates an archive handler.
func NewArchiveHandler(arc archive.Archive) *ArchiveHandler {
	return &ArchiveHandler{archive: arc}
}

// ArchiveListResponse lists archived record keys.
type ArchiveListResponse struct {
	RequestID string        `json:"request_id"`
	Records   []archive.Key `json:"records"`
}

// ArchiveGetResponse returns one re-rendered archived result.
type ArchiveGetResponse struct {
	RequestID  string          `json:"request_id"`
	StreamType string          `json:"stream_type"`
	Result     json.RawMessage `json:"result"`
}

// List handles GET /v1/facets/archive.
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	keys, err := h.archive.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), errors.GetCode(err), requestID)
		return
	}
	if keys == nil {
		keys = []archive.Key{}
	}

	writeJSON(w, http.StatusOK, ArchiveListResponse{
		RequestID: requestID,
		Records:   keys,
	})
}

// Get handles GET /v1/facets/archive/{request_id}/{facet}.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	vars := mux.Vars(r)

	rec, err := h.archive.Get(r.Context(), vars["request_id"], vars["facet"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.GetCode(err) == errors.CodeRecordNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error(), errors.GetCode(err), requestID)
		return
	}

	decodeFn, err := wire.Lookup(rec.StreamType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), errors.GetCode(err), requestID)
		return
	}
	result, err := decodeFn(rec.Payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("archived payload failed to decode: %v", err), errors.GetCode(err), requestID)
		return
	}

	rendered, err := render.Render(result)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("failed to render archived result: %v", err), errors.CodeUnexpected, requestID)
		return
	}

	writeJSON(w, http.StatusOK, ArchiveGetResponse{
		RequestID:  requestID,
		StreamType: rec.StreamType,
		Result:     rendered,
	})
}
