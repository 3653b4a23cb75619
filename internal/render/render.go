// Package render produces the externally visible JSON document for a
// merged histogram facet result.
package render

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/faceton/faceton/internal/facet"
)

// Type is the discriminant identifying this aggregation kind in the output
// document.
const Type = "histogram"

// fullEntryDoc fixes the emitted field order for full-stats entries.
// Non-finite float64 values have no JSON representation and render as null.
type fullEntryDoc struct {
	Time       int64    `json:"time"`
	Count      int64    `json:"count"`
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	Total      *float64 `json:"total"`
	TotalCount int64    `json:"total_count"`
	Mean       *float64 `json:"mean"`
}

// countEntryDoc fixes the emitted field order for count-only entries.
type countEntryDoc struct {
	Time  int64 `json:"time"`
	Count int64 `json:"count"`
}

type histogramDoc struct {
	Type    string `json:"_type"`
	Entries []any  `json:"entries"`
}

// Render emits the structured document for an already-merged result, keyed
// by the facet name. Entries appear in the order present on the result;
// the renderer never re-sorts. Mean is computed fresh at render time.
func Render(h *facet.Histogram) ([]byte, error) {
	doc := histogramDoc{
		Type:    Type,
		Entries: make([]any, 0, len(h.Entries)),
	}

	for _, e := range h.Entries {
		if h.Kind == facet.KindCount {
			doc.Entries = append(doc.Entries, countEntryDoc{
				Time:  e.Time,
				Count: e.Count,
			})
			continue
		}
		doc.Entries = append(doc.Entries, fullEntryDoc{
			Time:       e.Time,
			Count:      e.Count,
			Min:        finite(e.Min),
			Max:        finite(e.Max),
			Total:      finite(e.Total),
			TotalCount: e.TotalCount,
			Mean:       finite(e.Mean()),
		})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	name, err := json.Marshal(h.Name)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	buf.WriteByte(':')
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	buf.Write(body)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// finite returns a pointer to v, or nil when v is NaN or infinite.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
