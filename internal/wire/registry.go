package wire

import (
	"fmt"
	"sync"

	"github.com/faceton/faceton/internal/errors"
	"github.com/faceton/faceton/internal/facet"
)

// Stream type tags identify the facet variant of an encoded payload. The
// tag travels alongside the payload (transport header, archive column),
// never inside it.
const (
	StreamTypeFull  = "fHistogram"
	StreamTypeCount = "cHistogram"
)

// DecodeFunc deserializes one encoded facet result.
type DecodeFunc func(data []byte) (*facet.Histogram, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]DecodeFunc{}
)

func init() {
	Register(StreamTypeFull, DecodeFull)
	Register(StreamTypeCount, DecodeCount)
}

// Register binds a stream type tag to its decode function. Later
// registrations of the same tag win, which lets tests substitute decoders.
func Register(streamType string, fn DecodeFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[streamType] = fn
}

// Lookup resolves a stream type tag to its decode function. An unknown tag
// is the registry's error, not the codec's.
func Lookup(streamType string) (DecodeFunc, error) {
	registryMu.RLock()
	fn, ok := registry[streamType]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.NewFormatError(errors.CodeUnknownStreamType,
			fmt.Sprintf("wire: unknown stream type %q", streamType))
	}
	return fn, nil
}

// StreamType returns the stream type tag for a result's kind.
func StreamType(h *facet.Histogram) string {
	if h.Kind == facet.KindCount {
		return StreamTypeCount
	}
	return StreamTypeFull
}
