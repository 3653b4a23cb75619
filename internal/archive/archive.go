// Package archive stores encoded merged facet results for later replay and
// debugging. The merge engine itself never persists anything; archiving
// applies to the wire-encoded bytes after the result has been produced.
package archive

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"

	"github.com/faceton/faceton/internal/errors"
)

// Record is one archived result: the wire-encoded payload of a merged
// facet, keyed by the request that produced it.
type Record struct {
	RequestID  string
	Facet      string
	StreamType string
	Payload    []byte // wire-encoded, uncompressed
	CreatedAt  time.Time
}

// Archive persists and retrieves archived results. Implementations must be
// safe for concurrent use.
type Archive interface {
	// Put stores a record. Storing the same (request, facet) key twice
	// overwrites the earlier record.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves a record; a missing key yields RECORD_NOT_FOUND.
	Get(ctx context.Context, requestID, facetName string) (*Record, error)

	// List returns the (requestID, facet) keys currently archived.
	List(ctx context.Context) ([]Key, error)

	// Delete removes a record. Deleting a missing key is not an error.
	Delete(ctx context.Context, requestID, facetName string) error

	// Close releases backend resources.
	Close() error
}

// Key identifies one archived record.
type Key struct {
	RequestID string
	Facet     string
}

// sealPayload compresses a payload and returns it with its checksum. The
// checksum covers the uncompressed bytes so corruption in either the store
// or the compression layer is caught on read.
func sealPayload(payload []byte) (compressed []byte, checksum uint64) {
	return snappy.Encode(nil, payload), xxhash.Sum64(payload)
}

// openPayload decompresses a sealed payload and verifies its checksum.
func openPayload(compressed []byte, checksum uint64) ([]byte, error) {
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.NewArchiveError(errors.CodeChecksumMismatch,
			"archive: stored payload is corrupt", err)
	}
	if got := xxhash.Sum64(payload); got != checksum {
		return nil, errors.NewArchiveError(errors.CodeChecksumMismatch,
			fmt.Sprintf("archive: checksum mismatch: stored %016x, computed %016x", checksum, got), nil)
	}
	return payload, nil
}

// Envelope layout for backends that store a single opaque blob per record:
//
//	uvarint  stream type length, then that many bytes
//	8 bytes  xxhash64 of the uncompressed payload (little-endian)
//	rest     snappy-compressed payload

// sealEnvelope builds the blob for one record.
func sealEnvelope(rec *Record) []byte {
	compressed, checksum := sealPayload(rec.Payload)

	buf := make([]byte, 0, len(rec.StreamType)+9+len(compressed))
	buf = binary.AppendUvarint(buf, uint64(len(rec.StreamType)))
	buf = append(buf, rec.StreamType...)
	buf = binary.LittleEndian.AppendUint64(buf, checksum)
	buf = append(buf, compressed...)
	return buf
}

// openEnvelope parses a blob back into stream type and verified payload.
func openEnvelope(data []byte) (streamType string, payload []byte, err error) {
	n, read := binary.Uvarint(data)
	if read <= 0 || uint64(len(data)-read) < n+8 {
		return "", nil, errors.NewArchiveError(errors.CodeChecksumMismatch,
			"archive: stored envelope is truncated", nil)
	}
	streamType = string(data[read : read+int(n)])
	off := read + int(n)
	checksum := binary.LittleEndian.Uint64(data[off:])

	payload, err = openPayload(data[off+8:], checksum)
	if err != nil {
		return "", nil, err
	}
	return streamType, payload, nil
}
