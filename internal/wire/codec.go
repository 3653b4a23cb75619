// Package wire implements the binary encoding used to ship histogram facet
// results between shards and the coordinator, plus the stream-type registry
// that dispatches decoding.
//
// Full-stats layout (fixed field order, no padding):
//
//	uvarint  name length, then that many UTF-8 bytes
//	byte     ordering tag
//	uvarint  entry count
//	repeated per entry:
//	    int64    time        (fixed-width, little-endian)
//	    uvarint  count
//	    float64  min         (IEEE-754 bits, little-endian)
//	    float64  max
//	    uvarint  totalCount
//	    float64  total
//
// The count-only layout carries just time and count per entry. Entries are
// decoded in exactly the order they were written; no re-sort happens on
// read.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/snappy"

	"github.com/faceton/faceton/internal/errors"
	"github.com/faceton/faceton/internal/facet"
)

// Encode serializes a histogram facet result. The layout depends on the
// result's kind; the kind itself travels out of band as the stream type
// (see registry.go).
func Encode(h *facet.Histogram) []byte {
	// name + tag + count + entries; the per-entry estimate is the full
	// fixed-width footprint, varints only shrink it.
	buf := make([]byte, 0, len(h.Name)+2*binary.MaxVarintLen64+len(h.Entries)*42)

	buf = binary.AppendUvarint(buf, uint64(len(h.Name)))
	buf = append(buf, h.Name...)
	buf = append(buf, h.Ordering.Tag())
	buf = binary.AppendUvarint(buf, uint64(len(h.Entries)))

	for _, e := range h.Entries {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Time))
		buf = binary.AppendUvarint(buf, uint64(e.Count))
		if h.Kind == facet.KindFull {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(e.Min))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(e.Max))
			buf = binary.AppendUvarint(buf, uint64(e.TotalCount))
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(e.Total))
		}
	}

	return buf
}

// DecodeFull deserializes a full-stats histogram facet result. A truncated
// stream or unknown ordering tag fails without returning a partial object.
func DecodeFull(data []byte) (*facet.Histogram, error) {
	return decode(data, facet.KindFull)
}

// DecodeCount deserializes a count-only histogram facet result.
func DecodeCount(data []byte) (*facet.Histogram, error) {
	return decode(data, facet.KindCount)
}

func decode(data []byte, kind facet.Kind) (*facet.Histogram, error) {
	d := &decoder{data: data}

	name, err := d.readString()
	if err != nil {
		return nil, err
	}
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	ordering, err := facet.ComparatorFromTag(tag)
	if err != nil {
		return nil, err
	}
	n, err := d.readUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(d.data)-d.off) {
		// Each entry occupies at least one byte; a count beyond the
		// remaining bytes can never be satisfied.
		return nil, truncated(d.off)
	}

	entries := make([]*facet.Entry, 0, n)
	for i := uint64(0); i < n; i++ {
		t, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		count, err := d.readUvarint()
		if err != nil {
			return nil, err
		}

		e := facet.NewEntry(int64(t))
		e.Count = int64(count)

		if kind == facet.KindFull {
			minBits, err := d.readUint64()
			if err != nil {
				return nil, err
			}
			maxBits, err := d.readUint64()
			if err != nil {
				return nil, err
			}
			totalCount, err := d.readUvarint()
			if err != nil {
				return nil, err
			}
			totalBits, err := d.readUint64()
			if err != nil {
				return nil, err
			}
			e.Min = math.Float64frombits(minBits)
			e.Max = math.Float64frombits(maxBits)
			e.TotalCount = int64(totalCount)
			e.Total = math.Float64frombits(totalBits)
		}

		entries = append(entries, e)
	}

	return facet.NewHistogram(name, kind, ordering, entries), nil
}

// Compress wraps an encoded payload in a snappy block for transport or
// archival.
func Compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// Decompress unwraps a snappy block. Corrupt input is a format error.
func Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.WrapFormatError(errors.CodeCorruptPayload,
			"wire: snappy payload is corrupt", err)
	}
	return out, nil
}

// decoder walks a byte slice with an explicit offset so every read can
// report precisely where a truncated stream gave out.
type decoder struct {
	data []byte
	off  int
}

func (d *decoder) readByte() (byte, error) {
	if d.off >= len(d.data) {
		return 0, truncated(d.off)
	}
	b := d.data[d.off]
	d.off++
	return b, nil
}

func (d *decoder) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data[d.off:])
	if n <= 0 {
		return 0, truncated(d.off)
	}
	d.off += n
	return v, nil
}

func (d *decoder) readUint64() (uint64, error) {
	if len(d.data)-d.off < 8 {
		return 0, truncated(d.off)
	}
	v := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8
	return v, nil
}

func (d *decoder) readString() (string, error) {
	n, err := d.readUvarint()
	if err != nil {
		return "", err
	}
	if n > uint64(len(d.data)-d.off) {
		return "", truncated(d.off)
	}
	s := string(d.data[d.off : d.off+int(n)])
	d.off += int(n)
	return s, nil
}

func truncated(off int) error {
	return errors.NewFormatError(errors.CodeTruncatedStream,
		fmt.Sprintf("wire: stream truncated at byte %d", off))
}
