package facet

import (
	"fmt"
	"sort"

	"github.com/faceton/faceton/internal/errors"
)

// ComparatorType identifies a total order over histogram entries, keyed on
// bucket time, count, or total, in ascending or descending direction.
//
// The byte values are part of the wire format and must never be renumbered;
// new orderings get new tags appended at the end.
type ComparatorType byte

const (
	TimeAsc ComparatorType = iota
	TimeDesc
	CountAsc
	CountDesc
	TotalAsc
	TotalDesc
)

// comparatorNames maps each ordering to its external name.
var comparatorNames = map[ComparatorType]string{
	TimeAsc:   "time_asc",
	TimeDesc:  "time_desc",
	CountAsc:  "count_asc",
	CountDesc: "count_desc",
	TotalAsc:  "total_asc",
	TotalDesc: "total_desc",
}

// String returns the external name of the ordering.
func (c ComparatorType) String() string {
	if name, ok := comparatorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("comparator(%d)", byte(c))
}

// Tag returns the one-byte wire tag of the ordering.
func (c ComparatorType) Tag() byte {
	return byte(c)
}

// ComparatorFromTag maps a wire tag back to its ordering. An unrecognized
// tag is a format error; the decoder must not guess a default.
func ComparatorFromTag(tag byte) (ComparatorType, error) {
	c := ComparatorType(tag)
	if _, ok := comparatorNames[c]; !ok {
		return 0, errors.NewFormatError(errors.CodeUnknownOrdering,
			fmt.Sprintf("facet: unknown ordering tag %d", tag))
	}
	return c, nil
}

// ParseComparatorType converts an external ordering name to its type.
func ParseComparatorType(name string) (ComparatorType, error) {
	for c, n := range comparatorNames {
		if n == name {
			return c, nil
		}
	}
	return 0, errors.NewValidationError(errors.CodeInvalidRequest,
		fmt.Sprintf("facet: unknown ordering %q", name))
}

// Less reports whether entry a orders before entry b. Bucket times are
// unique within a result, so time orderings need no tie-break; count and
// total orderings break ties by ascending time so that repeated sorts of
// the same entry set always produce the same output order.
func (c ComparatorType) Less(a, b *Entry) bool {
	switch c {
	case TimeAsc:
		return a.Time < b.Time
	case TimeDesc:
		return a.Time > b.Time
	case CountAsc:
		if a.Count != b.Count {
			return a.Count < b.Count
		}
	case CountDesc:
		if a.Count != b.Count {
			return a.Count > b.Count
		}
	case TotalAsc:
		if a.Total != b.Total {
			return a.Total < b.Total
		}
	case TotalDesc:
		if a.Total != b.Total {
			return a.Total > b.Total
		}
	}
	return a.Time < b.Time
}

// Sort orders entries in place under this comparator.
func (c ComparatorType) Sort(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return c.Less(entries[i], entries[j])
	})
}
