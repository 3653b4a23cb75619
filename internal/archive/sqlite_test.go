package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceton/faceton/internal/errors"
)

func newTestSQLite(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := NewSQLiteArchive(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSQLite_PutGet(t *testing.T) {
	a := newTestSQLite(t)
	ctx := context.Background()

	rec := &Record{
		RequestID:  "req-1",
		Facet:      "latency",
		StreamType: "fHistogram",
		Payload:    []byte{0xDE, 0xAD, 0xBE, 0xEF},
		CreatedAt:  time.UnixMilli(1700000000000),
	}
	require.NoError(t, a.Put(ctx, rec))

	got, err := a.Get(ctx, "req-1", "latency")
	require.NoError(t, err)
	assert.Equal(t, rec.Payload, got.Payload)
	assert.Equal(t, "fHistogram", got.StreamType)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
}

func TestSQLite_GetMissing(t *testing.T) {
	a := newTestSQLite(t)

	_, err := a.Get(context.Background(), "nope", "latency")
	require.Error(t, err)
	assert.Equal(t, errors.CodeRecordNotFound, errors.GetCode(err))
}

func TestSQLite_PutOverwrites(t *testing.T) {
	a := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "latency", StreamType: "fHistogram", Payload: []byte("v1"),
	}))
	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "latency", StreamType: "cHistogram", Payload: []byte("v2"),
	}))

	got, err := a.Get(ctx, "req-1", "latency")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Payload)
	assert.Equal(t, "cHistogram", got.StreamType)

	keys, err := a.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestSQLite_ListNewestFirst(t *testing.T) {
	a := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-old", Facet: "latency", StreamType: "fHistogram",
		Payload: []byte("x"), CreatedAt: time.UnixMilli(1000),
	}))
	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-new", Facet: "latency", StreamType: "fHistogram",
		Payload: []byte("y"), CreatedAt: time.UnixMilli(2000),
	}))

	keys, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "req-new", keys[0].RequestID)
	assert.Equal(t, "req-old", keys[1].RequestID)
}

func TestSQLite_Delete(t *testing.T) {
	a := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "latency", StreamType: "fHistogram", Payload: []byte("x"),
	}))
	require.NoError(t, a.Delete(ctx, "req-1", "latency"))

	_, err := a.Get(ctx, "req-1", "latency")
	assert.Equal(t, errors.CodeRecordNotFound, errors.GetCode(err))

	// Deleting a missing key is not an error.
	require.NoError(t, a.Delete(ctx, "req-1", "latency"))
}

func TestSQLite_SameRequestMultipleFacets(t *testing.T) {
	a := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "latency", StreamType: "fHistogram", Payload: []byte("a"),
	}))
	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "hits", StreamType: "cHistogram", Payload: []byte("b"),
	}))

	latency, err := a.Get(ctx, "req-1", "latency")
	require.NoError(t, err)
	hits, err := a.Get(ctx, "req-1", "hits")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), latency.Payload)
	assert.Equal(t, []byte("b"), hits.Payload)
}
