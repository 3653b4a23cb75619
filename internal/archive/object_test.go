package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceton/faceton/internal/errors"
)

func newTestObjectArchive(t *testing.T) (*ObjectArchive, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	return NewObjectArchive(store), dir
}

func TestObjectArchive_PutGet(t *testing.T) {
	a, _ := newTestObjectArchive(t)
	ctx := context.Background()

	rec := &Record{
		RequestID:  "req-1",
		Facet:      "latency",
		StreamType: "fHistogram",
		Payload:    []byte{0x10, 0x20, 0x30},
	}
	require.NoError(t, a.Put(ctx, rec))

	got, err := a.Get(ctx, "req-1", "latency")
	require.NoError(t, err)
	assert.Equal(t, rec.Payload, got.Payload)
	assert.Equal(t, "fHistogram", got.StreamType)
}

func TestObjectArchive_GetMissing(t *testing.T) {
	a, _ := newTestObjectArchive(t)

	_, err := a.Get(context.Background(), "nope", "latency")
	require.Error(t, err)
	assert.Equal(t, errors.CodeRecordNotFound, errors.GetCode(err))
}

func TestObjectArchive_List(t *testing.T) {
	a, _ := newTestObjectArchive(t)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "latency", StreamType: "fHistogram", Payload: []byte("a"),
	}))
	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-2", Facet: "hits", StreamType: "cHistogram", Payload: []byte("b"),
	}))

	keys, err := a.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Key{
		{RequestID: "req-1", Facet: "latency"},
		{RequestID: "req-2", Facet: "hits"},
	}, keys)
}

func TestObjectArchive_ListEmpty(t *testing.T) {
	a, _ := newTestObjectArchive(t)

	keys, err := a.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestObjectArchive_Delete(t *testing.T) {
	a, _ := newTestObjectArchive(t)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "latency", StreamType: "fHistogram", Payload: []byte("x"),
	}))
	require.NoError(t, a.Delete(ctx, "req-1", "latency"))

	_, err := a.Get(ctx, "req-1", "latency")
	assert.Equal(t, errors.CodeRecordNotFound, errors.GetCode(err))

	require.NoError(t, a.Delete(ctx, "req-1", "latency"))
}

func TestObjectArchive_CorruptBlob(t *testing.T) {
	a, dir := newTestObjectArchive(t)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, &Record{
		RequestID: "req-1", Facet: "latency", StreamType: "fHistogram",
		Payload: []byte("a reasonably long payload so corruption lands in data"),
	}))

	path := filepath.Join(dir, "facets", "req-1", "latency")
	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, blob, 0644))

	_, err = a.Get(ctx, "req-1", "latency")
	require.Error(t, err)
	assert.Equal(t, errors.CodeChecksumMismatch, errors.GetCode(err))
}

func TestLocalStore_AtomicPutLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "facets/req-1/latency", []byte("data")))
	require.NoError(t, store.Put(ctx, "facets/req-1/latency", []byte("data2")))

	entries, err := os.ReadDir(filepath.Join(dir, "facets", "req-1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "latency", entries[0].Name())

	got, err := store.Get(ctx, "facets/req-1/latency")
	require.NoError(t, err)
	assert.Equal(t, []byte("data2"), got)
}
