package archive

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/faceton/faceton/internal/errors"
)

// ObjectStore abstracts the byte-blob storage behind an object-backed
// archive. Implementations include S3 and the local filesystem.
type ObjectStore interface {
	// Put writes an object, overwriting any existing one.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads an object. A missing key yields os.ErrNotExist (wrapped).
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object; missing keys are ignored.
	Delete(ctx context.Context, key string) error

	// List returns all object keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ObjectArchive implements Archive over an ObjectStore, one envelope blob
// per record under facets/<requestID>/<facet>.
type ObjectArchive struct {
	store ObjectStore
}

// NewObjectArchive creates an archive over the given object store.
func NewObjectArchive(store ObjectStore) *ObjectArchive {
	return &ObjectArchive{store: store}
}

const objectKeyPrefix = "facets/"

func objectKey(requestID, facetName string) string {
	return objectKeyPrefix + requestID + "/" + facetName
}

// Put stores a record as a sealed envelope blob.
func (a *ObjectArchive) Put(ctx context.Context, rec *Record) error {
	return a.store.Put(ctx, objectKey(rec.RequestID, rec.Facet), sealEnvelope(rec))
}

// Get retrieves and verifies a record.
func (a *ObjectArchive) Get(ctx context.Context, requestID, facetName string) (*Record, error) {
	data, err := a.store.Get(ctx, objectKey(requestID, facetName))
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewArchiveError(errors.CodeRecordNotFound,
				fmt.Sprintf("archive: no record for %s/%s", requestID, facetName), nil)
		}
		return nil, errors.NewArchiveError(errors.CodeGetFailed,
			fmt.Sprintf("archive: failed to load %s/%s", requestID, facetName), err)
	}

	streamType, payload, err := openEnvelope(data)
	if err != nil {
		return nil, err
	}

	return &Record{
		RequestID:  requestID,
		Facet:      facetName,
		StreamType: streamType,
		Payload:    payload,
	}, nil
}

// List returns all archived keys.
func (a *ObjectArchive) List(ctx context.Context) ([]Key, error) {
	objects, err := a.store.List(ctx, objectKeyPrefix)
	if err != nil {
		return nil, err
	}

	keys := make([]Key, 0, len(objects))
	for _, obj := range objects {
		rest := strings.TrimPrefix(obj, objectKeyPrefix)
		requestID, facetName, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		keys = append(keys, Key{RequestID: requestID, Facet: facetName})
	}
	return keys, nil
}

// Delete removes a record.
func (a *ObjectArchive) Delete(ctx context.Context, requestID, facetName string) error {
	return a.store.Delete(ctx, objectKey(requestID, facetName))
}

// Close is a no-op; object stores hold no local resources.
func (a *ObjectArchive) Close() error {
	return nil
}

// LocalStore implements ObjectStore on the local filesystem, mirroring the
// object key space as a directory tree. Used for tests and single-node
// deployments.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local object store rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("archive: failed to create local store root: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes the object atomically via a temp file rename.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("archive: failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("archive: failed to create temp object: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("archive: failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("archive: failed to close object: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("archive: failed to publish object: %w", err)
	}
	return nil
}

// Get reads an object.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("archive: failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an object; a missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("archive: failed to delete object %s: %w", key, err)
	}
	return nil
}

// List walks the tree under prefix and returns object keys sorted.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	root := s.path(prefix)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive: failed to list objects under %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}
