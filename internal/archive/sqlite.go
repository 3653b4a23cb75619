package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/faceton/faceton/internal/errors"
)

// SQLiteArchive stores records in a single SQLite database file. Payloads
// are snappy-compressed with an xxhash64 checksum verified on read.
type SQLiteArchive struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS facet_archive (
	request_id  TEXT    NOT NULL,
	facet       TEXT    NOT NULL,
	stream_type TEXT    NOT NULL,
	checksum    INTEGER NOT NULL,
	payload     BLOB    NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (request_id, facet)
);
`

// NewSQLiteArchive opens (creating if needed) a SQLite-backed archive at
// the given path.
func NewSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, errors.NewArchiveError(errors.CodePutFailed,
			"archive: failed to open sqlite database", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.NewArchiveError(errors.CodePutFailed,
			"archive: failed to initialize sqlite schema", err)
	}

	return &SQLiteArchive{db: db}, nil
}

// Put stores a record, replacing any earlier record under the same key.
func (a *SQLiteArchive) Put(ctx context.Context, rec *Record) error {
	compressed, checksum := sealPayload(rec.Payload)

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO facet_archive
		 (request_id, facet, stream_type, checksum, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Facet, rec.StreamType,
		int64(checksum), compressed, createdAt.UnixMilli())
	if err != nil {
		return errors.NewArchiveError(errors.CodePutFailed,
			fmt.Sprintf("archive: failed to store %s/%s", rec.RequestID, rec.Facet), err)
	}
	return nil
}

// Get retrieves and verifies a record.
func (a *SQLiteArchive) Get(ctx context.Context, requestID, facetName string) (*Record, error) {
	var (
		streamType string
		checksum   int64
		compressed []byte
		createdAt  int64
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT stream_type, checksum, payload, created_at
		 FROM facet_archive WHERE request_id = ? AND facet = ?`,
		requestID, facetName,
	).Scan(&streamType, &checksum, &compressed, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewArchiveError(errors.CodeRecordNotFound,
			fmt.Sprintf("archive: no record for %s/%s", requestID, facetName), nil)
	}
	if err != nil {
		return nil, errors.NewArchiveError(errors.CodeGetFailed,
			fmt.Sprintf("archive: failed to load %s/%s", requestID, facetName), err)
	}

	payload, err := openPayload(compressed, uint64(checksum))
	if err != nil {
		return nil, err
	}

	return &Record{
		RequestID:  requestID,
		Facet:      facetName,
		StreamType: streamType,
		Payload:    payload,
		CreatedAt:  time.UnixMilli(createdAt),
	}, nil
}

// List returns all archived keys, newest first.
func (a *SQLiteArchive) List(ctx context.Context) ([]Key, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT request_id, facet FROM facet_archive ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.NewArchiveError(errors.CodeGetFailed,
			"archive: failed to list records", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.RequestID, &k.Facet); err != nil {
			return nil, errors.NewArchiveError(errors.CodeGetFailed,
				"archive: failed to scan record key", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewArchiveError(errors.CodeGetFailed,
			"archive: failed to list records", err)
	}
	return keys, nil
}

// Delete removes a record; missing keys are ignored.
func (a *SQLiteArchive) Delete(ctx context.Context, requestID, facetName string) error {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM facet_archive WHERE request_id = ? AND facet = ?`,
		requestID, facetName)
	if err != nil {
		return errors.NewArchiveError(errors.CodePutFailed,
			fmt.Sprintf("archive: failed to delete %s/%s", requestID, facetName), err)
	}
	return nil
}

// Close closes the underlying database.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
