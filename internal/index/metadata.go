// Package index exposes the materialized-index metadata store and the
// backing document store consumed by the drop-index path.
package index

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/glintql/dispatch-api/internal/queryclass"
)

var ErrIndexNotFound = errors.New("index metadata not found")

// Metadata identifies the job owning a materialized index and whether the
// index was created with auto refresh (in which case that job runs
// continuously and must be cancelled before the index is dropped).
type Metadata struct {
	JobID       string
	AutoRefresh bool
}

// MetadataReader resolves an index description to its owning job.
type MetadataReader interface {
	Resolve(ctx context.Context, details queryclass.IndexDetails) (Metadata, error)
}

// Store is the backing document store for materialized indexes.
type Store interface {
	// Delete removes the index and its documents. The returned flag reports
	// whether the store acknowledged the deletion.
	Delete(ctx context.Context, storeIndexName string) (bool, error)
}

type postgresMetadataReader struct {
	db *sql.DB
}

func NewMetadataReader(db *sql.DB) MetadataReader {
	return &postgresMetadataReader{db: db}
}

func (r *postgresMetadataReader) Resolve(ctx context.Context, details queryclass.IndexDetails) (Metadata, error) {
	const query = `
		SELECT job_id, auto_refresh
		FROM mat_indexes
		WHERE store_name = $1`

	name := details.StoreIndexName()
	var meta Metadata
	err := r.db.QueryRowContext(ctx, query, name).Scan(&meta.JobID, &meta.AutoRefresh)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Metadata{}, errors.Wrapf(ErrIndexNotFound, "%s", name)
		}
		return Metadata{}, errors.Wrapf(err, "resolve index %s", name)
	}
	return meta, nil
}

type postgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Delete(ctx context.Context, storeIndexName string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "begin index delete")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM index_documents WHERE index_name = $1`, storeIndexName); err != nil {
		return false, errors.Wrapf(err, "delete documents of index %s", storeIndexName)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM mat_indexes WHERE store_name = $1`, storeIndexName)
	if err != nil {
		return false, errors.Wrapf(err, "delete index %s", storeIndexName)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "commit index delete")
	}
	return deleted > 0, nil
}
