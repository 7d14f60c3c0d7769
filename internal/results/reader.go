package results

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
)

// Reader loads result documents persisted by compute jobs. A returned
// document is empty (not nil, no error) when the job has not written a
// result yet.
type Reader interface {
	ByJobID(ctx context.Context, jobID, resultLocation string) (map[string]any, error)
	ByQueryID(ctx context.Context, queryID, resultLocation string) (map[string]any, error)
}

type postgresReader struct {
	db *sql.DB
}

func NewReader(db *sql.DB) Reader {
	return &postgresReader{db: db}
}

func (r *postgresReader) ByJobID(ctx context.Context, jobID, resultLocation string) (map[string]any, error) {
	return r.latest(ctx, "job_id", jobID, resultLocation)
}

func (r *postgresReader) ByQueryID(ctx context.Context, queryID, resultLocation string) (map[string]any, error) {
	return r.latest(ctx, "query_id", queryID, resultLocation)
}

func (r *postgresReader) latest(ctx context.Context, column, id, resultLocation string) (map[string]any, error) {
	query := `
		SELECT doc
		FROM query_results
		WHERE location = $1 AND ` + column + ` = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, resultLocation, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]any{}, nil
		}
		return nil, errors.Wrapf(err, "read result document %s=%s", column, id)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode result document %s=%s", column, id)
	}
	return doc, nil
}
