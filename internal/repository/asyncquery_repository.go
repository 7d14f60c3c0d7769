package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/glintql/dispatch-api/internal/models"
)

var ErrQueryNotFound = errors.New("async query not found")

// AsyncQueryRepository persists the metadata correlating a dispatch to a
// pollable unit. Records are written once after a successful dispatch and
// read back by the status and cancel endpoints.
type AsyncQueryRepository interface {
	Create(ctx context.Context, meta models.AsyncQueryJobMetadata) error
	Get(ctx context.Context, queryID string) (models.AsyncQueryJobMetadata, error)
}

type asyncQueryRepository struct {
	db *sql.DB
}

func NewAsyncQueryRepository(db *sql.DB) AsyncQueryRepository {
	return &asyncQueryRepository{db: db}
}

func (r *asyncQueryRepository) Create(ctx context.Context, meta models.AsyncQueryJobMetadata) error {
	const query = `
		INSERT INTO async_queries (query_id, job_id, session_id, application_id, result_location, is_drop_index, datasource, lang)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var sessionID sql.NullString
	if meta.SessionID != "" {
		sessionID = sql.NullString{String: meta.SessionID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		meta.QueryID,
		meta.JobID,
		sessionID,
		meta.ApplicationID,
		meta.ResultLocation,
		meta.IsDropIndex,
		meta.Datasource,
		string(meta.LangType),
	)
	return errors.Wrapf(err, "persist async query %s", meta.QueryID)
}

func (r *asyncQueryRepository) Get(ctx context.Context, queryID string) (models.AsyncQueryJobMetadata, error) {
	const query = `
		SELECT query_id, job_id, session_id, application_id, result_location, is_drop_index, datasource, lang
		FROM async_queries
		WHERE query_id = $1`

	var meta models.AsyncQueryJobMetadata
	var sessionID sql.NullString
	var lang string
	err := r.db.QueryRowContext(ctx, query, queryID).Scan(
		&meta.QueryID,
		&meta.JobID,
		&sessionID,
		&meta.ApplicationID,
		&meta.ResultLocation,
		&meta.IsDropIndex,
		&meta.Datasource,
		&lang,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AsyncQueryJobMetadata{}, errors.Wrapf(ErrQueryNotFound, "%s", queryID)
		}
		return models.AsyncQueryJobMetadata{}, err
	}
	meta.SessionID = sessionID.String
	meta.LangType = models.LangType(lang)
	return meta, nil
}
