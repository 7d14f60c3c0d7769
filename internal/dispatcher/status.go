package dispatcher

import (
	"context"

	"github.com/pkg/errors"

	"github.com/glintql/dispatch-api/internal/compute"
	"github.com/glintql/dispatch-api/internal/models"
	"github.com/glintql/dispatch-api/internal/session"
)

// QueryStatus reconciles caller-held metadata with persisted results, session
// state and live job state.
//
// A status recorded in the result document always wins over backend job
// state: a job can finish successfully while the query itself reported a
// failure through the result document (wrong output schema, for instance),
// and streaming jobs run indefinitely while successive result documents keep
// reporting success. Only when no data payload exists yet does the statement
// state (session scope) or a live backend call decide.
func (d *Dispatcher) QueryStatus(ctx context.Context, meta models.AsyncQueryJobMetadata) (models.QueryResult, error) {
	if meta.IsDropIndex {
		status, err := decodeDropIndexJobID(meta.JobID)
		if err != nil {
			return models.QueryResult{}, err
		}
		return dropIndexResult(status), nil
	}

	var doc map[string]any
	var err error
	if meta.IsInteractive() {
		// Session-scoped metadata stores the statement id in JobID; the
		// result document is keyed by that query id.
		doc, err = d.results.ByQueryID(ctx, meta.JobID, meta.ResultLocation)
	} else {
		doc, err = d.results.ByJobID(ctx, meta.JobID, meta.ResultLocation)
	}
	if err != nil {
		return models.QueryResult{}, errors.Wrap(err, "read result document")
	}

	if data, ok := doc[models.DataField].(map[string]any); ok {
		result := models.QueryResult{Status: defaultedString(data, models.StatusField, compute.JobStateFailed), Data: data}
		result.Error = defaultedString(data, models.ErrorField, "")
		return result, nil
	}

	if meta.IsInteractive() {
		st, err := d.sessions.Statement(session.SessionID(meta.SessionID), session.StatementID(meta.JobID))
		if err != nil {
			return models.QueryResult{}, err
		}
		return models.QueryResult{Status: string(st.State())}, nil
	}

	run, err := d.jobClient.GetJobRun(ctx, meta.ApplicationID, meta.JobID)
	if err != nil {
		return models.QueryResult{}, errors.Wrap(err, "get job run")
	}
	return models.QueryResult{Status: run.State}, nil
}

// CancelQuery requests termination of the unit behind the metadata. For
// session-scoped statements this is a local state transition; otherwise the
// backend cancel is fire-and-forget and a later poll may still observe the
// job running briefly.
func (d *Dispatcher) CancelQuery(ctx context.Context, meta models.AsyncQueryJobMetadata) (string, error) {
	if meta.IsInteractive() {
		st, err := d.sessions.Statement(session.SessionID(meta.SessionID), session.StatementID(meta.JobID))
		if err != nil {
			return "", err
		}
		if err := st.Cancel(); err != nil {
			return "", err
		}
		return string(st.ID()), nil
	}

	runID, err := d.jobClient.CancelJobRun(ctx, meta.ApplicationID, meta.JobID)
	if err != nil {
		return "", errors.Wrap(err, "cancel job run")
	}
	return runID, nil
}

// defaultedString reads a string field from a document, falling back when the
// field is absent or empty. Missing status defaults to FAILED so a partial
// document never reports false success.
func defaultedString(doc map[string]any, field, fallback string) string {
	if v, ok := doc[field].(string); ok && v != "" {
		return v
	}
	return fallback
}
