package dispatcher

import (
	"context"
	"encoding/base64"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/glintql/dispatch-api/internal/compute"
	"github.com/glintql/dispatch-api/internal/datasource"
	"github.com/glintql/dispatch-api/internal/models"
	"github.com/glintql/dispatch-api/internal/queryclass"
)

const dropResultPrefixLen = 10

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// encodeDropIndexJobID embeds the final drop outcome into a synthetic job id.
// The random prefix only keeps repeated encodings of the same status
// textually distinct; it carries no information and is discarded on decode.
func encodeDropIndexJobID(status string) string {
	buf := make([]byte, dropResultPrefixLen, dropResultPrefixLen+len(status))
	for i := 0; i < dropResultPrefixLen; i++ {
		buf[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	buf = append(buf, status...)
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeDropIndexJobID(jobID string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(jobID)
	if err != nil {
		return "", errors.Wrap(err, "decode drop index job id")
	}
	if len(raw) < dropResultPrefixLen {
		return "", errors.Errorf("malformed drop index job id %q", jobID)
	}
	return string(raw[dropResultPrefixLen:]), nil
}

// dropIndexResult synthesizes the status document for a decoded drop outcome.
// Success carries a placeholder payload so pollers see the usual data shape.
func dropIndexResult(status string) models.QueryResult {
	if strings.EqualFold(status, compute.JobStateSuccess) {
		return models.QueryResult{
			Status: status,
			Data: map[string]any{
				"result":        []any{},
				"schema":        []any{},
				"applicationId": "placeholderDropIndexApplicationId",
			},
		}
	}
	return models.QueryResult{Status: status, Error: "failed to drop index"}
}

// dispatchDropIndex performs the index drop locally and reports the outcome
// as a synthetic job. Cancel and delete are independent best-effort steps
// attempted exactly once each; the delete outcome alone decides the reported
// status (fail-closed: anything short of an acknowledged delete is FAILED),
// while a cancel failure is only logged.
func (d *Dispatcher) dispatchDropIndex(ctx context.Context, req models.DispatchQueryRequest, details queryclass.IndexDetails, meta datasource.Metadata) (models.DispatchQueryResponse, error) {
	idxMeta, err := d.indexMeta.Resolve(ctx, details)
	if err != nil {
		return models.DispatchQueryResponse{}, errors.Wrap(err, "resolve index metadata")
	}

	// An index created without auto refresh has no job to cancel.
	if idxMeta.AutoRefresh {
		if _, err := d.jobClient.CancelJobRun(ctx, req.ApplicationID, idxMeta.JobID); err != nil {
			d.logger.Warn().Err(err).
				Str("job_id", idxMeta.JobID).
				Msg("failed to cancel index refresh job")
		}
	}

	status := compute.JobStateFailed
	storeName := details.StoreIndexName()
	acked, err := d.indexStore.Delete(ctx, storeName)
	switch {
	case err != nil:
		d.logger.Error().Err(err).Str("index", storeName).Msg("failed to delete index")
	case !acked:
		d.logger.Error().Str("index", storeName).Msg("index delete not acknowledged")
	default:
		status = compute.JobStateSuccess
	}

	return models.DispatchQueryResponse{
		ID:             encodeDropIndexJobID(status),
		IsDropIndex:    true,
		ResultLocation: meta.ResultLocation,
	}, nil
}
