package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/glintql/dispatch-api/internal/config"
	"github.com/glintql/dispatch-api/internal/datasource"
	"github.com/glintql/dispatch-api/internal/dispatcher"
	"github.com/glintql/dispatch-api/internal/models"
	"github.com/glintql/dispatch-api/internal/repository"
	"github.com/glintql/dispatch-api/internal/session"
)

// AsyncQueryHandler is the REST surface over the dispatcher: it stamps the
// server's execution context onto inbound queries, persists the resulting
// job metadata, and replays that metadata into status and cancel calls.
type AsyncQueryHandler struct {
	dispatcher *dispatcher.Dispatcher
	queries    repository.AsyncQueryRepository
	cfg        *config.Config
	logger     zerolog.Logger
}

func NewAsyncQueryHandler(d *dispatcher.Dispatcher, queries repository.AsyncQueryRepository, cfg *config.Config, logger zerolog.Logger) *AsyncQueryHandler {
	return &AsyncQueryHandler{
		dispatcher: d,
		queries:    queries,
		cfg:        cfg,
		logger:     logger,
	}
}

type createQueryRequest struct {
	Query      string `json:"query"`
	Lang       string `json:"lang"`
	Datasource string `json:"datasource"`
	SessionID  string `json:"session_id"`
}

type createQueryResponse struct {
	QueryID   string `json:"query_id"`
	SessionID string `json:"session_id,omitempty"`
}

func (h *AsyncQueryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Query == "" || payload.Datasource == "" {
		http.Error(w, "query and datasource are required", http.StatusBadRequest)
		return
	}
	if payload.Lang == "" {
		payload.Lang = string(models.LangSQL)
	}
	lang, ok := models.ParseLangType(payload.Lang)
	if !ok {
		http.Error(w, "unsupported query language: "+payload.Lang, http.StatusBadRequest)
		return
	}

	req := models.DispatchQueryRequest{
		Query:             payload.Query,
		LangType:          lang,
		Datasource:        payload.Datasource,
		ClusterName:       h.cfg.ClusterName,
		ApplicationID:     h.cfg.Compute.ApplicationID,
		ExecutionRoleARN:  h.cfg.Compute.ExecutionRoleARN,
		SessionID:         payload.SessionID,
		ExtraSubmitParams: h.cfg.ExtraSubmitParams,
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}

	meta := models.AsyncQueryJobMetadata{
		QueryID:        uuid.NewString(),
		JobID:          resp.ID,
		SessionID:      resp.SessionID,
		ApplicationID:  h.cfg.Compute.ApplicationID,
		ResultLocation: resp.ResultLocation,
		IsDropIndex:    resp.IsDropIndex,
		Datasource:     req.Datasource,
		LangType:       req.LangType,
	}
	if err := h.queries.Create(r.Context(), meta); err != nil {
		h.logger.Error().Err(err).Str("query_id", meta.QueryID).Msg("failed to persist query metadata")
		http.Error(w, "Failed to persist query metadata", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createQueryResponse{QueryID: meta.QueryID, SessionID: meta.SessionID})
}

func (h *AsyncQueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	queryID := mux.Vars(r)["queryID"]
	meta, err := h.queries.Get(r.Context(), queryID)
	if err != nil {
		if errors.Is(err, repository.ErrQueryNotFound) {
			http.Error(w, "Query not found: "+queryID, http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load query metadata: "+err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := h.dispatcher.QueryStatus(r.Context(), meta)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("query_id", queryID).Msg("failed to fetch query status")
		http.Error(w, "Failed to fetch query status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *AsyncQueryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	queryID := mux.Vars(r)["queryID"]
	meta, err := h.queries.Get(r.Context(), queryID)
	if err != nil {
		if errors.Is(err, repository.ErrQueryNotFound) {
			http.Error(w, "Query not found: "+queryID, http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load query metadata: "+err.Error(), http.StatusInternalServerError)
		return
	}

	cancelledID, err := h.dispatcher.CancelQuery(r.Context(), meta)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("query_id", queryID).Msg("failed to cancel query")
		http.Error(w, "Failed to cancel query", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"query_id": queryID, "cancelled_id": cancelledID})
}

func (h *AsyncQueryHandler) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, datasource.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, datasource.ErrNotFound), isNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error().Err(err).Msg("dispatch failed")
		http.Error(w, "Failed to dispatch query: "+err.Error(), http.StatusInternalServerError)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, session.ErrSessionNotFound) ||
		errors.Is(err, session.ErrStatementNotFound)
}
