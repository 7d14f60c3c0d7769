package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/glintql/dispatch-api/internal/session"
)

// StatementHandler is the write-side contract for the remote session runner:
// the runner reports statement lifecycle transitions here while it picks up
// and executes statements. Illegal transitions (including any attempt to
// move a terminal statement) are rejected, so a stale runner update can
// never resurrect a finished statement.
type StatementHandler struct {
	sessions *session.Manager
	logger   zerolog.Logger
}

func NewStatementHandler(sessions *session.Manager, logger zerolog.Logger) *StatementHandler {
	return &StatementHandler{sessions: sessions, logger: logger}
}

type updateStatementRequest struct {
	State string `json:"state"`
}

func (h *StatementHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := session.SessionID(vars["sessionID"])
	statementID := session.StatementID(vars["statementID"])

	var payload updateStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	state, err := session.ParseStatementState(payload.State)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := h.sessions.Statement(sessionID, statementID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrStatementNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := st.TransitionTo(state); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"statement_id": string(st.ID()),
		"state":        string(st.State()),
	})
}
