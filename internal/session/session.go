package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/glintql/dispatch-api/internal/models"
)

// SessionID is the opaque identifier of one interactive session.
type SessionID string

// QueryRequest is one query submitted into a session.
type QueryRequest struct {
	LangType models.LangType
	Query    string
}

// Session is a long-lived interactive execution context backed by one remote
// job running the session runner program. Statements accumulate in an
// append-only map: entries are created once and never removed while the
// session lives, so lookups need no locking against submits.
type Session struct {
	id         SessionID
	jobID      string
	datasource string
	statements sync.Map // StatementID -> *Statement
}

func newSession(jobID, datasourceName string) *Session {
	return &Session{
		id:         SessionID(uuid.NewString()),
		jobID:      jobID,
		datasource: datasourceName,
	}
}

func (s *Session) ID() SessionID      { return s.id }
func (s *Session) JobID() string      { return s.jobID }
func (s *Session) Datasource() string { return s.datasource }

// Submit registers a new statement in the waiting state.
func (s *Session) Submit(req QueryRequest) *Statement {
	st := newStatement(req.LangType, req.Query)
	s.statements.Store(st.ID(), st)
	return st
}

// Statement looks up a previously submitted statement by id.
func (s *Session) Statement(id StatementID) (*Statement, bool) {
	v, ok := s.statements.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Statement), true
}
