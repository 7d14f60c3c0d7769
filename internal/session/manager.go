package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/glintql/dispatch-api/internal/compute"
)

// RunnerClassName is the entry point of the long-running program that serves
// statements submitted into a session.
const RunnerClassName = "org.apache.spark.sql.GlintREPL"

// CreateSessionRequest carries everything needed to start the backing
// session job. SubmitParams must already name the session runner class.
type CreateSessionRequest struct {
	JobName        string
	ApplicationID  string
	ExecutionRole  string
	SubmitParams   string
	Tags           map[string]string
	ResultLocation string
	DatasourceName string
}

// Manager creates and looks up sessions. Whether session mode is enabled is
// fixed at construction from configuration.
type Manager struct {
	enabled   bool
	jobClient compute.Client
	sessions  sync.Map // SessionID -> *Session
	logger    zerolog.Logger
}

func NewManager(enabled bool, jobClient compute.Client, logger zerolog.Logger) *Manager {
	return &Manager{
		enabled:   enabled,
		jobClient: jobClient,
		logger:    logger.With().Str("component", "session-manager").Logger(),
	}
}

func (m *Manager) Enabled() bool { return m.enabled }

// CreateSession starts one backend job running the session runner program
// and registers the new session. The session is registered only after the
// job submission succeeded; a failed submission leaves no trace.
func (m *Manager) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	jobID, err := m.jobClient.StartJobRun(ctx, compute.StartJobRequest{
		JobName:        req.JobName,
		ApplicationID:  req.ApplicationID,
		ExecutionRole:  req.ExecutionRole,
		SubmitParams:   req.SubmitParams,
		Tags:           req.Tags,
		ResultLocation: req.ResultLocation,
	})
	if err != nil {
		return nil, errors.Wrap(err, "start session job")
	}

	sess := newSession(jobID, req.DatasourceName)
	m.sessions.Store(sess.ID(), sess)
	m.logger.Info().
		Str("session_id", string(sess.ID())).
		Str("job_id", jobID).
		Str("datasource", req.DatasourceName).
		Msg("session created")
	return sess, nil
}

// Session looks up a session by id.
func (m *Manager) Session(id SessionID) (*Session, bool) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Statement resolves a statement within a session. Both lookups fail with a
// not-found condition when the id is unknown.
func (m *Manager) Statement(sessionID SessionID, statementID StatementID) (*Statement, error) {
	sess, ok := m.Session(sessionID)
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "%s", sessionID)
	}
	st, ok := sess.Statement(statementID)
	if !ok {
		return nil, errors.Wrapf(ErrStatementNotFound, "%s", statementID)
	}
	return st, nil
}
