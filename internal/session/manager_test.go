package session

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintql/dispatch-api/internal/compute"
	"github.com/glintql/dispatch-api/internal/models"
)

type stubJobClient struct {
	startReqs []compute.StartJobRequest
	startErr  error
}

func (s *stubJobClient) StartJobRun(_ context.Context, req compute.StartJobRequest) (string, error) {
	s.startReqs = append(s.startReqs, req)
	if s.startErr != nil {
		return "", s.startErr
	}
	return "session-job-1", nil
}

func (s *stubJobClient) CancelJobRun(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *stubJobClient) GetJobRun(context.Context, string, string) (compute.JobRun, error) {
	return compute.JobRun{}, nil
}

func TestManagerCreateSession(t *testing.T) {
	client := &stubJobClient{}
	m := NewManager(true, client, zerolog.Nop())
	assert.True(t, m.Enabled())

	sess, err := m.CreateSession(context.Background(), CreateSessionRequest{
		JobName:        "cluster-a:non-index-query",
		ApplicationID:  "app-1",
		DatasourceName: "glue_ds",
	})
	require.NoError(t, err)
	require.Len(t, client.startReqs, 1)

	assert.NotEmpty(t, sess.ID())
	assert.Equal(t, "session-job-1", sess.JobID())
	assert.Equal(t, "glue_ds", sess.Datasource())

	found, ok := m.Session(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, found)
}

func TestManagerCreateSessionJobFailureLeavesNoSession(t *testing.T) {
	client := &stubJobClient{startErr: errors.New("backend down")}
	m := NewManager(true, client, zerolog.Nop())

	_, err := m.CreateSession(context.Background(), CreateSessionRequest{JobName: "j"})
	require.Error(t, err)

	// No session was registered for the failed submission.
	count := 0
	m.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Zero(t, count)
}

func TestManagerStatementLookup(t *testing.T) {
	m := NewManager(true, &stubJobClient{}, zerolog.Nop())
	sess, err := m.CreateSession(context.Background(), CreateSessionRequest{DatasourceName: "ds"})
	require.NoError(t, err)

	st := sess.Submit(QueryRequest{LangType: models.LangSQL, Query: "SELECT 1"})

	found, err := m.Statement(sess.ID(), st.ID())
	require.NoError(t, err)
	assert.Same(t, st, found)

	_, err = m.Statement("unknown-session", st.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Statement(sess.ID(), "unknown-statement")
	assert.ErrorIs(t, err, ErrStatementNotFound)
}

func TestSessionSubmitRegistersWaitingStatement(t *testing.T) {
	sess := newSession("job-1", "ds")

	first := sess.Submit(QueryRequest{LangType: models.LangSQL, Query: "SELECT 1"})
	second := sess.Submit(QueryRequest{LangType: models.LangPPL, Query: "source=logs"})
	assert.NotEqual(t, first.ID(), second.ID())

	for _, st := range []*Statement{first, second} {
		found, ok := sess.Statement(st.ID())
		require.True(t, ok)
		assert.Same(t, st, found)
		assert.Equal(t, StateWaiting, found.State())
	}
}
