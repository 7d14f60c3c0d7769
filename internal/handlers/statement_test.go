package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintql/dispatch-api/internal/compute"
	"github.com/glintql/dispatch-api/internal/models"
	"github.com/glintql/dispatch-api/internal/session"
)

type noopJobClient struct{}

func (noopJobClient) StartJobRun(context.Context, compute.StartJobRequest) (string, error) {
	return "job-1", nil
}

func (noopJobClient) CancelJobRun(context.Context, string, string) (string, error) {
	return "", nil
}

func (noopJobClient) GetJobRun(context.Context, string, string) (compute.JobRun, error) {
	return compute.JobRun{}, nil
}

func newStatementTestServer(t *testing.T) (*httptest.Server, *session.Session, *session.Statement) {
	t.Helper()

	sessions := session.NewManager(true, noopJobClient{}, zerolog.Nop())
	sess, err := sessions.CreateSession(context.Background(), session.CreateSessionRequest{DatasourceName: "ds"})
	require.NoError(t, err)
	st := sess.Submit(session.QueryRequest{LangType: models.LangSQL, Query: "SELECT 1"})

	router := mux.NewRouter()
	handler := NewStatementHandler(sessions, zerolog.Nop())
	router.HandleFunc("/api/sessions/{sessionID}/statements/{statementID}/state", handler.UpdateState).Methods(http.MethodPut)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, sess, st
}

func putState(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUpdateStatementState(t *testing.T) {
	srv, sess, st := newStatementTestServer(t)
	url := srv.URL + "/api/sessions/" + string(sess.ID()) + "/statements/" + string(st.ID()) + "/state"

	resp := putState(t, url, `{"state": "running"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateRunning, st.State())

	resp = putState(t, url, `{"state": "success"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateSuccess, st.State())
}

func TestUpdateStatementStateRejectsIllegalTransition(t *testing.T) {
	srv, sess, st := newStatementTestServer(t)
	url := srv.URL + "/api/sessions/" + string(sess.ID()) + "/statements/" + string(st.ID()) + "/state"

	// success straight from waiting is not a legal edge.
	resp := putState(t, url, `{"state": "success"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, session.StateWaiting, st.State())
}

func TestUpdateStatementStateValidation(t *testing.T) {
	srv, sess, st := newStatementTestServer(t)
	url := srv.URL + "/api/sessions/" + string(sess.ID()) + "/statements/" + string(st.ID()) + "/state"

	resp := putState(t, url, `{"state": "finished"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = putState(t, url, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateStatementStateNotFound(t *testing.T) {
	srv, sess, _ := newStatementTestServer(t)

	resp := putState(t, srv.URL+"/api/sessions/missing/statements/missing/state", `{"state": "running"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = putState(t, srv.URL+"/api/sessions/"+string(sess.ID())+"/statements/missing/state", `{"state": "running"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
