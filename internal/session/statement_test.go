package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glintql/dispatch-api/internal/models"
)

func TestStatementLifecycle(t *testing.T) {
	st := newStatement(models.LangSQL, "SELECT 1")
	assert.Equal(t, StateWaiting, st.State())
	assert.Equal(t, models.LangSQL, st.Lang())
	assert.Equal(t, "SELECT 1", st.Query())
	assert.NotEmpty(t, st.ID())

	require.NoError(t, st.TransitionTo(StateRunning))
	require.NoError(t, st.TransitionTo(StateSuccess))
	assert.Equal(t, StateSuccess, st.State())
}

func TestStatementTransitions(t *testing.T) {
	cases := []struct {
		name string
		path []StatementState
		ok   bool
	}{
		{"waiting to running", []StatementState{StateRunning}, true},
		{"waiting to cancelled", []StatementState{StateCancelled}, true},
		{"running to failed", []StatementState{StateRunning, StateFailed}, true},
		{"running to cancelled", []StatementState{StateRunning, StateCancelled}, true},
		{"waiting skips to success", []StatementState{StateSuccess}, false},
		{"waiting skips to failed", []StatementState{StateFailed}, false},
		{"success back to running", []StatementState{StateRunning, StateSuccess, StateRunning}, false},
		{"cancelled back to waiting", []StatementState{StateCancelled, StateWaiting}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newStatement(models.LangSQL, "SELECT 1")
			var err error
			for _, next := range tc.path {
				err = st.TransitionTo(next)
				if err != nil {
					break
				}
			}
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStatementTransitionToSameStateIsNoOp(t *testing.T) {
	st := newStatement(models.LangSQL, "SELECT 1")
	require.NoError(t, st.TransitionTo(StateRunning))
	require.NoError(t, st.TransitionTo(StateRunning))
	assert.Equal(t, StateRunning, st.State())
}

func TestStatementCancelIsIdempotent(t *testing.T) {
	st := newStatement(models.LangSQL, "SELECT 1")
	require.NoError(t, st.Cancel())
	assert.Equal(t, StateCancelled, st.State())

	// Cancel of a terminal statement changes nothing.
	require.NoError(t, st.Cancel())
	assert.Equal(t, StateCancelled, st.State())

	done := newStatement(models.LangSQL, "SELECT 2")
	require.NoError(t, done.TransitionTo(StateRunning))
	require.NoError(t, done.TransitionTo(StateSuccess))
	require.NoError(t, done.Cancel())
	assert.Equal(t, StateSuccess, done.State())
}

func TestStatementConcurrentCancel(t *testing.T) {
	st := newStatement(models.LangSQL, "SELECT 1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Cancel()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		// May lose the race against cancel; either outcome is terminal or
		// running, never torn.
		_ = st.TransitionTo(StateRunning)
	}()
	wg.Wait()

	state := st.State()
	assert.Contains(t, []StatementState{StateRunning, StateCancelled}, state)
}

func TestParseStatementState(t *testing.T) {
	for _, valid := range []string{"waiting", "running", "success", "failed", "cancelled"} {
		state, err := ParseStatementState(valid)
		require.NoError(t, err)
		assert.Equal(t, StatementState(valid), state)
	}

	_, err := ParseStatementState("finished")
	assert.Error(t, err)
	_, err = ParseStatementState("")
	assert.Error(t, err)
}
