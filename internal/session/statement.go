package session

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/glintql/dispatch-api/internal/models"
)

var (
	ErrSessionNotFound   = errors.New("no session found")
	ErrStatementNotFound = errors.New("no statement found")
)

// StatementID is the opaque identifier of one submitted statement.
type StatementID string

// StatementState is the lifecycle state of one statement:
// waiting -> running -> one of {success, failed, cancelled}, with cancelled
// also reachable directly from waiting and running.
type StatementState string

const (
	StateWaiting   StatementState = "waiting"
	StateRunning   StatementState = "running"
	StateSuccess   StatementState = "success"
	StateFailed    StatementState = "failed"
	StateCancelled StatementState = "cancelled"
)

const (
	stateWaiting int32 = iota
	stateRunning
	stateSuccess
	stateFailed
	stateCancelled
)

var stateNames = map[int32]StatementState{
	stateWaiting:   StateWaiting,
	stateRunning:   StateRunning,
	stateSuccess:   StateSuccess,
	stateFailed:    StateFailed,
	stateCancelled: StateCancelled,
}

var stateCodes = map[StatementState]int32{
	StateWaiting:   stateWaiting,
	StateRunning:   stateRunning,
	StateSuccess:   stateSuccess,
	StateFailed:    stateFailed,
	StateCancelled: stateCancelled,
}

// allowedTransitions lists the forward edges of the state machine. Terminal
// states have no edges.
var allowedTransitions = map[int32][]int32{
	stateWaiting: {stateRunning, stateCancelled},
	stateRunning: {stateSuccess, stateFailed, stateCancelled},
}

// ParseStatementState validates a state name reported by the session runner.
func ParseStatementState(s string) (StatementState, error) {
	state := StatementState(s)
	if _, ok := stateCodes[state]; !ok {
		return "", errors.Errorf("unknown statement state %q", s)
	}
	return state, nil
}

func isTerminal(code int32) bool {
	return code == stateSuccess || code == stateFailed || code == stateCancelled
}

// Statement is one query submitted into a session. Its state field is the
// only mutable part and is updated with compare-and-swap so that the remote
// runner and concurrent cancel callers never tear each other's writes.
type Statement struct {
	id    StatementID
	lang  models.LangType
	query string
	state atomic.Int32
}

func newStatement(lang models.LangType, query string) *Statement {
	return &Statement{
		id:    StatementID(uuid.NewString()),
		lang:  lang,
		query: query,
	}
}

func (s *Statement) ID() StatementID       { return s.id }
func (s *Statement) Lang() models.LangType { return s.lang }
func (s *Statement) Query() string         { return s.query }
func (s *Statement) State() StatementState { return stateNames[s.state.Load()] }

// TransitionTo moves the statement to next. Transitions are monotonic: a
// terminal statement accepts nothing, and re-asserting the current state is
// a no-op.
func (s *Statement) TransitionTo(next StatementState) error {
	nextCode, ok := stateCodes[next]
	if !ok {
		return errors.Errorf("unknown statement state %q", next)
	}
	for {
		cur := s.state.Load()
		if cur == nextCode {
			return nil
		}
		if !transitionAllowed(cur, nextCode) {
			return errors.Errorf("statement %s: illegal transition %s -> %s", s.id, stateNames[cur], next)
		}
		if s.state.CompareAndSwap(cur, nextCode) {
			return nil
		}
	}
}

// Cancel requests termination. Cancelling an already terminal statement is
// an idempotent no-op.
func (s *Statement) Cancel() error {
	for {
		cur := s.state.Load()
		if isTerminal(cur) {
			return nil
		}
		if s.state.CompareAndSwap(cur, stateCancelled) {
			return nil
		}
	}
}

func transitionAllowed(from, to int32) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
