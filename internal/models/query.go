package models

import "strings"

// LangType is the query language of a dispatched query.
type LangType string

const (
	LangSQL LangType = "sql"
	LangPPL LangType = "ppl"
)

// ParseLangType normalizes and validates a language name.
func ParseLangType(s string) (LangType, bool) {
	switch LangType(strings.ToLower(strings.TrimSpace(s))) {
	case LangSQL:
		return LangSQL, true
	case LangPPL:
		return LangPPL, true
	default:
		return "", false
	}
}

// DispatchQueryRequest is one query together with the execution context the
// server stamps onto it.
type DispatchQueryRequest struct {
	Query             string
	LangType          LangType
	Datasource        string
	ClusterName       string
	ApplicationID     string
	ExecutionRoleARN  string
	SessionID         string
	ExtraSubmitParams string
}

// DispatchQueryResponse identifies the unit of work a dispatch produced. ID is
// a backend job id, a statement id (session scope), or a synthetic drop-index
// id.
type DispatchQueryResponse struct {
	ID             string
	IsDropIndex    bool
	ResultLocation string
	SessionID      string
}

// AsyncQueryJobMetadata is the persisted record a poller presents to resolve
// a query's status later. For session-scoped queries JobID holds the
// statement id.
type AsyncQueryJobMetadata struct {
	QueryID        string   `json:"query_id"`
	JobID          string   `json:"job_id"`
	SessionID      string   `json:"session_id,omitempty"`
	ApplicationID  string   `json:"application_id"`
	ResultLocation string   `json:"result_location"`
	IsDropIndex    bool     `json:"is_drop_index"`
	Datasource     string   `json:"datasource"`
	LangType       LangType `json:"lang"`
}

// IsInteractive reports whether the query ran inside a session.
func (m AsyncQueryJobMetadata) IsInteractive() bool {
	return m.SessionID != ""
}

// Result-document field names written by compute jobs.
const (
	DataField   = "data"
	StatusField = "status"
	ErrorField  = "error"
)

// QueryResult is the reconciled status of an async query as reported to
// pollers.
type QueryResult struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}
