package compute

import "context"

// Job run states reported by the compute service.
const (
	JobStatePending   = "PENDING"
	JobStateRunning   = "RUNNING"
	JobStateSuccess   = "SUCCESS"
	JobStateFailed    = "FAILED"
	JobStateCancelled = "CANCELLED"
)

// StartJobRequest describes one job submission to the compute service.
type StartJobRequest struct {
	Query          string            `json:"query"`
	JobName        string            `json:"jobName"`
	ApplicationID  string            `json:"-"`
	ExecutionRole  string            `json:"executionRole"`
	SubmitParams   string            `json:"submitParams"`
	Tags           map[string]string `json:"tags,omitempty"`
	Streaming      bool              `json:"streaming"`
	ResultLocation string            `json:"resultLocation"`
}

// JobRun is the live status of one job run.
type JobRun struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// Client is the contract over the remote compute backend: start, cancel and
// get-status by opaque job id. Implementations must be safe for concurrent
// use. Calls block until the backend answers; retry and backoff are the
// backend client's own concern, never added here.
type Client interface {
	StartJobRun(ctx context.Context, req StartJobRequest) (string, error)
	CancelJobRun(ctx context.Context, applicationID, jobID string) (string, error)
	GetJobRun(ctx context.Context, applicationID, jobID string) (JobRun, error)
}
