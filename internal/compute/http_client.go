package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// HTTPClient talks to the serverless compute service over its REST API.
// Every request carries a short-lived HS256 service token.
type HTTPClient struct {
	baseURL    string
	signingKey []byte
	httpc      *http.Client
	logger     zerolog.Logger
}

func NewHTTPClient(endpoint string, signingKey []byte, timeout time.Duration, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(endpoint, "/"),
		signingKey: signingKey,
		httpc:      &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "compute-client").Logger(),
	}
}

type startJobResponse struct {
	JobRunID string `json:"jobRunId"`
}

type cancelJobResponse struct {
	JobRunID string `json:"jobRunId"`
}

type getJobResponse struct {
	JobRun JobRun `json:"jobRun"`
}

func (c *HTTPClient) StartJobRun(ctx context.Context, req StartJobRequest) (string, error) {
	url := fmt.Sprintf("%s/v1/applications/%s/jobruns", c.baseURL, req.ApplicationID)
	var out startJobResponse
	if err := c.do(ctx, http.MethodPost, url, req, &out); err != nil {
		return "", errors.Wrap(err, "start job run")
	}
	if out.JobRunID == "" {
		return "", errors.New("start job run: missing job run id in response")
	}
	c.logger.Info().Str("job_id", out.JobRunID).Str("job_name", req.JobName).Msg("job run started")
	return out.JobRunID, nil
}

func (c *HTTPClient) CancelJobRun(ctx context.Context, applicationID, jobID string) (string, error) {
	url := fmt.Sprintf("%s/v1/applications/%s/jobruns/%s", c.baseURL, applicationID, jobID)
	var out cancelJobResponse
	if err := c.do(ctx, http.MethodDelete, url, nil, &out); err != nil {
		return "", errors.Wrap(err, "cancel job run")
	}
	c.logger.Info().Str("job_id", jobID).Msg("job run cancel requested")
	return out.JobRunID, nil
}

func (c *HTTPClient) GetJobRun(ctx context.Context, applicationID, jobID string) (JobRun, error) {
	url := fmt.Sprintf("%s/v1/applications/%s/jobruns/%s", c.baseURL, applicationID, jobID)
	var out getJobResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &out); err != nil {
		return JobRun{}, errors.Wrap(err, "get job run")
	}
	return out.JobRun, nil
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	token, err := c.serviceToken()
	if err != nil {
		return errors.Wrap(err, "sign service token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("compute service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}

// serviceToken mints the short-lived token the compute service expects on
// every request.
func (c *HTTPClient) serviceToken() (string, error) {
	claims := jwt.MapClaims{
		"aud": "compute-service",
		"iss": "dispatch-api",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.signingKey)
}
