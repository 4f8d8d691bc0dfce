// Package research invokes the remote long-running research specialist:
// submit a job, poll until a terminal state, return the report text.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

const maxResponseSizeBytes = 4 << 20

type Config struct {
	URL          string        `envconfig:"URL" split_words:"true" required:"true"`
	Token        string        `envconfig:"TOKEN" split_words:"true"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"20s"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" split_words:"true" default:"1s"`
	MaxWait      time.Duration `envconfig:"MAX_WAIT" split_words:"true" default:"2m"`
}

// Client talks to the research specialist over HTTP.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
	maxWait      time.Duration
}

var _ contractx.Researcher = (*Client)(nil)

type submitRequest struct {
	ID             string `json:"id"`
	Resume         string `json:"resume"`
	JobDescription string `json:"job_description"`
}

type taskResponse struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Artifact string `json:"artifact,omitempty"`
	Error    string `json:"error,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("research url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid research url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}

	return &Client{
		baseURL:      baseURL,
		token:        strings.TrimSpace(cfg.Token),
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Generate submits one research job and blocks until it reaches a terminal
// state. A failed or canceled job, a timeout, and an empty artifact all wrap
// ErrSpecialistFailure so the toolbox can surface them as tool failures.
func (c *Client) Generate(ctx context.Context, input contractx.ResearchInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	jobID := "prep-" + uuid.NewString()
	submitted, err := c.submit(ctx, submitRequest{
		ID:             jobID,
		Resume:         input.Resume,
		JobDescription: input.JobDescription,
	})
	if err != nil {
		return "", fmt.Errorf("%w: submit: %v", contractx.ErrSpecialistFailure, err)
	}
	if submitted.ID != "" {
		jobID = submitted.ID
	}
	log.Info().Str("job_id", jobID).Msg("research job submitted")

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Warn().Str("job_id", jobID).Msg("research job timed out")
			return "", fmt.Errorf("%w: job %s timed out", contractx.ErrSpecialistFailure, jobID)
		case <-ticker.C:
		}

		task, err := c.poll(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: job %s timed out", contractx.ErrSpecialistFailure, jobID)
			}
			return "", fmt.Errorf("%w: poll: %v", contractx.ErrSpecialistFailure, err)
		}

		switch task.State {
		case "completed":
			if strings.TrimSpace(task.Artifact) == "" {
				return "", fmt.Errorf("%w: job %s returned no content", contractx.ErrSpecialistFailure, jobID)
			}
			return task.Artifact, nil
		case "failed", "canceled", "rejected":
			log.Error().Str("job_id", jobID).Str("state", task.State).Msg("research job failed")
			return "", fmt.Errorf("%w: job %s ended in state %s", contractx.ErrSpecialistFailure, jobID, task.State)
		}
	}
}

func (c *Client) submit(ctx context.Context, req submitRequest) (*taskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/tasks", bytes.NewReader(body))
}

func (c *Client) poll(ctx context.Context, jobID string) (*taskResponse, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/tasks/"+url.PathEscape(jobID), nil)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader) (*taskResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed taskResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}
