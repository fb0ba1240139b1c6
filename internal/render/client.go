// Package render talks to the external compositing service that burns
// captions into clips. Rendering is asynchronous: a submission returns a job
// ID and the client polls the job until it reaches a terminal state, the
// poll budget runs out, or the caller cancels the context. Cancelling only
// stops local polling; the remote job runs to completion regardless.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"clipforge/internal/metrics"
	"clipforge/pkg/models"
)

// Render failure taxonomy. All are terminal for one render attempt; the
// caller may resubmit, which the client treats as an unrelated new job.
var (
	ErrSubmissionFailed  = errors.New("render submission failed")
	ErrStatusCheckFailed = errors.New("render status check failed")
	ErrJobFailed         = errors.New("render job failed")
	ErrJobTimedOut       = errors.New("render job timed out")
)

const (
	// DefaultPollInterval is the fixed cadence between status checks.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPolls bounds the poll loop to a 30 minute wall clock at the
	// default interval.
	DefaultMaxPolls = 900
)

// Client submits render jobs and polls them to completion.
type Client struct {
	baseURL       string
	compositionID string
	httpClient    *http.Client
	pollInterval  time.Duration
	maxPolls      int
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval overrides the status poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxPolls overrides the poll attempt budget.
func WithMaxPolls(n int) Option {
	return func(c *Client) { c.maxPolls = n }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a render client for the service at baseURL.
// compositionID names the caption composition the renderer should use.
func NewClient(baseURL, compositionID string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		compositionID: compositionID,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		pollInterval:  DefaultPollInterval,
		maxPolls:      DefaultMaxPolls,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitRequest struct {
	CompositionID string            `json:"compositionId"`
	InputProps    models.RenderSpec `json:"inputProps"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
	Error string `json:"error,omitempty"`
}

// Submit sends a render request and returns the job ID. It fails fast on a
// non-success HTTP status, surfacing the remote error message when present.
func (c *Client) Submit(ctx context.Context, spec models.RenderSpec) (string, error) {
	body, err := json.Marshal(submitRequest{CompositionID: c.compositionID, InputProps: spec})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrSubmissionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/renders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RenderSubmissionsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %s", ErrSubmissionFailed, remoteError(resp.Body, resp.StatusCode))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrSubmissionFailed, err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: response carried no job id", ErrSubmissionFailed)
	}

	metrics.RenderSubmissionsTotal.WithLabelValues("ok").Inc()
	return out.JobID, nil
}

// Status fetches the current state of a render job once.
func (c *Client) Status(ctx context.Context, jobID string) (*models.RenderJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/renders/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusCheckFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStatusCheckFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrStatusCheckFailed, remoteError(resp.Body, resp.StatusCode))
	}

	var job models.RenderJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrStatusCheckFailed, err)
	}
	job.JobID = jobID

	return &job, nil
}

// Poll queries the job at a fixed interval until it completes or fails,
// the attempt budget is exhausted (ErrJobTimedOut), or ctx is cancelled.
// onProgress, when non-nil, receives each in-progress progress value.
// On completion it returns the rendered video URL.
func (c *Client) Poll(ctx context.Context, jobID string, onProgress func(float64)) (string, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		metrics.RenderPollAttemptsTotal.Inc()

		job, err := c.Status(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case models.RenderStatusCompleted:
			metrics.RendersCompletedTotal.WithLabelValues("completed").Inc()
			return job.VideoURL, nil
		case models.RenderStatusFailed:
			metrics.RendersCompletedTotal.WithLabelValues("failed").Inc()
			if job.Error != "" {
				return "", fmt.Errorf("%w: %s", ErrJobFailed, job.Error)
			}
			return "", ErrJobFailed
		default:
			if onProgress != nil {
				onProgress(job.Progress)
			}
		}
	}

	metrics.RendersCompletedTotal.WithLabelValues("timeout").Inc()
	return "", fmt.Errorf("%w: job %s not terminal after %d polls", ErrJobTimedOut, jobID, c.maxPolls)
}

// Render submits a spec and polls the resulting job to completion.
func (c *Client) Render(ctx context.Context, spec models.RenderSpec, onProgress func(float64)) (string, error) {
	jobID, err := c.Submit(ctx, spec)
	if err != nil {
		return "", err
	}
	return c.Poll(ctx, jobID, onProgress)
}

func remoteError(body io.Reader, statusCode int) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return fmt.Sprintf("unexpected status %d", statusCode)
}
