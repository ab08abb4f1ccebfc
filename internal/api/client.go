// Package api is the REST client for the dispatch backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jspencer/fieldlink/internal/models"
)

// DefaultTimeout bounds every REST call. Exceeding it surfaces through the
// same failure path as any other network error.
const DefaultTimeout = 12 * time.Second

// ErrJobTaken marks the stale-offer failure class: the offer expired or
// another worker already took the job. Callers drop the offer locally.
var ErrJobTaken = errors.New("api: job no longer available")

// Client calls the dispatch backend's REST endpoints.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// Opts holds parameters for creating a Client.
type Opts struct {
	BaseURL string
	Token   string
	Timeout time.Duration // defaults to DefaultTimeout
}

// New creates a Client.
func New(opts Opts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

// RealtimeToken fetches a short-lived token for the websocket handshake.
func (c *Client) RealtimeToken(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.call(ctx, http.MethodGet, "/realtime/token", nil, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("api: realtime token: empty token in response")
	}
	return out.Token, nil
}

// CurrentJob returns the worker's job left over from a previous session:
// at most one pending or active job, or nil if there is none.
func (c *Client) CurrentJob(ctx context.Context) (*models.Job, error) {
	var out struct {
		Job *models.Job `json:"job"`
	}
	if err := c.call(ctx, http.MethodGet, "/workers/current-job", nil, &out); err != nil {
		return nil, err
	}
	return out.Job, nil
}

// SetStatus pushes the worker's availability (ONLINE, OFFLINE, WORKING).
func (c *Client) SetStatus(ctx context.Context, status string) error {
	body := map[string]string{"status": status}
	return c.call(ctx, http.MethodPut, "/workers/status", body, nil)
}

// Accept claims a pending job offer. The backend's stale-offer rejections
// (400, 404, 409, 410) surface as ErrJobTaken. On success the returned job
// may be nil when the backend sends an empty body.
func (c *Client) Accept(ctx context.Context, jobID int64) (*models.Job, error) {
	var out struct {
		Job *models.Job `json:"job"`
	}
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/accept", jobID), nil, &out)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && staleOfferStatus(se.Code) {
			return nil, fmt.Errorf("api: accept job %d: %w", jobID, ErrJobTaken)
		}
		return nil, err
	}
	return out.Job, nil
}

// Reject declines a pending offer. Best-effort: the caller has already
// dropped the offer locally by the time this runs.
func (c *Client) Reject(ctx context.Context, jobID int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/reject", jobID), nil, nil)
}

// Complete reports the active job finished with its final price.
func (c *Client) Complete(ctx context.Context, jobID int64, price float64) error {
	body := map[string]float64{"price": price}
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/complete", jobID), body, nil)
}

// Cancel abandons the active job with a reason.
func (c *Client) Cancel(ctx context.Context, jobID int64, reason string) error {
	body := map[string]string{"reason": reason}
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/jobs/%d/cancel", jobID), body, nil)
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: status %d", e.Code)
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Body)
}

// staleOfferStatus reports whether code belongs to the "offer no longer
// available" class.
func staleOfferStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusGone:
		return true
	}
	return false
}

// call performs one JSON request/response round-trip.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api: %s %s: %w", method, path,
			&StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))})
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("api: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
