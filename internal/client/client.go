// Package client talks to a running betti service over HTTP.
package client

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

	"github.com/okian/betti/internal/adapters/codec"
	"github.com/okian/betti/internal/domain/persistence"
	"github.com/okian/betti/internal/domain/types"
)

const defaultTimeout = 30 * time.Second

// Sentinel errors.
var (
	ErrNotFound = errors.New("client: not found")
	ErrBusy     = errors.New("client: service busy")
)

// APIError is a non-success response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("betti: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps 404 and 429 onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrBusy
	}
	return nil
}

// Client wraps http.Client with the service base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRequest builds the wire request for a diagram.
func NewRequest(d persistence.Diagram) (types.CurveRequest, error) {
	var buf bytes.Buffer
	if err := codec.WriteDiagram(&buf, d, codec.FormatJSON); err != nil {
		return types.CurveRequest{}, err
	}
	return types.CurveRequest{Diagram: json.RawMessage(bytes.TrimSpace(buf.Bytes()))}, nil
}

// Submit queues a job.
func (c *Client) Submit(ctx context.Context, req types.CurveRequest) (types.SubmitResponse, error) { //nolint:gocritic // hugeParam: request is read-only
	var resp types.SubmitResponse
	err := c.postJSON(ctx, "/curves", req, &resp)
	return resp, err
}

// Compute asks for curves synchronously.
func (c *Client) Compute(ctx context.Context, req types.CurveRequest) (types.CurveResponse, error) { //nolint:gocritic // hugeParam: request is read-only
	var resp types.CurveResponse
	err := c.postJSON(ctx, "/curves/compute", req, &resp)
	return resp, err
}

// Result fetches a job's state and curves.
func (c *Client) Result(ctx context.Context, id string) (types.CurveResponse, error) {
	var resp types.CurveResponse
	body, err := c.get(ctx, "/curves/"+url.PathEscape(id), nil)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, fmt.Errorf("decode result: %w", err)
	}
	return resp, nil
}

// Table fetches a finished job rendered as csv or tsv.
func (c *Client) Table(ctx context.Context, id string, format codec.Format) ([]byte, error) {
	return c.get(ctx, "/curves/"+url.PathEscape(id), url.Values{"format": {string(format)}})
}

// Wait polls Result until the job leaves pending or ctx ends.
func (c *Client) Wait(ctx context.Context, id string, every time.Duration) (types.CurveResponse, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		res, err := c.Result(ctx, id)
		if err != nil {
			return res, err
		}
		if res.Status != "pending" {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/healthz", nil)
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Code, apiErr.Message = payload.Code, payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}
	return body, nil
}
