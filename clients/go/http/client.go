// Package http provides an HTTP client for a flagkit engine's JSON REST API.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	flagkit "github.com/flagkit/flagkit/clients/go"
)

// Config holds configuration for the HTTP client.
type Config struct {
	// BaseURL is the base URL of the flagkit HTTP service, e.g.
	// "http://localhost:8080".
	BaseURL string
	// HTTPClient is optional; defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client implements flagkit.StateUpdater and flagkit.Evaluator over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewHTTPClient returns a new HTTP client for a flagkit service.
func NewHTTPClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: hc}
}

// APIError is returned when the server responds with an HTTP error status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flagkit: HTTP %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("flagkit: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("flagkit: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flagkit: http: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

// UpdateState replaces the engine's flag set, returning the new snapshot
// generation and the set of flag keys that changed.
func (c *Client) UpdateState(ctx context.Context, flags flagkit.FlagSet) (flagkit.UpdateResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/update-state", flags)
	if err != nil {
		return flagkit.UpdateResult{}, err
	}
	defer resp.Body.Close()
	var out flagkit.UpdateResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return flagkit.UpdateResult{}, fmt.Errorf("flagkit: decode response: %w", err)
	}
	return out, nil
}

type evaluateRequest struct {
	FlagKey string         `json:"flagKey"`
	Context map[string]any `json:"context,omitempty"`
}

// Evaluate resolves a single flag against evalCtx.
func (c *Client) Evaluate(ctx context.Context, flagKey string, evalCtx map[string]any) (flagkit.EvaluationResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/evaluate", evaluateRequest{FlagKey: flagKey, Context: evalCtx})
	if err != nil {
		return flagkit.EvaluationResult{}, err
	}
	defer resp.Body.Close()
	var out flagkit.EvaluationResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return flagkit.EvaluationResult{}, fmt.Errorf("flagkit: decode response: %w", err)
	}
	return out, nil
}

type evaluateLogicRequest struct {
	Rule any `json:"rule"`
	Data any `json:"data"`
}

type evaluateLogicResponse struct {
	Value any `json:"value"`
}

// EvaluateLogic runs an arbitrary JSON-Logic rule against data, bypassing
// any flag definition.
func (c *Client) EvaluateLogic(ctx context.Context, rule any, data any) (any, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/evaluate-logic", evaluateLogicRequest{Rule: rule, Data: data})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out evaluateLogicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("flagkit: decode response: %w", err)
	}
	return out.Value, nil
}

// Healthy reports whether the engine's /healthz endpoint returns success.
func (c *Client) Healthy(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
