package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	flagkit "github.com/flagkit/flagkit/clients/go"
	flagkithttp "github.com/flagkit/flagkit/clients/go/http"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *flagkithttp.Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := flagkithttp.NewHTTPClient(flagkithttp.Config{BaseURL: srv.URL})
	return srv, c
}

func TestUpdateState(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/update-state" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body flagkit.FlagSet
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Error(err)
		}
		if _, ok := body.Flags["my-flag"]; !ok {
			t.Errorf("expected flag my-flag in request body, got %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"generation":1,"changedKeys":["my-flag"]}`)
	})

	result, err := c.UpdateState(context.Background(), flagkit.FlagSet{
		Flags: map[string]flagkit.Flag{
			"my-flag": {State: "ENABLED", DefaultVariant: "on", Variants: map[string]any{"on": true}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Generation != 1 || len(result.ChangedKeys) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestUpdateStateError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid flag set", http.StatusUnprocessableEntity)
	})

	_, err := c.UpdateState(context.Background(), flagkit.FlagSet{})
	var apiErr *flagkithttp.APIError
	if !isAPIError(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 APIError, got %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/evaluate" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Error(err)
		}
		if body["flagKey"] != "my-flag" {
			t.Errorf("unexpected flagKey: %v", body["flagKey"])
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"flagKey":"my-flag","value":true,"reason":"STATIC"}`)
	})

	result, err := c.Evaluate(context.Background(), "my-flag", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Value != true || result.Reason != "STATIC" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestEvaluateNotFound(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "flag not found", http.StatusNotFound)
	})

	_, err := c.Evaluate(context.Background(), "missing", nil)
	var apiErr *flagkithttp.APIError
	if !isAPIError(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 APIError, got %v", err)
	}
}

func TestEvaluateLogic(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/evaluate-logic" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"value":3}`)
	})

	v, err := c.EvaluateLogic(context.Background(), map[string]any{"+": []any{1, 2}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(3) {
		t.Errorf("value = %v, want 3", v)
	}
}

func TestHealthy(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.Healthy(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestHealthyError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	if err := c.Healthy(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func isAPIError(err error, target **flagkithttp.APIError) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*flagkithttp.APIError); ok {
		*target = e
		return true
	}
	return false
}

// Ensure Client satisfies interfaces at compile time.
var _ flagkit.StateUpdater = (*flagkithttp.Client)(nil)
var _ flagkit.Evaluator = (*flagkithttp.Client)(nil)
