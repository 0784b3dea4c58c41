package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/middleware"
	"github.com/flagkit/flagkit/internal/pool"
)

func newTestHandler() http.Handler {
	shell := pool.New(flagstore.New(nil), 2)
	return NewHTTPHandler(shell, 0, nil, nil, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUpdateStateThenEvaluate(t *testing.T) {
	handler := newTestHandler()

	updateBody := map[string]any{
		"flags": map[string]any{
			"welcome-banner": map[string]any{
				"state":          "ENABLED",
				"defaultVariant": "on",
				"variants":       map[string]any{"on": true, "off": false},
			},
		},
	}
	rec := doJSON(t, handler, http.MethodPost, "/v1/update-state", updateBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("update-state status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var updateResult flagstore.UpdateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &updateResult); err != nil {
		t.Fatalf("decode update-state response: %v", err)
	}
	if updateResult.Generation == 0 {
		t.Fatalf("expected non-zero generation, got %+v", updateResult)
	}

	evalBody := map[string]any{"flagKey": "welcome-banner"}
	rec = doJSON(t, handler, http.MethodPost, "/v1/evaluate", evalBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result flagstore.EvaluationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode evaluate response: %v", err)
	}
	if result.Reason != flagstore.ReasonStatic || result.Value != true {
		t.Fatalf("evaluate result = %+v, want STATIC/true", result)
	}
}

func TestUpdateStateRejectsInvalidFlagSet(t *testing.T) {
	handler := newTestHandler()

	body := map[string]any{
		"flags": map[string]any{
			"": map[string]any{
				"state":          "ENABLED",
				"defaultVariant": "on",
				"variants":       map[string]any{"on": true},
			},
		},
	}
	rec := doJSON(t, handler, http.MethodPost, "/v1/update-state", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEvaluateUnknownFlagReturns404(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/evaluate", map[string]any{"flagKey": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEvaluateMissingFlagKeyIsBadRequest(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/evaluate", map[string]any{"flagKey": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEvaluateLogic(t *testing.T) {
	handler := newTestHandler()

	body := map[string]any{
		"rule": map[string]any{"+": []any{1.0, 2.0}},
		"data": nil,
	}
	rec := doJSON(t, handler, http.MethodPost, "/v1/evaluate-logic", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp evaluateLogicResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Value != 3.0 {
		t.Fatalf("value = %v, want 3", resp.Value)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "flagkit_") {
		t.Fatalf("expected flagkit_ metrics in body, got: %s", rec.Body.String())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	handler := newTestHandler()

	body := map[string]any{"flagKey": "a", "bogusField": true}
	rec := doJSON(t, handler, http.MethodPost, "/v1/evaluate", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate",
		strings.NewReader(`{"flagKey":"a"}{"flagKey":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateStateBodyTooLarge(t *testing.T) {
	shell := pool.New(flagstore.New(nil), 1)
	handler := NewHTTPHandler(shell, 16, nil, nil, nil)

	body := map[string]any{
		"flags": map[string]any{
			"a-very-long-flag-key-that-exceeds-the-limit": map[string]any{
				"state": "ENABLED",
			},
		},
	}
	rec := doJSON(t, handler, http.MethodPost, "/v1/update-state", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestNewHTTPHandlerPanicsOnNilShell(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil shell")
		}
	}()
	NewHTTPHandler(nil, 0, nil, nil, nil)
}

func TestUpdateStateRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := middleware.NewRateLimiter(ctx, 1)
	defer rl.Stop()

	shell := pool.New(flagstore.New(nil), 1)
	handler := NewHTTPHandler(shell, 0, nil, nil, rl)

	body := map[string]any{
		"flags": map[string]any{
			"a": map[string]any{"state": "ENABLED", "defaultVariant": "x", "variants": map[string]any{"x": 1.0}},
		},
	}
	for i := 0; i < 2; i++ {
		doJSON(t, handler, http.MethodPost, "/v1/update-state", body)
	}
	rec := doJSON(t, handler, http.MethodPost, "/v1/update-state", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, body = %s, want 429", rec.Code, rec.Body.String())
	}
}
