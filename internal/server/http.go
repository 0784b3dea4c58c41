// Package server provides an HTTP transport over [pool.Shell]: a JSON REST
// API for update_state, evaluate, and evaluate_logic, plus /healthz and
// /metrics for an embedder that wants to run the engine as a local service
// instead of linking it in-process.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/jsonvalue"
	"github.com/flagkit/flagkit/internal/metrics"
	"github.com/flagkit/flagkit/internal/middleware"
	"github.com/flagkit/flagkit/internal/pool"
)

// HTTPServer serves the engine's JSON REST API.
type HTTPServer struct {
	shell          *pool.Shell
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	maxBodyBytes   int64
}

var errJSONBodyTooLarge = errors.New("json request body too large")

type updateStateRequest struct {
	flagstore.RawFlagSet
}

type evaluateRequest struct {
	FlagKey string           `json:"flagKey"`
	Context jsonvalue.Context `json:"context"`
}

type evaluateLogicRequest struct {
	Rule any `json:"rule"`
	Data any `json:"data"`
}

type evaluateLogicResponse struct {
	Value any `json:"value"`
}

// NewHTTPHandler returns an [http.Handler] wired with the engine's routes.
// maxBodyBytes caps the size of a JSON request body (spec's context
// byte-size ceiling); m may be nil, in which case a private registry is
// created. log may be nil, in which case [slog.Default] is used for
// request logging. rl, if non-nil, rate-limits /v1/update-state per caller
// IP so one misbehaving embedder can't starve the worker pool with
// snapshot rebuilds; pass nil to disable.
func NewHTTPHandler(shell *pool.Shell, maxBodyBytes int64, m *metrics.Metrics, log *slog.Logger, rl *middleware.RateLimiter) http.Handler {
	if shell == nil {
		panic("shell is nil")
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	if m == nil {
		m = metrics.New()
	}

	srv := &HTTPServer{
		shell:          shell,
		metrics:        m,
		metricsHandler: m.Handler(),
		maxBodyBytes:   maxBodyBytes,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/update-state", middleware.HTTPRateLimit(rl)(http.HandlerFunc(srv.handleUpdateState)))
	mux.HandleFunc("POST /v1/evaluate", srv.handleEvaluate)
	mux.HandleFunc("POST /v1/evaluate-logic", srv.handleEvaluateLogic)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /metrics", srv.handleMetrics)

	return middleware.HTTPRequestLogging(log)(mux)
}

func (s *HTTPServer) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	var req updateStateRequest
	if err := s.decodeJSONBody(w, r, &req); err != nil {
		writeJSONDecodeError(w, err)
		return
	}

	result, err := s.shell.UpdateState(req.RawFlagSet)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"errors": result.Errors,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := s.decodeJSONBody(w, r, &req); err != nil {
		writeJSONDecodeError(w, err)
		return
	}
	if req.FlagKey == "" {
		writeJSONError(w, http.StatusBadRequest, "flagKey is required")
		return
	}

	result := s.shell.Evaluate(req.FlagKey, req.Context)
	status := http.StatusOK
	if result.Reason == flagstore.ReasonFlagNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, result)
}

func (s *HTTPServer) handleEvaluateLogic(w http.ResponseWriter, r *http.Request) {
	var req evaluateLogicRequest
	if err := s.decodeJSONBody(w, r, &req); err != nil {
		writeJSONDecodeError(w, err)
		return
	}

	value, err := s.shell.EvaluateLogic(req.Rule, req.Data)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, evaluateLogicResponse{Value: value})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.metricsHandler.ServeHTTP(w, r)
}

func (s *HTTPServer) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return normalizeJSONDecodeError(err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("request body must contain a single JSON object")
		}
		return normalizeJSONDecodeError(err)
	}

	return nil
}

func normalizeJSONDecodeError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errJSONBodyTooLarge
	}
	return err
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSONDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errJSONBodyTooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
