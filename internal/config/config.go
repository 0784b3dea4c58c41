// Package config loads the engine's runtime configuration from environment
// variables.
//
// Optional variables:
//   - VALIDATION_MODE: "strict" or "permissive" (default "strict"). Strict
//     mode rejects an entire update_state call if any flag fails
//     validation; permissive mode drops only the offending flags.
//   - MAX_CONTEXT_BYTES: max serialized size in bytes of an evaluation
//     context accepted by the host API (default "65536", must be > 0 if
//     set).
//   - POOL_SIZE: number of worker slots in the evaluation pool (default
//     "8", must be > 0 if set).
//   - LOG_LEVEL: slog level name: "debug", "info", "warn", "error"
//     (default "info").
//   - HTTP_ADDR: address the JSON REST API listens on (default
//     ":8080"), only read by the cmd/server host.
//   - UPDATE_STATE_RATE_PER_MINUTE: max update_state calls accepted per
//     caller IP per minute on the HTTP transport (default "60"), only
//     read by the cmd/server host.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flagkit/flagkit/internal/flagstore"
)

const (
	defaultMaxContextBytes         int64 = 64 << 10
	defaultPoolSize                      = 8
	defaultLogLevel                      = "info"
	defaultHTTPAddr                      = ":8080"
	defaultUpdateStateRatePerMinute       = 60
)

// Config holds the runtime configuration for an embedder of the engine.
type Config struct {
	ValidationMode            flagstore.ValidationMode
	MaxContextBytes           int64
	PoolSize                  int
	LogLevel                  string
	HTTPAddr                  string
	UpdateStateRatePerMinute  int
}

// Load reads configuration from environment variables, applying defaults
// where appropriate. It returns an error if an optional value fails
// validation.
func Load() (Config, error) {
	mode, err := parseValidationMode(envOrDefault("VALIDATION_MODE", "strict"))
	if err != nil {
		return Config{}, err
	}

	maxContextBytes := defaultMaxContextBytes
	if v := strings.TrimSpace(os.Getenv("MAX_CONTEXT_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return Config{}, errors.New("MAX_CONTEXT_BYTES must be a positive integer (bytes)")
		}
		maxContextBytes = n
	}

	poolSize := defaultPoolSize
	if v := strings.TrimSpace(os.Getenv("POOL_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, errors.New("POOL_SIZE must be a positive integer")
		}
		poolSize = n
	}

	updateStateRate := defaultUpdateStateRatePerMinute
	if v := strings.TrimSpace(os.Getenv("UPDATE_STATE_RATE_PER_MINUTE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, errors.New("UPDATE_STATE_RATE_PER_MINUTE must be a positive integer")
		}
		updateStateRate = n
	}

	return Config{
		ValidationMode:           mode,
		MaxContextBytes:          maxContextBytes,
		PoolSize:                 poolSize,
		LogLevel:                 envOrDefault("LOG_LEVEL", defaultLogLevel),
		HTTPAddr:                 envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		UpdateStateRatePerMinute: updateStateRate,
	}, nil
}

func parseValidationMode(raw string) (flagstore.ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return flagstore.ValidationStrict, nil
	case "permissive":
		return flagstore.ValidationPermissive, nil
	default:
		return 0, fmt.Errorf("VALIDATION_MODE must be %q or %q, got %q", "strict", "permissive", raw)
	}
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
