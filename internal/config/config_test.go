package config

import (
	"testing"

	"github.com/flagkit/flagkit/internal/flagstore"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VALIDATION_MODE", "")
	t.Setenv("MAX_CONTEXT_BYTES", "")
	t.Setenv("POOL_SIZE", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ValidationMode != flagstore.ValidationStrict {
		t.Errorf("ValidationMode = %v, want strict", cfg.ValidationMode)
	}
	if cfg.MaxContextBytes != defaultMaxContextBytes {
		t.Errorf("MaxContextBytes = %d, want %d", cfg.MaxContextBytes, defaultMaxContextBytes)
	}
	if cfg.PoolSize != defaultPoolSize {
		t.Errorf("PoolSize = %d, want %d", cfg.PoolSize, defaultPoolSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.HTTPAddr != defaultHTTPAddr {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, defaultHTTPAddr)
	}
	if cfg.UpdateStateRatePerMinute != defaultUpdateStateRatePerMinute {
		t.Errorf("UpdateStateRatePerMinute = %d, want %d", cfg.UpdateStateRatePerMinute, defaultUpdateStateRatePerMinute)
	}
}

func TestLoad_ValidationModePermissive(t *testing.T) {
	t.Setenv("VALIDATION_MODE", "permissive")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ValidationMode != flagstore.ValidationPermissive {
		t.Errorf("ValidationMode = %v, want permissive", cfg.ValidationMode)
	}
}

func TestLoad_ValidationModeInvalid(t *testing.T) {
	t.Setenv("VALIDATION_MODE", "yolo")
	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for an unrecognized VALIDATION_MODE")
	}
}

func TestLoad_MaxContextBytesInvalid(t *testing.T) {
	t.Setenv("MAX_CONTEXT_BYTES", "not-a-number")
	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for a non-numeric MAX_CONTEXT_BYTES")
	}
}

func TestLoad_MaxContextBytesZero(t *testing.T) {
	t.Setenv("MAX_CONTEXT_BYTES", "0")
	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for a zero MAX_CONTEXT_BYTES")
	}
}

func TestLoad_PoolSizeInvalid(t *testing.T) {
	t.Setenv("POOL_SIZE", "-1")
	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for a negative POOL_SIZE")
	}
}

func TestLoad_UpdateStateRateInvalid(t *testing.T) {
	t.Setenv("UPDATE_STATE_RATE_PER_MINUTE", "0")
	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail for a zero UPDATE_STATE_RATE_PER_MINUTE")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("VALIDATION_MODE", "permissive")
	t.Setenv("MAX_CONTEXT_BYTES", "4096")
	t.Setenv("POOL_SIZE", "16")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("UPDATE_STATE_RATE_PER_MINUTE", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxContextBytes != 4096 {
		t.Errorf("MaxContextBytes = %d, want 4096", cfg.MaxContextBytes)
	}
	if cfg.PoolSize != 16 {
		t.Errorf("PoolSize = %d, want 16", cfg.PoolSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want :9999", cfg.HTTPAddr)
	}
	if cfg.UpdateStateRatePerMinute != 120 {
		t.Errorf("UpdateStateRatePerMinute = %d, want 120", cfg.UpdateStateRatePerMinute)
	}
}

func TestEnvOrDefault_EmptyReturnsDefault(t *testing.T) {
	t.Setenv("TEST_KEY", "")
	got := envOrDefault("TEST_KEY", "fallback")
	if got != "fallback" {
		t.Errorf("envOrDefault() = %q, want %q", got, "fallback")
	}
}

func TestEnvOrDefault_WhitespaceReturnsDefault(t *testing.T) {
	t.Setenv("TEST_KEY", "   ")
	got := envOrDefault("TEST_KEY", "fallback")
	if got != "fallback" {
		t.Errorf("envOrDefault() = %q, want %q", got, "fallback")
	}
}

func TestEnvOrDefault_ValueReturnsValue(t *testing.T) {
	t.Setenv("TEST_KEY", " value ")
	got := envOrDefault("TEST_KEY", "fallback")
	if got != "value" {
		t.Errorf("envOrDefault() = %q, want %q", got, "value")
	}
}
