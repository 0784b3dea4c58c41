// Package main is the entry point for the flagkit engine host service.
//
// The bootstrap sequence is:
//  1. Load configuration from environment variables.
//  2. Create the flag store and wrap it in a pool.Shell, wired with
//     structured logging and Prometheus instrumentation.
//  3. Start the HTTP server.
//  4. Wait for SIGINT/SIGTERM, then gracefully shut it down.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flagkit/flagkit/internal/config"
	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/logging"
	"github.com/flagkit/flagkit/internal/metrics"
	"github.com/flagkit/flagkit/internal/middleware"
	"github.com/flagkit/flagkit/internal/pool"
	"github.com/flagkit/flagkit/internal/server"
)

const (
	shutdownTimeout       = 10 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
	httpReadTimeout       = 30 * time.Second
	httpIdleTimeout       = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	store := flagstore.New(nil)
	store.SetValidationMode(cfg.ValidationMode)
	shell := pool.New(store, cfg.PoolSize,
		pool.WithLogger(log),
		pool.WithMetrics(m.RecordUpdateState, m.RecordEvaluation, m.RecordPoolAcquire),
	)

	rl := middleware.NewRateLimiter(ctx, cfg.UpdateStateRatePerMinute)
	defer rl.Stop()

	handler := server.NewHTTPHandler(shell, cfg.MaxContextBytes, m, log, rl)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       httpReadTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("serve HTTP: %w", err)
			return
		}
		serveErrCh <- nil
	}()

	log.Info("flagkit server started", "addr", cfg.HTTPAddr)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serveErrCh:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		if serveErr != nil {
			return serveErr
		}
		return fmt.Errorf("shutdown HTTP: %w", err)
	}

	return serveErr
}
