// Package pool provides the concurrency shell around a [flagstore.Store]:
// an atomically-swapped current [flagstore.Snapshot] plus a fixed pool of
// worker handles used to detect whether a snapshot read raced an
// UpdateState call.
//
// This is grounded on the same generation-guard pattern a sandboxed
// (WASM) evaluator needs when pairing a lock-free snapshot load with a
// pooled, possibly-stale execution instance: load the snapshot, acquire a
// worker, and if the worker's last-seen generation doesn't match the
// snapshot's generation, an update landed in between — reload and recheck
// the pre-evaluated fast path before falling through to the interpreter.
// Unlike a global package-level instance, every Shell here is an explicit,
// independently constructed value: nothing is shared across Shells, and
// nothing is reachable except through a Shell a caller actually holds.
package pool

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/jsonvalue"
)

// worker is a handle drawn from the pool for the duration of one
// evaluation. It has no state of its own besides the generation it was
// last synchronized to; real implementations with per-instance compiled
// state (e.g. a WASM module instance) would hang that state off here too.
type worker struct {
	generation uint64
}

// Shell is a flag store wrapped for safe concurrent evaluation: reads
// never block writers and writers never block reads, at the cost of an
// evaluation occasionally needing to reload the snapshot it raced.
type Shell struct {
	store    *flagstore.Store
	snapshot atomic.Pointer[flagstore.Snapshot]
	workers  chan *worker
	nextGen  atomic.Uint64

	log           *slog.Logger
	onUpdateState func(outcome string, duration time.Duration, generation uint64, flagCount int)
	onEvaluation  func(reason string, duration time.Duration, preEvaluated bool)
	onPoolAcquire func(duration time.Duration)
}

// Option configures optional [Shell] parameters.
type Option func(*Shell)

// WithLogger sets the structured logger used by [Shell]. When omitted,
// [slog.Default] is used. Passing nil is a no-op and leaves the existing
// logger unchanged.
func WithLogger(log *slog.Logger) Option {
	return func(sh *Shell) {
		if log == nil {
			return
		}
		sh.log = log
	}
}

// WithMetrics registers callbacks invoked on update_state calls, flag
// evaluations, and pool-acquire waits, allowing Prometheus (or any other)
// instrumentation without this package importing the metrics package.
// Any callback may be nil.
func WithMetrics(
	onUpdateState func(outcome string, duration time.Duration, generation uint64, flagCount int),
	onEvaluation func(reason string, duration time.Duration, preEvaluated bool),
	onPoolAcquire func(duration time.Duration),
) Option {
	return func(sh *Shell) {
		sh.onUpdateState = onUpdateState
		sh.onEvaluation = onEvaluation
		sh.onPoolAcquire = onPoolAcquire
	}
}

// New creates a Shell backed by store, with an empty initial snapshot and
// a worker pool of the given size. size is clamped to at least 1.
func New(store *flagstore.Store, size int, opts ...Option) *Shell {
	if size <= 0 {
		size = 1
	}
	sh := &Shell{store: store, workers: make(chan *worker, size), log: slog.Default()}
	for _, opt := range opts {
		opt(sh)
	}

	empty, _, _ := store.Build(flagstore.RawFlagSet{Flags: map[string]flagstore.Flag{}}, 0)
	sh.snapshot.Store(empty)

	for i := 0; i < size; i++ {
		sh.workers <- &worker{generation: 0}
	}
	return sh
}

// UpdateState validates and builds a new Snapshot from raw, diffs it
// against the current one, and atomically publishes it. On failure (only
// possible in [flagstore.ValidationStrict] mode) the previous Snapshot
// stays live; the generation number drawn for the rejected build is not
// reused, so published generations can skip values.
func (sh *Shell) UpdateState(raw flagstore.RawFlagSet) (flagstore.UpdateResult, error) {
	start := time.Now()
	prev := sh.snapshot.Load()
	gen := sh.nextGen.Add(1)

	next, errs, err := sh.store.Build(raw, gen)
	if err != nil {
		sh.recordUpdateState("rejected", time.Since(start), prev.Generation, len(prev.Flags))
		sh.log.Warn("update_state rejected", "error", err)
		return flagstore.UpdateResult{Errors: errs}, err
	}

	changed := flagstore.Diff(prev, next)
	sh.snapshot.Store(next)
	sh.recordUpdateState("ok", time.Since(start), gen, len(next.Flags))
	sh.log.Info("update_state applied", "generation", gen, "changed", len(changed))

	return flagstore.UpdateResult{Generation: gen, ChangedKeys: changed, Errors: errs}, nil
}

func (sh *Shell) recordUpdateState(outcome string, duration time.Duration, generation uint64, flagCount int) {
	if sh.onUpdateState != nil {
		sh.onUpdateState(outcome, duration, generation, flagCount)
	}
}

// SetValidationMode changes how future UpdateState calls treat per-flag
// validation failures.
func (sh *Shell) SetValidationMode(mode flagstore.ValidationMode) {
	sh.store.SetValidationMode(mode)
}

// Snapshot returns the currently published Snapshot, for callers that need
// read-only introspection (e.g. listing flag keys) without going through
// the worker pool.
func (sh *Shell) Snapshot() *flagstore.Snapshot {
	return sh.snapshot.Load()
}

// Evaluate resolves flagKey against ctx using the current snapshot,
// guarding against a concurrent UpdateState by reloading the snapshot if
// the acquired worker is behind.
func (sh *Shell) Evaluate(flagKey string, ctx jsonvalue.Context) flagstore.EvaluationResult {
	start := time.Now()
	snap := sh.snapshot.Load()
	if cached, ok := snap.PreEvaluated[flagKey]; ok {
		sh.recordEvaluation(cached.Reason, time.Since(start), true)
		return cached
	}

	w := sh.acquire()
	defer sh.release(w)

	if w.generation != snap.Generation {
		snap = sh.snapshot.Load()
		w.generation = snap.Generation
		if cached, ok := snap.PreEvaluated[flagKey]; ok {
			sh.recordEvaluation(cached.Reason, time.Since(start), true)
			return cached
		}
	}

	result := sh.store.Evaluate(snap, flagKey, ctx, time.Now().Unix())
	sh.recordEvaluation(result.Reason, time.Since(start), false)
	return result
}

func (sh *Shell) recordEvaluation(reason flagstore.Reason, duration time.Duration, preEvaluated bool) {
	if sh.onEvaluation != nil {
		sh.onEvaluation(string(reason), duration, preEvaluated)
	}
}

// EvaluateByIndex is Store.EvaluateByIndex's pool-aware counterpart: the fast
// path for a caller that already holds a flag index from a prior
// evaluation of the same snapshot generation.
func (sh *Shell) EvaluateByIndex(idx int, ctx jsonvalue.Context) flagstore.EvaluationResult {
	start := time.Now()
	snap := sh.snapshot.Load()

	w := sh.acquire()
	defer sh.release(w)

	if w.generation != snap.Generation {
		snap = sh.snapshot.Load()
		w.generation = snap.Generation
	}

	if flag, ok := snap.FlagAt(idx); ok {
		if cached, ok := snap.PreEvaluated[flag.Key]; ok {
			sh.recordEvaluation(cached.Reason, time.Since(start), true)
			return cached
		}
	}

	result := sh.store.EvaluateByIndex(snap, idx, ctx, time.Now().Unix())
	sh.recordEvaluation(result.Reason, time.Since(start), false)
	return result
}

// EvaluateLogic runs rule against data outside of any flag's targeting,
// bypassing the snapshot and worker pool entirely (there is nothing to
// race: it touches no flag-store state).
func (sh *Shell) EvaluateLogic(rule any, data any) (any, error) {
	return sh.store.EvaluateLogic(rule, data)
}

func (sh *Shell) acquire() *worker {
	start := time.Now()
	w := <-sh.workers
	if sh.onPoolAcquire != nil {
		sh.onPoolAcquire(time.Since(start))
	}
	return w
}

func (sh *Shell) release(w *worker) {
	sh.workers <- w
}
