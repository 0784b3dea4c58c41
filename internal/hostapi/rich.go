package hostapi

import (
	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/jsonvalue"
	"github.com/flagkit/flagkit/internal/pool"
)

// Binding is the in-process host binding: an embedder linking this module
// directly into its own Go binary talks to it through Go values, with no
// byte-buffer marshaling or arena involved. It is a thin pass-through over
// [pool.Shell] that exists so callers depend on a stable, documented
// surface instead of reaching into internal/pool directly.
type Binding struct {
	shell *pool.Shell
}

// NewBinding wraps shell for direct, in-process use.
func NewBinding(shell *pool.Shell) *Binding {
	return &Binding{shell: shell}
}

// UpdateState applies a new flag-set definition.
func (b *Binding) UpdateState(raw flagstore.RawFlagSet) (flagstore.UpdateResult, error) {
	return b.shell.UpdateState(raw)
}

// SetValidationMode changes how future UpdateState calls treat per-flag
// validation failures.
func (b *Binding) SetValidationMode(mode flagstore.ValidationMode) {
	b.shell.SetValidationMode(mode)
}

// Evaluate resolves a single flag against ctx.
func (b *Binding) Evaluate(flagKey string, ctx jsonvalue.Context) flagstore.EvaluationResult {
	return b.shell.Evaluate(flagKey, ctx)
}

// EvaluateByIndex resolves the flag at a stable index within the current
// snapshot.
func (b *Binding) EvaluateByIndex(index int, ctx jsonvalue.Context) flagstore.EvaluationResult {
	return b.shell.EvaluateByIndex(index, ctx)
}

// EvaluateLogic runs an arbitrary JSON-Logic rule against data, bypassing
// the flag store.
func (b *Binding) EvaluateLogic(rule any, data any) (any, error) {
	return b.shell.EvaluateLogic(rule, data)
}

// Snapshot returns the currently published flag-store snapshot.
func (b *Binding) Snapshot() *flagstore.Snapshot {
	return b.shell.Snapshot()
}
