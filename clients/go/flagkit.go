// Package flagkit provides client interfaces and domain types for talking
// to a flagkit engine over one of its transports.
//
// Use the sub-packages to create a transport-specific client:
//
//	import flagkithttp "github.com/flagkit/flagkit/clients/go/http"
package flagkit

import "context"

// StateUpdater pushes a new flag set to the engine, replacing whatever it
// currently holds.
type StateUpdater interface {
	UpdateState(ctx context.Context, flags FlagSet) (UpdateResult, error)
}

// Evaluator resolves a single flag, or a raw JSON-Logic rule, against an
// evaluation context.
type Evaluator interface {
	Evaluate(ctx context.Context, flagKey string, evalCtx map[string]any) (EvaluationResult, error)
	EvaluateLogic(ctx context.Context, rule any, data any) (any, error)
}

// FlagSet is the wire format for UpdateState: a map of flag key to
// definition, plus a library of named JSON-Logic fragments that targeting
// rules can reference via {"$ref": "name"}.
type FlagSet struct {
	Flags      map[string]Flag `json:"flags"`
	Evaluators map[string]any  `json:"$evaluators,omitempty"`
}

// Flag is the domain representation of a feature flag.
type Flag struct {
	Key            string         `json:"key,omitempty"`
	State          string         `json:"state,omitempty"` // "ENABLED" | "DISABLED"
	DefaultVariant string         `json:"defaultVariant"`
	Variants       map[string]any `json:"variants"`
	Targeting      any            `json:"targeting,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// UpdateResult summarizes the effect of an UpdateState call.
type UpdateResult struct {
	Generation  uint64   `json:"generation"`
	ChangedKeys []string `json:"changedKeys,omitempty"`
}

// EvaluationResult is the outcome of evaluating a single flag.
type EvaluationResult struct {
	Value        any            `json:"value"`
	Variant      string         `json:"variant,omitempty"`
	Reason       string         `json:"reason"`
	ErrorCode    string         `json:"errorCode,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	FlagMetadata map[string]any `json:"flagMetadata,omitempty"`
}
