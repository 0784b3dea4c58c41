package flagstore

// Reason explains why evaluation produced the variant it did, mirroring the
// OpenFeature/flagd reason taxonomy.
type Reason string

const (
	ReasonStatic          Reason = "STATIC"
	ReasonDefault         Reason = "DEFAULT"
	ReasonTargetingMatch   Reason = "TARGETING_MATCH"
	ReasonDisabled        Reason = "DISABLED"
	ReasonError           Reason = "ERROR"
	ReasonFlagNotFound    Reason = "FLAG_NOT_FOUND"
)

// ErrorCode classifies an evaluation failure.
type ErrorCode string

const (
	ErrorCodeFlagNotFound  ErrorCode = "FLAG_NOT_FOUND"
	ErrorCodeParseError    ErrorCode = "PARSE_ERROR"
	ErrorCodeTypeMismatch  ErrorCode = "TYPE_MISMATCH"
	ErrorCodeGeneral       ErrorCode = "GENERAL"
)

// EvaluationResult is the outcome of evaluating a single flag: exactly the
// fields spec'd for a flag evaluation response. FlagKey identifies which
// flag this result is for within the Go API, but is never marshaled: the
// wire response's caller already knows the key it asked for.
type EvaluationResult struct {
	FlagKey      string         `json:"-"`
	Value        any            `json:"value"`
	Variant      string         `json:"variant,omitempty"`
	Reason       Reason         `json:"reason"`
	ErrorCode    ErrorCode      `json:"errorCode,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	FlagMetadata map[string]any `json:"flagMetadata,omitempty"`
}

// IsError reports whether the result represents a failed evaluation.
func (r EvaluationResult) IsError() bool {
	return r.Reason == ReasonError || r.Reason == ReasonFlagNotFound
}

func errorResult(flagKey string, code ErrorCode, message string) EvaluationResult {
	reason := ReasonError
	if code == ErrorCodeFlagNotFound {
		reason = ReasonFlagNotFound
	}
	return EvaluationResult{
		FlagKey:      flagKey,
		Reason:       reason,
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

// ValidationError describes one problem found while validating a flag set,
// located by a JSON-pointer-ish path for caller diagnostics. FlagKey is
// empty for set-level problems (e.g. an empty flag key) and populated for
// anything scoped to a single flag, so permissive-mode updates can drop
// exactly the offending flags without re-parsing Path.
type ValidationError struct {
	FlagKey string `json:"flagKey,omitempty"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// UpdateResult summarizes the effect of a call to Store.UpdateState: the
// new snapshot generation, the sorted list of flag keys whose definition
// changed since the prior snapshot, and any validation problems (present
// even on success, in permissive mode, for flags that were skipped).
type UpdateResult struct {
	Generation  uint64
	ChangedKeys []string
	Errors      []ValidationError
}
