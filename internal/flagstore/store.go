package flagstore

import (
	"fmt"

	"github.com/flagkit/flagkit/internal/jsonvalue"
	"github.com/flagkit/flagkit/internal/logic"
)

// Store is the pure flag-evaluation kernel: it turns a [RawFlagSet] into a
// [Snapshot] (UpdateState's job) and evaluates one flag against a context
// within a given Snapshot (Evaluate/EvaluateByIndex's job). It holds no
// mutable evaluation state of its own — only the operator registry and the
// current validation mode — so a single Store can safely back many
// concurrently-read Snapshots; [pool.Shell] owns the atomic swap between
// them.
type Store struct {
	registry  *logic.Registry
	evaluator *logic.Evaluator
	mode      ValidationMode
}

// New creates a Store. A nil registry falls back to
// [logic.StandardRegistry].
func New(registry *logic.Registry) *Store {
	if registry == nil {
		registry = logic.StandardRegistry()
	}
	return &Store{
		registry:  registry,
		evaluator: logic.New(registry),
		mode:      ValidationStrict,
	}
}

// SetValidationMode changes how future Build calls treat per-flag
// validation failures. It does not retroactively affect snapshots already
// built.
func (s *Store) SetValidationMode(mode ValidationMode) {
	s.mode = mode
}

// ValidationMode reports the store's current validation mode.
func (s *Store) ValidationMode() ValidationMode {
	return s.mode
}

// Registry returns the operator registry this store evaluates rules
// against, for callers that need the set of supported operator names.
func (s *Store) Registry() *logic.Registry {
	return s.registry
}

// Build validates raw, expands its $evaluators references, pre-evaluates
// every flag that doesn't need per-request targeting, and extracts the
// required context keys for the ones that do. The returned Snapshot is
// immutable and carries generation as given by the caller (pool.Shell is
// responsible for generation bookkeeping).
//
// In ValidationStrict mode, any validation or $evaluators-expansion failure
// aborts the whole build: the caller keeps its previous Snapshot. In
// ValidationPermissive mode, flags that fail validation are dropped from
// the resulting Snapshot, while a flag whose $evaluators expansion fails is
// kept with its targeting removed (so it resolves STATIC); every problem is
// returned in the second value.
func (s *Store) Build(raw RawFlagSet, generation uint64) (*Snapshot, []ValidationError, error) {
	errs := Validate(raw)
	flags := raw.Flags

	if len(errs) > 0 {
		if s.mode == ValidationStrict {
			return nil, errs, fmt.Errorf("flag set failed validation: %d error(s)", len(errs))
		}
		flags = dropInvalidFlags(flags, errs)
	}

	order, index := buildOrderedIndex(flags)
	required := make(map[string]RequiredKeys, len(flags))
	preEvaluated := make(map[string]EvaluationResult, len(flags))
	expanded := make(map[string]Flag, len(flags))

	for key, flag := range flags {
		flag.Key = key

		if flag.Targeting != nil {
			rule, err := ExpandEvaluators(flag.Targeting, raw.Evaluators)
			if err != nil {
				if s.mode == ValidationStrict {
					return nil, errs, fmt.Errorf("flag %q targeting: %w", key, err)
				}
				errs = append(errs, ValidationError{FlagKey: key, Path: "flags." + key + ".targeting", Message: err.Error()})
				flag.Targeting = nil
			} else {
				flag.Targeting = rule
			}
		}
		expanded[key] = flag

		switch {
		case !flag.Enabled():
			preEvaluated[key] = EvaluationResult{
				FlagKey: key, Value: nil,
				Reason: ReasonDisabled, FlagMetadata: flag.Metadata,
			}
			required[key] = RequiredKeys{}
		case flag.Targeting == nil:
			preEvaluated[key] = EvaluationResult{
				FlagKey: key, Value: flag.Variants[flag.DefaultVariant],
				Variant: flag.DefaultVariant, Reason: ReasonStatic, FlagMetadata: flag.Metadata,
			}
			required[key] = RequiredKeys{}
		default:
			required[key] = ExtractRequiredKeys(flag.Targeting)
		}
	}

	return &Snapshot{
		Generation:   generation,
		Flags:        expanded,
		Order:        order,
		FlagIndex:    index,
		PreEvaluated: preEvaluated,
		Required:     required,
	}, errs, nil
}

func dropInvalidFlags(flags map[string]Flag, errs []ValidationError) map[string]Flag {
	bad := make(map[string]bool, len(errs))
	for _, e := range errs {
		if e.FlagKey != "" {
			bad[e.FlagKey] = true
		}
	}
	filtered := make(map[string]Flag, len(flags))
	for k, f := range flags {
		if !bad[k] {
			filtered[k] = f
		}
	}
	return filtered
}

// Evaluate resolves flagKey within snap against ctx, serving the
// pre-evaluated fast path when the flag needs no per-request targeting.
func (s *Store) Evaluate(snap *Snapshot, flagKey string, ctx jsonvalue.Context, now int64) EvaluationResult {
	if cached, ok := snap.PreEvaluated[flagKey]; ok {
		return cached
	}
	flag, ok := snap.Flags[flagKey]
	if !ok {
		return errorResult(flagKey, ErrorCodeFlagNotFound, fmt.Sprintf("flag %q not found", flagKey))
	}
	return s.evaluateFlag(flag, ctx, now)
}

// EvaluateByIndex resolves the flag at idx, as assigned by Build's stable
// ordering. This is the fast path the packed-pointer ABI uses when a caller
// already knows a flag's index (e.g. from the snapshot's Order or
// FlagIndex), avoiding a string lookup.
func (s *Store) EvaluateByIndex(snap *Snapshot, idx int, ctx jsonvalue.Context, now int64) EvaluationResult {
	flag, ok := snap.FlagAt(idx)
	if !ok {
		return errorResult("", ErrorCodeFlagNotFound, fmt.Sprintf("flag index %d out of range", idx))
	}
	if cached, ok := snap.PreEvaluated[flag.Key]; ok {
		return cached
	}
	return s.evaluateFlag(flag, ctx, now)
}

// EvaluateLogic runs an arbitrary JSON-Logic rule against data, bypassing
// the flag store entirely. Used by pool.Shell.EvaluateLogic, which backs
// evaluate_logic in the host ABI and the HTTP server.
func (s *Store) EvaluateLogic(rule any, data any) (any, error) {
	return s.evaluator.EvaluateData(rule, data)
}

func (s *Store) evaluateFlag(flag Flag, ctx jsonvalue.Context, now int64) EvaluationResult {
	if !flag.Enabled() {
		return EvaluationResult{
			FlagKey: flag.Key, Value: nil,
			Reason: ReasonDisabled, FlagMetadata: flag.Metadata,
		}
	}
	if flag.Targeting == nil {
		return EvaluationResult{
			FlagKey: flag.Key, Value: flag.Variants[flag.DefaultVariant],
			Variant: flag.DefaultVariant, Reason: ReasonStatic, FlagMetadata: flag.Metadata,
		}
	}

	enriched := jsonvalue.Enrich(ctx, flag.Key, now)
	result, err := s.evaluator.Evaluate(flag.Targeting, enriched)
	if err != nil {
		return EvaluationResult{
			FlagKey: flag.Key, Value: flag.Variants[flag.DefaultVariant],
			Reason: ReasonError, ErrorCode: ErrorCodeParseError, ErrorMessage: err.Error(),
			FlagMetadata: flag.Metadata,
		}
	}

	return resolveTargetingResult(flag, result)
}

// resolveTargetingResult turns a raw JSON-Logic targeting result into an
// EvaluationResult per the variant-closure invariant: implementations must
// never raise for an out-of-set result, only fall back to the default
// variant. A string result selects the variant of that name if one exists;
// any other result (bool, number, object) selects the variant whose value
// is JSON-equal to it, if any. Anything that doesn't resolve to a defined
// variant — a missing result, an unknown variant name, or a value matching
// no variant — resolves to the default variant with reason DEFAULT.
func resolveTargetingResult(flag Flag, result any) EvaluationResult {
	if result == nil || jsonvalue.IsMissing(result) {
		return EvaluationResult{
			FlagKey: flag.Key, Value: flag.Variants[flag.DefaultVariant],
			Variant: flag.DefaultVariant, Reason: ReasonDefault, FlagMetadata: flag.Metadata,
		}
	}

	if variant, ok := result.(string); ok {
		if value, ok := flag.Variants[variant]; ok {
			return EvaluationResult{
				FlagKey: flag.Key, Value: value, Variant: variant,
				Reason: ReasonTargetingMatch, FlagMetadata: flag.Metadata,
			}
		}
	} else if variant, ok := matchVariantValue(flag.Variants, result); ok {
		return EvaluationResult{
			FlagKey: flag.Key, Value: flag.Variants[variant], Variant: variant,
			Reason: ReasonTargetingMatch, FlagMetadata: flag.Metadata,
		}
	}

	return EvaluationResult{
		FlagKey: flag.Key, Value: flag.Variants[flag.DefaultVariant],
		Variant: flag.DefaultVariant, Reason: ReasonDefault, FlagMetadata: flag.Metadata,
	}
}

// matchVariantValue finds the variant whose value is JSON-equal to result,
// for non-string targeting results (bool, number, object variants).
// Iteration order over variants is nondeterministic, but spec flag sets are
// expected to define distinct variant values, so any match is the match.
func matchVariantValue(variants map[string]any, result any) (string, bool) {
	for name, value := range variants {
		if jsonvalue.Equal(value, result) {
			return name, true
		}
	}
	return "", false
}
