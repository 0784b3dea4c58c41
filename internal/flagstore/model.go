// Package flagstore implements the flag lifecycle: parsing and validating a
// flag set, pre-evaluating static flags, extracting the targeting rules'
// required context keys, and running single-flag evaluation through the
// logic package. It holds no pool, no atomic snapshot pointer, and no
// concurrency primitives of its own — [pool.Shell] is the component that
// wraps a Store's pure Build step in a swappable, concurrently-safe
// snapshot.
package flagstore

import "encoding/json"

// Flag is a single feature flag: a set of named variants, a default variant
// to fall back on, and an optional targeting rule (a JSON-Logic tree) that
// picks a variant based on the evaluation context. A flag with no targeting
// always resolves to its default variant (reason STATIC); a disabled flag
// always resolves to a nil value with no variant and reason DISABLED,
// regardless of targeting.
type Flag struct {
	Key            string         `json:"key"`
	State          FlagState      `json:"state"`
	DefaultVariant string         `json:"defaultVariant"`
	Variants       map[string]any `json:"variants"`
	Targeting      any            `json:"targeting,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// FlagState mirrors flagd's ENABLED/DISABLED flag-level switch, independent
// of whether targeting would otherwise select a different variant.
type FlagState string

const (
	StateEnabled  FlagState = "ENABLED"
	StateDisabled FlagState = "DISABLED"
)

// Enabled reports whether the flag participates in targeting at all. An
// empty State is treated as enabled, since a flag definition with no
// explicit state field is the common case.
func (f Flag) Enabled() bool {
	return f.State != StateDisabled
}

// RawFlagSet is the wire format accepted by UpdateState: a map of flag key
// to [Flag], plus a library of named JSON-Logic fragments ($evaluators)
// that targeting rules can reference via {"$ref": "name"}.
type RawFlagSet struct {
	Flags      map[string]Flag `json:"flags"`
	Evaluators map[string]any  `json:"$evaluators,omitempty"`
}

// ParseRawFlagSet decodes a flag-set document. Returns the encoding/json
// error unchanged for malformed JSON; field-level problems surface later
// from Validate, not here.
func ParseRawFlagSet(payload []byte) (RawFlagSet, error) {
	var raw RawFlagSet
	if err := json.Unmarshal(payload, &raw); err != nil {
		return RawFlagSet{}, err
	}
	if raw.Flags == nil {
		raw.Flags = make(map[string]Flag)
	}
	return raw, nil
}
