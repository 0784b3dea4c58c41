package jsonvalue

import "strings"

// Context is the keyed bag of attributes evaluated rules read from. It is a
// plain map[string]any rather than a wrapper type so the rule evaluator can
// treat a Context exactly like any other JSON object (notably, `{"var":
// "targetingKey"}` reads from the same map a nested `{"var":
// "a.b.c"}` does).
type Context map[string]any

// TargetingKeyField and FlagdField are the two attributes enrichment always
// injects (spec §3, §6).
const (
	TargetingKeyField = "targetingKey"
	FlagdField        = "$flagd"
	FlagdFlagKeyField = "flagKey"
	FlagdTimestamp    = "timestamp"
)

// GetPath resolves a dotted attribute path against a Context or a nested
// JSON object/array, returning Missing when any segment does not resolve.
// "$flagd.timestamp" resolves field "timestamp" under field "$flagd";
// array segments that parse as a non-negative integer index into a JSON
// array.
func GetPath(root any, path string) any {
	if path == "" {
		return root
	}
	segments := strings.Split(path, ".")
	current := root
	for _, seg := range segments {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return Missing
			}
			current = v
		case Context:
			v, ok := node[seg]
			if !ok {
				return Missing
			}
			current = v
		case []any:
			idx, ok := parseIndex(seg)
			if !ok || idx < 0 || idx >= len(node) {
				return Missing
			}
			current = node[idx]
		default:
			return Missing
		}
	}
	return current
}

func parseIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	n := 0
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// Enrich returns a new Context with targetingKey and $flagd populated, never
// mutating the caller's original map. now is the Unix-seconds clock reading;
// callers pass 0 when no host clock is available (spec §6, §9 "Time").
func Enrich(base Context, flagKey string, now int64) Context {
	enriched := make(Context, len(base)+2)
	for k, v := range base {
		enriched[k] = v
	}

	if _, ok := enriched[TargetingKeyField]; !ok {
		enriched[TargetingKeyField] = ""
	} else if s, ok := enriched[TargetingKeyField].(string); !ok || s == "" {
		enriched[TargetingKeyField] = stringOrEmpty(enriched[TargetingKeyField])
	}

	enriched[FlagdField] = map[string]any{
		FlagdFlagKeyField: flagKey,
		FlagdTimestamp:    float64(now),
	}

	return enriched
}

func stringOrEmpty(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
