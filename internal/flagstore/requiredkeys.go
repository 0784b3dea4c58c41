package flagstore

import (
	"sort"
	"strings"
)

// RequiredKeys describes what part of the evaluation context a flag's
// targeting rule actually reads, so the caller can serialize a filtered
// context instead of the whole thing (spec §9's packed-pointer ABI wants to
// keep the host-to-core copy small). FullContext is set whenever a `var`
// path can't be determined statically — e.g. it is itself the result of
// another expression, or it is the empty-string "whole value" path — in
// which case the full context must be passed through.
type RequiredKeys struct {
	Keys        []string
	FullContext bool
}

// ExtractRequiredKeys statically walks a targeting rule collecting the
// top-level segment of every literal {"var": "..."} path it finds. It never
// evaluates the rule, so it is safe to run on untrusted targeting at flag-set
// load time.
func ExtractRequiredKeys(rule any) RequiredKeys {
	keySet := make(map[string]struct{})
	full := false
	walkRequiredKeys(rule, keySet, &full)

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return RequiredKeys{Keys: keys, FullContext: full}
}

func walkRequiredKeys(rule any, keys map[string]struct{}, full *bool) {
	switch node := rule.(type) {
	case map[string]any:
		if len(node) == 1 {
			for op, rawArgs := range node {
				if op == "var" {
					recordVarPath(rawArgs, keys, full)
					return
				}
				walkRequiredKeys(rawArgs, keys, full)
			}
			return
		}
		for _, v := range node {
			walkRequiredKeys(v, keys, full)
		}
	case []any:
		for _, item := range node {
			walkRequiredKeys(item, keys, full)
		}
	}
}

func recordVarPath(rawArgs any, keys map[string]struct{}, full *bool) {
	args, ok := rawArgs.([]any)
	if !ok {
		args = []any{rawArgs}
	}
	if len(args) == 0 {
		*full = true
		return
	}
	path, ok := args[0].(string)
	if !ok {
		// The path itself is a computed expression: we can't know which
		// key it will resolve to, so fall back to passing everything.
		*full = true
		return
	}
	if path == "" {
		*full = true
		return
	}
	top, _, _ := strings.Cut(path, ".")
	keys[top] = struct{}{}
}
