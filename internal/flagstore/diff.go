package flagstore

import (
	"reflect"
	"sort"
)

// Diff returns the sorted set of flag keys whose definition differs between
// two snapshots (added, removed, or changed), so callers (e.g. a change
// notification stream) can report exactly what moved rather than "something
// updated". prev may be nil, in which case every flag in next is reported
// changed.
func Diff(prev, next *Snapshot) []string {
	changed := make(map[string]struct{})

	var prevFlags map[string]Flag
	if prev != nil {
		prevFlags = prev.Flags
	}

	for key, nf := range next.Flags {
		pf, ok := prevFlags[key]
		if !ok || !reflect.DeepEqual(pf, nf) {
			changed[key] = struct{}{}
		}
	}
	for key := range prevFlags {
		if _, ok := next.Flags[key]; !ok {
			changed[key] = struct{}{}
		}
	}

	out := make([]string, 0, len(changed))
	for k := range changed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
