package flagstore

import "sort"

// Snapshot is the immutable, fully-prepared state produced by one
// Store.Build call: the validated flag set, a stable key ordering (so
// EvaluateByIndex has something to index into), the pre-evaluated results
// for flags the evaluator can resolve without running the interpreter, and
// each flag's statically-extracted required context keys. A Snapshot is
// never mutated after construction; pool.Shell is the component that swaps
// one Snapshot for the next.
type Snapshot struct {
	Generation   uint64
	Flags        map[string]Flag
	Order        []string
	FlagIndex    map[string]int
	PreEvaluated map[string]EvaluationResult
	Required     map[string]RequiredKeys
}

// FlagAt returns the flag at a stable index, as assigned by Build, along
// with whether idx was in range.
func (s *Snapshot) FlagAt(idx int) (Flag, bool) {
	if idx < 0 || idx >= len(s.Order) {
		return Flag{}, false
	}
	return s.Flags[s.Order[idx]], true
}

func buildOrderedIndex(flags map[string]Flag) ([]string, map[string]int) {
	order := make([]string, 0, len(flags))
	for k := range flags {
		order = append(order, k)
	}
	sort.Strings(order)

	index := make(map[string]int, len(order))
	for i, k := range order {
		index[k] = i
	}
	return order, index
}
