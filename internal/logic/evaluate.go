package logic

import "github.com/flagkit/flagkit/internal/jsonvalue"

// maxRecursionDepth bounds rule nesting. Spec requires handling depth at
// least 64 without stack issues; real-world targeting rules rarely exceed a
// handful of levels, so 256 leaves ample headroom while still catching a
// pathological or cyclic $evaluators expansion before it exhausts the Go
// stack.
const maxRecursionDepth = 256

// Evaluator recursively interprets a JSON-Logic rule tree against a
// jsonvalue.Context, dispatching one-key operator objects through a
// Registry. It is the only component that ever runs untrusted rule ASTs,
// so it never lets a panic escape: Evaluate recovers internally and returns
// the failure as its error result, translated by the flag store
// into reason=ERROR/errorCode=PARSE_ERROR (spec §4.D, §7).
type Evaluator struct {
	registry *Registry
}

// New creates an Evaluator bound to the given operator registry.
func New(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate runs rule against ctx and returns the resulting JSON value. Any
// internal failure (bad operator arguments, a runtime panic deep in a
// custom operator) is captured and surfaces as a nil result plus a non-nil
// error — it never propagates as a Go panic, per spec's "total function"
// requirement.
func (e *Evaluator) Evaluate(rule any, ctx jsonvalue.Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = panicToError(r)
		}
	}()
	return e.eval(rule, ctx, 0), nil
}

// EvaluateData runs rule against an arbitrary data value instead of a
// Context, bypassing the jsonvalue.Context-specific enrichment assumptions.
// This is what evaluate_logic (spec §4.F, §6) uses: raw JSON-Logic
// evaluation with no flag-store involvement.
func (e *Evaluator) EvaluateData(rule any, data any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = panicToError(r)
		}
	}()
	return e.eval(rule, data, 0), nil
}

func panicToError(r any) error {
	if e, ok := r.(error); ok {
		return &evalError{cause: e}
	}
	return &evalError{message: formatPanic(r)}
}

type evalError struct {
	message string
	cause   error
}

func (e *evalError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

func (e *evalError) Unwrap() error { return e.cause }

func formatPanic(r any) string {
	if s, ok := r.(string); ok {
		return s
	}
	return "rule evaluation panicked"
}

func (e *Evaluator) eval(rule any, data any, depth int) any {
	if depth > maxRecursionDepth {
		return nil
	}

	switch node := rule.(type) {
	case map[string]any:
		if len(node) != 1 {
			return node // literal object
		}
		for opName, rawArgs := range node {
			op, ok := e.registry.Lookup(opName)
			if !ok {
				return node // literal object: not a known operator
			}
			args := asArgList(rawArgs)
			if op.lazy {
				evalFn := func(r any, d any) any { return e.eval(r, d, depth+1) }
				return op.lazyF(args, data, evalFn)
			}
			evaluated := make([]any, len(args))
			for i, a := range args {
				evaluated[i] = e.eval(a, data, depth+1)
			}
			return op.eager(evaluated, data)
		}
		return node
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = e.eval(item, data, depth+1)
		}
		return out
	default:
		return node
	}
}

// asArgList normalizes a raw operator argument: {"op": x} is shorthand for
// {"op": [x]} unless x is already an array.
func asArgList(raw any) []any {
	if args, ok := raw.([]any); ok {
		return args
	}
	return []any{raw}
}
