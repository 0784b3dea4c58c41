package flagstore

import (
	"fmt"

	"github.com/flagkit/flagkit/internal/jsonvalue"
)

// maxEvaluatorExpansionDepth bounds {"$ref": "..."} recursion so a
// self-referencing or mutually-recursive $evaluators library fails fast
// during UpdateState instead of during evaluation.
const maxEvaluatorExpansionDepth = 64

// ExpandEvaluators inlines every {"$ref": "name"} node in rule with a deep
// copy of evaluators[name], recursively, so the interpreter never needs to
// know about the evaluator library at evaluation time.
func ExpandEvaluators(rule any, evaluators map[string]any) (any, error) {
	return expandEvaluators(rule, evaluators, 0)
}

func expandEvaluators(rule any, evaluators map[string]any, depth int) (any, error) {
	if depth > maxEvaluatorExpansionDepth {
		return nil, fmt.Errorf("$evaluators expansion exceeded max depth %d (possible cycle)", maxEvaluatorExpansionDepth)
	}

	switch node := rule.(type) {
	case map[string]any:
		if len(node) == 1 {
			if rawName, ok := node["$ref"]; ok {
				name, ok := rawName.(string)
				if !ok {
					return nil, fmt.Errorf("$ref value must be a string, got %T", rawName)
				}
				target, ok := evaluators[name]
				if !ok {
					return nil, fmt.Errorf("unknown evaluator %q", name)
				}
				return expandEvaluators(jsonvalue.DeepCopy(target), evaluators, depth+1)
			}
		}
		out := make(map[string]any, len(node))
		for k, v := range node {
			expanded, err := expandEvaluators(v, evaluators, depth)
			if err != nil {
				return nil, err
			}
			out[k] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			expanded, err := expandEvaluators(item, evaluators, depth)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return node, nil
	}
}
