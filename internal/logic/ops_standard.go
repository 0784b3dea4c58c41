package logic

import (
	"math"

	"github.com/flagkit/flagkit/internal/jsonvalue"
)

func registerStandardOperators(b *registryBuilder) {
	b.eager("var", opVar)
	b.eager("missing", opMissing)
	b.eager("missing_some", opMissingSome)
	b.lazy("if", opIf)
	b.eager("==", opLooseEq)
	b.eager("===", opStrictEq)
	b.eager("!=", opLooseNeq)
	b.eager("!==", opStrictNeq)
	b.eager("!", opNot)
	b.eager("!!", opNotNot)
	b.lazy("and", opAnd)
	b.lazy("or", opOr)
	b.eager(">", opGT)
	b.eager(">=", opGTE)
	b.eager("<", opLT)
	b.eager("<=", opLTE)
	b.eager("max", opMax)
	b.eager("min", opMin)
	b.eager("+", opAdd)
	b.eager("-", opSub)
	b.eager("*", opMul)
	b.eager("/", opDiv)
	b.eager("%", opMod)
	b.lazy("map", opMap)
	b.lazy("filter", opFilter)
	b.lazy("reduce", opReduce)
	b.lazy("all", opAll)
	b.lazy("none", opNone)
	b.lazy("some", opSome)
	b.eager("merge", opMerge)
	b.eager("in", opIn)
	b.eager("cat", opCat)
	b.eager("substr", opSubstr)
	b.eager("log", opLog)
}

func opVar(args []any, data any) any {
	path := ""
	if len(args) > 0 {
		path = jsonvalue.AsString(args[0])
	}
	result := jsonvalue.GetPath(data, path)
	if jsonvalue.IsMissing(result) {
		if len(args) > 1 {
			return args[1]
		}
		return nil
	}
	return result
}

func opMissing(args []any, data any) any {
	missing := make([]any, 0, len(args))
	for _, a := range args {
		path := jsonvalue.AsString(a)
		if jsonvalue.IsMissing(jsonvalue.GetPath(data, path)) {
			missing = append(missing, path)
		}
	}
	return missing
}

func opMissingSome(args []any, data any) any {
	if len(args) < 2 {
		return []any{}
	}
	needF, ok := jsonvalue.AsFloat64(args[0])
	if !ok {
		return []any{}
	}
	need := int(needF)
	paths, _ := args[1].([]any)

	present := 0
	missing := make([]any, 0, len(paths))
	for _, p := range paths {
		path := jsonvalue.AsString(p)
		if jsonvalue.IsMissing(jsonvalue.GetPath(data, path)) {
			missing = append(missing, path)
		} else {
			present++
		}
	}
	if present >= need {
		return []any{}
	}
	return missing
}

func opIf(rawArgs []any, data any, eval EvalFunc) any {
	if len(rawArgs) == 0 {
		return nil
	}
	i := 0
	for ; i+1 < len(rawArgs); i += 2 {
		if jsonvalue.Truthy(eval(rawArgs[i], data)) {
			return eval(rawArgs[i+1], data)
		}
	}
	if i < len(rawArgs) {
		return eval(rawArgs[i], data)
	}
	return nil
}

func opLooseEq(args []any, _ any) any {
	if len(args) != 2 {
		return false
	}
	return jsonvalue.LooseEqual(args[0], args[1])
}

func opStrictEq(args []any, _ any) any {
	if len(args) != 2 {
		return false
	}
	return strictEqual(args[0], args[1])
}

func opLooseNeq(args []any, data any) any {
	return !opLooseEq(args, data).(bool)
}

func opStrictNeq(args []any, data any) any {
	return !opStrictEq(args, data).(bool)
}

func strictEqual(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	default:
		return jsonvalue.Equal(a, b)
	}
}

func opNot(args []any, _ any) any {
	if len(args) == 0 {
		return true
	}
	return !jsonvalue.Truthy(args[0])
}

func opNotNot(args []any, _ any) any {
	if len(args) == 0 {
		return false
	}
	return jsonvalue.Truthy(args[0])
}

func opAnd(rawArgs []any, data any, eval EvalFunc) any {
	var last any = true
	for _, a := range rawArgs {
		last = eval(a, data)
		if !jsonvalue.Truthy(last) {
			return last
		}
	}
	return last
}

func opOr(rawArgs []any, data any, eval EvalFunc) any {
	var last any
	for _, a := range rawArgs {
		last = eval(a, data)
		if jsonvalue.Truthy(last) {
			return last
		}
	}
	return last
}

func numbers(args []any) ([]float64, bool) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, ok := jsonvalue.ToNumber(a)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func opGT(args []any, _ any) any  { return chainCompare(args, func(a, b float64) bool { return a > b }) }
func opGTE(args []any, _ any) any { return chainCompare(args, func(a, b float64) bool { return a >= b }) }
func opLT(args []any, _ any) any  { return chainCompare(args, func(a, b float64) bool { return a < b }) }
func opLTE(args []any, _ any) any { return chainCompare(args, func(a, b float64) bool { return a <= b }) }

func chainCompare(args []any, cmp func(a, b float64) bool) any {
	if len(args) < 2 {
		return false
	}
	nums, ok := numbers(args)
	if !ok {
		return false
	}
	for i := 0; i+1 < len(nums); i++ {
		if !cmp(nums[i], nums[i+1]) {
			return false
		}
	}
	return true
}

func opMax(args []any, _ any) any {
	nums, ok := numbers(args)
	if !ok || len(nums) == 0 {
		return nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return m
}

func opMin(args []any, _ any) any {
	nums, ok := numbers(args)
	if !ok || len(nums) == 0 {
		return nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return m
}

func opAdd(args []any, _ any) any {
	nums, ok := numbers(args)
	if !ok {
		return nil
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum
}

func opSub(args []any, _ any) any {
	nums, ok := numbers(args)
	if !ok || len(nums) == 0 {
		return nil
	}
	if len(nums) == 1 {
		return -nums[0]
	}
	result := nums[0]
	for _, n := range nums[1:] {
		result -= n
	}
	return result
}

func opMul(args []any, _ any) any {
	nums, ok := numbers(args)
	if !ok || len(nums) == 0 {
		return nil
	}
	result := 1.0
	for _, n := range nums {
		result *= n
	}
	return result
}

func opDiv(args []any, _ any) any {
	nums, ok := numbers(args)
	if !ok || len(nums) != 2 || nums[1] == 0 {
		return nil
	}
	return nums[0] / nums[1]
}

func opMod(args []any, _ any) any {
	nums, ok := numbers(args)
	if !ok || len(nums) != 2 || nums[1] == 0 {
		return nil
	}
	return math.Mod(nums[0], nums[1])
}

func asArray(v any) []any {
	arr, _ := v.([]any)
	return arr
}

func opMap(rawArgs []any, data any, eval EvalFunc) any {
	if len(rawArgs) != 2 {
		return []any{}
	}
	items := asArray(eval(rawArgs[0], data))
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = eval(rawArgs[1], item)
	}
	return out
}

func opFilter(rawArgs []any, data any, eval EvalFunc) any {
	if len(rawArgs) != 2 {
		return []any{}
	}
	items := asArray(eval(rawArgs[0], data))
	out := make([]any, 0, len(items))
	for _, item := range items {
		if jsonvalue.Truthy(eval(rawArgs[1], item)) {
			out = append(out, item)
		}
	}
	return out
}

func opReduce(rawArgs []any, data any, eval EvalFunc) any {
	if len(rawArgs) < 2 {
		return nil
	}
	items := asArray(eval(rawArgs[0], data))
	var initial any
	if len(rawArgs) > 2 {
		initial = eval(rawArgs[2], data)
	}
	acc := initial
	for _, item := range items {
		acc = eval(rawArgs[1], map[string]any{"current": item, "accumulator": acc})
	}
	return acc
}

func opAll(rawArgs []any, data any, eval EvalFunc) any {
	if len(rawArgs) != 2 {
		return false
	}
	items := asArray(eval(rawArgs[0], data))
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !jsonvalue.Truthy(eval(rawArgs[1], item)) {
			return false
		}
	}
	return true
}

func opNone(rawArgs []any, data any, eval EvalFunc) any {
	if len(rawArgs) != 2 {
		return true
	}
	items := asArray(eval(rawArgs[0], data))
	for _, item := range items {
		if jsonvalue.Truthy(eval(rawArgs[1], item)) {
			return false
		}
	}
	return true
}

func opSome(rawArgs []any, data any, eval EvalFunc) any {
	if len(rawArgs) != 2 {
		return false
	}
	items := asArray(eval(rawArgs[0], data))
	for _, item := range items {
		if jsonvalue.Truthy(eval(rawArgs[1], item)) {
			return true
		}
	}
	return false
}

func opMerge(args []any, _ any) any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		if arr, ok := a.([]any); ok {
			out = append(out, arr...)
			continue
		}
		out = append(out, a)
	}
	return out
}

func opIn(args []any, _ any) any {
	if len(args) != 2 {
		return false
	}
	needle := args[0]
	switch haystack := args[1].(type) {
	case []any:
		for _, v := range haystack {
			if jsonvalue.LooseEqual(needle, v) {
				return true
			}
		}
		return false
	case string:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		return s != "" && contains(haystack, s)
	default:
		return false
	}
}

func contains(haystack, needle string) bool {
	return len(needle) <= len(haystack) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

func opCat(args []any, _ any) any {
	out := ""
	for _, a := range args {
		out += jsonvalue.AsString(a)
	}
	return out
}

func opSubstr(args []any, _ any) any {
	if len(args) < 2 {
		return ""
	}
	s := jsonvalue.AsString(args[0])
	startF, ok := jsonvalue.AsFloat64(args[1])
	if !ok {
		return ""
	}
	start := normalizeIndex(int(startF), len(s))

	end := len(s)
	if len(args) > 2 {
		if lenF, ok := jsonvalue.AsFloat64(args[2]); ok {
			n := int(lenF)
			if n < 0 {
				end = normalizeIndex(len(s)+n, len(s))
			} else {
				end = start + n
			}
		}
	}
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		return ""
	}
	return s[start:end]
}

func normalizeIndex(i, length int) int {
	if i < 0 {
		i += length
		if i < 0 {
			i = 0
		}
	}
	return i
}

func opLog(args []any, _ any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
