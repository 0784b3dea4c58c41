package logic

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spaolacci/murmur3"

	"github.com/flagkit/flagkit/internal/jsonvalue"
)

// registerCustomOperators adds the four flagd-style operators this engine
// supports beyond plain JSON-Logic: fractional, sem_ver, starts_with and
// ends_with.
func registerCustomOperators(b *registryBuilder) {
	b.eager("fractional", opFractional)
	b.eager("sem_ver", opSemVer)
	b.eager("starts_with", opStartsWith)
	b.eager("ends_with", opEndsWith)
}

type fractionalBucket struct {
	variant string
	weight  float64
}

// opFractional implements consistent-hash bucketing: {"fractional": [bucketKey?,
// [variant, weight], ...]}. The hash is always taken over the flag key (from
// "$flagd.flagKey" in data) concatenated with a bucket key: the explicit
// bucketKey argument if given, otherwise "targetingKey" from data. This
// matches the flagd convention that targeting is stable per-flag,
// per-subject, even when the rule overrides the bucketing key — the flag key
// prefix is never dropped, so the same bucketKey under two different flags
// still lands in independent buckets. Weights are normalized to sum to 100
// by scaling, rather than requiring the author to hand-author weights that
// already total 100.
func opFractional(args []any, data any) any {
	if len(args) == 0 {
		return nil
	}

	startIdx := 0
	bucketKey, hasBucketKey := "", false
	if pair, ok := args[0].([]any); !ok || len(pair) != 2 {
		bucketKey = jsonvalue.AsString(args[0])
		hasBucketKey = true
		startIdx = 1
	}

	buckets := make([]fractionalBucket, 0, len(args))
	for _, a := range args[startIdx:] {
		pair, ok := a.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		weight, ok := jsonvalue.ToNumber(pair[1])
		if !ok || weight < 0 {
			continue
		}
		buckets = append(buckets, fractionalBucket{
			variant: jsonvalue.AsString(pair[0]),
			weight:  weight,
		})
	}
	if len(buckets) == 0 {
		return nil
	}

	if !hasBucketKey {
		bucketKey = jsonvalue.AsString(jsonvalue.GetPath(data, "targetingKey"))
	}
	flagKey := jsonvalue.AsString(jsonvalue.GetPath(data, "$flagd.flagKey"))
	seed := flagKey + bucketKey
	if seed == "" {
		return nil
	}
	return selectBucket(seed, buckets)
}

func selectBucket(seed string, buckets []fractionalBucket) any {
	total := 0.0
	for _, bk := range buckets {
		total += bk.weight
	}
	if total <= 0 {
		return nil
	}
	scale := 100.0 / total

	h := murmur3.Sum32([]byte(seed))
	bucket := float64(h) / 4294967296.0 * 100.0

	cumulative := 0.0
	for _, bk := range buckets {
		cumulative += bk.weight * scale
		if bucket < cumulative {
			return bk.variant
		}
	}
	return buckets[len(buckets)-1].variant
}

// opSemVer implements {"sem_ver": [v1, operator, v2]}. Either version failing
// to parse yields nil rather than an error, matching this engine's "total
// function" rule: a malformed version in targeting data is a non-match, not
// a crash.
func opSemVer(args []any, _ any) any {
	if len(args) != 3 {
		return nil
	}
	operator, ok := args[1].(string)
	if !ok {
		return nil
	}
	v1, err := semver.NewVersion(jsonvalue.AsString(args[0]))
	if err != nil {
		return nil
	}
	v2, err := semver.NewVersion(jsonvalue.AsString(args[2]))
	if err != nil {
		return nil
	}

	switch operator {
	case "=", "==":
		return v1.Equal(v2)
	case "!=":
		return !v1.Equal(v2)
	case "<":
		return v1.LessThan(v2)
	case "<=":
		return v1.LessThan(v2) || v1.Equal(v2)
	case ">":
		return v1.GreaterThan(v2)
	case ">=":
		return v1.GreaterThan(v2) || v1.Equal(v2)
	case "^":
		upper := caretUpperBound(v2)
		return !v1.LessThan(v2) && v1.LessThan(upper)
	case "~":
		upper := tildeUpperBound(v2)
		return !v1.LessThan(v2) && v1.LessThan(upper)
	default:
		return nil
	}
}

// caretUpperBound returns the exclusive upper bound npm's "^" range applies
// to base: the next major for major>0, the next minor for 0.y.z with y>0,
// and the next patch for 0.0.z — which makes "^0.0.3" match 0.0.3 only.
func caretUpperBound(base *semver.Version) *semver.Version {
	major, minor, patch := int64(base.Major()), int64(base.Minor()), int64(base.Patch())
	switch {
	case major > 0:
		return mustVersion(major+1, 0, 0)
	case minor > 0:
		return mustVersion(0, minor+1, 0)
	default:
		return mustVersion(0, 0, patch+1)
	}
}

// tildeUpperBound returns the exclusive upper bound of npm's "~" range:
// patch-level changes are allowed, minor is pinned.
func tildeUpperBound(base *semver.Version) *semver.Version {
	return mustVersion(int64(base.Major()), int64(base.Minor())+1, 0)
}

func mustVersion(major, minor, patch int64) *semver.Version {
	v, err := semver.NewVersion(fmt.Sprintf("%d.%d.%d", major, minor, patch))
	if err != nil {
		panic(err)
	}
	return v
}

func opStartsWith(args []any, _ any) any {
	if len(args) != 2 {
		return false
	}
	s, ok := args[0].(string)
	if !ok {
		return false
	}
	prefix, ok := args[1].(string)
	if !ok {
		return false
	}
	return strings.HasPrefix(s, prefix)
}

func opEndsWith(args []any, _ any) any {
	if len(args) != 2 {
		return false
	}
	s, ok := args[0].(string)
	if !ok {
		return false
	}
	suffix, ok := args[1].(string)
	if !ok {
		return false
	}
	return strings.HasSuffix(s, suffix)
}
