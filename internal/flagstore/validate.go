package flagstore

import (
	"fmt"
	"reflect"
)

// ValidationMode controls how Store.Build reacts to malformed flag
// definitions within an otherwise valid flag set.
type ValidationMode int

const (
	// ValidationStrict rejects the whole update if any flag fails
	// validation, leaving the previous snapshot in place.
	ValidationStrict ValidationMode = iota
	// ValidationPermissive accepts the update, dropping only the flags that
	// fail validation and reporting them in UpdateResult.Errors.
	ValidationPermissive
)

// validateFlag checks the invariants a [Flag] must hold to be evaluable:
// a non-empty key, a default variant that exists in Variants, variant
// values that are all the same JSON type (flagd-style type homogeneity, so
// a single flag can't resolve to a bool in one branch and a string in
// another), and a targeting rule shaped like a JSON-Logic node when present.
func validateFlag(key string, flag Flag) []ValidationError {
	var errs []ValidationError
	path := func(suffix string) string { return fmt.Sprintf("flags.%s%s", key, suffix) }

	if key == "" {
		errs = append(errs, ValidationError{Path: "flags", Message: "flag key must not be empty"})
	}
	if len(flag.Variants) == 0 {
		errs = append(errs, ValidationError{FlagKey: key, Path: path(".variants"), Message: "flag must define at least one variant"})
		return errs
	}
	if flag.DefaultVariant == "" {
		errs = append(errs, ValidationError{FlagKey: key, Path: path(".defaultVariant"), Message: "defaultVariant must not be empty"})
	} else if _, ok := flag.Variants[flag.DefaultVariant]; !ok {
		errs = append(errs, ValidationError{FlagKey: key, Path: path(".defaultVariant"), Message: fmt.Sprintf("defaultVariant %q is not a defined variant", flag.DefaultVariant)})
	}

	if err := checkVariantHomogeneity(flag.Variants); err != "" {
		errs = append(errs, ValidationError{FlagKey: key, Path: path(".variants"), Message: err})
	}

	if flag.Targeting != nil {
		switch flag.Targeting.(type) {
		case map[string]any, bool:
		default:
			errs = append(errs, ValidationError{FlagKey: key, Path: path(".targeting"), Message: "targeting must be a JSON-Logic rule object or boolean literal"})
		}
	}

	return errs
}

func checkVariantHomogeneity(variants map[string]any) string {
	var kind reflect.Kind
	first := true
	for name, v := range variants {
		k := valueKind(v)
		if first {
			kind = k
			first = false
			continue
		}
		if k != kind {
			return fmt.Sprintf("variant %q has a different type than the other variants", name)
		}
	}
	return ""
}

func valueKind(v any) reflect.Kind {
	switch v.(type) {
	case nil:
		return reflect.Invalid
	case bool:
		return reflect.Bool
	case float64:
		return reflect.Float64
	case string:
		return reflect.String
	case []any:
		return reflect.Slice
	case map[string]any:
		return reflect.Map
	default:
		return reflect.Invalid
	}
}

// Validate checks every flag in raw and returns the collected problems. An
// empty slice means the flag set is entirely valid.
func Validate(raw RawFlagSet) []ValidationError {
	var errs []ValidationError
	for key, flag := range raw.Flags {
		errs = append(errs, validateFlag(key, flag)...)
	}
	return errs
}
