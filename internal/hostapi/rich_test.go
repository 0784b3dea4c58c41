package hostapi

import (
	"testing"

	"github.com/flagkit/flagkit/internal/flagstore"
	"github.com/flagkit/flagkit/internal/jsonvalue"
	"github.com/flagkit/flagkit/internal/pool"
)

func TestBindingUpdateStateAndEvaluate(t *testing.T) {
	b := NewBinding(pool.New(flagstore.New(nil), 2))

	_, err := b.UpdateState(flagstore.RawFlagSet{Flags: map[string]flagstore.Flag{
		"country-gate": {
			State:          flagstore.StateEnabled,
			DefaultVariant: "off",
			Variants:       map[string]any{"on": true, "off": false},
			Targeting: map[string]any{
				"if": []any{
					map[string]any{"==": []any{map[string]any{"var": "country"}, "US"}},
					"on", "off",
				},
			},
		},
	}})
	if err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}

	got := b.Evaluate("country-gate", jsonvalue.Context{"country": "US"})
	if got.Reason != flagstore.ReasonTargetingMatch || got.Value != true {
		t.Fatalf("Evaluate() = %+v, want TARGETING_MATCH/true", got)
	}
}

func TestBindingSnapshotReflectsUpdates(t *testing.T) {
	b := NewBinding(pool.New(flagstore.New(nil), 1))

	if got := len(b.Snapshot().Flags); got != 0 {
		t.Fatalf("initial snapshot has %d flags, want 0", got)
	}

	_, err := b.UpdateState(flagstore.RawFlagSet{Flags: map[string]flagstore.Flag{
		"a": {State: flagstore.StateEnabled, DefaultVariant: "x", Variants: map[string]any{"x": 1.0}},
	}})
	if err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}

	if got := len(b.Snapshot().Flags); got != 1 {
		t.Fatalf("snapshot after update has %d flags, want 1", got)
	}
}
