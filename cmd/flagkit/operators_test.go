package main

import (
	"strings"
	"testing"
)

func TestOperatorsCmdListsKnownOperators(t *testing.T) {
	out, _, err := runCmd("operators")
	if err != nil {
		t.Fatalf("operators returned error: %v", err)
	}

	for _, want := range []string{"var", "if", "and", "fractional", "sem_ver", "starts_with"} {
		if !strings.Contains(out, want) {
			t.Fatalf("operators output missing %q:\n%s", want, out)
		}
	}
}
