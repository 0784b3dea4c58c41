package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func runCmd(args ...string) (stdout, stderr string, err error) {
	root := newRootCmd()
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestEvalCmdSuccess(t *testing.T) {
	out, _, err := runCmd("eval", "--rule", `{"+": [1, 2]}`, "--data", `{}`)
	if err != nil {
		t.Fatalf("eval returned error: %v", err)
	}
	if strings.TrimSpace(out) != "3" {
		t.Fatalf("eval output = %q, want 3", out)
	}
}

func TestEvalCmdPretty(t *testing.T) {
	out, _, err := runCmd("eval", "--rule", `{"var": "x"}`, "--data", `{"x": {"y": 1}}`, "--pretty")
	if err != nil {
		t.Fatalf("eval returned error: %v", err)
	}
	if !strings.Contains(strings.TrimSpace(out), "\n") {
		t.Fatalf("eval --pretty output = %q, want indented JSON", out)
	}
}

func TestEvalCmdMissingRuleIsArgError(t *testing.T) {
	_, _, err := runCmd("eval", "--data", `{}`)
	if err == nil {
		t.Fatalf("eval with no --rule should fail")
	}
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitArgError {
		t.Fatalf("eval with no --rule error = %v, want exitArgError", err)
	}
}

func TestEvalCmdMalformedRuleIsArgError(t *testing.T) {
	_, _, err := runCmd("eval", "--rule", `not json`)
	if err == nil {
		t.Fatalf("eval with malformed --rule should fail")
	}
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitArgError {
		t.Fatalf("eval with malformed --rule error = %v, want exitArgError", err)
	}
}

func TestEvalCmdDivideByZeroPrintsNull(t *testing.T) {
	out, _, err := runCmd("eval", "--rule", `{"/": [1, 0]}`, "--data", `{}`)
	if err != nil {
		t.Fatalf("div-by-zero should resolve to nil, not a process error: %v", err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Fatalf("eval output = %q, want null", out)
	}
}
