package main

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/flagkit/flagkit/internal/logic"
	"github.com/spf13/cobra"
)

// testCase is one entry in a test suite file: a rule evaluated against data,
// with the expected result.
type testCase struct {
	Name   string `json:"name"`
	Rule   any    `json:"rule"`
	Data   any    `json:"data"`
	Expect any    `json:"expect"`
}

type testSuite struct {
	Cases []testCase `json:"cases"`
}

func newTestCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "test <suite.json>",
		Short: "Run a suite of named rule/data/expect cases against the standard registry",
		Long: `test reads a JSON file of the form {"cases": [{"name", "rule", "data",
"expect"}, ...]} and evaluates each case's rule against its data, comparing
the result to expect. Pass "-" to read the suite from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := resolveJSONBytes("@" + args[0])
			if err != nil {
				return argError(err)
			}

			var suite testSuite
			if err := json.Unmarshal(payload, &suite); err != nil {
				return argError(fmt.Errorf("parse suite: %w", err))
			}

			evaluator := logic.New(logic.StandardRegistry())
			failures := 0
			for i, tc := range suite.Cases {
				name := tc.Name
				if name == "" {
					name = fmt.Sprintf("case %d", i)
				}

				got, err := evaluator.EvaluateData(tc.Rule, tc.Data)
				switch {
				case err != nil:
					failures++
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: evaluation error: %v\n", name, err)
				case !reflect.DeepEqual(got, tc.Expect):
					failures++
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: got %#v, want %#v\n", name, got, tc.Expect)
				default:
					if verbose {
						fmt.Fprintf(cmd.OutOrStdout(), "PASS %s\n", name)
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d passed, %d failed\n", len(suite.Cases)-failures, failures)
			if failures > 0 {
				return evalError(fmt.Errorf("%d of %d cases failed", failures, len(suite.Cases)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each passing case")
	return cmd
}
