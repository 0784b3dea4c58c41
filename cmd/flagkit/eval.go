package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flagkit/flagkit/internal/logic"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var ruleArg, dataArg string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a JSON-Logic rule against data",
		Long: `eval runs a JSON-Logic rule against a data document using the standard
operator registry (every operator in spec section 4.C plus fractional,
sem_ver, starts_with and ends_with) and prints the resulting JSON value.

--rule and --data each accept a literal JSON string, "@path/to/file.json"
to read from a file, or "@-" to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(ruleArg) == "" {
				return argError(errors.New("--rule is required"))
			}
			rule, err := readJSONArg(ruleArg)
			if err != nil {
				return argError(fmt.Errorf("--rule: %w", err))
			}
			data, err := readJSONArg(dataArg)
			if err != nil {
				return argError(fmt.Errorf("--data: %w", err))
			}

			evaluator := logic.New(logic.StandardRegistry())
			result, err := evaluator.EvaluateData(rule, data)
			if err != nil {
				return evalError(err)
			}

			return printJSON(cmd, result, pretty)
		},
	}

	cmd.Flags().StringVar(&ruleArg, "rule", "", `JSON-Logic rule, "@file.json", or "@-" for stdin`)
	cmd.Flags().StringVar(&dataArg, "data", "", `data document, "@file.json", or "@-" for stdin`)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the printed JSON result")

	return cmd
}

func printJSON(cmd *cobra.Command, v any, pretty bool) error {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return evalError(fmt.Errorf("marshal result: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
