package main

import (
	"fmt"
	"sort"

	"github.com/flagkit/flagkit/internal/logic"
	"github.com/spf13/cobra"
)

func newOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List the operators the standard registry supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := logic.StandardRegistry().Names()
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
