package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flagkit",
		Short:         "Evaluate JSON-Logic targeting rules and flag definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newEvalCmd())
	root.AddCommand(newTestCmd())
	root.AddCommand(newOperatorsCmd())

	return root
}
