package main

import (
	"fmt"

	"github.com/aretw0/switchboard/internal/validator"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow.yaml>",
	Short: "Check the flow for consistency",
	Long:  `Reports dangling jumps, malformed rules, invalid expressions and nodes unreachable from the entry node.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := flow.Load(args[0])
		if err != nil {
			return err
		}
		// Callbacks are provided by the embedding application, so their
		// names are not checked here.
		if err := validator.ValidateFlow(def, nil); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Flow is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
