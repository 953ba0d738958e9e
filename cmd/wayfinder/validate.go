package main

import (
	"fmt"

	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph-file]",
	Short: "Check the task graph for consistency",
	Long:  `Loads the task graph and reports dangling edges, unreachable nodes and intents the classifier cannot tell apart.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path := cfg.Graph
		if len(args) > 0 {
			path = args[0]
		}
		if err := cli.ValidateFile(cmd.Context(), path, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
