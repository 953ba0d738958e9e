package main

import (
	"fmt"
	"os"

	"github.com/aretw0/wayfinder/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wayfinder",
	Short: "Wayfinder is a task graph decision engine for dialog flows",
	Long: `Wayfinder routes each user utterance to the next node of a task graph,
classifying intents, stacking interrupted flows and falling back when nothing matches.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default "+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().StringP("graph", "g", "", "Task graph file (.json, .yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log engine decisions to stderr")
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.FromEnv()
	if cmd.Flags().Changed("graph") {
		cfg.Graph, _ = cmd.Flags().GetString("graph")
	}
	return cfg, nil
}

func debugFlag(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}
