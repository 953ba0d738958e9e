package main

import (
	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the task graph visualization",
	Long:  `Outputs the task graph as a Mermaid diagram (graph TD), Graphviz DOT or JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		sessionID, _ := cmd.Flags().GetString("session")
		return cli.RenderGraph(cmd.Context(), cfg, format, sessionID, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", cli.FormatMermaid, "Output format: mermaid, dot or json")
	graphCmd.Flags().StringP("session", "s", "", "Highlight the position of a stored session")
}
