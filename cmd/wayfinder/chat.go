package main

import (
	"github.com/aretw0/wayfinder/internal/cli"
	"github.com/spf13/cobra"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the task graph interactively",
	Long: `Starts a conversation in the terminal. Every turn is routed by the engine and
the session is saved in the configured store, so it can be resumed later.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sessionID, _ := cmd.Flags().GetString("session")
	jsonMode, _ := cmd.Flags().GetBool("json")
	trace, _ := cmd.Flags().GetBool("trace")
	fresh, _ := cmd.Flags().GetBool("fresh")
	noGlobal, _ := cmd.Flags().GetBool("no-global")

	ctx := cli.NewSignalContext(cmd.Context())
	defer ctx.Cancel()

	return cli.RunChat(ctx, cli.ChatOptions{
		Config:    cfg,
		SessionID: sessionID,
		JSON:      jsonMode,
		Trace:     trace,
		Fresh:     fresh,
		NoGlobal:  noGlobal,
		Debug:     debugFlag(cmd),
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
	})
}

func init() {
	rootCmd.AddCommand(chatCmd)

	for _, cmd := range []*cobra.Command{chatCmd, rootCmd} {
		cmd.Flags().StringP("session", "s", "default", "Session ID to create or resume")
		cmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
		cmd.Flags().Bool("trace", false, "Show the routing decision under each reply")
		cmd.Flags().Bool("fresh", false, "Discard any saved state for the session first")
		cmd.Flags().Bool("no-global", false, "Disable switching to global intents")
	}

	// Chat is the default when no command is provided.
	rootCmd.RunE = runChat
}
