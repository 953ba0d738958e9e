package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/wayfinder/internal/config"
	"github.com/aretw0/wayfinder/internal/presentation/tui"
	"github.com/aretw0/wayfinder/pkg/runner"
)

// ChatOptions contains all the configuration for the chat command.
type ChatOptions struct {
	Config    config.Config
	SessionID string
	JSON      bool
	Trace     bool
	Fresh     bool
	NoGlobal  bool
	Debug     bool

	// In and Out default to the process stdio.
	In  io.Reader
	Out io.Writer
}

// RunChat runs an interactive conversation against the configured graph.
func RunChat(ctx context.Context, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	logger := NewLogger(opts.Debug, "")

	engine, err := BuildEngine(ctx, opts.Config, logger, hooksFor(opts.Debug, logger))
	if err != nil {
		return err
	}

	manager, closeStore, err := BuildSessionManager(ctx, opts.Config.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Fresh {
		if err := manager.Delete(ctx, opts.SessionID); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		handlerOpts := []runner.TextHandlerOption{runner.WithTrace(opts.Trace)}
		if isTerminal(opts.Out) {
			tui.PrintBanner(opts.Out)
			if render, err := tui.NewRenderer(terminalWidth(opts.Out)); err == nil {
				handlerOpts = append(handlerOpts, runner.WithTextHandlerRenderer(render))
			} else {
				logger.Warn("Markdown rendering disabled", "err", err)
			}
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, handlerOpts...)
	}

	runnerOpts := []runner.Option{
		runner.WithManager(manager),
		runner.WithSessionID(opts.SessionID),
		runner.WithHandler(handler),
		runner.WithLogger(logger),
		runner.WithGlobalIntentSwitch(!opts.NoGlobal),
	}
	if msg := opts.Config.Fallback.Message; msg != "" {
		runnerOpts = append(runnerOpts, runner.WithFallbackMessage(msg))
	}

	err = runner.New(engine, runnerOpts...).Run(ctx)
	if !opts.JSON && ctx.Err() == nil && err == nil {
		printSystemMessage(opts.Out, "Session '%s' saved.", opts.SessionID)
	}
	return handleExecutionError(err)
}
