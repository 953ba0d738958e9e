package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/wayfinder/internal/config"
	"github.com/aretw0/wayfinder/pkg/adapters/mcp"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// MCPOptions configures the MCP command.
type MCPOptions struct {
	Config    config.Config
	Transport string
	Addr      string
	BaseURL   string
	Debug     bool
}

// ServeMCP runs the MCP server on the selected transport until ctx is done.
// Stdio logs are kept off stdout, which carries the protocol.
func ServeMCP(ctx context.Context, opts MCPOptions, logger *slog.Logger) error {
	engine, err := BuildEngine(ctx, opts.Config, logger, hooksFor(opts.Debug, logger))
	if err != nil {
		return err
	}
	manager, closeStore, err := BuildSessionManager(ctx, opts.Config.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	server := mcp.NewServer(engine, mcp.WithSessionManager(manager), mcp.WithLogger(logger))

	switch opts.Transport {
	case TransportStdio, "":
		return handleExecutionError(server.ServeStdio())
	case TransportSSE:
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + opts.Addr
		}
		return server.ServeSSE(ctx, opts.Addr, baseURL)
	default:
		return fmt.Errorf("unknown transport %q (use %s or %s)", opts.Transport, TransportStdio, TransportSSE)
	}
}
