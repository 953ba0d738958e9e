package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/internal/presentation/graph"
	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/runner"
	"github.com/aretw0/wayfinder/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource exposing the graph definition.
const GraphURI = "wayfinder://graph"

// DecideResponse aligns with the HTTP adapter and provides a unified structure across adapters.
type DecideResponse struct {
	Decision domain.NodeDecision `json:"decision" jsonschema_description:"The node the execution layer should run next"`
	State    *domain.State       `json:"state" jsonschema_description:"The session state after the turn"`
}

// DecideArgs are the arguments of the decide_node tool.
type DecideArgs struct {
	SessionID               string `json:"session_id"`
	Utterance               string `json:"utterance"`
	History                 string `json:"history,omitempty"`
	AllowGlobalIntentSwitch *bool  `json:"allow_global_intent_switch,omitempty"`
}

// GraphArgs are the arguments of the get_graph tool.
type GraphArgs struct {
	Format    string `json:"format,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	Decide(ctx context.Context, state *domain.State, turn domain.Turn) (domain.NodeDecision, *domain.State, error)
	EnterNestedGraph(state *domain.State, nodeID string) error
	Definition() domain.Definition
}

// Server wraps the Wayfinder Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSessionManager sets the session manager used by decide_node.
func WithSessionManager(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("wayfinder-mcp", strings.TrimSpace(wayfinder.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(memory.NewStore(), session.WithLogger(s.logger))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: decide_node
	decideTool := mcp.NewTool("decide_node",
		mcp.WithDescription("Decide which node handles the user's utterance in a session. The session is created on first use."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
		mcp.WithString("utterance", mcp.Required(), mcp.Description("The user's latest message")),
		mcp.WithString("history", mcp.Description("Formatted conversation so far (optional)")),
		mcp.WithBoolean("allow_global_intent_switch", mcp.Description("Allow jumping to globally reachable intents (default true)")),
		mcp.WithOutputSchema[DecideResponse](),
	)
	s.mcpServer.AddTool(decideTool, mcp.NewStructuredToolHandler(s.handleDecide))

	// TOOL: reset_session
	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Delete a session so the next turn starts over."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session ID")),
	), mcp.NewTypedToolHandler(func(ctx context.Context, request mcp.CallToolRequest, args DecideArgs) (*mcp.CallToolResult, error) {
		if err := s.sessions.Delete(ctx, args.SessionID); err != nil {
			return mcp.NewToolResultErrorf("delete failed: %v", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("session %q reset", args.SessionID)), nil
	}))

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the task graph for introspection, as JSON, Mermaid or Graphviz DOT."),
		mcp.WithString("format", mcp.Enum("json", "mermaid", "dot"), mcp.Description("Output format (default json)")),
		mcp.WithString("session_id", mcp.Description("Highlight the position of this session (mermaid and dot only)")),
	), mcp.NewTypedToolHandler(s.handleGetGraph))
}

func (s *Server) handleDecide(ctx context.Context, request mcp.CallToolRequest, args DecideArgs) (DecideResponse, error) {
	if args.SessionID == "" {
		return DecideResponse{}, fmt.Errorf("session_id is required")
	}
	utterance, err := runner.SanitizeUtterance(args.Utterance)
	if err != nil {
		s.logger.Warn("MCP Decide: Utterance rejected", "err", err, "size", len(args.Utterance))
		return DecideResponse{}, fmt.Errorf("utterance rejected: %w", err)
	}
	turn := domain.Turn{
		Utterance:               utterance,
		History:                 args.History,
		AllowGlobalIntentSwitch: args.AllowGlobalIntentSwitch == nil || *args.AllowGlobalIntentSwitch,
	}

	var decision domain.NodeDecision
	next, err := s.sessions.Turn(ctx, args.SessionID, func(ctx context.Context, state *domain.State) (*domain.State, error) {
		d, next, err := s.engine.Decide(ctx, state, turn)
		if err != nil {
			return nil, err
		}
		decision = d
		if d.ResourceName == domain.NestedGraphResource {
			if err := s.engine.EnterNestedGraph(next, d.NodeID); err != nil {
				s.logger.Warn("Failed to enter nested graph", "node", d.NodeID, "err", err)
			}
		}
		return next, nil
	})
	if err != nil {
		return DecideResponse{}, fmt.Errorf("decide failed: %w", err)
	}
	return DecideResponse{Decision: decision, State: next}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (*mcp.CallToolResult, error) {
	def := s.engine.Definition()

	var overlay *graph.GraphOverlay
	if args.SessionID != "" {
		if state, err := s.sessions.Load(ctx, args.SessionID); err == nil {
			overlay = graph.OverlayFromState(state)
		}
	}

	switch args.Format {
	case "", "json":
		jsonBytes, err := json.Marshal(def)
		if err != nil {
			return mcp.NewToolResultErrorf("encode failed: %v", err), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	case "mermaid":
		return mcp.NewToolResultText(graph.GenerateMermaid(def.Nodes, def.Edges, overlay)), nil
	case "dot":
		dot, err := graph.GenerateDOT(def.Name, def.Nodes, def.Edges, overlay)
		if err != nil {
			return mcp.NewToolResultErrorf("render failed: %v", err), nil
		}
		return mcp.NewToolResultText(dot), nil
	default:
		return mcp.NewToolResultErrorf("unknown format %q", args.Format), nil
	}
}

func (s *Server) registerResources() {
	// EXPOSE: wayfinder://graph
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Definition())
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
