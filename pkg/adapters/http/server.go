package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/internal/logging"
	"github.com/aretw0/wayfinder/internal/presentation/graph"
	"github.com/aretw0/wayfinder/pkg/adapters/memory"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/runner"
	"github.com/aretw0/wayfinder/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine defines the decision core the server drives.
type Engine interface {
	Decide(ctx context.Context, state *domain.State, turn domain.Turn) (domain.NodeDecision, *domain.State, error)
	NewState(sessionID string) *domain.State
	EnterNestedGraph(state *domain.State, nodeID string) error
	Definition() domain.Definition
}

// Server serves decisions over HTTP.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSessionManager sets the session manager backing /sessions.
// Defaults to an in-memory store.
func WithSessionManager(m *session.Manager) Option {
	return func(s *Server) {
		s.Sessions = m
	}
}

// WithMetricsHandler mounts h under GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	server := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Sessions == nil {
		server.Sessions = session.NewManager(memory.NewStore(), session.WithLogger(server.Logger))
	}
	return server.Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Post("/decide", s.Decide)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/turns", s.PostTurn)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TurnRequest is the body of POST /sessions/{id}/turns.
type TurnRequest struct {
	Utterance string `json:"utterance"`
	History   string `json:"history,omitempty"`

	// AllowGlobalIntentSwitch defaults to true when omitted.
	AllowGlobalIntentSwitch *bool `json:"allow_global_intent_switch,omitempty"`
}

// DecideRequest is the body of the stateless POST /decide.
type DecideRequest struct {
	State *domain.State `json:"state,omitempty"`
	Turn  domain.Turn   `json:"turn"`
}

// DecisionResponse carries a decision and the state it produced.
type DecisionResponse struct {
	Decision domain.NodeDecision `json:"decision"`
	State    *domain.State       `json:"state"`
}

// PostTurn handles POST /sessions/{id}/turns. The session is loaded,
// decided and saved under the session lock.
func (s *Server) PostTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("PostTurn: Invalid request body", "err", err)
		return
	}
	utterance, err := runner.SanitizeUtterance(body.Utterance)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid utterance: %v", err), http.StatusBadRequest)
		s.Logger.Warn("PostTurn: Utterance rejected", "err", err, "size", len(body.Utterance))
		return
	}

	turn := domain.Turn{
		Utterance:               utterance,
		History:                 body.History,
		AllowGlobalIntentSwitch: body.AllowGlobalIntentSwitch == nil || *body.AllowGlobalIntentSwitch,
	}

	var decision domain.NodeDecision
	next, err := s.Sessions.Turn(r.Context(), sessionID, func(ctx context.Context, state *domain.State) (*domain.State, error) {
		d, next, err := s.Engine.Decide(ctx, state, turn)
		if err != nil {
			return nil, err
		}
		decision = d
		if d.ResourceName == domain.NestedGraphResource {
			if err := s.Engine.EnterNestedGraph(next, d.NodeID); err != nil {
				s.Logger.Warn("Failed to enter nested graph", "node", d.NodeID, "err", err)
			}
		}
		return next, nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Turn error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("PostTurn failed", "session_id", sessionID, "err", err)
		return
	}

	resp := DecisionResponse{Decision: decision, State: next}
	if payload, err := json.Marshal(resp.Decision); err == nil {
		s.Streams.Broadcast(sessionID, string(payload))
	}
	writeJSON(w, s.Logger, http.StatusOK, resp)
}

// Decide handles POST /decide. The caller owns the state.
func (s *Server) Decide(w http.ResponseWriter, r *http.Request) {
	var body DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("Decide: Invalid request body", "err", err)
		return
	}
	utterance, err := runner.SanitizeUtterance(body.Turn.Utterance)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid utterance: %v", err), http.StatusBadRequest)
		return
	}
	body.Turn.Utterance = utterance

	state := body.State
	if state == nil {
		state = s.Engine.NewState("")
	}
	decision, next, err := s.Engine.Decide(r.Context(), state, body.Turn)
	if err != nil {
		http.Error(w, fmt.Sprintf("Decide error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("Decide failed", "err", err)
		return
	}
	writeJSON(w, s.Logger, http.StatusOK, DecisionResponse{Decision: decision, State: next})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	state, err := s.Sessions.Load(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("GetSession failed", "session_id", sessionID, "err", err)
		return
	}
	writeJSON(w, s.Logger, http.StatusOK, state)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), sessionID); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("DeleteSession failed", "session_id", sessionID, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.Logger.Error("ListSessions failed", "err", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, s.Logger, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetGraph handles GET /graph?format=json|dot|mermaid. An optional
// session_id highlights the session's position.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	def := s.Engine.Definition()

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		state, err := s.Sessions.Load(r.Context(), id)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.Logger.Warn("GetGraph: overlay unavailable", "session_id", id, "err", err)
		}
		overlay = graph.OverlayFromState(state)
	}

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "json":
		writeJSON(w, s.Logger, http.StatusOK, def)
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, graph.GenerateMermaid(def.Nodes, def.Edges, overlay))
	case "dot":
		dot, err := graph.GenerateDOT(def.Name, def.Nodes, def.Edges, overlay)
		if err != nil {
			http.Error(w, fmt.Sprintf("Render error: %v", err), http.StatusInternalServerError)
			s.Logger.Error("GetGraph: DOT rendering failed", "err", err)
			return
		}
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		fmt.Fprint(w, dot)
	default:
		http.Error(w, fmt.Sprintf("Unknown format %q", format), http.StatusBadRequest)
	}
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	def := s.Engine.Definition()
	writeJSON(w, s.Logger, http.StatusOK, map[string]any{
		"app":     "wayfinder-http",
		"version": strings.TrimSpace(wayfinder.Version),
		"graph":   def.Name,
		"nodes":   len(def.Nodes),
		"edges":   len(def.Edges),
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
