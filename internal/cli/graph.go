package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/wayfinder/internal/config"
	"github.com/aretw0/wayfinder/internal/graph"
	render "github.com/aretw0/wayfinder/internal/presentation/graph"
	"github.com/aretw0/wayfinder/internal/validator"
	"github.com/aretw0/wayfinder/pkg/adapters/file"
	"github.com/aretw0/wayfinder/pkg/domain"
)

// Graph output formats.
const (
	FormatMermaid = "mermaid"
	FormatDOT     = "dot"
	FormatJSON    = "json"
)

// RenderGraph writes the configured task graph to w. When sessionID is set,
// the session's position is highlighted.
func RenderGraph(ctx context.Context, cfg config.Config, format, sessionID string, w io.Writer) error {
	def, err := file.NewLoader(cfg.Graph).Load(ctx)
	if err != nil {
		return err
	}

	var overlay *render.GraphOverlay
	if sessionID != "" {
		manager, closeStore, err := BuildSessionManager(ctx, cfg.Store, NewLogger(false, ""))
		if err != nil {
			return err
		}
		defer closeStore()
		state, err := manager.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %q: %w", sessionID, err)
		}
		overlay = render.OverlayFromState(state)
	}

	switch format {
	case FormatMermaid, "":
		_, err = fmt.Fprintln(w, render.GenerateMermaid(def.Nodes, def.Edges, overlay))
	case FormatDOT:
		var dot string
		if dot, err = render.GenerateDOT(def.Name, def.Nodes, def.Edges, overlay); err == nil {
			_, err = fmt.Fprintln(w, dot)
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(def)
	default:
		err = fmt.Errorf("unknown format %q (use %s, %s or %s)", format, FormatMermaid, FormatDOT, FormatJSON)
	}
	return err
}

// ValidateFile loads the task graph at path and checks it for structural
// errors and warnings. The report is written to w.
func ValidateFile(ctx context.Context, path string, w io.Writer) error {
	def, err := file.NewLoader(path).Load(ctx)
	if err != nil {
		return err
	}
	g, err := graph.Load(def, nil)
	if err != nil {
		return fmt.Errorf("invalid task graph: %w", err)
	}

	report := validator.ValidateGraph(g)
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if err := report.Err(); err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ %s is valid (%d nodes, %d edges)\n", path, len(g.Nodes()), len(g.Edges()))
	return nil
}

// ListSessions prints the stored session IDs, one per line.
func ListSessions(ctx context.Context, cfg config.StoreConfig, w io.Writer) error {
	manager, closeStore, err := BuildSessionManager(ctx, cfg, NewLogger(false, ""))
	if err != nil {
		return err
	}
	defer closeStore()

	ids, err := manager.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		printSystemMessage(w, "No sessions found.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// InspectSession prints the stored state of a session as JSON.
func InspectSession(ctx context.Context, cfg config.StoreConfig, id string, w io.Writer) error {
	manager, closeStore, err := BuildSessionManager(ctx, cfg, NewLogger(false, ""))
	if err != nil {
		return err
	}
	defer closeStore()

	state, err := manager.Load(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("session %q not found", id)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

// RemoveSession deletes a stored session.
func RemoveSession(ctx context.Context, cfg config.StoreConfig, id string, w io.Writer) error {
	manager, closeStore, err := BuildSessionManager(ctx, cfg, NewLogger(false, ""))
	if err != nil {
		return err
	}
	defer closeStore()

	if err := manager.Delete(ctx, id); err != nil {
		return err
	}
	printSystemMessage(w, "Session '%s' removed.", id)
	return nil
}
