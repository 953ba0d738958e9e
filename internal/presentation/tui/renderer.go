package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown using glamour.
// A width of zero keeps glamour's default word wrap.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return func(markdown string) (string, error) {
		out, err := r.Render(markdown)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n") + "\n", nil
	}, nil
}

// Styler colors speaker prefixes. It degrades to plain text when w is not
// a terminal.
type Styler struct {
	out *termenv.Output
}

// NewStyler creates a Styler writing to w.
func NewStyler(w io.Writer) *Styler {
	return &Styler{out: termenv.NewOutput(w)}
}

// Assistant styles the assistant prefix.
func (s *Styler) Assistant(label string) string {
	return s.out.String(label).Foreground(s.out.Color("#a78bfa")).Bold().String()
}

// User styles the user prompt.
func (s *Styler) User(label string) string {
	return s.out.String(label).Foreground(s.out.Color("#38bdf8")).Bold().String()
}

// Faint styles secondary information such as routing traces.
func (s *Styler) Faint(text string) string {
	return s.out.String(text).Faint().String()
}
