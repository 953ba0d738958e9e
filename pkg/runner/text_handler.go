package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/wayfinder/internal/presentation/tui"
)

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Trace    bool

	styler    *tui.Styler
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTrace prints the routing decision (node, resource) under each reply.
func WithTrace(trace bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Trace = trace
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		styler: tui.NewStyler(w),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

// Output prints a message, rendering assistant text through the renderer.
func (h *TextHandler) Output(ctx context.Context, msg Message) error {
	switch msg.Role {
	case RoleSystem:
		_, err := fmt.Fprintf(h.Writer, "%s\n", h.styler.Faint("[system] "+msg.Text))
		return err
	case RoleUser:
		_, err := fmt.Fprintf(h.Writer, "%s %s\n", h.styler.User("you>"), msg.Text)
		return err
	}

	text := msg.Text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			text = strings.TrimSpace(rendered)
		}
	}
	if _, err := fmt.Fprintf(h.Writer, "%s %s\n", h.styler.Assistant("bot>"), text); err != nil {
		return err
	}
	if h.Trace && msg.Decision != nil {
		d := msg.Decision
		trace := fmt.Sprintf("  -> node=%q resource=%s", d.NodeID, d.ResourceName)
		if d.AddFlowStack {
			trace += " (flow stacked)"
		}
		fmt.Fprintln(h.Writer, h.styler.Faint(trace))
	}
	return nil
}

// Input prompts and reads one line. Invalid input is reported and re-read.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, h.styler.User("you> "))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeUtterance(res.text)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}
