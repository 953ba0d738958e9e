package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Every message is written as one JSON object per line. Input lines may be a
// JSON object ({"utterance": "..."}), a JSON string or plain text.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

// Output emits the message as a single JSON line.
func (h *JSONHandler) Output(ctx context.Context, msg Message) error {
	return h.Encoder.Encode(msg)
}

type jsonInput struct {
	Utterance string `json:"utterance"`
}

// Input reads the next line. Blank lines are skipped.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := h.Reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if text == "" {
			if err != nil {
				return "", err
			}
			continue
		}
		return SanitizeUtterance(decodeInput(text))
	}
}

func decodeInput(text string) string {
	var obj jsonInput
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Utterance != "" {
		return obj.Utterance
	}
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		return s
	}
	return text
}
