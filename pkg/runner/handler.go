package runner

import (
	"context"

	"github.com/aretw0/wayfinder/pkg/domain"
)

// Role identifies the speaker of a message.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
)

// Message is one line of the conversation as presented to the user.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`

	// Decision is set on assistant messages produced by a turn.
	Decision *domain.NodeDecision `json:"decision,omitempty"`
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents a message to the user.
	Output(ctx context.Context, msg Message) error

	// Input reads the next utterance. io.EOF ends the conversation.
	Input(ctx context.Context) (string, error)
}
