// Package llm defines the Provider interface for language-model completion
// backends.
//
// The assistant uses an LLM only as the conversational tier of last resort:
// when neither the pattern matcher nor the intent resolver can handle a
// transcript, the raw text (plus any pending dialogue context) is delegated
// to the model for a free-form spoken answer. The interface is therefore
// deliberately narrow — a blocking Complete over a short message history; no
// tool calling, no streaming.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Role values for Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single message in a completion conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser, or RoleAssistant.
	Role string

	// Content is the text content of the message.
	Content string
}

// Provider is the abstraction over any completion backend.
type Provider interface {
	// Complete sends the ordered message history to the model and blocks
	// until the full response text is available or ctx is cancelled.
	// Messages must be non-empty; the last message is typically the user
	// turn that drives the response.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Close releases backend resources. Safe to call more than once.
	Close() error
}
