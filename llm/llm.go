// Package llm defines the completion interface the chat pipeline depends
// on, plus the Anthropic-backed implementation. Callers hold the Client
// interface so tests can substitute fakes.
package llm

import "context"

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the full conversation so far, oldest first. The last
	// entry is the turn being answered.
	Messages []Message

	// Temperature in [0, 1].
	Temperature float64

	// MaxTokens caps the response length.
	MaxTokens int

	// OnChunk, when set, receives text deltas as they stream in. The
	// complete text is still returned at the end.
	OnChunk func(text string)
}

// Client produces completions.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
