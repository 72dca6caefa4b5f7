// Package model provides the chat model abstraction used by the analyzer
// roles, plus adapters for the supported providers (Anthropic, OpenAI,
// Google Gemini) and a mock for tests.
package model

import "context"

// ChatModel is the external text-generation service consumed by the analyzer
// roles and the context enricher. It is a black box: callers send an
// instruction plus code and get free text back, which may or may not contain
// the JSON they asked for.
//
// Implementations must:
//   - be safe for concurrent use
//   - respect context cancellation and deadlines
//   - translate provider errors into plain Go errors
type ChatModel interface {
	// Chat sends the conversation to the provider and returns its response.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is a single message in a model conversation.
type Message struct {
	// Role identifies the sender; use the Role* constants.
	Role string

	// Content is the message text.
	Content string
}

// Standard conversation roles, aligned with the major provider APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOut is the output of a chat completion.
type ChatOut struct {
	// Text is the generated response.
	Text string

	// TokensUsed is the total token count reported by the provider,
	// zero when the provider does not report usage.
	TokensUsed int
}
