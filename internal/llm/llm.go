// Package llm defines the provider-agnostic chat-completion contract used by
// the matching pipeline. Provider adapters (OpenAI, Gemini, proxy) normalize
// their native request/response shapes to this one.
package llm

import "context"

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a role-tagged chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system-role message (used to carry scoring rubrics).
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Client turns a chat transcript into a free-text completion. Implementations
// must return an error (not hang) on transport failures; callers treat every
// error as recoverable and fall back to similarity-only results.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
