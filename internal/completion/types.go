// Package completion talks to external chat-completion services.
package completion

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether role is one the completion services accept.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is provider neutral. System prompts are sent ahead of Messages.
type Request struct {
	Model       string
	System      []string
	Messages    []Turn
	MaxTokens   int32
	Temperature float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client sends exactly one completion request per call; implementations do
// not retry.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Named is implemented by clients that can report their provider for metrics
// and logs.
type Named interface {
	Provider() string
}

// ProviderName returns c's provider name or "unknown".
func ProviderName(c Client) string {
	if n, ok := c.(Named); ok {
		return n.Provider()
	}
	return "unknown"
}
