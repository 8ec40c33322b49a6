// Package llm provides provider-neutral types and the client interface for completion calls.
package llm

import (
	"context"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages  []CompletionMessage
	MaxTokens int
}

// Usage reports token counts returned by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // First text segment of the response
	StopReason string // "end_turn", "max_tokens", ...
	Usage      Usage
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Name kept for symmetry with the middleware packages
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// PromptText joins all message contents, used for size logging and token estimates.
func (r CompletionRequest) PromptText() string {
	var n int
	for i := range r.Messages {
		n += len(r.Messages[i].Content) + 1
	}
	buf := make([]byte, 0, n)
	for i := range r.Messages {
		buf = append(buf, r.Messages[i].Content...)
		buf = append(buf, '\n')
	}
	return string(buf)
}
