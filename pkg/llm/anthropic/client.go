// Package anthropic provides the Anthropic Messages API implementation of llm.LLMClient.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"knowledgebot/pkg/llm"
	"knowledgebot/pkg/llmerrors"
)

// Options configures a ClaudeClient.
type Options struct {
	HTTPClient *http.Client  // nil = a client with Timeout
	APIKey     string        // Required
	Model      string        // Model identifier sent on every request
	BaseURL    string        // empty = SDK default
	Timeout    time.Duration // Ignored when HTTPClient is set
}

// ClaudeClient wraps the Anthropic API client to implement llm.LLMClient interface.
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClient creates a raw client. Middleware is applied at a higher level.
// SDK retries are disabled: one question produces at most one upstream request.
func NewClaudeClient(opts Options) *ClaudeClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &ClaudeClient{
		client: anthropic.NewClient(reqOpts...),
		model:  anthropic.Model(opts.Model),
	}
}

// splitMessages pulls system messages out into the top-level system parameter and
// merges consecutive non-assistant messages so the sequence alternates and ends with user.
func splitMessages(messages []llm.CompletionMessage) (systemPrompt string, turns []llm.CompletionMessage, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts, userParts []string
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			if len(userParts) > 0 {
				turns = append(turns, llm.NewUserMessage(strings.Join(userParts, "\n\n")))
				userParts = nil
			}
			turns = append(turns, *msg)
		default:
			userParts = append(userParts, msg.Content)
		}
	}
	if len(userParts) > 0 {
		turns = append(turns, llm.NewUserMessage(strings.Join(userParts, "\n\n")))
	}

	if len(turns) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if turns[0].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", turns[0].Role)
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Role == turns[i-1].Role {
			return "", nil, fmt.Errorf("alternation violation at index %d: consecutive %s messages", i, turns[i].Role)
		}
	}
	if last := turns[len(turns)-1]; last.Role != llm.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", last.Role)
	}

	return strings.Join(systemParts, "\n\n"), turns, nil
}

// Complete implements the llm.LLMClient interface.
//
//nolint:gocritic // CompletionRequest passed by value matches interface
func (c *ClaudeClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, turns, err := splitMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message alternation error: %v", err))
	}
	if in.MaxTokens <= 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "max tokens must be positive")
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for i := range turns {
		block := anthropic.NewTextBlock(turns[i].Content)
		if turns[i].Role == llm.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: int64(in.MaxTokens),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
	}

	// Only the first text segment is returned.
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type != "text" {
			continue
		}
		return llm.CompletionResponse{
			Content:    block.AsText().Text,
			StopReason: string(resp.StopReason),
			Usage: llm.Usage{
				InputTokens:  int(resp.Usage.InputTokens),
				OutputTokens: int(resp.Usage.OutputTokens),
			},
		}, nil
	}
	return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "response contained no text content")
}

// GetModelName returns the model name for this client.
func (c *ClaudeClient) GetModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to structured error types.
func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "connection", "network", "temporary", "eof", "reset"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network or connection error")
	case containsAny(errStr, "rate", "quota"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "rate limiting detected")
	case containsAny(errStr, "unauthorized", "api key", "auth"):
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "authentication error")
	default:
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "unclassified error")
	}
}

func classifyStatus(statusCode int, err error) *llmerrors.Error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeAuth, statusCode, err, "authentication failed - check API key")
	case statusCode == http.StatusForbidden:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeAuth, statusCode, err, "permission denied - check API access")
	case statusCode == http.StatusTooManyRequests:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeRateLimit, statusCode, err, "rate limit exceeded")
	case statusCode == http.StatusBadRequest, statusCode == http.StatusNotFound, statusCode == http.StatusRequestEntityTooLarge:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeBadPrompt, statusCode, err, "bad request - check prompt format and parameters")
	case statusCode >= 500:
		// 529 is Anthropic's "overloaded".
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeTransient, statusCode, err, "server error")
	default:
		return llmerrors.NewErrorWithStatus(llmerrors.ErrorTypeUnknown, statusCode, err, "unexpected status")
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// NewFactory returns a constructor for clients sharing baseURL and timeout.
func NewFactory(baseURL string, timeout time.Duration) func(apiKey, model string) llm.LLMClient {
	httpClient := &http.Client{Timeout: timeout}
	return func(apiKey, model string) llm.LLMClient {
		return NewClaudeClient(Options{
			HTTPClient: httpClient,
			APIKey:     apiKey,
			Model:      model,
			BaseURL:    baseURL,
		})
	}
}
