// Package logging provides logging middleware for LLM clients.
package logging

import (
	"context"
	"time"

	"knowledgebot/pkg/llm"
	"knowledgebot/pkg/llmerrors"
	"knowledgebot/pkg/logx"
)

// maxLoggedPrompt bounds how much of a prompt reaches the log.
const maxLoggedPrompt = 400

// Middleware logs each completion call at debug level and every failure at error level.
// Empty responses additionally dump the messages that produced them.
func Middleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm")
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				logx.Debug(ctx, "llm", "request model=%s messages=%d max_tokens=%d prompt=%q",
					next.GetModelName(), len(req.Messages), req.MaxTokens,
					llmerrors.SanitizePrompt(req.PromptText(), maxLoggedPrompt))

				resp, err := next.Complete(ctx, req)
				elapsed := time.Since(start)

				if err != nil {
					logger.Error("LLM call to %s failed after %dms: %v", next.GetModelName(), elapsed.Milliseconds(), err)
					if llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) {
						logEmptyResponse(logger, req)
					}
					return resp, err //nolint:wrapcheck // Middleware intentionally passes through errors unchanged
				}

				logx.Debug(ctx, "llm", "response stop_reason=%s chars=%d duration=%dms",
					resp.StopReason, len(resp.Content), elapsed.Milliseconds())
				return resp, nil
			},
			next.GetModelName,
		)
	}
}

//nolint:gocritic // Request passed by value for logging only
func logEmptyResponse(logger *logx.Logger, req llm.CompletionRequest) {
	logger.Error("Empty response from LLM, max_tokens=%d", req.MaxTokens)
	for i := range req.Messages {
		msg := &req.Messages[i]
		logger.Error("  message[%d] role=%s content=%s", i, msg.Role,
			llmerrors.SanitizePrompt(msg.Content, maxLoggedPrompt))
	}
}
