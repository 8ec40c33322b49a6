// Package dispatch turns a question and an assistant config into one completion call.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"knowledgebot/pkg/assistant"
	"knowledgebot/pkg/config"
	"knowledgebot/pkg/llm"
	"knowledgebot/pkg/llmerrors"
	"knowledgebot/pkg/logx"
)

// MaxAnswerTokens caps every answer.
const MaxAnswerTokens = 300

// knowledgeIntro introduces the knowledge document inside the system block.
const knowledgeIntro = "Below is a knowledge document with information about %s. Use this document to answer the user's question:"

// ClientFactory builds a raw completion client for a credential and model.
type ClientFactory func(apiKey, model string) llm.LLMClient

// CredentialFunc resolves a named secret.
type CredentialFunc func(name string) (string, error)

// Options configures a Dispatcher.
type Options struct {
	Credential  CredentialFunc   // nil = config.GetSecret
	APIKeyVar   string           // Secret holding the API key
	Subject     string           // Who the knowledge document is about
	Middlewares []llm.Middleware // Applied outermost first around each client
}

// Dispatcher sends questions upstream. It is safe for concurrent use.
type Dispatcher struct {
	newClient ClientFactory
	logger    *logx.Logger
	opts      Options

	mu      sync.Mutex
	clients map[clientKey]llm.LLMClient
}

type clientKey struct {
	apiKey string
	model  string
}

// New creates a Dispatcher.
func New(factory ClientFactory, opts Options) *Dispatcher {
	if opts.Credential == nil {
		opts.Credential = config.GetSecret
	}
	if opts.APIKeyVar == "" {
		opts.APIKeyVar = config.DefaultAPIKeyVar
	}
	if opts.Subject == "" {
		opts.Subject = config.DefaultSubject
	}
	return &Dispatcher{
		newClient: factory,
		logger:    logx.NewLogger("dispatch"),
		opts:      opts,
		clients:   make(map[clientKey]llm.LLMClient),
	}
}

// ComposeSystemPrompt builds the system block: instructions, the knowledge intro, then the
// knowledge text, separated by blank lines.
//
//nolint:gocritic // Config is a small value object
func ComposeSystemPrompt(cfg assistant.Config, subject string) string {
	if subject == "" {
		subject = config.DefaultSubject
	}
	var b strings.Builder
	b.Grow(len(cfg.Instructions) + len(cfg.KnowledgeContent) + len(knowledgeIntro) + len(subject) + 4)
	b.WriteString(cfg.Instructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, knowledgeIntro, subject)
	b.WriteString("\n\n")
	b.WriteString(cfg.KnowledgeContent)
	return b.String()
}

// HasCredential reports whether the API key can currently be resolved.
func (d *Dispatcher) HasCredential() bool {
	_, err := d.opts.Credential(d.opts.APIKeyVar)
	return err == nil
}

// Dispatch asks the question once and returns the first text segment of the answer.
// A missing credential is a configuration error and nothing is sent. Every failure of
// the call itself matches llmerrors.ErrUpstream. cfg is never modified.
//
//nolint:gocritic // Config is a small value object
func (d *Dispatcher) Dispatch(ctx context.Context, question string, cfg assistant.Config) (string, error) {
	apiKey, err := d.opts.Credential(d.opts.APIKeyVar)
	if err != nil {
		return "", err
	}
	if apiKey == "" {
		return "", config.NewMissingError(d.opts.APIKeyVar)
	}

	client := d.client(apiKey, cfg.Model)
	req := llm.CompletionRequest{
		Messages: []llm.CompletionMessage{
			llm.NewSystemMessage(ComposeSystemPrompt(cfg, d.opts.Subject)),
			llm.NewUserMessage(question),
		},
		MaxTokens: MaxAnswerTokens,
	}

	resp, err := client.Complete(ctx, req)
	if err != nil {
		if !llmerrors.IsUpstream(err) {
			err = llmerrors.NewErrorWithCause(llmerrors.TypeOf(err), err, "completion failed")
		}
		return "", err
	}
	if resp.Content == "" {
		return "", llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "response contained no text")
	}

	logx.Debug(ctx, "dispatch", "answered with %d chars (stop_reason=%s)", len(resp.Content), resp.StopReason)
	return resp.Content, nil
}

func (d *Dispatcher) client(apiKey, model string) llm.LLMClient {
	key := clientKey{apiKey: apiKey, model: model}

	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.clients[key]; ok {
		return c
	}
	// A rotated key replaces the old client.
	clear(d.clients)
	c := llm.Chain(d.newClient(apiKey, model), d.opts.Middlewares...)
	d.clients[key] = c
	return c
}
