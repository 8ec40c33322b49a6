package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticClient struct {
	reply string
}

func (s staticClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{Content: s.reply}, nil
}

func (s staticClient) GetModelName() string { return "static" }

func tagging(tag string, order *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				*order = append(*order, tag)
				return next.Complete(ctx, req)
			},
			next.GetModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	client := Chain(staticClient{reply: "ok"}, tagging("outer", &order), tagging("inner", &order))

	resp, err := client.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, "static", client.GetModelName())
}

func TestChainWithoutMiddleware(t *testing.T) {
	base := staticClient{reply: "plain"}
	assert.Equal(t, base, Chain(base))
}

func TestPromptText(t *testing.T) {
	req := CompletionRequest{Messages: []CompletionMessage{
		NewSystemMessage("sys"),
		NewUserMessage("question"),
	}}
	assert.Equal(t, "sys\nquestion\n", req.PromptText())
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, RoleUser, req.Messages[1].Role)
}
