package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebot/pkg/llm"
	"knowledgebot/pkg/llmerrors"
	"knowledgebot/pkg/logx"
)

type fakeClient struct {
	resp llm.CompletionResponse
	err  error
}

func (f fakeClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	return f.resp, f.err
}

func (f fakeClient) GetModelName() string { return "test-model" }

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logx.SetOutput(&buf)
	t.Cleanup(func() { logx.SetOutput(nil) })
	return &buf
}

func request() llm.CompletionRequest {
	return llm.CompletionRequest{
		Messages:  []llm.CompletionMessage{llm.NewSystemMessage("sys"), llm.NewUserMessage("question")},
		MaxTokens: 300,
	}
}

func TestSuccessIsQuiet(t *testing.T) {
	buf := captureLogs(t)

	client := llm.Chain(fakeClient{resp: llm.CompletionResponse{Content: "ok"}}, Middleware(nil))
	resp, err := client.Complete(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Empty(t, buf.String())
}

func TestFailureIsLogged(t *testing.T) {
	buf := captureLogs(t)

	cause := errors.New("connection reset")
	client := llm.Chain(fakeClient{err: cause}, Middleware(logx.NewLogger("test")))
	_, err := client.Complete(context.Background(), request())
	require.ErrorIs(t, err, cause)

	out := buf.String()
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "test-model")
	assert.Contains(t, out, "connection reset")
}

func TestEmptyResponseDumpsMessages(t *testing.T) {
	buf := captureLogs(t)

	client := llm.Chain(
		fakeClient{err: llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no text")},
		Middleware(logx.NewLogger("test")),
	)
	_, err := client.Complete(context.Background(), request())
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "Empty response from LLM")
	assert.Contains(t, out, "role=user content=question")
}
