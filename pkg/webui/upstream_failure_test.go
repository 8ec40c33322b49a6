package webui

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebot/pkg/assistant"
	"knowledgebot/pkg/dispatch"
	"knowledgebot/pkg/fragments"
	"knowledgebot/pkg/llm/anthropic"
)

// stack wires a real provider, cache file, dispatcher, and Anthropic client to an
// upstream answering every call with status.
func stack(t *testing.T, status int, errType string) (*Server, *assistant.Provider, string, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"` + errType + `","message":"nope"}}`))
	}))
	t.Cleanup(upstream.Close)

	cachePath := filepath.Join(t.TempDir(), "claude_assistant_config.json")
	require.NoError(t, os.WriteFile(cachePath,
		[]byte(`{"knowledgeContent":"Howard has two cats.","instructions":"Be brief.","model":"claude-test"}`), 0644))

	builder := assistant.NewBuilder(assistant.NewCache(cachePath), fragments.MapLookup(nil), assistant.Options{
		FragmentPrefix:  "RAG_KNOWLEDGE_CONTENT_",
		SingleVar:       "RAG_KNOWLEDGE_CONTENT",
		InstructionsVar: "PROMPT_INSTRUCTIONS",
	})
	provider := assistant.NewProvider(builder, 0)
	_, err := provider.Get()
	require.NoError(t, err)

	dispatcher := dispatch.New(anthropic.NewFactory(upstream.URL, 5*time.Second), dispatch.Options{
		Credential: func(string) (string, error) { return "sk-test", nil },
	})
	return NewServer(provider, dispatcher, ""), provider, cachePath, &hits
}

func TestUpstreamFailureLeavesCachedStateUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		errType  string
		wantCode int
	}{
		{"server error", http.StatusInternalServerError, "api_error", http.StatusBadGateway},
		{"rate limited", http.StatusTooManyRequests, "rate_limit_error", http.StatusTooManyRequests},
		{"unauthorized", http.StatusUnauthorized, "authentication_error", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, provider, cachePath, hits := stack(t, tt.status, tt.errType)

			statusBefore := provider.Status()
			cacheBefore, err := os.ReadFile(cachePath)
			require.NoError(t, err)
			cfgBefore, err := provider.Get()
			require.NoError(t, err)

			w := do(t, s, http.MethodPost, "/webhook", `{"question":"How many cats?"}`)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "error", decode(t, w)["status"])

			w = do(t, s, http.MethodPost, "/chat", `{"message":"And dogs?","thread_id":"t-1"}`)
			assert.Equal(t, tt.wantCode, w.Code)

			assert.Equal(t, int32(2), hits.Load(), "one upstream call per question, no retries")
			assert.Equal(t, statusBefore, provider.Status())

			cacheAfter, err := os.ReadFile(cachePath)
			require.NoError(t, err)
			assert.Equal(t, cacheBefore, cacheAfter)

			cfgAfter, err := provider.Get()
			require.NoError(t, err)
			assert.Equal(t, cfgBefore, cfgAfter)
		})
	}
}
