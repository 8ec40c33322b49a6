package assistant

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebot/pkg/config"
	"knowledgebot/pkg/fragments"
)

func testOptions() Options {
	return Options{
		FragmentPrefix:  "RAG_KNOWLEDGE_CONTENT_",
		SingleVar:       "RAG_KNOWLEDGE_CONTENT",
		InstructionsVar: "PROMPT_INSTRUCTIONS",
		Model:           config.DefaultModel,
		GapProbe:        4,
	}
}

func newTestBuilder(t *testing.T, inputs map[string]string, opts Options) (*Builder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude_assistant_config.json")
	return NewBuilder(NewCache(path), fragments.MapLookup(inputs), opts), path
}

func TestBuildFromFragments(t *testing.T) {
	b, path := newTestBuilder(t, map[string]string{
		"RAG_KNOWLEDGE_CONTENT_1": "A",
		"RAG_KNOWLEDGE_CONTENT_2": "B",
		"RAG_KNOWLEDGE_CONTENT_3": "C",
		"RAG_KNOWLEDGE_CONTENT":   "ignored",
		"PROMPT_INSTRUCTIONS":     "be brief",
	}, testOptions())

	cfg, source, err := b.BuildWithSource()
	require.NoError(t, err)
	assert.Equal(t, SourceFragments, source)
	assert.Equal(t, "ABC", cfg.KnowledgeContent)
	assert.Equal(t, "be brief", cfg.Instructions)
	assert.Equal(t, config.DefaultModel, cfg.Model)

	_, err = os.Stat(path)
	assert.NoError(t, err, "cache file should be written")
}

func TestBuildFallsBackToSingleValue(t *testing.T) {
	b, _ := newTestBuilder(t, map[string]string{
		"RAG_KNOWLEDGE_CONTENT_2": "B",
		"RAG_KNOWLEDGE_CONTENT":   "whole document",
		"PROMPT_INSTRUCTIONS":     "be brief",
	}, testOptions())

	cfg, source, err := b.BuildWithSource()
	require.NoError(t, err)
	assert.Equal(t, SourceSingleValue, source)
	assert.Equal(t, "whole document", cfg.KnowledgeContent)
}

func TestBuildFailuresWriteNoCache(t *testing.T) {
	tests := []struct {
		name    string
		inputs  map[string]string
		policy  fragments.GapPolicy
		wantKey string
	}{
		{
			name:    "no knowledge at all",
			inputs:  map[string]string{"RAG_KNOWLEDGE_CONTENT_2": "B", "PROMPT_INSTRUCTIONS": "x"},
			wantKey: "RAG_KNOWLEDGE_CONTENT",
		},
		{
			name:    "no instructions",
			inputs:  map[string]string{"RAG_KNOWLEDGE_CONTENT": "doc"},
			wantKey: "PROMPT_INSTRUCTIONS",
		},
		{
			name: "gap under strict policy",
			inputs: map[string]string{
				"RAG_KNOWLEDGE_CONTENT_1": "A",
				"RAG_KNOWLEDGE_CONTENT_3": "C",
				"PROMPT_INSTRUCTIONS":     "x",
			},
			policy:  fragments.FailOnGap,
			wantKey: "RAG_KNOWLEDGE_CONTENT_2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			opts.GapPolicy = tt.policy
			b, path := newTestBuilder(t, tt.inputs, opts)

			_, err := b.Build()
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrConfiguration)

			var cfgErr *config.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)

			entries, readErr := os.ReadDir(filepath.Dir(path))
			require.NoError(t, readErr)
			assert.Empty(t, entries, "failed build must not leave files behind")
		})
	}
}

func TestBuildGapTruncatesUnderStopPolicy(t *testing.T) {
	b, _ := newTestBuilder(t, map[string]string{
		"RAG_KNOWLEDGE_CONTENT_1": "A",
		"RAG_KNOWLEDGE_CONTENT_3": "C",
		"PROMPT_INSTRUCTIONS":     "x",
	}, testOptions())

	cfg, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "A", cfg.KnowledgeContent)
}

func TestBuildPrefersCacheOverInputs(t *testing.T) {
	inputs := map[string]string{
		"RAG_KNOWLEDGE_CONTENT": "first",
		"PROMPT_INSTRUCTIONS":   "x",
	}
	b, _ := newTestBuilder(t, inputs, testOptions())

	first, err := b.Build()
	require.NoError(t, err)

	inputs["RAG_KNOWLEDGE_CONTENT"] = "changed"
	second, source, err := b.BuildWithSource()
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Equal(t, first, second, "cache is returned unchanged without staleness checks")
}

func TestRebuildAfterPurgeIsIdempotent(t *testing.T) {
	b, path := newTestBuilder(t, map[string]string{
		"RAG_KNOWLEDGE_CONTENT_1": "A",
		"RAG_KNOWLEDGE_CONTENT_2": "B",
		"PROMPT_INSTRUCTIONS":     "x",
	}, testOptions())

	first, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, b.Purge())
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))

	second, source, err := b.BuildWithSource()
	require.NoError(t, err)
	assert.Equal(t, SourceFragments, source)
	assert.Equal(t, first, second)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Assistant.GapPolicy = config.GapPolicyStrict
	cfg.Assistant.Model = "claude-test"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, fragments.FailOnGap, opts.GapPolicy)
	assert.Equal(t, "claude-test", opts.Model)
	assert.Equal(t, config.DefaultFragmentPrefix, opts.FragmentPrefix)
}

func TestStrictPolicyDetectsAnyFragmentPastGap(t *testing.T) {
	tests := []struct {
		name  string
		probe int
		set   []int
		found string
	}{
		{name: "gap wider than the probe", probe: config.DefaultGapProbe, set: []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, found: "RAG_KNOWLEDGE_CONTENT_11"},
		{name: "probe disabled", probe: 0, set: []int{3}, found: "RAG_KNOWLEDGE_CONTENT_3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RAG_KNOWLEDGE_CONTENT_1", "A")
			t.Setenv("RAG_KNOWLEDGE_CONTENT_2", "")
			for _, i := range tt.set {
				t.Setenv(fmt.Sprintf("RAG_KNOWLEDGE_CONTENT_%d", i), "C")
			}
			t.Setenv("PROMPT_INSTRUCTIONS", "be brief")

			cfg := config.Default()
			cfg.Assistant.GapPolicy = config.GapPolicyStrict
			cfg.Assistant.GapProbe = tt.probe
			path := filepath.Join(t.TempDir(), "claude_assistant_config.json")
			b := NewBuilder(NewCache(path), fragments.EnvLookup, OptionsFromConfig(cfg))

			got, _, err := b.BuildWithSource()
			require.ErrorIs(t, err, config.ErrConfiguration)
			assert.Empty(t, got.KnowledgeContent)
			var gapErr *fragments.GapError
			require.ErrorAs(t, err, &gapErr)
			assert.Equal(t, "RAG_KNOWLEDGE_CONTENT_2", gapErr.Missing)
			assert.Equal(t, tt.found, gapErr.Found)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "failed build must not write the cache")
		})
	}
}
