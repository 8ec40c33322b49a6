package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultCachePath, cfg.Assistant.CachePath)
	assert.Equal(t, DefaultModel, cfg.Assistant.Model)
	assert.Equal(t, GapPolicyStop, cfg.Assistant.GapPolicy)
	assert.Equal(t, DefaultUpstreamTimeout, cfg.Upstream.Timeout)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, DefaultAdminTokenVar, cfg.Server.AdminTokenVar)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	yamlData := `
server:
  port: 8081
assistant:
  cache_path: /tmp/cache.json
  subject: Ada
  gap_policy: strict
  retry_interval: 30s
upstream:
  timeout: 15s
metrics:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "/tmp/cache.json", cfg.Assistant.CachePath)
	assert.Equal(t, "Ada", cfg.Assistant.Subject)
	assert.Equal(t, GapPolicyStrict, cfg.Assistant.GapPolicy)
	assert.Equal(t, 30*time.Second, cfg.Assistant.RetryInterval)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.Metrics.Enabled)
	// Untouched keys keep defaults.
	assert.Equal(t, DefaultInstructionsVar, cfg.Assistant.InstructionsVar)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0644))

	t.Setenv("PORT", "9090")
	t.Setenv("KNOWLEDGEBOT_MODEL", "claude-test")
	t.Setenv("KNOWLEDGEBOT_UPSTREAM_TIMEOUT", "5s")
	t.Setenv("KNOWLEDGEBOT_METRICS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "claude-test", cfg.Assistant.Model)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadErrorsAreConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "explicit file missing",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.yaml")
			},
		},
		{
			name: "invalid yaml",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "bad.yaml")
				require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
				return path
			},
		},
		{
			name: "bad port env",
			setup: func(t *testing.T) string {
				t.Setenv("PORT", "eighty")
				return ""
			},
		},
		{
			name: "unknown gap policy",
			setup: func(t *testing.T) string {
				t.Setenv("KNOWLEDGEBOT_GAP_POLICY", "maybe")
				return ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			_, err := Load(tt.setup(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewMissingError("PROMPT_INSTRUCTIONS")
	assert.Equal(t, "configuration error: PROMPT_INSTRUCTIONS: is not set", err.Error())

	cause := errors.New("boom")
	wrapped := NewConfigError("cache", "unreadable", cause)
	assert.ErrorIs(t, wrapped, ErrConfiguration)
	assert.ErrorIs(t, wrapped, cause)
}

func TestValidateRequiresAdminTokenVar(t *testing.T) {
	cfg := Default()
	cfg.Server.AdminTokenVar = ""

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "server.admin_token_var")
}
