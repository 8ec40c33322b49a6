// Package config loads and validates service configuration from an optional YAML file
// and environment overrides, and resolves secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Model identifiers.
const (
	ModelClaude35Sonnet = "claude-3-5-sonnet-20241022"
	DefaultModel        = ModelClaude35Sonnet
)

// Defaults for the assistant inputs. The variable names match the deployed environment.
const (
	DefaultConfigFile      = "knowledgebot.yaml"
	DefaultCachePath       = "claude_assistant_config.json"
	DefaultSubject         = "Howard"
	DefaultFragmentPrefix  = "RAG_KNOWLEDGE_CONTENT_"
	DefaultSingleVar       = "RAG_KNOWLEDGE_CONTENT"
	DefaultInstructionsVar = "PROMPT_INSTRUCTIONS"
	DefaultAPIKeyVar       = "ANTHROPIC_API_KEY"
	DefaultAdminTokenVar   = "KNOWLEDGEBOT_ADMIN_TOKEN"
	DefaultPort            = 5000
	DefaultUpstreamTimeout = 60 * time.Second
	DefaultGapProbe        = 8
	DefaultLogKeep         = 5
)

// Fragment gap policies.
const (
	GapPolicyStop   = "stop"
	GapPolicyStrict = "strict"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig controls the inbound HTTP listener.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	AdminTokenVar string `yaml:"admin_token_var"` // Secret that unlocks /admin/reload; unset = reload disabled
}

// AssistantConfig controls where the assistant configuration comes from.
type AssistantConfig struct {
	CachePath       string        `yaml:"cache_path"`
	Model           string        `yaml:"model"`
	Subject         string        `yaml:"subject"`
	FragmentPrefix  string        `yaml:"fragment_prefix"`
	SingleVar       string        `yaml:"single_var"`
	InstructionsVar string        `yaml:"instructions_var"`
	GapPolicy       string        `yaml:"gap_policy"`
	GapProbe        int           `yaml:"gap_probe"`
	RetryInterval   time.Duration `yaml:"retry_interval"` // 0 = a failed build is only retried on explicit reload
}

// UpstreamConfig controls the outbound completion API client.
type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url"` // empty = SDK default
	APIKeyVar string        `yaml:"api_key_var"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SecretsConfig points at the optional encrypted secrets file.
type SecretsConfig struct {
	File string `yaml:"file"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Dir  string `yaml:"dir"` // empty = stderr only
	Keep int    `yaml:"keep"`
	Tee  bool   `yaml:"tee"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          DefaultPort,
			AdminTokenVar: DefaultAdminTokenVar,
		},
		Assistant: AssistantConfig{
			CachePath:       DefaultCachePath,
			Model:           DefaultModel,
			Subject:         DefaultSubject,
			FragmentPrefix:  DefaultFragmentPrefix,
			SingleVar:       DefaultSingleVar,
			InstructionsVar: DefaultInstructionsVar,
			GapPolicy:       GapPolicyStop,
			GapProbe:        DefaultGapProbe,
		},
		Upstream: UpstreamConfig{
			APIKeyVar: DefaultAPIKeyVar,
			Timeout:   DefaultUpstreamTimeout,
		},
		Logging: LoggingConfig{
			Keep: DefaultLogKeep,
			Tee:  true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load builds the configuration. path names a YAML file; an empty path falls back to
// DefaultConfigFile when it exists. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewConfigError(path, "invalid YAML", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No file: defaults plus environment.
	default:
		return nil, NewConfigError(path, "cannot read config file", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigError("server.port", fmt.Sprintf("out of range: %d", c.Server.Port), nil)
	}
	if c.Server.AdminTokenVar == "" {
		return NewMissingError("server.admin_token_var")
	}
	if c.Assistant.CachePath == "" {
		return NewMissingError("assistant.cache_path")
	}
	if c.Assistant.Model == "" {
		return NewMissingError("assistant.model")
	}
	if c.Assistant.FragmentPrefix == "" {
		return NewMissingError("assistant.fragment_prefix")
	}
	if c.Assistant.SingleVar == "" {
		return NewMissingError("assistant.single_var")
	}
	if c.Assistant.InstructionsVar == "" {
		return NewMissingError("assistant.instructions_var")
	}
	switch c.Assistant.GapPolicy {
	case GapPolicyStop, GapPolicyStrict:
	default:
		return NewConfigError("assistant.gap_policy", fmt.Sprintf("must be %q or %q, got %q", GapPolicyStop, GapPolicyStrict, c.Assistant.GapPolicy), nil)
	}
	if c.Assistant.GapProbe < 0 {
		return NewConfigError("assistant.gap_probe", "must not be negative", nil)
	}
	if c.Assistant.RetryInterval < 0 {
		return NewConfigError("assistant.retry_interval", "must not be negative", nil)
	}
	if c.Upstream.Timeout < 0 {
		return NewConfigError("upstream.timeout", "must not be negative", nil)
	}
	if c.Upstream.APIKeyVar == "" {
		return NewMissingError("upstream.api_key_var")
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Host, "KNOWLEDGEBOT_HOST")
	setString(&cfg.Assistant.CachePath, "KNOWLEDGEBOT_CACHE_PATH")
	setString(&cfg.Assistant.Model, "KNOWLEDGEBOT_MODEL")
	setString(&cfg.Assistant.Subject, "KNOWLEDGEBOT_SUBJECT")
	setString(&cfg.Assistant.GapPolicy, "KNOWLEDGEBOT_GAP_POLICY")
	setString(&cfg.Upstream.BaseURL, "KNOWLEDGEBOT_BASE_URL")
	setString(&cfg.Secrets.File, "KNOWLEDGEBOT_SECRETS_FILE")
	setString(&cfg.Logging.Dir, "KNOWLEDGEBOT_LOG_DIR")

	// PORT is what most hosting platforms inject.
	for _, key := range []string{"PORT", "KNOWLEDGEBOT_PORT"} {
		if err := setInt(&cfg.Server.Port, key); err != nil {
			return err
		}
	}
	if err := setDuration(&cfg.Assistant.RetryInterval, "KNOWLEDGEBOT_RETRY_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Upstream.Timeout, "KNOWLEDGEBOT_UPSTREAM_TIMEOUT"); err != nil {
		return err
	}
	if err := setBool(&cfg.Metrics.Enabled, "KNOWLEDGEBOT_METRICS"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return NewConfigError(key, "not an integer", err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return NewConfigError(key, "not a duration", err)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return NewConfigError(key, "not a boolean", err)
	}
	*dst = b
	return nil
}
