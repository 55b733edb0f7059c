// Package config loads configuration for the Framer backend.
//
// Application settings come from environment variables with sensible
// defaults. The AI provider configuration additionally merges a YAML
// file (FRAMER_AI_CONFIG_PATH, default /config/ai.yaml) underneath the
// environment, so deployments can ship a config file and still override
// per-environment.
//
// Config values are immutable once loaded. Reload returns a fresh
// object; components hold the reference they were constructed with and
// must be handed a new one explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the Framer backend.
type Config struct {
	Port      int
	Version   string
	DataDir   string
	AI        AIConfig
	Telemetry TelemetryConfig
	Identity  IdentityConfig
	Retention RetentionConfig
	Index     IndexConfig
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// IdentityConfig points at the external identity service that resolves
// bearer tokens to owner identities. Auth is disabled when Endpoint is
// empty (local development).
type IdentityConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type RetentionConfig struct {
	// StaleAfter marks active conversations abandoned when idle this long.
	StaleAfter time.Duration
	// PurgeAfter deletes abandoned conversations older than this.
	PurgeAfter time.Duration
	// Schedule is a cron expression for the janitor sweep.
	Schedule string
}

type IndexConfig struct {
	// Path of the SQLite index database. Empty disables the index.
	Path string
}

// AIConfig describes one upstream text-generation provider. It is
// resolved once per request path and never mutated in place.
type AIConfig struct {
	Provider    string
	Model       string
	APIKey      string
	Endpoint    string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	VerifyTLS   bool
}

// aiFileConfig is the YAML shape of the AI config file. Pointer fields
// distinguish "absent" from zero values; timeout is a Go duration string.
type aiFileConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	Endpoint    string   `yaml:"endpoint"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
	Timeout     string   `yaml:"timeout"`
	VerifyTLS   *bool    `yaml:"verify_tls"`
}

// Validate enforces the provider-config invariants.
func (c AIConfig) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("ai temperature must be in [0,2], got %g", c.Temperature)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("ai max_tokens must be >= 1, got %d", c.MaxTokens)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("ai timeout must be >= 1s, got %s", c.Timeout)
	}
	return nil
}

// DefaultAIConfig returns the baseline provider configuration.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider:    "openai",
		Model:       "gpt-4o",
		Temperature: 0.7,
		MaxTokens:   4096,
		Timeout:     120 * time.Second,
		VerifyTLS:   true,
	}
}

// Load reads configuration from environment variables (and the AI YAML
// file) with sensible defaults.
func Load() (*Config, error) {
	ai, err := LoadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:    envInt("FRAMER_PORT", 8080),
		Version: envStr("FRAMER_VERSION", "0.4.0"),
		DataDir: envStr("FRAMER_DATA_DIR", defaultDataDir()),
		AI:      ai,
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "framer-backend"),
		},
		Identity: IdentityConfig{
			Endpoint: envStr("FRAMER_IDENTITY_ENDPOINT", ""),
			Timeout:  envDur("FRAMER_IDENTITY_TIMEOUT", 5*time.Second),
		},
		Retention: RetentionConfig{
			StaleAfter: envDur("FRAMER_CONVERSATION_STALE_AFTER", 14*24*time.Hour),
			PurgeAfter: envDur("FRAMER_CONVERSATION_PURGE_AFTER", 90*24*time.Hour),
			Schedule:   envStr("FRAMER_RETENTION_SCHEDULE", "@hourly"),
		},
		Index: IndexConfig{
			Path: envStr("FRAMER_INDEX_PATH", ""),
		},
	}, nil
}

// LoadAIConfig builds the AI provider configuration: defaults, then the
// YAML file, then environment variables, in increasing precedence.
func LoadAIConfig() (AIConfig, error) {
	cfg := DefaultAIConfig()

	path := envStr("FRAMER_AI_CONFIG_PATH", "/config/ai.yaml")
	if data, err := os.ReadFile(path); err == nil {
		var file aiFileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return AIConfig{}, fmt.Errorf("parse ai config %s: %w", path, err)
		}
		if file.Provider != "" {
			cfg.Provider = file.Provider
		}
		if file.Model != "" {
			cfg.Model = file.Model
		}
		if file.APIKey != "" {
			cfg.APIKey = file.APIKey
		}
		if file.Endpoint != "" {
			cfg.Endpoint = file.Endpoint
		}
		if file.Temperature != nil {
			cfg.Temperature = *file.Temperature
		}
		if file.MaxTokens != nil {
			cfg.MaxTokens = *file.MaxTokens
		}
		if file.Timeout != "" {
			d, err := time.ParseDuration(file.Timeout)
			if err != nil {
				return AIConfig{}, fmt.Errorf("parse ai config %s: timeout: %w", path, err)
			}
			cfg.Timeout = d
		}
		if file.VerifyTLS != nil {
			cfg.VerifyTLS = *file.VerifyTLS
		}
	}

	cfg.Provider = envStr("FRAMER_AI_PROVIDER", cfg.Provider)
	cfg.Model = envStr("FRAMER_AI_MODEL", cfg.Model)
	cfg.APIKey = envStr("FRAMER_AI_API_KEY", cfg.APIKey)
	cfg.Endpoint = envStr("FRAMER_AI_ENDPOINT", cfg.Endpoint)
	cfg.Temperature = envFloat("FRAMER_AI_TEMPERATURE", cfg.Temperature)
	cfg.MaxTokens = envInt("FRAMER_AI_MAX_TOKENS", cfg.MaxTokens)
	cfg.Timeout = envDur("FRAMER_AI_TIMEOUT", cfg.Timeout)
	cfg.VerifyTLS = envBool("FRAMER_AI_VERIFY_TLS", cfg.VerifyTLS)

	if err := cfg.Validate(); err != nil {
		return AIConfig{}, err
	}
	return cfg, nil
}

// ReloadAIConfig re-reads the AI configuration from its sources and
// returns a new object. Live components must be handed the new value;
// nothing is mutated in place.
func ReloadAIConfig() (AIConfig, error) {
	return LoadAIConfig()
}

// AIConfigPath returns the location of the AI provider YAML file.
func AIConfigPath() string {
	return envStr("FRAMER_AI_CONFIG_PATH", "/config/ai.yaml")
}

// UpdateAIConfigFile merges the given fields into the AI config YAML
// file on disk, then reloads and returns the effective configuration.
// Fields absent from the map keep their current file values.
func UpdateAIConfigFile(fields map[string]any) (AIConfig, error) {
	path := AIConfigPath()

	current := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &current); err != nil {
			return AIConfig{}, fmt.Errorf("parse ai config %s: %w", path, err)
		}
	}
	for k, v := range fields {
		current[k] = v
	}

	out, err := yaml.Marshal(current)
	if err != nil {
		return AIConfig{}, fmt.Errorf("encode ai config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return AIConfig{}, err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return AIConfig{}, fmt.Errorf("write ai config %s: %w", path, err)
	}

	return ReloadAIConfig()
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/data"
	}
	return home + "/.framer"
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
