package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/framerhq/framer/internal/config"
)

func writeAIConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ai.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write ai config: %v", err)
	}
	t.Setenv("FRAMER_AI_CONFIG_PATH", path)
	return path
}

func TestLoadAIConfig_Defaults(t *testing.T) {
	t.Setenv("FRAMER_AI_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := config.LoadAIConfig()
	if err != nil {
		t.Fatalf("LoadAIConfig() error = %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("provider = %q, want openai", cfg.Provider)
	}
	if cfg.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d, want 4096", cfg.MaxTokens)
	}
	if !cfg.VerifyTLS {
		t.Error("verify_tls should default to true")
	}
}

func TestLoadAIConfig_FileThenEnvPrecedence(t *testing.T) {
	writeAIConfig(t, "provider: anthropic\nmodel: claude-sonnet-4-20250514\ntemperature: 0.3\n")
	t.Setenv("FRAMER_AI_MODEL", "claude-opus-4-20250514")

	cfg, err := config.LoadAIConfig()
	if err != nil {
		t.Fatalf("LoadAIConfig() error = %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q, want the file value", cfg.Provider)
	}
	if cfg.Model != "claude-opus-4-20250514" {
		t.Errorf("model = %q, want the env override", cfg.Model)
	}
	if cfg.Temperature != 0.3 {
		t.Errorf("temperature = %v, want the file value 0.3", cfg.Temperature)
	}
}

func TestLoadAIConfig_ValidationBounds(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"temperature too high", "temperature: 2.5\n"},
		{"temperature negative", "temperature: -0.1\n"},
		{"max_tokens zero", "max_tokens: 0\n"},
		{"timeout too short", "timeout: 500ms\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeAIConfig(t, tc.yaml)
			if _, err := config.LoadAIConfig(); err == nil {
				t.Errorf("LoadAIConfig() expected error for %s", tc.name)
			}
		})
	}
}

func TestLoadAIConfig_BoundaryValuesAccepted(t *testing.T) {
	writeAIConfig(t, "temperature: 2.0\nmax_tokens: 1\ntimeout: 1s\n")

	cfg, err := config.LoadAIConfig()
	if err != nil {
		t.Fatalf("LoadAIConfig() error = %v", err)
	}
	if cfg.Temperature != 2.0 || cfg.MaxTokens != 1 || cfg.Timeout != time.Second {
		t.Errorf("boundary config = %+v", cfg)
	}
}

func TestUpdateAIConfigFile_MergesPartialUpdate(t *testing.T) {
	writeAIConfig(t, "provider: anthropic\nmodel: claude-sonnet-4-20250514\napi_key: sk-original\n")

	cfg, err := config.UpdateAIConfigFile(map[string]any{"model": "claude-opus-4-20250514"})
	if err != nil {
		t.Fatalf("UpdateAIConfigFile() error = %v", err)
	}
	if cfg.Model != "claude-opus-4-20250514" {
		t.Errorf("model = %q, want the updated value", cfg.Model)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q, untouched fields must survive", cfg.Provider)
	}
	if cfg.APIKey != "sk-original" {
		t.Errorf("api_key = %q, untouched fields must survive", cfg.APIKey)
	}
}

func TestUpdateAIConfigFile_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ai.yaml")
	t.Setenv("FRAMER_AI_CONFIG_PATH", path)

	cfg, err := config.UpdateAIConfigFile(map[string]any{"provider": "groq", "model": "llama-3.3-70b"})
	if err != nil {
		t.Fatalf("UpdateAIConfigFile() error = %v", err)
	}
	if cfg.Provider != "groq" {
		t.Errorf("provider = %q, want groq", cfg.Provider)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file was not created: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FRAMER_AI_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("FRAMER_PORT", "9999")
	t.Setenv("FRAMER_CONVERSATION_STALE_AFTER", "48h")
	t.Setenv("FRAMER_RETENTION_SCHEDULE", "@daily")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Port)
	}
	if cfg.Retention.StaleAfter != 48*time.Hour {
		t.Errorf("stale_after = %s, want 48h", cfg.Retention.StaleAfter)
	}
	if cfg.Retention.Schedule != "@daily" {
		t.Errorf("schedule = %q, want @daily", cfg.Retention.Schedule)
	}
}
