package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setRequiredEnv satisfies validation so tests can focus on one knob at a time.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SPEECH_GATEWAY_URL", "wss://gateway.example.com/v1/stream")
	t.Setenv("SPEECH_GATEWAY_API_KEY", "gw-test-key")
	t.Setenv("OPENAI_API_KEY", "sk-test-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Gateway.MinSpeakerCount != 1 || cfg.Gateway.MaxSpeakerCount != 2 {
		t.Errorf("expected speaker bounds 1..2, got %d..%d",
			cfg.Gateway.MinSpeakerCount, cfg.Gateway.MaxSpeakerCount)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %s", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.MaxTokens != 2048 {
		t.Errorf("expected default max tokens 2048, got %d", cfg.OpenAI.MaxTokens)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected default redis addr, got %s", cfg.Redis.Addr)
	}
	if cfg.Search.MaxResults != 3 {
		t.Errorf("expected default search max results 3, got %d", cfg.Search.MaxResults)
	}
}

func TestLoadFromFile(t *testing.T) {
	setRequiredEnv(t)

	content := `
server:
  host: 127.0.0.1
  port: 9100
openai:
  model: gpt-4o-mini
  max_tokens: 512
search:
  enabled: true
  max_results: 5
auth:
  api_token: file-token
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9100 {
		t.Errorf("server config not read from file: %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.MaxTokens != 512 {
		t.Errorf("openai config not read from file: %s %d", cfg.OpenAI.Model, cfg.OpenAI.MaxTokens)
	}
	if !cfg.Search.Enabled || cfg.Search.MaxResults != 5 {
		t.Errorf("search config not read from file: %+v", cfg.Search)
	}
	if cfg.Auth.APIToken != "file-token" {
		t.Errorf("auth token not read from file: %s", cfg.Auth.APIToken)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("API_TOKEN", "env-token")

	content := `
server:
  port: 9100
redis:
  addr: redis.file:6379
auth:
  api_token: file-token
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("PORT should override the file, got %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("REDIS_ADDR should override the file, got %s", cfg.Redis.Addr)
	}
	if cfg.Auth.APIToken != "env-token" {
		t.Errorf("API_TOKEN should override the file, got %s", cfg.Auth.APIToken)
	}
}

func TestLoadMissingFile(t *testing.T) {
	setRequiredEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestValidation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing gateway url",
			mutate:  func(c *Config) { c.Gateway.URL = "" },
			wantErr: "gateway.url",
		},
		{
			name:    "missing gateway key",
			mutate:  func(c *Config) { c.Gateway.APIKey = "" },
			wantErr: "gateway.api_key",
		},
		{
			name:    "missing openai key",
			mutate:  func(c *Config) { c.OpenAI.APIKey = "" },
			wantErr: "openai.api_key",
		},
		{
			name:    "zero min speakers",
			mutate:  func(c *Config) { c.Gateway.MinSpeakerCount = 0 },
			wantErr: "speaker bounds",
		},
		{
			name: "max below min",
			mutate: func(c *Config) {
				c.Gateway.MinSpeakerCount = 3
				c.Gateway.MaxSpeakerCount = 2
			},
			wantErr: "speaker bounds",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			cfg.Gateway.URL = "wss://gateway.example.com"
			cfg.Gateway.APIKey = "key"
			cfg.OpenAI.APIKey = "key"

			tc.mutate(cfg)

			err := cfg.validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %q", tc.wantErr, err)
			}
		})
	}
}
