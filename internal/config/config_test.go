package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.UseLLM {
		t.Error("expected LLM mode disabled by default")
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("unexpected default model: %s", cfg.OpenAIModel)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected default session TTL: %s", cfg.SessionTTL)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Errorf("unexpected default LLM timeout: %s", cfg.LLMTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("USE_LLM", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if !cfg.UseLLM {
		t.Error("expected LLM mode enabled")
	}
	if !cfg.LLMAvailable() {
		t.Error("expected LLMAvailable with API key set")
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("unexpected model: %s", cfg.OpenAIModel)
	}
	if cfg.LLMTemperature != 0.7 {
		t.Errorf("unexpected temperature: %f", cfg.LLMTemperature)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("unexpected session TTL: %s", cfg.SessionTTL)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.example" {
		t.Errorf("unexpected CORS origins: %#v", cfg.CORSOrigins)
	}
}

func TestLLMAvailableWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Load()
	if cfg.LLMAvailable() {
		t.Error("expected LLMAvailable false without API key")
	}
}

func TestInvalidEnvValuesFallBack(t *testing.T) {
	t.Setenv("USE_LLM", "not-a-bool")
	t.Setenv("LLM_MAX_TOKENS", "many")
	t.Setenv("SESSION_TTL", "soon")

	cfg := Load()

	if cfg.UseLLM {
		t.Error("expected invalid bool to fall back to default")
	}
	if cfg.LLMMaxTokens != 500 {
		t.Errorf("expected invalid int to fall back, got %d", cfg.LLMMaxTokens)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected invalid duration to fall back, got %s", cfg.SessionTTL)
	}
}
