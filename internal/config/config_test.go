package config

import (
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			shouldSet:    true,
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    false,
			want:         "default",
		},
		{
			name:         "returns default when environment variable is empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    true,
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveAIConfig(t *testing.T) {
	clearProviderEnv := func(t *testing.T) {
		t.Helper()
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("LLM_PROXY_URL", "")
		t.Setenv("EMBEDDING_DIMENSIONS", "")
	}

	t.Run("no credentials resolves to ProviderNone", func(t *testing.T) {
		clearProviderEnv(t)

		cfg := resolveAIConfig()
		if cfg.Provider != ProviderNone {
			t.Errorf("Provider = %q, want none", cfg.Provider)
		}
		if cfg.Configured() {
			t.Error("Configured() should be false without credentials")
		}
	})

	t.Run("openai wins over gemini and proxy", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("GEMINI_API_KEY", "g-test")
		t.Setenv("LLM_PROXY_URL", "https://example.com/api/llm")

		cfg := resolveAIConfig()
		if cfg.Provider != ProviderOpenAI {
			t.Errorf("Provider = %q, want openai", cfg.Provider)
		}
	})

	t.Run("gemini wins over proxy", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-test")
		t.Setenv("LLM_PROXY_URL", "https://example.com/api/llm")

		cfg := resolveAIConfig()
		if cfg.Provider != ProviderGemini {
			t.Errorf("Provider = %q, want gemini", cfg.Provider)
		}
	})

	t.Run("proxy used as last resort", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("LLM_PROXY_URL", "https://example.com/api/llm")

		cfg := resolveAIConfig()
		if cfg.Provider != ProviderProxy {
			t.Errorf("Provider = %q, want proxy", cfg.Provider)
		}
	})

	t.Run("default dimensions is 1536", func(t *testing.T) {
		clearProviderEnv(t)

		cfg := resolveAIConfig()
		if cfg.EmbeddingDimensions != 1536 {
			t.Errorf("EmbeddingDimensions = %d, want 1536", cfg.EmbeddingDimensions)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("fails without API_KEY", func(t *testing.T) {
		t.Setenv("API_KEY", "")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error when API_KEY is unset")
		}
	})

	t.Run("loads defaults", func(t *testing.T) {
		t.Setenv("API_KEY", "secret")
		t.Setenv("EMBEDDING_MAX_ATTEMPTS", "")
		t.Setenv("EMBEDDING_DIMENSIONS", "")
		t.Setenv("PORT", "")
		t.Setenv("LOG_LEVEL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if cfg.Port != "8080" {
			t.Errorf("Port = %q, want 8080", cfg.Port)
		}
		if cfg.EmbeddingMaxAttempts != 3 {
			t.Errorf("EmbeddingMaxAttempts = %d, want 3", cfg.EmbeddingMaxAttempts)
		}
	})
}
