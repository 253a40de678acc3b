package config

import (
	"errors"
	"testing"
)

// validConfig returns a configuration that passes Validate with the
// ollama provider, which needs no API key in the environment.
func validConfig() *Config {
	return &Config{
		Provider:         ProviderOllama,
		ModelName:        "llama3.3",
		EmbedderModel:    "nomic-embed-text",
		OllamaHost:       "http://localhost:11434",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "professor",
		PostgresPassword: "a-long-enough-password",
		PostgresDBName:   "professor",
		PostgresSSLMode:  "disable",
		Retrieval: RetrievalConfig{
			TopK:          6,
			MinScore:      0.25,
			ContextBudget: 7000,
			DocTTLHours:   168,
		},
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateNil(t *testing.T) {
	var c *Config
	if err := c.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("err = %v, want ErrConfigNil", err)
	}
}

func TestValidateProviderAPIKeys(t *testing.T) {
	t.Run("openai without key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		c := validConfig()
		c.Provider = ProviderOpenAI
		if err := c.Validate(); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("err = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("openai with key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		c := validConfig()
		c.Provider = ProviderOpenAI
		if err := c.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("gemini without key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		c := validConfig()
		c.Provider = ProviderGemini
		if err := c.Validate(); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("err = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("googleai alias without key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		c := validConfig()
		c.Provider = ProviderGoogleAI
		if err := c.Validate(); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("err = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("googleai alias with key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")
		c := validConfig()
		c.Provider = ProviderGoogleAI
		if err := c.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		c := validConfig()
		c.Provider = "watson"
		if err := c.Validate(); !errors.Is(err, ErrInvalidProvider) {
			t.Errorf("err = %v, want ErrInvalidProvider", err)
		}
	})

	t.Run("ollama without host", func(t *testing.T) {
		c := validConfig()
		c.OllamaHost = ""
		if err := c.Validate(); !errors.Is(err, ErrInvalidOllamaHost) {
			t.Errorf("err = %v, want ErrInvalidOllamaHost", err)
		}
	})
}

func TestValidateFieldRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"empty embedder", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"top_k too low", func(c *Config) { c.Retrieval.TopK = 0 }, ErrInvalidTopK},
		{"top_k too high", func(c *Config) { c.Retrieval.TopK = 51 }, ErrInvalidTopK},
		{"negative min_score", func(c *Config) { c.Retrieval.MinScore = -0.1 }, ErrInvalidMinScore},
		{"min_score above one", func(c *Config) { c.Retrieval.MinScore = 1.5 }, ErrInvalidMinScore},
		{"context budget too small", func(c *Config) { c.Retrieval.ContextBudget = 100 }, ErrInvalidContextBudget},
		{"context budget too large", func(c *Config) { c.Retrieval.ContextBudget = 500_000 }, ErrInvalidContextBudget},
		{"empty host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"port too high", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"empty password", func(c *Config) { c.PostgresPassword = "" }, ErrInvalidPostgresPassword},
		{"short password", func(c *Config) { c.PostgresPassword = "short" }, ErrInvalidPostgresPassword},
		{"deprecated ssl mode", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidPostgresSSLMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
