// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.professor/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, chat model, embedder model
//   - Storage: PostgreSQL connection (see storage.go)
//   - Retrieval: top-k, minimum score, context budget, document TTL
//   - Ingest: scraper politeness settings
//   - Pricing: token cost rates for the spend meter
//   - Server: listen address, CORS, rate limiting
//   - Observability: OTLP trace export
//
// Security: sensitive values (passwords, API keys) are masked in MarshalJSON
// and String; the config directory is created with 0750 permissions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
// Wrap with context using fmt.Errorf("%w: details", ErrXxx).
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the chat model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidMinScore indicates the retrieval score threshold is out of range.
	ErrInvalidMinScore = errors.New("invalid retrieval min_score")

	// ErrInvalidContextBudget indicates the context character budget is out of range.
	ErrInvalidContextBudget = errors.New("invalid context budget")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// Embedding defaults. text-embedding-3-small outputs 1536 dimensions,
// which must match the vector column in db/migrations.
const (
	DefaultEmbedderModel = "text-embedding-3-small"
	EmbeddingDimension   = 1536
)

// RetrievalConfig tunes how the tutor searches the knowledge base.
type RetrievalConfig struct {
	TopK          int     `mapstructure:"top_k" json:"top_k"`                     // Candidates fetched per query
	MinScore      float64 `mapstructure:"min_score" json:"min_score"`             // Similarity floor for a "strong" match
	ContextBudget int     `mapstructure:"context_budget" json:"context_budget"`   // Max context characters sent to the model
	DocTTLHours   int     `mapstructure:"doc_ttl_hours" json:"doc_ttl_hours"`     // Default document lifetime; < 0 disables expiry
}

// PricingConfig holds token cost rates for the spend meter.
// Rates are USD per single token.
type PricingConfig struct {
	USDPerEmbedToken   float64 `mapstructure:"usd_per_embed_token" json:"usd_per_embed_token"`
	USDPerChatInToken  float64 `mapstructure:"usd_per_chat_in_token" json:"usd_per_chat_in_token"`
	USDPerChatOutToken float64 `mapstructure:"usd_per_chat_out_token" json:"usd_per_chat_out_token"`
	USDToINR           float64 `mapstructure:"usd_to_inr" json:"usd_to_inr"`
}

// ScraperConfig controls web ingestion politeness.
type ScraperConfig struct {
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	DelayMs     int `mapstructure:"delay_ms" json:"delay_ms"`
	TimeoutMs   int `mapstructure:"timeout_ms" json:"timeout_ms"`
}

// TracingConfig controls OTLP trace export to a local collector agent.
type TracingConfig struct {
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`             // "openai" (default), "gemini", "ollama"
	ModelName     string `mapstructure:"model_name" json:"model_name"`         // Chat model (e.g. "gpt-4o", "gemini-2.5-flash")
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"` // Embedding model
	Language      string `mapstructure:"language" json:"language"`             // Default answer language: "en" or "hi"
	Style         string `mapstructure:"style" json:"style"`                   // Default answer style

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Domain tuning
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`
	Pricing   PricingConfig   `mapstructure:"pricing" json:"pricing"`
	Scraper   ScraperConfig   `mapstructure:"scraper" json:"scraper"`

	// Server configuration (serve mode only)
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP token bucket burst (0 = default)

	// Observability configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".professor")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL takes priority over individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Fail fast on invalid configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
// Pricing defaults match text-embedding-3-small and gpt-4o published rates.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", "gpt-4o")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("language", "en")
	viper.SetDefault("style", "concise")

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "professor")
	viper.SetDefault("postgres_password", "professor_dev_password")
	viper.SetDefault("postgres_db_name", "professor")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Retrieval defaults
	viper.SetDefault("retrieval.top_k", 6)
	viper.SetDefault("retrieval.min_score", 0.25)
	viper.SetDefault("retrieval.context_budget", 7000)
	viper.SetDefault("retrieval.doc_ttl_hours", 24*7)

	// Pricing defaults (USD per token)
	viper.SetDefault("pricing.usd_per_embed_token", 0.02/1_000_000.0)
	viper.SetDefault("pricing.usd_per_chat_in_token", 5.0/1_000_000.0)
	viper.SetDefault("pricing.usd_per_chat_out_token", 15.0/1_000_000.0)
	viper.SetDefault("pricing.usd_to_inr", 84.0)

	// Scraper defaults
	viper.SetDefault("scraper.parallelism", 2)
	viper.SetDefault("scraper.delay_ms", 1000)
	viper.SetDefault("scraper.timeout_ms", 10000)

	// Server defaults
	viper.SetDefault("listen_addr", "localhost:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 0)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.agent_host", "localhost:4318")
	viper.SetDefault("tracing.service_name", "professor")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variable overrides explicitly.
//
// NOTE: OPENAI_API_KEY and GEMINI_API_KEY are read directly by the
// respective genkit plugins, not via viper. Validate() checks their
// presence based on the selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "PROFESSOR_PROVIDER")
	mustBind("model_name", "PROFESSOR_MODEL_NAME")
	mustBind("embedder_model", "PROFESSOR_EMBEDDER_MODEL")
	mustBind("ollama_host", "PROFESSOR_OLLAMA_HOST")
	mustBind("listen_addr", "PROFESSOR_LISTEN_ADDR")
	mustBind("cors_origins", "PROFESSOR_CORS_ORIGINS")
	mustBind("trust_proxy", "PROFESSOR_TRUST_PROXY")
	mustBind("rate_burst", "PROFESSOR_RATE_BURST")
	mustBind("tracing.enabled", "PROFESSOR_TRACING_ENABLED")
	mustBind("tracing.agent_host", "PROFESSOR_TRACING_AGENT_HOST")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked to prevent substring
// leaks; longer secrets keep the first and last 2 characters for debug
// utility. This defends against accidental logging, nothing more — if
// logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for genkit.
// Examples: "openai/gpt-4o", "googleai/gemini-2.5-flash", "ollama/llama3.3".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}
