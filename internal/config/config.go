// Package config provides application configuration management.
// It loads settings from environment variables and the secrets file and
// provides defaults for server mode, tool mode, timeouts, and cache settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
	"github.com/garyellow/chatshhs-go/internal/genai"
)

// ValidationMode selects which credentials Load requires.
type ValidationMode int

const (
	// ServerMode needs the NEIS key and at least one completion key.
	ServerMode ValidationMode = iota
	// ToolMode needs only the NEIS key (neisctl).
	ToolMode
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir  string        // Directory for the SQLite cache
	CacheTTL time.Duration // How long NEIS responses stay fresh (default: 6h)

	SecretsFile string

	NEIS NEISConfig
	LLM  genai.LLMConfig
	Chat ChatConfig

	Session   SessionConfig
	RateLimit RateLimitConfig

	// Metrics Authentication
	MetricsUsername string // Username for /metrics Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics Basic Auth (empty = no auth)

	Sentry      SentryConfig
	BetterStack BetterStackConfig
}

// NEISConfig holds the NEIS open API settings.
type NEISConfig struct {
	APIKey     string
	BaseURL    string
	OfficeCode string
	SchoolCode string
	Timeout    time.Duration
	MaxRetries int     // 0 = report the first failure
	RPS        float64 // outbound requests per second (0 = unthrottled)
}

// ChatConfig holds completion sampling settings.
type ChatConfig struct {
	MaxTokens   int
	Temperature float64
	TurnTimeout time.Duration
}

// SessionConfig holds chat session limits.
type SessionConfig struct {
	IdleTimeout time.Duration
	MaxHistory  int // completed exchanges kept per session
	MaxSessions int
}

// RateLimitConfig holds the per-client message limiter settings.
type RateLimitConfig struct {
	MessageBurst     float64
	MessageRefillRPS float64
}

// SentryConfig holds error tracking settings.
type SentryConfig struct {
	DSN         string
	Token       string
	Host        string
	Environment string
	SampleRate  float64
}

// BetterStackConfig holds log shipping settings.
type BetterStackConfig struct {
	Token    string
	Endpoint string
}

// Load reads the server configuration.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from the .env file, the environment and
// the secrets file, then validates it for mode. Every missing credential is
// reported, joined into one error.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	secretsFile := getEnv(EnvSecretsFile, DefaultSecretsFile)
	secrets, err := LoadSecrets(secretsFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		DataDir:  getEnv(EnvDataDir, getDefaultDataDir()),
		CacheTTL: getDurationEnv(EnvCacheTTL, 6*time.Hour),

		SecretsFile: secretsFile,

		NEIS: NEISConfig{
			APIKey:     credential(secrets, SecretNEISAPIKey, EnvNEISAPIKey),
			BaseURL:    getEnv(EnvNEISBaseURL, ""),
			OfficeCode: getEnv(EnvNEISOfficeCode, ""),
			SchoolCode: getEnv(EnvNEISSchoolCode, ""),
			Timeout:    getDurationEnv(EnvNEISTimeout, NEISRequest),
			MaxRetries: getIntEnv(EnvNEISMaxRetries, 0),
			RPS:        getFloatEnv(EnvNEISRPS, 5),
		},

		LLM: genai.LLMConfig{
			Providers: getProvidersEnv(EnvLLMProviders, genai.DefaultProviders),
			OpenAI: genai.ProviderConfig{
				APIKey:  credential(secrets, SecretOpenAIAPIKey, EnvOpenAIAPIKey),
				Models:  getListEnv(EnvOpenAIModels),
				BaseURL: getEnv(EnvOpenAIBaseURL, ""),
			},
			Gemini: genai.ProviderConfig{
				APIKey: credential(secrets, SecretGeminiAPIKey, EnvGeminiAPIKey),
				Models: getListEnv(EnvGeminiModels),
			},
		},

		Chat: ChatConfig{
			MaxTokens:   getIntEnv(EnvLLMMaxTokens, 150),
			Temperature: getFloatEnv(EnvLLMTemperature, 0.7),
			TurnTimeout: getDurationEnv(EnvTurnTimeout, ChatTurn),
		},

		Session: SessionConfig{
			IdleTimeout: getDurationEnv(EnvSessionIdleTimeout, 30*time.Minute),
			MaxHistory:  getIntEnv(EnvSessionMaxHistory, 20),
			MaxSessions: getIntEnv(EnvMaxSessions, 1000),
		},

		RateLimit: RateLimitConfig{
			MessageBurst:     getFloatEnv(EnvMessageRateBurst, 10),
			MessageRefillRPS: getFloatEnv(EnvMessageRateRefill, 0.2), // 1 per 5s
		},

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		Sentry: SentryConfig{
			DSN:         getEnv(EnvSentryDSN, ""),
			Token:       getEnv(EnvSentryToken, ""),
			Host:        getEnv(EnvSentryHost, ""),
			Environment: getEnv(EnvSentryEnvironment, "production"),
			SampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		},

		BetterStack: BetterStackConfig{
			Token:    getEnv(EnvBetterStackToken, ""),
			Endpoint: getEnv(EnvBetterStackEndpoint, ""),
		},
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the server-mode configuration.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks settings and the credentials mode requires.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if err := c.CheckCredentials(mode); err != nil {
		errs = append(errs, err)
	}

	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.CacheTTL, validation.Required, validation.Min(time.Minute)),
	); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateStruct(&c.NEIS,
		validation.Field(&c.NEIS.BaseURL, is.URL),
		validation.Field(&c.NEIS.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.NEIS.MaxRetries, validation.Min(0), validation.Max(5)),
		validation.Field(&c.NEIS.RPS, validation.Min(0.0)),
	); err != nil {
		errs = append(errs, fmt.Errorf("neis: %w", err))
	}
	if err := validation.ValidateStruct(&c.Chat,
		validation.Field(&c.Chat.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.Chat.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Chat.TurnTimeout, validation.Required, validation.Min(time.Second)),
	); err != nil {
		errs = append(errs, fmt.Errorf("chat: %w", err))
	}
	if err := validation.ValidateStruct(&c.Session,
		validation.Field(&c.Session.IdleTimeout, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.Session.MaxHistory, validation.Required, validation.Min(1)),
		validation.Field(&c.Session.MaxSessions, validation.Min(0)),
	); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}
	if err := validation.ValidateStruct(&c.RateLimit,
		validation.Field(&c.RateLimit.MessageBurst, validation.Required, validation.Min(1.0)),
		validation.Field(&c.RateLimit.MessageRefillRPS, validation.Min(0.0)),
	); err != nil {
		errs = append(errs, fmt.Errorf("rate limit: %w", err))
	}
	if c.Sentry.Token != "" && c.Sentry.Host == "" {
		errs = append(errs, errors.New(EnvSentryHost+" is required when "+EnvSentryToken+" is set"))
	}

	return errors.Join(errs...)
}

// CheckCredentials reports every credential mode needs but lacks. Each
// entry is a *errors.MissingCredentialError.
func (c *Config) CheckCredentials(mode ValidationMode) error {
	var errs []error
	if c.NEIS.APIKey == "" {
		errs = append(errs, &domerrors.MissingCredentialError{Name: EnvNEISAPIKey, Path: SecretNEISAPIKey})
	}
	if mode == ServerMode && !c.LLM.HasAnyProvider() {
		errs = append(errs, &domerrors.MissingCredentialError{Name: EnvOpenAIAPIKey, Path: SecretOpenAIAPIKey})
	}
	return errors.Join(errs...)
}

// credential resolves a secret from the secrets file first, then the environment.
func credential(s *Secrets, path, env string) string {
	if v := s.Get(path); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(env))
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty items.
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getProvidersEnv parses an ordered provider list; unknown names are skipped.
func getProvidersEnv(key string, defaultValue []genai.Provider) []genai.Provider {
	var out []genai.Provider
	for _, name := range getListEnv(key) {
		if p, ok := genai.ParseProvider(name); ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "neis_cache.db")
}
