package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
	"github.com/garyellow/chatshhs-go/internal/genai"
)

// isolate points every credential source at nothing so the developer's own
// environment or .secrets directory cannot leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvNEISAPIKey, EnvOpenAIAPIKey, EnvGeminiAPIKey, EnvLLMProviders, EnvPort} {
		t.Setenv(key, "")
	}
	t.Setenv(EnvSecretsFile, filepath.Join(t.TempDir(), "absent.yaml"))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvNEISAPIKey, "neis-key")
	t.Setenv(EnvOpenAIAPIKey, "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "neis-key", cfg.NEIS.APIKey)
	assert.Equal(t, 0, cfg.NEIS.MaxRetries)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 150, cfg.Chat.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Chat.Temperature, 1e-9)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, genai.DefaultProviders, cfg.LLM.Providers)
	assert.Equal(t, []genai.Provider{genai.ProviderOpenAI}, cfg.LLM.ConfiguredProviders())
	assert.True(t, strings.HasSuffix(cfg.SQLitePath(), "neis_cache.db"))
}

func TestLoadForMode_MissingCredentials(t *testing.T) {
	isolate(t)

	_, err := LoadForMode(ServerMode)
	require.Error(t, err)
	assert.ErrorIs(t, err, domerrors.ErrMissingCredential)
	assert.Contains(t, err.Error(), EnvNEISAPIKey)
	assert.Contains(t, err.Error(), EnvOpenAIAPIKey)

	t.Setenv(EnvNEISAPIKey, "neis-key")
	cfg, err := LoadForMode(ToolMode)
	require.NoError(t, err, "tool mode needs only the NEIS key")
	assert.False(t, cfg.LLM.HasAnyProvider())

	_, err = LoadForMode(ServerMode)
	var missing *domerrors.MissingCredentialError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, EnvOpenAIAPIKey, missing.Name)
	assert.Equal(t, SecretOpenAIAPIKey, missing.Path)
}

func TestLoadForMode_GeminiOnly(t *testing.T) {
	isolate(t)
	t.Setenv(EnvNEISAPIKey, "neis-key")
	t.Setenv(EnvGeminiAPIKey, "gm-key")
	t.Setenv(EnvLLMProviders, "gemini, bogus")
	t.Setenv(EnvGeminiModels, "gemini-2.5-flash,, gemini-2.5-pro")

	cfg, err := LoadForMode(ServerMode)
	require.NoError(t, err)
	assert.Equal(t, []genai.Provider{genai.ProviderGemini}, cfg.LLM.Providers)
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.5-pro"}, cfg.LLM.Gemini.Models)
}

func TestLoadForMode_SecretsFileWins(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
neis:
  service_key: from-file
openai:
  api_key: ${TEST_OPENAI_SECRET}
`), 0o600))
	t.Setenv(EnvSecretsFile, path)
	t.Setenv("TEST_OPENAI_SECRET", "sk-expanded")
	t.Setenv(EnvNEISAPIKey, "from-env")

	cfg, err := LoadForMode(ServerMode)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.NEIS.APIKey)
	assert.Equal(t, "sk-expanded", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, path, cfg.SecretsFile)
}

func TestLoadSecrets(t *testing.T) {
	t.Parallel()

	t.Run("missing file is empty", func(t *testing.T) {
		t.Parallel()
		s, err := LoadSecrets(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, s.Get(SecretNEISAPIKey))
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("neis: [unclosed"), 0o600))
		_, err := LoadSecrets(path)
		assert.Error(t, err)
	})

	t.Run("nested and scalar values", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "s.yaml")
		require.NoError(t, os.WriteFile(path, []byte("a:\n  b:\n    c: 42\n  d: ' x '\n"), 0o600))
		s, err := LoadSecrets(path)
		require.NoError(t, err)
		assert.Equal(t, "42", s.Get("a.b.c"))
		assert.Equal(t, "x", s.Get("a.d"))
		assert.Equal(t, path, s.Path())
	})

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()
		var s *Secrets
		assert.Empty(t, s.Get("x"))
	})
}

func validConfig() *Config {
	return &Config{
		Port:     "10000",
		LogLevel: "info",
		DataDir:  "/data",
		CacheTTL: 6 * time.Hour,
		NEIS:     NEISConfig{APIKey: "k", Timeout: 10 * time.Second, RPS: 5},
		LLM:      genai.LLMConfig{OpenAI: genai.ProviderConfig{APIKey: "sk"}},
		Chat:     ChatConfig{MaxTokens: 150, Temperature: 0.7, TurnTimeout: ChatTurn},
		Session:  SessionConfig{IdleTimeout: 30 * time.Minute, MaxHistory: 20},
		RateLimit: RateLimitConfig{
			MessageBurst:     10,
			MessageRefillRPS: 0.2,
		},
	}
}

func TestValidateForMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Port = "http" }, errContains: "Port"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, errContains: "LogLevel"},
		{name: "zero cache ttl", mutate: func(c *Config) { c.CacheTTL = 0 }, errContains: "CacheTTL"},
		{name: "too many retries", mutate: func(c *Config) { c.NEIS.MaxRetries = 9 }, errContains: "neis"},
		{name: "bad base url", mutate: func(c *Config) { c.NEIS.BaseURL = "not a url" }, errContains: "neis"},
		{name: "hot temperature", mutate: func(c *Config) { c.Chat.Temperature = 3 }, errContains: "chat"},
		{name: "no history", mutate: func(c *Config) { c.Session.MaxHistory = 0 }, errContains: "session"},
		{name: "sentry token without host", mutate: func(c *Config) { c.Sentry.Token = "t" }, errContains: EnvSentryHost},
		{name: "no neis key", mutate: func(c *Config) { c.NEIS.APIKey = "" }, errContains: EnvNEISAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.ValidateForMode(ServerMode)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestTimeoutsOrdering(t *testing.T) {
	t.Parallel()

	if HTTPWrite <= ChatTurn {
		t.Errorf("HTTPWrite (%v) must exceed ChatTurn (%v)", HTTPWrite, ChatTurn)
	}
	if NEISRequest >= ChatTurn {
		t.Errorf("NEISRequest (%v) must fit inside ChatTurn (%v)", NEISRequest, ChatTurn)
	}
}
