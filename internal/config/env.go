package config

// Environment variable keys. Credentials keep their conventional names so
// existing deployments and SDK tooling pick them up unchanged.
//
//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Credentials (also resolvable from the secrets file)
	EnvNEISAPIKey   = "NEIS_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvSecretsFile  = "SHHS_SECRETS_FILE"

	// Server
	EnvPort            = "SHHS_PORT"
	EnvLogLevel        = "SHHS_LOG_LEVEL"
	EnvShutdownTimeout = "SHHS_SHUTDOWN_TIMEOUT"

	// Data
	EnvDataDir  = "SHHS_DATA_DIR"
	EnvCacheTTL = "SHHS_CACHE_TTL"

	// NEIS
	EnvNEISBaseURL    = "SHHS_NEIS_BASE_URL"
	EnvNEISOfficeCode = "SHHS_NEIS_OFFICE_CODE"
	EnvNEISSchoolCode = "SHHS_NEIS_SCHOOL_CODE"
	EnvNEISTimeout    = "SHHS_NEIS_TIMEOUT"
	EnvNEISMaxRetries = "SHHS_NEIS_MAX_RETRIES"
	EnvNEISRPS        = "SHHS_NEIS_RPS"

	// LLM
	EnvLLMProviders   = "SHHS_LLM_PROVIDERS"
	EnvOpenAIModels   = "SHHS_OPENAI_MODELS"
	EnvOpenAIBaseURL  = "SHHS_OPENAI_BASE_URL"
	EnvGeminiModels   = "SHHS_GEMINI_MODELS"
	EnvLLMMaxTokens   = "SHHS_LLM_MAX_TOKENS"
	EnvLLMTemperature = "SHHS_LLM_TEMPERATURE"
	EnvTurnTimeout    = "SHHS_TURN_TIMEOUT"

	// Sessions
	EnvSessionIdleTimeout = "SHHS_SESSION_IDLE_TIMEOUT"
	EnvSessionMaxHistory  = "SHHS_SESSION_MAX_HISTORY"
	EnvMaxSessions        = "SHHS_MAX_SESSIONS"

	// Rate Limits
	EnvMessageRateBurst  = "SHHS_MESSAGE_RATE_BURST"
	EnvMessageRateRefill = "SHHS_MESSAGE_RATE_REFILL"

	// Sentry
	EnvSentryDSN         = "SHHS_SENTRY_DSN"
	EnvSentryToken       = "SHHS_SENTRY_TOKEN"
	EnvSentryHost        = "SHHS_SENTRY_HOST"
	EnvSentryEnvironment = "SHHS_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "SHHS_SENTRY_SAMPLE_RATE"

	// Better Stack logs
	EnvBetterStackToken    = "SHHS_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "SHHS_BETTERSTACK_ENDPOINT"

	// Metrics Auth
	EnvMetricsUsername = "SHHS_METRICS_USERNAME"
	EnvMetricsPassword = "SHHS_METRICS_PASSWORD"
)

// Secrets store paths.
const (
	SecretNEISAPIKey   = "neis.service_key"
	SecretOpenAIAPIKey = "openai.api_key"
	SecretGeminiAPIKey = "gemini.api_key"
)
