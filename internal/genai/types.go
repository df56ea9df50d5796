// Package genai provides the completion providers behind the chat resolver.
// This file contains shared types, interfaces, and configuration.
//
// Architecture:
//   - OpenAI (and OpenAI-compatible endpoints): github.com/openai/openai-go/v3
//   - Gemini: google.golang.org/genai (official SDK)
//
// Fallback Strategy (3-layer):
//  1. Model Retry: Same model retried with full-jitter backoff
//  2. Model Chain: Next model in the same provider's model list
//  3. Provider Chain: Next provider in the configured provider list
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderOpenAI represents the OpenAI chat completions API or a compatible endpoint.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini represents Google's Gemini API.
	ProviderGemini Provider = "gemini"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// ParseProvider returns the provider named s and whether it is known.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(s); p {
	case ProviderOpenAI, ProviderGemini:
		return p, true
	default:
		return "", false
	}
}

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object

	// Signature is an opaque provider token that must be replayed with the
	// call (Gemini thought signatures). Nil for providers without one.
	Signature []byte
}

// Message is one provider-neutral conversation entry.
//
// Assistant messages may carry ToolCalls; tool messages carry the result of
// one call in Content and reference it through ToolCallID and ToolName.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// Param describes one tool argument as a JSON schema property.
type Param struct {
	Name        string
	Type        string // string, integer, number, boolean, array
	Items       string // element type for arrays
	Description string
	Enum        []string
	Required    bool
}

// Tool is a function the model may call.
type Tool struct {
	Name        string
	Description string
	Params      []Param
}

// Request is a single completion request.
type Request struct {
	Messages    []Message
	Tools       []Tool // tool choice is "auto" when non-empty
	MaxTokens   int
	Temperature *float64 // nil leaves the provider default
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 { return &v }

// Response is the model's answer: text, tool calls, or both.
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	Provider     Provider
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Completer produces chat completions.
type Completer interface {
	// Complete sends the conversation and returns the model's reply.
	Complete(ctx context.Context, req Request) (*Response, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
	// Close releases any resources held by the completer.
	Close() error
}

// RetryConfig defines retry behavior for LLM API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int
	// InitialDelay is the base delay before first retry.
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	APIKey string
	// Models is the ordered model chain; the first is primary.
	Models []string
	// BaseURL overrides the API endpoint (OpenAI-compatible servers, tests).
	BaseURL string
}

// LLMConfig holds configuration for all LLM providers.
type LLMConfig struct {
	// Providers is the ordered list of providers to try.
	Providers []Provider
	OpenAI    ProviderConfig
	Gemini    ProviderConfig
	Retry     RetryConfig
}

// Default model configurations.
// First element is primary model, subsequent elements are fallbacks.
var (
	DefaultOpenAIModels = []string{"gpt-4.1-mini-2025-04-14"}
	DefaultGeminiModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultProviders    = []Provider{ProviderOpenAI, ProviderGemini}
)

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// HasProvider returns true if the specified provider is configured with an API key.
func (c *LLMConfig) HasProvider(p Provider) bool {
	pc := c.providerConfig(p)
	return pc != nil && pc.APIKey != ""
}

// HasAnyProvider returns true if at least one provider is configured.
func (c *LLMConfig) HasAnyProvider() bool {
	return c.HasProvider(ProviderOpenAI) || c.HasProvider(ProviderGemini)
}

func (c *LLMConfig) providerConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderOpenAI:
		return &c.OpenAI
	case ProviderGemini:
		return &c.Gemini
	default:
		return nil
	}
}

// ConfiguredProviders returns the providers with API keys, in c.Providers order.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
