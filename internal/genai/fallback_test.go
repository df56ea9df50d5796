package genai

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	provider Provider
	errs     []error // returned in order before succeeding
	calls    int
	closed   bool
}

func (s *stubCompleter) Complete(_ context.Context, _ Request) (*Response, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return &Response{Text: "ok from " + s.provider.String(), Provider: s.provider}, nil
}

func (s *stubCompleter) Provider() Provider { return s.provider }

func (s *stubCompleter) Close() error {
	s.closed = true
	return nil
}

type stubRecorder struct {
	mu        sync.Mutex
	requests  []string
	fallbacks []string
}

func (r *stubRecorder) RecordLLMRequest(provider, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, provider+"/"+status)
}

func (r *stubRecorder) RecordLLMFallback(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, from+"->"+to)
}

var fastRetry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func statusErr(code int) error {
	return WrapError(errors.New(http.StatusText(code)), ProviderOpenAI, "m", code)
}

func TestFallbackCompleter_PrimarySuccess(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{provider: ProviderOpenAI}
	secondary := &stubCompleter{provider: ProviderGemini}
	rec := &stubRecorder{}
	f := NewFallbackCompleter(fastRetry, rec, primary, secondary)

	resp, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok from openai", resp.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)
	assert.Equal(t, []string{"openai/success"}, rec.requests)
	assert.Equal(t, ProviderOpenAI, f.Provider())
	assert.Equal(t, 2, f.Len())
}

func TestFallbackCompleter_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{provider: ProviderOpenAI, errs: []error{statusErr(503), statusErr(429)}}
	f := NewFallbackCompleter(fastRetry, nil, primary)

	resp, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok from openai", resp.Text)
	assert.Equal(t, 3, primary.calls)
}

func TestFallbackCompleter_FallsBackAfterRetries(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{provider: ProviderOpenAI, errs: []error{statusErr(500), statusErr(500), statusErr(500)}}
	secondary := &stubCompleter{provider: ProviderGemini}
	rec := &stubRecorder{}
	f := NewFallbackCompleter(fastRetry, rec, primary, secondary)

	resp, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok from gemini", resp.Text)
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, []string{"openai->gemini"}, rec.fallbacks)
	assert.Equal(t, []string{"openai/error", "gemini/success"}, rec.requests)
}

func TestFallbackCompleter_QuotaSkipsRetries(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{provider: ProviderOpenAI, errs: []error{errors.New("insufficient_quota")}}
	secondary := &stubCompleter{provider: ProviderGemini}
	f := NewFallbackCompleter(fastRetry, nil, primary, secondary)

	_, err := f.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackCompleter_PermanentErrorStops(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{provider: ProviderOpenAI, errs: []error{statusErr(400)}}
	secondary := &stubCompleter{provider: ProviderGemini}
	f := NewFallbackCompleter(fastRetry, nil, primary, secondary)

	_, err := f.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)
}

func TestFallbackCompleter_AllFail(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{provider: ProviderOpenAI, errs: []error{statusErr(401)}}
	secondary := &stubCompleter{provider: ProviderGemini, errs: []error{statusErr(403)}}
	f := NewFallbackCompleter(fastRetry, nil, primary, secondary)

	_, err := f.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")

	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, http.StatusForbidden, llmErr.StatusCode)
}

func TestFallbackCompleter_CanceledContext(t *testing.T) {
	t.Parallel()

	primary := &stubCompleter{provider: ProviderOpenAI}
	f := NewFallbackCompleter(fastRetry, nil, primary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, primary.calls)
}

func TestFallbackCompleter_NilAndClose(t *testing.T) {
	t.Parallel()

	var empty *FallbackCompleter
	_, err := empty.Complete(context.Background(), Request{})
	assert.Error(t, err)
	assert.NoError(t, empty.Close())
	assert.Equal(t, Provider(""), empty.Provider())

	a := &stubCompleter{provider: ProviderOpenAI}
	b := &stubCompleter{provider: ProviderGemini}
	require.NoError(t, NewFallbackCompleter(fastRetry, nil, a, b).Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestCreateCompleter(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CreateCompleter(context.Background(), LLMConfig{}, nil))

	c := CreateCompleter(context.Background(), LLMConfig{
		Providers: []Provider{ProviderOpenAI, ProviderGemini},
		OpenAI:    ProviderConfig{APIKey: "sk-test", Models: []string{"gpt-a", "gpt-b"}},
	}, nil)
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, ProviderOpenAI, c.Provider())
}

func TestLLMConfig(t *testing.T) {
	t.Parallel()

	cfg := LLMConfig{
		Providers: []Provider{ProviderGemini, ProviderOpenAI},
		OpenAI:    ProviderConfig{APIKey: "sk"},
	}
	assert.True(t, cfg.HasAnyProvider())
	assert.False(t, cfg.HasProvider(ProviderGemini))
	assert.Equal(t, []Provider{ProviderOpenAI}, cfg.ConfiguredProviders())

	p, ok := ParseProvider("gemini")
	assert.True(t, ok)
	assert.Equal(t, ProviderGemini, p)
	_, ok = ParseProvider("groq")
	assert.False(t, ok)
}
