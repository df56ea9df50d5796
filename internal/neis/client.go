package neis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
	"github.com/garyellow/chatshhs-go/internal/logger"
)

const (
	// DefaultBaseURL is the NEIS open API hub.
	DefaultBaseURL = "https://open.neis.go.kr/hub/"

	// DefaultOfficeCode is the Gyeonggi-do office of education.
	DefaultOfficeCode = "J10"

	// DefaultSchoolCode is 서현고등학교.
	DefaultSchoolCode = "7530081"

	// resultNoData is the envelope code for "no matching rows".
	resultNoData = "INFO-200"

	maxBodyBytes = 1 << 20
)

// Cache stores raw upstream bodies keyed by endpoint and parameters.
type Cache interface {
	GetResponse(ctx context.Context, key string) ([]byte, bool, error)
	SaveResponse(ctx context.Context, key, endpoint string, body []byte) error
}

// Recorder receives request metrics. *metrics.Metrics implements it.
type Recorder interface {
	RecordNEISRequest(kind, status string, duration time.Duration)
	RecordNEISCache(kind string, hit bool)
}

// Throttle paces outbound requests. *ratelimit.Limiter implements it.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Config holds the connection settings for Client.
type Config struct {
	BaseURL    string
	APIKey     string
	OfficeCode string
	SchoolCode string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client performs NEIS requests. Identical concurrent requests share one
// upstream call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	officeCode string
	schoolCode string
	maxRetries int
	retryDelay time.Duration

	group    singleflight.Group
	cache    Cache
	recorder Recorder
	throttle Throttle
	log      *logger.Logger
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithCache enables the response cache.
func WithCache(c Cache) ClientOption {
	return func(cl *Client) { cl.cache = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ClientOption {
	return func(cl *Client) { cl.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(cl *Client) { cl.log = l }
}

// WithThrottle paces every upstream attempt, retries included.
func WithThrottle(t Throttle) ClientOption {
	return func(cl *Client) { cl.throttle = t }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = h }
}

// NewClient creates a NEIS client. Empty config fields fall back to the
// package defaults.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.OfficeCode == "" {
		cfg.OfficeCode = DefaultOfficeCode
	}
	if cfg.SchoolCode == "" {
		cfg.SchoolCode = DefaultSchoolCode
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/",
		apiKey:     cfg.APIKey,
		officeCode: cfg.OfficeCode,
		schoolCode: cfg.SchoolCode,
		maxRetries: max(cfg.MaxRetries, 0),
		retryDelay: cfg.RetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.NewWithWriter("error", io.Discard)
	}
	return c
}

// fetch returns the raw body for one call. ErrNoData is returned when the
// upstream answered with INFO-200.
//
// The shared upstream call runs detached from any single caller, so one
// canceled turn does not fail the others waiting on the same key. Each
// caller still stops waiting when its own ctx ends.
func (c *Client) fetch(ctx context.Context, cl call) ([]byte, error) {
	ep := endpoints[cl.kind]
	params := cl.params()
	key := cacheKey(ep.name, c.officeCode, c.schoolCode, params)

	ch := c.group.DoChan(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		if body, ok := c.cached(ctx, cl.kind, key); ok {
			return body, nil
		}

		start := time.Now()
		body, err := c.get(ctx, ep.name, params)
		c.record(cl.kind, err, time.Since(start))
		if err != nil {
			return nil, err
		}

		if c.cache != nil {
			if err := c.cache.SaveResponse(ctx, key, ep.name, body); err != nil {
				c.log.WithError(err).WithField("endpoint", ep.name).Warn("Failed to cache NEIS response")
			}
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) cached(ctx context.Context, kind Kind, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, ok, err := c.cache.GetResponse(ctx, key)
	if err != nil {
		c.log.WithError(err).Warn("NEIS cache lookup failed")
		return nil, false
	}
	if c.recorder != nil {
		c.recorder.RecordNEISCache(string(kind), ok)
	}
	return body, ok
}

func (c *Client) record(kind Kind, err error, d time.Duration) {
	if c.recorder == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, domerrors.ErrNoData):
		status = "no_data"
	default:
		status = "error"
	}
	c.recorder.RecordNEISRequest(string(kind), status, d)
}

// get performs the HTTP request with retries and checks the envelope.
func (c *Client) get(ctx context.Context, endpointName string, params map[string]string) ([]byte, error) {
	q := url.Values{}
	q.Set("KEY", c.apiKey)
	q.Set("Type", "json")
	q.Set("pIndex", "1")
	q.Set("ATPT_OFCDC_SC_CODE", c.officeCode)
	q.Set("SD_SCHUL_CODE", c.schoolCode)
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL := c.baseURL + endpointName + "?" + q.Encode()

	var body []byte
	err := c.withRetry(ctx, endpointName, func() error {
		if c.throttle != nil {
			if err := c.throttle.Wait(ctx); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// url.Error carries the full URL, API key included
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				err = urlErr.Err
			}
			return domerrors.NewUpstreamError(endpointName, 0, fmt.Errorf("request failed: %w", err))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return domerrors.NewUpstreamError(endpointName, resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return domerrors.NewUpstreamError(endpointName, resp.StatusCode, fmt.Errorf("read body: %w", err))
		}
		if err := checkEnvelope(endpointName, b); err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// checkEnvelope inspects the top-level RESULT block NEIS sends instead of
// the dataset when a request has no rows or is rejected.
func checkEnvelope(endpointName string, body []byte) error {
	if !gjson.ValidBytes(body) {
		return &domerrors.UpstreamError{Endpoint: endpointName, Err: errors.New("response is not valid JSON")}
	}
	code := gjson.GetBytes(body, "RESULT.CODE")
	if !code.Exists() {
		if !gjson.GetBytes(body, endpointName).Exists() {
			return &domerrors.UpstreamError{Endpoint: endpointName, Err: errors.New("dataset missing from response")}
		}
		return nil
	}
	if code.String() == resultNoData {
		return domerrors.ErrNoData
	}
	return &domerrors.UpstreamError{
		Endpoint: endpointName,
		Code:     code.String(),
		Err:      errors.New(gjson.GetBytes(body, "RESULT.MESSAGE").String()),
	}
}

// cacheKey identifies a request without the API key.
func cacheKey(endpointName, office, school string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpointName)
	b.WriteString("?office=")
	b.WriteString(office)
	b.WriteString("&school=")
	b.WriteString(school)
	for _, k := range keys {
		b.WriteString("&")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}
