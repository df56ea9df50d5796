// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/chatshhs-go/internal/buildinfo"
	"github.com/garyellow/chatshhs-go/internal/chat"
	"github.com/garyellow/chatshhs-go/internal/config"
	"github.com/garyellow/chatshhs-go/internal/genai"
	"github.com/garyellow/chatshhs-go/internal/logger"
	"github.com/garyellow/chatshhs-go/internal/metrics"
	"github.com/garyellow/chatshhs-go/internal/neis"
	"github.com/garyellow/chatshhs-go/internal/ratelimit"
	"github.com/garyellow/chatshhs-go/internal/sentry"
	"github.com/garyellow/chatshhs-go/internal/session"
	"github.com/garyellow/chatshhs-go/internal/storage"
	"github.com/garyellow/chatshhs-go/internal/web"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *storage.DB
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	completer *genai.FallbackCompleter
	sessions  *session.Store
	limiter   *ratelimit.KeyedLimiter
	server    *http.Server
	wg        sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStack.Token,
		BetterStackEndpoint: cfg.BetterStack.Endpoint,
	})

	log = log.WithField("service", "chatshhs")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context calls pick up session and request IDs
	// through the ContextHandler.
	slog.SetDefault(log.Logger)

	log.WithField("release", buildinfo.Release()).Info("Initializing application...")
	if cfg.BetterStack.Token != "" {
		log.WithField("endpoint", cfg.BetterStack.Endpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.Sentry.DSN,
		Token:       cfg.Sentry.Token,
		Host:        cfg.Sentry.Host,
		Environment: cfg.Sentry.Environment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.Sentry.SampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error tracking disabled")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.Sentry.Environment).Info("Sentry error tracking enabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath(), cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).WithField("cache_ttl", cfg.CacheTTL).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	neisClient := neis.NewClient(neisConfig(cfg), neisOptions(cfg, db, m, log)...)

	completer := genai.CreateCompleter(ctx, cfg.LLM, m)
	if completer == nil {
		_ = db.Close()
		return nil, errors.New("no completion provider configured")
	}
	providers := cfg.LLM.ConfiguredProviders()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.String()
	}
	log.WithField("providers", names).WithField("chain_size", completer.Len()).Info("Completion chain ready")

	resolver := chat.NewResolver(completer, neisClient,
		chat.WithRecorder(m),
		chat.WithLogger(log.WithModule("chat")),
		chat.WithSampling(cfg.Chat.MaxTokens, cfg.Chat.Temperature),
	)

	sessions := session.NewStore(session.Config{
		IdleTimeout: cfg.Session.IdleTimeout,
		MaxHistory:  cfg.Session.MaxHistory,
		MaxSessions: cfg.Session.MaxSessions,
		Recorder:    m,
	})

	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "client_ip",
		Burst:         cfg.RateLimit.MessageBurst,
		RefillRate:    cfg.RateLimit.MessageRefillRPS,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Recorder:      m,
	})

	app := &Application{
		cfg:       cfg,
		logger:    log,
		db:        db,
		metrics:   m,
		registry:  registry,
		completer: completer,
		sessions:  sessions,
		limiter:   limiter,
	}

	webHandler := web.NewHandler(web.Config{
		Sessions:    sessions,
		Responder:   resolver,
		Limiter:     limiter,
		Recorder:    m,
		Logger:      log,
		TurnTimeout: cfg.Chat.TurnTimeout,
	})

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router(webHandler),
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func neisConfig(cfg *config.Config) neis.Config {
	return neis.Config{
		BaseURL:    cfg.NEIS.BaseURL,
		APIKey:     cfg.NEIS.APIKey,
		OfficeCode: cfg.NEIS.OfficeCode,
		SchoolCode: cfg.NEIS.SchoolCode,
		Timeout:    cfg.NEIS.Timeout,
		MaxRetries: cfg.NEIS.MaxRetries,
		RetryDelay: config.NEISRetryInitial,
	}
}

// neisOptions wires the cache, metrics and outbound throttle. The throttle
// allows a burst of two seconds' worth of requests.
func neisOptions(cfg *config.Config, db *storage.DB, m *metrics.Metrics, log *logger.Logger) []neis.ClientOption {
	opts := []neis.ClientOption{
		neis.WithLogger(log.WithModule("neis")),
		neis.WithRecorder(m),
	}
	if db != nil {
		opts = append(opts, neis.WithCache(db))
	}
	if cfg.NEIS.RPS > 0 {
		opts = append(opts, neis.WithThrottle(ratelimit.New(max(cfg.NEIS.RPS*2, 1), cfg.NEIS.RPS)))
	}
	return opts
}

// router builds the HTTP handler: probes, metrics and the chat API.
func (a *Application) router(webHandler *web.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if sentry.IsEnabled() {
		r.Use(sentryMiddleware())
	}
	r.Use(securityHeadersMiddleware())
	r.Use(loggingMiddleware(a.logger))

	r.GET("/livez", a.livenessCheck)
	r.HEAD("/livez", a.livenessCheck)
	r.GET("/readyz", a.readinessCheck)
	r.HEAD("/readyz", a.readinessCheck)
	r.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsPassword != "", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	webHandler.Register(r)
	return r
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	cache, err := a.db.CountResponses(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to count cached responses")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"release":  buildinfo.Release(),
		"cache":    cache,
		"sessions": a.sessions.Len(),
	})
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT/SIGTERM.
//
// Background jobs are stopped and awaited before shutdown closes the
// database they use.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops the HTTP server, letting in-flight turns finish, then
// closes resources. Call it after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")

	if a.completer != nil {
		if err := a.completer.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "completer").Error("Component close error")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}

	if sentry.IsEnabled() && !sentry.Flush(2*time.Second) {
		a.logger.Warn("Sentry flush timed out")
	}

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}
