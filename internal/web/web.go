// Package web serves the chat page and the JSON API behind it.
//
// Each browser tab opens a session, sends messages one at a time and ends the
// session when the user goes back to the notice screen. Session state never
// leaves the server; the page keeps only the session ID.
package web

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/chatshhs-go/internal/chat"
	"github.com/garyellow/chatshhs-go/internal/logger"
	"github.com/garyellow/chatshhs-go/internal/ratelimit"
	"github.com/garyellow/chatshhs-go/internal/session"
)

const (
	// DefaultTurnTimeout bounds one message round trip.
	DefaultTurnTimeout = 45 * time.Second

	// DefaultMaxMessageRunes caps the length of a user message.
	DefaultMaxMessageRunes = 500
)

// Presets are the example questions offered before the first message.
var Presets = []string{
	"내일 급식 메뉴가 뭐야?",
	"12월 26일에 무슨 행사가 있어?",
}

// Notice is shown on the start screen.
var Notice = []string{
	"이 챗봇은 서현고등학교 관련 정보를 제공합니다.",
	"학교 공식 정보와 다를 수 있으니 참고용으로만 사용하세요.",
}

// Responder answers one utterance within a session history.
// *chat.Resolver implements it.
type Responder interface {
	Respond(ctx context.Context, history *chat.History, utterance string) (string, error)
}

// Recorder counts rejected requests. *metrics.Metrics implements it.
type Recorder interface {
	RecordHTTPError(errorType, route string)
}

// Config wires a Handler.
type Config struct {
	Sessions        *session.Store
	Responder       Responder
	Limiter         *ratelimit.KeyedLimiter // nil disables per-client limits
	Recorder        Recorder
	Logger          *logger.Logger
	TurnTimeout     time.Duration
	MaxMessageRunes int
}

// Handler serves the chat API and the static page.
type Handler struct {
	sessions    *session.Store
	responder   Responder
	limiter     *ratelimit.KeyedLimiter
	recorder    Recorder
	log         *logger.Logger
	turnTimeout time.Duration
	maxRunes    int
}

// NewHandler creates a Handler. Zero durations and limits fall back to the
// package defaults.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		sessions:    cfg.Sessions,
		responder:   cfg.Responder,
		limiter:     cfg.Limiter,
		recorder:    cfg.Recorder,
		log:         cfg.Logger,
		turnTimeout: cfg.TurnTimeout,
		maxRunes:    cfg.MaxMessageRunes,
	}
	if h.log == nil {
		h.log = logger.NewWithWriter("error", io.Discard)
	}
	if h.turnTimeout <= 0 {
		h.turnTimeout = DefaultTurnTimeout
	}
	if h.maxRunes <= 0 {
		h.maxRunes = DefaultMaxMessageRunes
	}
	h.log = h.log.WithModule("web")
	return h
}

// Register mounts the page, its assets and the API on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", servePage)
	r.HEAD("/", servePage)
	r.StaticFS("/assets", assetFS())

	api := r.Group("/api")
	api.GET("/presets", h.presets)
	api.POST("/sessions", h.createSession)
	api.DELETE("/sessions/:id", h.endSession)
	api.GET("/sessions/:id/messages", h.transcript)
	api.POST("/sessions/:id/messages", h.sendMessage)
}
