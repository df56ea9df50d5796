package web

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/chatshhs-go/internal/ctxutil"
	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
	"github.com/garyellow/chatshhs-go/internal/genai"
)

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

type transcriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *Handler) presets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": Presets})
}

func (h *Handler) createSession(c *gin.Context) {
	s, err := h.sessions.Create()
	if err != nil {
		h.fail(c, "create_session", err)
		return
	}
	h.log.WithSessionID(s.ID).Debug("Session created")
	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"notice":     Notice,
		"presets":    Presets,
	})
}

// endSession is idempotent: ending an unknown or expired session succeeds.
func (h *Handler) endSession(c *gin.Context) {
	id := c.Param("id")
	if h.sessions.End(id) {
		h.log.WithSessionID(id).Debug("Session ended")
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) transcript(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, "transcript", err)
		return
	}

	entries := make([]transcriptEntry, 0, 2*s.History.Len())
	for _, ex := range s.History.Exchanges() {
		entries = append(entries,
			transcriptEntry{Role: string(genai.RoleUser), Content: ex.Utterance()},
			transcriptEntry{Role: string(genai.RoleAssistant), Content: ex.Answer()},
		)
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"messages":   entries,
	})
}

func (h *Handler) sendMessage(c *gin.Context) {
	const op = "send_message"

	clientIP := c.ClientIP()
	if h.limiter != nil && !h.limiter.Allow(clientIP) {
		wait := h.limiter.RetryAfter(clientIP)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		h.fail(c, op, domerrors.ErrRateLimitExceeded)
		return
	}

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, op, domerrors.NewValidationError("message", "must be a JSON object with a message"))
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		h.fail(c, op, domerrors.NewValidationError("message", "must not be empty"))
		return
	}
	if utf8.RuneCountInString(text) > h.maxRunes {
		h.fail(c, op, domerrors.NewValidationError("message", "too long"))
		return
	}

	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, op, err)
		return
	}

	ctx := ctxutil.WithSessionID(c.Request.Context(), s.ID)
	ctx = ctxutil.WithClientIP(ctx, clientIP)
	ctx, cancel := context.WithTimeout(ctx, h.turnTimeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)

	if err := s.Lock(ctx); err != nil {
		h.fail(c, op, err)
		return
	}
	answer, err := h.responder.Respond(ctx, s.History, text)
	s.Unlock()
	if err != nil {
		h.fail(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
