package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
	"github.com/garyellow/chatshhs-go/internal/sentry"
)

const fallbackMessage = "답변을 만들지 못했습니다. 잠시 후 다시 시도해 주세요."

// classify maps err to a status code, a metrics label and a user message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domerrors.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found",
			"대화가 만료되었습니다. 처음 화면으로 돌아가 다시 시작해 주세요."
	case domerrors.IsRateLimitExceeded(err):
		return http.StatusTooManyRequests, "rate_limited",
			"요청이 너무 많습니다. 잠시 후 다시 시도해 주세요."
	case domerrors.IsInvalidInput(err):
		return http.StatusBadRequest, "invalid_input",
			"질문을 다시 입력해 주세요."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout",
			"응답 시간이 초과되었습니다. 잠시 후 다시 시도해 주세요."
	default:
		return http.StatusBadGateway, "upstream", fallbackMessage
	}
}

// fail writes the JSON error for err and aborts the request. Server-side
// failures are reported to Sentry.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	status, label, msg := classify(err)
	wrapped := domerrors.NewWrapper("web", op).Wrap(err, msg)
	_ = c.Error(wrapped)

	if h.recorder != nil {
		h.recorder.RecordHTTPError(label, c.FullPath())
	}

	entry := h.log.WithError(err).WithField("operation", op).WithField("http_status", status)
	if status >= http.StatusInternalServerError {
		entry.ErrorContext(c.Request.Context(), "Request failed")
		sentry.CaptureExceptionWithContext(c.Request.Context(), wrapped)
	} else {
		entry.DebugContext(c.Request.Context(), "Request rejected")
	}

	c.AbortWithStatusJSON(status, gin.H{"error": domerrors.GetUserMessage(wrapped, fallbackMessage)})
}
