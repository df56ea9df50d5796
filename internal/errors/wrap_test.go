package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapper(t *testing.T) {
	t.Parallel()

	w := NewWrapper("chat", "respond")
	assert.NoError(t, w.Wrap(nil, "ignored"))
	assert.NoError(t, w.Wrapf(nil, "ignored %d", 1))

	cause := errors.New("completion failed")
	err := w.Wrapf(cause, "답변을 만들지 못했어요 (%s)", "timeout")

	var wrapped *WrappedError
	assert.True(t, errors.As(err, &wrapped))
	assert.Equal(t, "chat", wrapped.Module)
	assert.Equal(t, "respond", wrapped.Operation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[chat:respond] 답변을 만들지 못했어요 (timeout): completion failed", err.Error())
}

func TestGetUserMessage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetUserMessage(nil, "fallback"))
	assert.Equal(t, "fallback", GetUserMessage(errors.New("raw"), "fallback"))

	inner := NewWrapper("web", "message").Wrap(errors.New("x"), "잠시 후 다시 시도해 주세요")
	outer := fmt.Errorf("handler: %w", inner)
	assert.Equal(t, "잠시 후 다시 시도해 주세요", GetUserMessage(outer, "fallback"))
}
