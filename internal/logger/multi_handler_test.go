package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandler_FanOut(t *testing.T) {
	t.Parallel()

	var infoBuf, errBuf bytes.Buffer
	mh := NewMultiHandler(
		nil,
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if len(mh.handlers) != 2 {
		t.Fatalf("Expected nil handlers filtered, got %d", len(mh.handlers))
	}

	l := slog.New(mh).With("svc", "chatshhs")
	l.Info("only info sink")
	l.Error("both sinks")

	if got := strings.Count(infoBuf.String(), "\n"); got != 2 {
		t.Errorf("info sink lines = %d, want 2", got)
	}
	if got := strings.Count(errBuf.String(), "\n"); got != 1 {
		t.Errorf("error sink lines = %d, want 1", got)
	}
	if !strings.Contains(errBuf.String(), `"svc":"chatshhs"`) {
		t.Errorf("attrs not propagated: %s", errBuf.String())
	}
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ok := slog.NewJSONHandler(&buf, nil)
	mh := NewMultiHandler(ok, failingHandler{ok})

	err := mh.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	if err == nil || !strings.Contains(err.Error(), "sink down") {
		t.Errorf("Handle() error = %v, want sink down", err)
	}
	if buf.Len() == 0 {
		t.Error("healthy handler should still receive the record")
	}
}

func TestAsyncHandler_FlushOnShutdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ah := NewAsyncHandler(slog.NewJSONHandler(&buf, nil), AsyncOptions{BufferSize: 16})
	l := slog.New(ah)
	for range 5 {
		l.Info("queued")
	}

	if err := ah.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := strings.Count(buf.String(), "queued"); got != 5 {
		t.Errorf("flushed %d records, want 5", got)
	}
	if err := ah.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}

	l.Info("after close")
	if strings.Contains(buf.String(), "after close") {
		t.Error("records after shutdown should be ignored")
	}
}
