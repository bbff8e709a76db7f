package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentAuth,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	bufferLogger(&buf).Info("hello", "k", "v")

	assert.Contains(t, buf.String(), "component=auth")
	assert.Contains(t, buf.String(), "k=v")
}

func TestShortKey(t *testing.T) {
	assert.Equal(t, "abc", ShortKey("abc"))
	assert.Equal(t, "01234567", ShortKey("0123456789abcdef"))
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	assert.Equal(t, "unknown", l.Component())

	own := Discard()
	assert.Same(t, own, FromContext(WithLogger(context.Background(), own)))
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf))

	sl.LogSessionEvent(context.Background(), "SIGNED_IN", "0123456789abcdef", "a@b.c")
	assert.Contains(t, buf.String(), "session_key=01234567")
	assert.NotContains(t, buf.String(), "0123456789abcdef")

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentAPI, OpFetch, nil)
	assert.Contains(t, buf.String(), "error=bad")
	assert.Contains(t, buf.String(), "operation=fetch")
	assert.Contains(t, buf.String(), "error_type=*errors.errorString")

	buf.Reset()
	r := httptest.NewRequest("GET", "/dashboard?x=1", nil)
	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "status_code=503")
}
