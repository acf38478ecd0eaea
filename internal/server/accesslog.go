package server

import (
	"context"
	"net/http"
	"time"

	"github.com/flaskr-go/flaskr/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

// accessLogFormatter sends chi's per-request log entries to logger.
type accessLogFormatter struct {
	logger logging.Logger
}

func newAccessLog(logger logging.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&accessLogFormatter{logger: logger})
}

func (f *accessLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &accessLogEntry{
		logger: f.logger.With(
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		),
		ctx: r.Context(),
	}
}

type accessLogEntry struct {
	logger logging.Logger
	ctx    context.Context
}

func (e *accessLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ any) {
	args := []any{"status", status, "bytes", bytes, "elapsed", elapsed}
	if status >= http.StatusInternalServerError {
		e.logger.Warn(e.ctx, "request", args...)
		return
	}
	e.logger.Info(e.ctx, "request", args...)
}

func (e *accessLogEntry) Panic(v any, stack []byte) {
	e.logger.Error(e.ctx, "request panicked", "panic", v, "stack", string(stack))
}
