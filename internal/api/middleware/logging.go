package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/Receptionqueue/backend/internal/infrastructure/observability"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		level := zerolog.InfoLevel
		switch {
		case rw.statusCode >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case rw.statusCode >= http.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		observability.LoggerFromContext(r.Context()).WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *loggingResponseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *loggingResponseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
