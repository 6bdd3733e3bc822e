package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// statusRecorder wraps http.ResponseWriter to remember the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// requestInfo is filled in by inner middlewares so the access log can report it.
type requestInfo struct {
	userID string
}

type requestInfoKey struct{}

func noteUser(ctx context.Context, userID string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.userID = userID
	}
}

func wrapStatus(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

// RequestLogger writes one structured log line per request. The level follows
// the status class.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := wrapStatus(w)
			info := &requestInfo{}
			r = r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info))

			next.ServeHTTP(rec, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if info.userID != "" {
				attrs = append(attrs, slog.String("user_id", info.userID))
			}

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http_request", attrs...)
		})
	}
}
