package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/metrics"
)

const tracerName = "github.com/AymanNagyAhmed/ekfc-users-ms/internal/api"

// routePattern is the matched chi route, or "unmatched" for 404s.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Metrics records request counts and latencies by route pattern.
func Metrics(rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := wrapStatus(w)
			next.ServeHTTP(sr, r)
			rec.ObserveHTTP(r.Method, routePattern(r), sr.statusCode, time.Since(start))
		})
	}
}

// Tracing opens a server span per request on the global tracer provider.
func Tracing() func(http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				))
			defer span.End()

			sr := wrapStatus(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(sr, r)

			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", sr.statusCode),
			)
			if sr.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(sr.statusCode))
			}
		})
	}
}
