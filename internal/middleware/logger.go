package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMid "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/platform/observability"
	"github.com/getwowai/showcase/internal/platform/requestctx"
)

// RequestLogger stores a request-scoped zap logger on the context and emits
// one structured line per request. It also records request latency.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			logger := base.With(
				zap.String("request_id", chiMid.GetReqID(ctx)),
				zap.String("method", r.Method),
				zap.String("path", observability.SanitizeString(r.URL.Path, 256)),
				zap.String("trace_id", requestctx.TraceID(ctx)),
			)
			if ip := clientIP(r); ip != "" {
				logger = logger.With(zap.String("remote_ip", ip))
			}
			ctx = requestctx.WithLogger(ctx, logger)

			rw := observability.NewResponseRecorder(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			status := rw.Status()
			latency := time.Since(start)
			route := routePattern(r)
			observability.HTTPRequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(latency.Seconds())

			fields := []zap.Field{
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.Int64("bytes", rw.BytesWritten()),
				zap.Bool("htmx", r.Header.Get("HX-Request") == "true"),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request completed", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("request completed", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return observability.SanitizeRoute(pattern)
		}
	}
	return "unmatched"
}

func clientIP(r *http.Request) string {
	// Trust X-Forwarded-For set by Cloud Run (last IP is client)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		p := strings.Split(xff, ",")
		return strings.TrimSpace(p[len(p)-1])
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
