// Package errorreport forwards handled exceptions to the error tracker.
package errorreport

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/platform/requestctx"
)

// Reporter records exceptions with contextual tags.
type Reporter interface {
	Capture(ctx context.Context, err error, tags map[string]string, extra map[string]any)
	Flush(timeout time.Duration) bool
}

// Options configures the Sentry reporter.
type Options struct {
	DSN         string
	Environment string
	Release     string
	// BeforeSend lets callers inspect or drop events; tests use it to
	// capture events without a transport.
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// Sentry reports exceptions through sentry-go. Each capture runs on a cloned
// hub so tags never leak between requests.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry builds a Sentry reporter.
func NewSentry(opts Options) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
		BeforeSend:  opts.BeforeSend,
	})
	if err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Hub exposes the underlying hub for the HTTP panic handler.
func (s *Sentry) Hub() *sentry.Hub { return s.hub }

func (s *Sentry) Capture(ctx context.Context, err error, tags map[string]string, extra map[string]any) {
	if s == nil || err == nil {
		return
	}
	hub := s.hub.Clone()
	if reqHub := sentry.GetHubFromContext(ctx); reqHub != nil {
		hub = reqHub.Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if traceID := requestctx.TraceID(ctx); traceID != "" {
			scope.SetTag("trace_id", traceID)
		}
		if len(extra) > 0 {
			scope.SetContext("details", sentry.Context(extra))
		}
		hub.CaptureException(err)
	})
}

func (s *Sentry) Flush(timeout time.Duration) bool {
	if s == nil {
		return true
	}
	return s.hub.Flush(timeout)
}

// Log is a reporter that only logs. It is used when no DSN is configured.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Capture(ctx context.Context, err error, tags map[string]string, extra map[string]any) {
	if err == nil {
		return
	}
	logger := l.Logger
	if logger == nil {
		logger = requestctx.Logger(ctx)
	}
	fields := []zap.Field{zap.Error(err), zap.Any("details", extra)}
	for k, v := range tags {
		fields = append(fields, zap.String("tag."+k, v))
	}
	logger.Warn("errorreport: exception", fields...)
}

func (Log) Flush(time.Duration) bool { return true }
