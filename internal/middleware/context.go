package middleware

import (
	"context"

	"github.com/getwowai/showcase/internal/i18n"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyIsHTMX  ctxKey = "is_htmx"
	ctxKeySession ctxKey = "session"
	ctxKeyLocale  ctxKey = "locale"
)

// WithHTMX marks request as HTMX
func WithHTMX(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyIsHTMX, is)
}

// IsHTMX returns whether this is an htmx request
func IsHTMX(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyIsHTMX).(bool)
	return v
}

// WithLocale stores the resolved page locale.
func WithLocale(ctx context.Context, l i18n.Locale) context.Context {
	return context.WithValue(ctx, ctxKeyLocale, l)
}

// LocaleFromContext returns the page locale, or the default locale.
func LocaleFromContext(ctx context.Context) i18n.Locale {
	if l, ok := ctx.Value(ctxKeyLocale).(i18n.Locale); ok && l != "" {
		return l
	}
	return i18n.DefaultLocale
}
