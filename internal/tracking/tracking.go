// Package tracking shapes product analytics events for the current visitor
// and locale.
package tracking

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/getwowai/showcase/internal/analytics"
	"github.com/getwowai/showcase/internal/i18n"
)

// Capturer is the analytics client surface the tracker needs.
type Capturer interface {
	Enabled() bool
	Capture(ctx context.Context, ev analytics.Event)
}

// Tracker is bound to one visitor and locale for the lifetime of a request.
// Every method is fire-and-forget and a no-op when analytics is disabled.
type Tracker struct {
	client     Capturer
	locale     i18n.Locale
	distinctID string
	base       map[string]any
	now        func() time.Time
}

// New returns a tracker for distinctID in locale.
func New(client Capturer, locale i18n.Locale, distinctID string) *Tracker {
	return &Tracker{
		client:     client,
		locale:     locale,
		distinctID: distinctID,
		now:        time.Now,
	}
}

// With returns a tracker that adds props to every event. Explicit event
// properties take precedence.
func (t *Tracker) With(props map[string]any) *Tracker {
	if t == nil {
		return nil
	}
	base := make(map[string]any, len(t.base)+len(props))
	for k, v := range t.base {
		base[k] = v
	}
	for k, v := range props {
		base[k] = v
	}
	clone := *t
	clone.base = base
	return &clone
}

// Locale returns the locale attached to events.
func (t *Tracker) Locale() i18n.Locale {
	if t == nil {
		return i18n.DefaultLocale
	}
	return t.locale
}

// DistinctID returns the visitor id events are attributed to.
func (t *Tracker) DistinctID() string {
	if t == nil {
		return ""
	}
	return t.distinctID
}

func (t *Tracker) available() bool {
	return t != nil && t.client != nil && t.client.Enabled() && t.distinctID != ""
}

// TrackEvent captures name with props, locale and the language user property.
func (t *Tracker) TrackEvent(ctx context.Context, name string, props map[string]any) {
	if !t.available() || name == "" {
		return
	}
	t.client.Capture(ctx, analytics.Event{
		Name:       name,
		DistinctID: t.distinctID,
		Properties: t.shape(props),
		Timestamp:  t.now().UTC(),
	})
}

// TrackPageView captures a $pageview for path.
func (t *Tracker) TrackPageView(ctx context.Context, path string, props map[string]any) {
	t.TrackEvent(ctx, analytics.EventPageView, merge(props, map[string]any{
		analytics.PropPath: path,
		"$current_url":     path,
	}))
}

// TrackConversion captures name marked as a conversion.
func (t *Tracker) TrackConversion(ctx context.Context, name string, props map[string]any) {
	t.TrackEvent(ctx, name, merge(props, map[string]any{analytics.PropConversion: true}))
}

// TrackScrollDepth captures how far down a page the visitor scrolled.
func (t *Tracker) TrackScrollDepth(ctx context.Context, percent int, props map[string]any) {
	t.TrackEvent(ctx, analytics.EventScrollDepth, merge(props, map[string]any{"depth_percent": percent}))
}

// TrackCTAClick captures a call-to-action click.
func (t *Tracker) TrackCTAClick(ctx context.Context, cta, location string, props map[string]any) {
	t.TrackEvent(ctx, analytics.EventCTAClick, merge(props, map[string]any{
		"cta_name":     cta,
		"cta_location": location,
	}))
}

// TrackFeatureInteraction captures an interaction with a product feature
// showcase.
func (t *Tracker) TrackFeatureInteraction(ctx context.Context, feature, action string, props map[string]any) {
	t.TrackEvent(ctx, analytics.EventFeatureInteraction, merge(props, map[string]any{
		"feature_name": feature,
		"action":       action,
	}))
}

func (t *Tracker) shape(props map[string]any) map[string]any {
	out := make(map[string]any, len(t.base)+len(props)+3)
	for k, v := range t.base {
		out[k] = v
	}
	for k, v := range props {
		out[k] = v
	}

	userProps := map[string]any{}
	if existing, ok := out[analytics.PropSet].(map[string]any); ok {
		for k, v := range existing {
			userProps[k] = v
		}
	}
	userProps[analytics.PropLanguage] = string(t.locale)

	out[analytics.PropLocale] = string(t.locale)
	out[analytics.PropSet] = userProps
	if _, ok := out[analytics.PropInsertID]; !ok {
		out[analytics.PropInsertID] = ulid.Make().String()
	}
	return out
}

// merge returns props overlaid with fixed; fixed wins.
func merge(props, fixed map[string]any) map[string]any {
	out := make(map[string]any, len(props)+len(fixed))
	for k, v := range props {
		out[k] = v
	}
	for k, v := range fixed {
		out[k] = v
	}
	return out
}

type ctxKey struct{}

// WithTracker stores t on ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the request tracker, or nil. A nil tracker is safe to use.
func FromContext(ctx context.Context) *Tracker {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(ctxKey{}).(*Tracker)
	return t
}
