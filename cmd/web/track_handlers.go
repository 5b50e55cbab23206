package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/analytics"
	"github.com/getwowai/showcase/internal/i18n"
	mw "github.com/getwowai/showcase/internal/middleware"
	"github.com/getwowai/showcase/internal/platform/requestctx"
	"github.com/getwowai/showcase/internal/tracking"
)

const maxBeaconBytes = 8 << 10

// beacon is a browser-only interaction the server forwards to the sinks.
type beacon struct {
	Event      string         `json:"event"`
	Locale     string         `json:"locale"`
	Path       string         `json:"path"`
	Properties map[string]any `json:"properties"`
}

func newTrackSchema() (*gojsonschema.Schema, error) {
	events := make([]any, 0, len(analytics.ClientEvents))
	for _, e := range analytics.ClientEvents {
		events = append(events, e)
	}
	schemaMap := map[string]any{
		"type":                 "object",
		"required":             []any{"event"},
		"additionalProperties": false,
		"properties": map[string]any{
			"event":  map[string]any{"type": "string", "enum": events},
			"locale": map[string]any{"type": "string", "maxLength": 8},
			"path":   map[string]any{"type": "string", "maxLength": 512},
			"properties": map[string]any{
				"type":          "object",
				"maxProperties": 20,
				"additionalProperties": map[string]any{
					"type":      []any{"string", "number", "boolean", "null"},
					"maxLength": 256,
				},
			},
		},
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}

func (a *App) validateBeacon(raw []byte) error {
	result, err := a.trackSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("beacon validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// TrackHandler accepts interactions only the browser can observe (clicks,
// scroll depth, feature demos) and records them for the session's visitor.
func (a *App) TrackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBeaconBytes))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := a.validateBeacon(raw); err != nil {
		logger.Debug("beacon rejected", zap.Error(err))
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var b beacon
	if err := json.Unmarshal(raw, &b); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	sd := mw.GetSession(r)
	tracker := tracking.New(a.analytics, i18n.Resolve(b.Locale), sd.DistinctID)
	if variant, ok := sd.LastExposure(a.experiments.Key()); ok {
		tracker = tracker.With(map[string]any{
			analytics.PropExperiment: a.experiments.Key(),
			analytics.PropVariant:    variant,
		})
	}
	props := b.Properties
	if props == nil {
		props = map[string]any{}
	}
	if b.Path != "" {
		props[analytics.PropPath] = b.Path
	}

	switch b.Event {
	case analytics.EventCTAClick:
		tracker.TrackCTAClick(ctx, stringProp(props, "cta_name"), stringProp(props, "cta_location"), props)
	case analytics.EventScrollDepth:
		tracker.TrackScrollDepth(ctx, intProp(props, "depth_percent"), props)
	case analytics.EventFeatureInteraction:
		tracker.TrackFeatureInteraction(ctx, stringProp(props, "feature_name"), stringProp(props, "action"), props)
	}
	w.WriteHeader(http.StatusNoContent)
}

// stringProp removes key from props and returns it as a string.
func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	delete(props, key)
	return v
}

func intProp(props map[string]any, key string) int {
	v, _ := props[key].(float64)
	delete(props, key)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
