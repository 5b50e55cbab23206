// Package analytics delivers tracked events to the configured product
// analytics backends.
package analytics

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Event is a single fire-and-forget analytics event.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]any
	Timestamp  time.Time
}

// Sink is one analytics backend. Implementations must be safe for concurrent
// use and must never block the caller on network I/O.
type Sink interface {
	Name() string
	Enabled() bool
	Capture(ctx context.Context, ev Event)
	Identify(distinctID string, props map[string]any)
	Close() error
}

// FlagReader is implemented by sinks that can evaluate feature flags.
type FlagReader interface {
	FeatureFlag(ctx context.Context, key, distinctID string) (any, error)
}

// ErrNoFlagReader is returned when no enabled sink evaluates feature flags.
var ErrNoFlagReader = errors.New("analytics: no feature flag backend configured")

// Client fans events out to every enabled sink. A nil *Client is a valid
// disabled client.
type Client struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewClient builds a client over sinks. Nil sinks are skipped.
func NewClient(logger *zap.Logger, sinks ...Sink) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{logger: logger}
	for _, s := range sinks {
		if s != nil {
			c.sinks = append(c.sinks, s)
		}
	}
	return c
}

// Enabled reports whether at least one sink will receive events.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	for _, s := range c.sinks {
		if s.Enabled() {
			return true
		}
	}
	return false
}

// SinkNames lists the enabled sinks.
func (c *Client) SinkNames() []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, s := range c.sinks {
		if s.Enabled() {
			out = append(out, s.Name())
		}
	}
	return out
}

// Capture hands ev to every enabled sink.
func (c *Client) Capture(ctx context.Context, ev Event) {
	if c == nil || ev.Name == "" || ev.DistinctID == "" {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	for _, s := range c.sinks {
		if !s.Enabled() {
			continue
		}
		// Sinks may mutate their copy of the properties.
		s.Capture(ctx, Event{
			Name:       ev.Name,
			DistinctID: ev.DistinctID,
			Properties: cloneProperties(ev.Properties),
			Timestamp:  ev.Timestamp,
		})
	}
}

// Identify associates user properties with distinctID on every enabled sink.
func (c *Client) Identify(distinctID string, props map[string]any) {
	if c == nil || distinctID == "" {
		return
	}
	for _, s := range c.sinks {
		if s.Enabled() {
			s.Identify(distinctID, cloneProperties(props))
		}
	}
}

// FeatureFlag evaluates key for distinctID using the first enabled sink that
// supports flags.
func (c *Client) FeatureFlag(ctx context.Context, key, distinctID string) (any, error) {
	if c == nil {
		return nil, ErrNoFlagReader
	}
	for _, s := range c.sinks {
		if !s.Enabled() {
			continue
		}
		if fr, ok := s.(FlagReader); ok {
			return fr.FeatureFlag(ctx, key, distinctID)
		}
	}
	return nil, ErrNoFlagReader
}

// Close flushes and releases every sink.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			c.logger.Warn("analytics: sink close failed", zap.String("sink", s.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cloneProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if nested, ok := v.(map[string]any); ok {
			v = cloneProperties(nested)
		}
		out[k] = v
	}
	return out
}
