package analytics

import (
	"context"
	"sync"

	"github.com/posthog/posthog-go"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/platform/observability"
)

const sinkPostHog = "posthog"

type posthogAPI interface {
	Enqueue(posthog.Message) error
	GetFeatureFlag(posthog.FeatureFlagPayload) (interface{}, error)
	Close() error
}

var posthogFactory = func(apiKey string, cfg posthog.Config) (posthogAPI, error) {
	return posthog.NewWithConfig(apiKey, cfg)
}

// PostHogConfig holds the project key and ingestion host.
type PostHogConfig struct {
	APIKey         string
	Host           string
	PersonalAPIKey string
}

// PostHog captures events and evaluates feature flags through posthog-go.
type PostHog struct {
	cfg    PostHogConfig
	logger *zap.Logger

	once   sync.Once
	client posthogAPI
}

// NewPostHog returns an uninitialised PostHog sink; call Init before use.
func NewPostHog(cfg PostHogConfig, logger *zap.Logger) *PostHog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostHog{cfg: cfg, logger: logger}
}

// Init configures the SDK once. A missing key logs a warning and leaves the
// sink permanently disabled.
func (p *PostHog) Init() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		if p.cfg.APIKey == "" {
			p.logger.Warn("analytics: posthog key missing; sink disabled")
			return
		}
		client, err := posthogFactory(p.cfg.APIKey, posthog.Config{
			Endpoint:       p.cfg.Host,
			PersonalApiKey: p.cfg.PersonalAPIKey,
			Callback:       posthogCallback{logger: p.logger},
		})
		if err != nil {
			p.logger.Warn("analytics: posthog init failed; sink disabled", zap.Error(err))
			return
		}
		p.client = client
	})
}

func (p *PostHog) Name() string { return sinkPostHog }

func (p *PostHog) Enabled() bool { return p != nil && p.client != nil }

func (p *PostHog) Capture(_ context.Context, ev Event) {
	if !p.Enabled() {
		return
	}
	err := p.client.Enqueue(posthog.Capture{
		DistinctId: ev.DistinctID,
		Event:      ev.Name,
		Timestamp:  ev.Timestamp,
		Properties: posthog.Properties(ev.Properties),
	})
	if err != nil {
		observability.EventsDropped.WithLabelValues(sinkPostHog, "enqueue").Inc()
		p.logger.Debug("analytics: posthog enqueue failed", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	observability.EventsCaptured.WithLabelValues(sinkPostHog, ev.Name).Inc()
}

func (p *PostHog) Identify(distinctID string, props map[string]any) {
	if !p.Enabled() {
		return
	}
	if err := p.client.Enqueue(posthog.Identify{
		DistinctId: distinctID,
		Properties: posthog.Properties(props),
	}); err != nil {
		p.logger.Debug("analytics: posthog identify failed", zap.Error(err))
	}
}

// FeatureFlag evaluates key for distinctID. The SDK call is not
// context-aware, so a cancelled ctx abandons the lookup and returns ctx.Err().
func (p *PostHog) FeatureFlag(ctx context.Context, key, distinctID string) (any, error) {
	if !p.Enabled() {
		return nil, ErrNoFlagReader
	}
	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := p.client.GetFeatureFlag(posthog.FeatureFlagPayload{
			Key:        key,
			DistinctId: distinctID,
		})
		done <- result{value: value, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.value, res.err
	}
}

// Close flushes queued events.
func (p *PostHog) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.client.Close()
}

type posthogCallback struct {
	logger *zap.Logger
}

func (c posthogCallback) Success(posthog.APIMessage) {}

func (c posthogCallback) Failure(_ posthog.APIMessage, err error) {
	observability.EventsDropped.WithLabelValues(sinkPostHog, "delivery").Inc()
	c.logger.Warn("analytics: posthog delivery failed", zap.Error(err))
}
