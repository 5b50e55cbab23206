package experiment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/analytics"
	"github.com/getwowai/showcase/internal/platform/observability"
	"github.com/getwowai/showcase/internal/tracking"
)

const defaultFlagTimeout = 800 * time.Millisecond

// FlagSource evaluates a feature flag for a visitor.
type FlagSource interface {
	FeatureFlag(ctx context.Context, key, distinctID string) (any, error)
}

// Ledger remembers the last variant a visitor was exposed to per experiment.
type Ledger interface {
	LastExposure(experiment string) (string, bool)
	RecordExposure(experiment, variant string)
}

// Observer reads experiment assignments and fires experiment_exposure when a
// visitor's assignment changes.
type Observer struct {
	flags   FlagSource
	timeout time.Duration
	logger  *zap.Logger
}

// NewObserver builds an Observer. A zero timeout uses the default.
func NewObserver(flags FlagSource, timeout time.Duration, logger *zap.Logger) *Observer {
	if timeout <= 0 {
		timeout = defaultFlagTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{flags: flags, timeout: timeout, logger: logger}
}

// Observe returns the raw assignment for key, or nil while it is undefined
// (flag off, lookup slow or failed). A concrete value that differs from the
// ledger fires exactly one exposure event and is recorded.
func (o *Observer) Observe(ctx context.Context, key string, tracker *tracking.Tracker, ledger Ledger) *string {
	if o == nil || o.flags == nil || tracker.DistinctID() == "" {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	raw, err := o.flags.FeatureFlag(lookupCtx, key, tracker.DistinctID())
	if err != nil {
		o.logger.Debug("experiment: flag lookup failed", zap.String("experiment", key), zap.Error(err))
		return nil
	}
	value, ok := flagValue(raw)
	if !ok {
		return nil
	}

	if ledger != nil {
		if last, seen := ledger.LastExposure(key); seen && last == value {
			return &value
		}
	}

	tracker.TrackEvent(ctx, analytics.EventExperimentExposure, map[string]any{
		analytics.PropExperiment: key,
		analytics.PropVariant:    value,
		"$feature_flag":          key,
		"$feature_flag_response": value,
	})
	observability.ExperimentExposures.WithLabelValues(key, value).Inc()
	if ledger != nil {
		ledger.RecordExposure(key, value)
	}
	return &value
}

// flagValue normalises a flag response. Multivariate flags return strings;
// a false or missing flag is treated as undefined.
func flagValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	default:
		return fmt.Sprint(v), true
	}
}
