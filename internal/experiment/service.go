package experiment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/tracking"
)

// Settings configures the landing page experiment.
type Settings struct {
	Key            string
	ForceVariant   bool
	DefaultVariant string
	FlagTimeout    time.Duration
}

// Service combines exposure observation with variant resolution for page
// handlers.
type Service struct {
	key      string
	env      Env
	observer *Observer
	logger   *zap.Logger
}

// NewService validates settings once and returns a Service. An unknown
// default variant is logged and ignored.
func NewService(flags FlagSource, settings Settings, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	env := Env{ForceOverride: settings.ForceVariant}
	if settings.DefaultVariant != "" {
		if v, ok := ParseVariant(settings.DefaultVariant); ok {
			env.EnvVariant = v
		} else {
			logger.Warn("experiment: unknown default variant ignored",
				zap.String("variant", settings.DefaultVariant),
				zap.Strings("known", variantStrings()))
		}
	}
	if env.ForceOverride && env.EnvVariant == VariantNone {
		logger.Warn("experiment: force variant set without a default variant; override inactive")
	}
	return &Service{
		key:      settings.Key,
		env:      env,
		observer: NewObserver(flags, settings.FlagTimeout, logger),
		logger:   logger,
	}
}

// Key returns the experiment key.
func (s *Service) Key() string { return s.key }

// Env returns the validated deployment overrides.
func (s *Service) Env() Env { return s.env }

// Decide observes the visitor's assignment and resolves the variant to render.
func (s *Service) Decide(ctx context.Context, tracker *tracking.Tracker, ledger Ledger) VariantConfig {
	raw := s.observer.Observe(ctx, s.key, tracker, ledger)
	if raw != nil {
		if _, ok := ParseVariant(*raw); !ok {
			s.logger.Warn("experiment: unknown variant from flag provider; falling back",
				zap.String("experiment", s.key),
				zap.String("variant", *raw))
		}
	}
	return Resolve(raw, s.env)
}

func variantStrings() []string {
	out := make([]string, len(Variants))
	for i, v := range Variants {
		out[i] = string(v)
	}
	return out
}
