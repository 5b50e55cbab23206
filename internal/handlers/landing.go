package handlers

import (
	"github.com/getwowai/showcase/internal/experiment"
)

// LandingData is the view model for the landing page variants.
type LandingData struct {
	Experiment string
	Variant    experiment.Variant
	Source     experiment.Source
	SignupHref string
	Stats      LandingStats
	// WebinarAt is the formatted webinar start, empty when unscheduled.
	WebinarAt   string
	WebinarHref string
}

// LandingStats are the social proof counters, already formatted per locale.
type LandingStats struct {
	Stores    string
	Questions string
}

// ContentTemplate returns the template block for the resolved variant.
func (d LandingData) ContentTemplate() string {
	switch d.Variant {
	case experiment.VariantMinimal:
		return "landing_minimal"
	case experiment.VariantSocialProof:
		return "landing_social_proof"
	default:
		return "landing_control"
	}
}
