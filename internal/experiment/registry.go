package experiment

import "time"

// Status is the lifecycle state of an experiment.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Config documents an experiment. Entries are informational and are not
// enforced at runtime.
type Config struct {
	ID               string
	Name             string
	Variants         []Variant
	PrimaryMetric    string
	SecondaryMetrics []string
	Status           Status
	StartDate        *time.Time
	EndDate          *time.Time
	TargetLocales    []string
}

var landingStart = time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)

var registry = []Config{
	{
		ID:               "landing-page-variant",
		Name:             "Landing page layout",
		Variants:         []Variant{VariantMinimal, VariantControl, VariantSocialProof},
		PrimaryMetric:    "signup_success",
		SecondaryMetrics: []string{"cta_click", "scroll_depth", "signup_attempt"},
		Status:           StatusRunning,
		StartDate:        &landingStart,
		TargetLocales:    []string{"en", "ar"},
	},
	{
		ID:               "webinar-signup-form",
		Name:             "Webinar signup form",
		Variants:         []Variant{VariantControl},
		PrimaryMetric:    "webinar_registration",
		SecondaryMetrics: []string{"signup_success"},
		Status:           StatusDraft,
		TargetLocales:    []string{"ar"},
	},
}

// Registry returns a copy of the experiment registry.
func Registry() []Config {
	out := make([]Config, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the registry entry for id.
func Lookup(id string) (Config, bool) {
	for _, c := range registry {
		if c.ID == id {
			return c, true
		}
	}
	return Config{}, false
}
