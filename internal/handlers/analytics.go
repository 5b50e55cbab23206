package handlers

import "github.com/getwowai/showcase/internal/platform/config"

// Analytics holds client instrumentation configuration surfaced to templates.
type Analytics struct {
	FacebookPixelID  string // ad pixel, fired on the success page only
	GA4MeasurementID string // e.g. G-XXXXXXXXXX
	BeaconURL        string // endpoint for client-only interactions
	Debug            bool
}

// AnalyticsFromConfig builds Analytics from the loaded configuration.
func AnalyticsFromConfig(cfg config.Config) Analytics {
	return Analytics{
		FacebookPixelID:  cfg.Analytics.FacebookPixelID,
		GA4MeasurementID: cfg.Analytics.GAMeasurementID,
		BeaconURL:        "/api/track",
		Debug:            cfg.Site.Dev,
	}
}
