package analytics

// Event names shared by server handlers, the browser beacon and dashboards.
const (
	EventPageView           = "$pageview"
	EventExperimentExposure = "experiment_exposure"
	EventCTAClick           = "cta_click"
	EventScrollDepth        = "scroll_depth"
	EventFeatureInteraction = "feature_interaction"
	EventSignupAttempt      = "signup_attempt"
	EventSignupSuccess      = "signup_success"
	EventSignupFailed       = "signup_failed"
	EventWebinarRegistered  = "webinar_registration"
)

// Property keys attached to most events.
const (
	PropLocale     = "locale"
	PropSet        = "$set"
	PropLanguage   = "language"
	PropInsertID   = "$insert_id"
	PropConversion = "conversion"
	PropVariant    = "variant"
	PropExperiment = "experiment"
	PropPath       = "path"
)

// ClientEvents lists the events the browser beacon may submit.
var ClientEvents = []string{EventCTAClick, EventScrollDepth, EventFeatureInteraction}
