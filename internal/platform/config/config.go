package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultEnvironment     = "local"
	defaultSiteURL         = "http://localhost:8080"
	defaultAppURL          = "https://app.getwow.ai"
	defaultPostHogHost     = "https://us.i.posthog.com"
	defaultMixpanelAPIURL  = "https://api.mixpanel.com"
	defaultExperimentKey   = "landing-page-variant"
	defaultFlagTimeout     = 800 * time.Millisecond
	defaultAuthProvider    = "fake"
	defaultClerkAPIURL     = "https://api.clerk.com/v1"
	defaultAuthTimeout     = 10 * time.Second
	defaultTemplatesDir    = "templates"
	defaultPublicDir       = "public"
	defaultContentDir      = "content"
)

// Supported analytics sink names.
const (
	SinkPostHog  = "posthog"
	SinkMixpanel = "mixpanel"
)

// Supported auth providers.
const (
	AuthProviderClerk    = "clerk"
	AuthProviderFirebase = "firebase"
	AuthProviderFake     = "fake"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Site       SiteConfig
	Analytics  AnalyticsConfig
	Experiment ExperimentConfig
	Webinar    WebinarConfig
	Auth       AuthConfig
	Sentry     SentryConfig
	Secrets    SecretsConfig
	LogLevel   string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SiteConfig describes the public site and where its files live.
type SiteConfig struct {
	Environment       string
	Dev               bool
	SiteURL           string
	AppURL            string
	TemplatesDir      string
	PublicDir         string
	ContentDir        string
	SessionSigningKey string
}

// AnalyticsConfig holds the tracking keys for both analytics backends and the
// client-side ad pixels.
type AnalyticsConfig struct {
	PostHogKey            string
	PostHogHost           string
	PostHogPersonalAPIKey string
	MixpanelToken         string
	MixpanelAPIURL        string
	Sinks                 []string
	FacebookPixelID       string
	GAMeasurementID       string
}

// HasSink reports whether the named sink is enabled by configuration.
func (a AnalyticsConfig) HasSink(name string) bool {
	for _, s := range a.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// ExperimentConfig controls landing-page variant resolution.
type ExperimentConfig struct {
	Key            string
	ForceVariant   bool
	DefaultVariant string
	FlagTimeout    time.Duration
}

// WebinarConfig describes the upcoming webinar promoted by the webinar form.
type WebinarConfig struct {
	StartsAt        time.Time
	RegistrationURL string
}

// AuthConfig selects and configures the account provider.
type AuthConfig struct {
	Provider                string
	ClerkSecretKey          string
	ClerkAPIURL             string
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	Timeout                 time.Duration
}

// SentryConfig configures exception reporting.
type SentryConfig struct {
	DSN     string
	Release string
}

// SecretsConfig configures Secret Manager lookups for sm:// references.
type SecretsConfig struct {
	ProjectID string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for sm:// and secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the configuration from defaults, .env overrides, environment
// variables and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	port := stringWithDefault(lookup, "SHOWCASE_WEB_PORT", "")
	if port == "" {
		// Cloud Run injects PORT.
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}

	env := strings.ToLower(stringWithDefault(lookup, "SHOWCASE_WEB_ENV", defaultEnvironment))
	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     durationWithDefault(lookup, "SHOWCASE_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "SHOWCASE_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "SHOWCASE_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "SHOWCASE_WEB_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Site: SiteConfig{
			Environment:       env,
			Dev:               boolWithDefault(lookup, "SHOWCASE_WEB_DEV", false),
			SiteURL:           strings.TrimRight(stringWithDefault(lookup, "SHOWCASE_WEB_SITE_URL", defaultSiteURL), "/"),
			AppURL:            strings.TrimRight(stringWithDefault(lookup, "SHOWCASE_WEB_APP_URL", defaultAppURL), "/"),
			TemplatesDir:      stringWithDefault(lookup, "SHOWCASE_WEB_TEMPLATES_DIR", defaultTemplatesDir),
			PublicDir:         stringWithDefault(lookup, "SHOWCASE_WEB_PUBLIC_DIR", defaultPublicDir),
			ContentDir:        stringWithDefault(lookup, "SHOWCASE_WEB_CONTENT_DIR", defaultContentDir),
			SessionSigningKey: stringWithDefault(lookup, "SHOWCASE_WEB_SESSION_SIGNING_KEY", ""),
		},
		Analytics: AnalyticsConfig{
			PostHogKey:            stringWithDefault(lookup, "SHOWCASE_WEB_POSTHOG_KEY", ""),
			PostHogHost:           stringWithDefault(lookup, "SHOWCASE_WEB_POSTHOG_HOST", defaultPostHogHost),
			PostHogPersonalAPIKey: stringWithDefault(lookup, "SHOWCASE_WEB_POSTHOG_PERSONAL_API_KEY", ""),
			MixpanelToken:         stringWithDefault(lookup, "SHOWCASE_WEB_MIXPANEL_TOKEN", ""),
			MixpanelAPIURL:        stringWithDefault(lookup, "SHOWCASE_WEB_MIXPANEL_API_URL", defaultMixpanelAPIURL),
			Sinks:                 lowerCSV(csvWithDefault(lookup, "SHOWCASE_WEB_ANALYTICS_SINKS", []string{SinkPostHog, SinkMixpanel})),
			FacebookPixelID:       stringWithDefault(lookup, "SHOWCASE_WEB_FB_PIXEL_ID", ""),
			GAMeasurementID:       stringWithDefault(lookup, "SHOWCASE_WEB_GA_MEASUREMENT_ID", ""),
		},
		Experiment: ExperimentConfig{
			Key:            stringWithDefault(lookup, "SHOWCASE_WEB_EXPERIMENT_KEY", defaultExperimentKey),
			ForceVariant:   boolWithDefault(lookup, "SHOWCASE_WEB_FORCE_VARIANT", false),
			DefaultVariant: strings.ToLower(stringWithDefault(lookup, "SHOWCASE_WEB_DEFAULT_VARIANT", "")),
			FlagTimeout:    durationWithDefault(lookup, "SHOWCASE_WEB_FLAG_TIMEOUT", defaultFlagTimeout),
		},
		Webinar: WebinarConfig{
			StartsAt:        timeWithDefault(lookup, "SHOWCASE_WEB_WEBINAR_DATETIME"),
			RegistrationURL: stringWithDefault(lookup, "SHOWCASE_WEB_WEBINAR_REGISTRATION_URL", ""),
		},
		Auth: AuthConfig{
			Provider:                strings.ToLower(stringWithDefault(lookup, "SHOWCASE_WEB_AUTH_PROVIDER", defaultAuthProvider)),
			ClerkSecretKey:          stringWithDefault(lookup, "SHOWCASE_WEB_CLERK_SECRET_KEY", ""),
			ClerkAPIURL:             stringWithDefault(lookup, "SHOWCASE_WEB_CLERK_API_URL", defaultClerkAPIURL),
			FirebaseProjectID:       stringWithDefault(lookup, "SHOWCASE_WEB_FIREBASE_PROJECT_ID", ""),
			FirebaseCredentialsFile: stringWithDefault(lookup, "SHOWCASE_WEB_FIREBASE_CREDENTIALS_FILE", ""),
			Timeout:                 durationWithDefault(lookup, "SHOWCASE_WEB_AUTH_TIMEOUT", defaultAuthTimeout),
		},
		Sentry: SentryConfig{
			DSN:     stringWithDefault(lookup, "SHOWCASE_WEB_SENTRY_DSN", ""),
			Release: stringWithDefault(lookup, "SHOWCASE_WEB_RELEASE", ""),
		},
		Secrets: SecretsConfig{
			ProjectID: stringWithDefault(lookup, "SHOWCASE_WEB_SECRETS_PROJECT_ID", ""),
		},
		LogLevel: stringWithDefault(lookup, "LOG_LEVEL", "info"),
	}

	secretFields := []*string{
		&cfg.Analytics.PostHogKey,
		&cfg.Analytics.PostHogPersonalAPIKey,
		&cfg.Analytics.MixpanelToken,
		&cfg.Auth.ClerkSecretKey,
		&cfg.Sentry.DSN,
		&cfg.Site.SessionSigningKey,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HasSecretReferences reports whether any value visible to Load is an sm:// or
// secret:// reference, so callers only dial Secret Manager when needed.
func HasSecretReferences(opts ...Option) (bool, error) {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}
	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return false, err
	}
	sources := []map[string]string{dotEnvValues, options.envMap}
	if options.useSystemEnv {
		sources = append(sources, systemEnv())
	}
	for _, src := range sources {
		for key, value := range src {
			if strings.HasPrefix(key, "SHOWCASE_WEB_") && isSecretReference(value) {
				return true, nil
			}
		}
	}
	return false, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if !isAbsoluteURL(cfg.Site.AppURL) {
		missing = append(missing, "Site.AppURL")
	}
	if !isAbsoluteURL(cfg.Site.SiteURL) {
		missing = append(missing, "Site.SiteURL")
	}
	for _, sink := range cfg.Analytics.Sinks {
		if sink != SinkPostHog && sink != SinkMixpanel {
			missing = append(missing, "Analytics.Sinks["+sink+"]")
		}
	}
	switch cfg.Auth.Provider {
	case AuthProviderFake:
	case AuthProviderClerk:
		if cfg.Auth.ClerkSecretKey == "" {
			missing = append(missing, "Auth.ClerkSecretKey")
		}
	case AuthProviderFirebase:
		if cfg.Auth.FirebaseProjectID == "" {
			missing = append(missing, "Auth.FirebaseProjectID")
		}
	default:
		missing = append(missing, "Auth.Provider")
	}
	if cfg.Site.Environment == "prod" && cfg.Auth.Provider == AuthProviderFake {
		missing = append(missing, "Auth.Provider")
	}
	if cfg.Experiment.FlagTimeout <= 0 {
		missing = append(missing, "Experiment.FlagTimeout")
	}
	if cfg.Webinar.RegistrationURL != "" && !isAbsoluteURL(cfg.Webinar.RegistrationURL) {
		missing = append(missing, "Webinar.RegistrationURL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func systemEnv() map[string]string {
	out := make(map[string]string)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func timeWithDefault(lookup func(string) (string, bool), key string) time.Time {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t
		}
	}
	return time.Time{}
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerCSV(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
