package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Site.AppURL != defaultAppURL {
		t.Errorf("expected default app url, got %s", cfg.Site.AppURL)
	}
	if !reflect.DeepEqual(cfg.Analytics.Sinks, []string{SinkPostHog, SinkMixpanel}) {
		t.Errorf("expected both sinks by default, got %v", cfg.Analytics.Sinks)
	}
	if cfg.Auth.Provider != AuthProviderFake {
		t.Errorf("expected fake auth provider, got %s", cfg.Auth.Provider)
	}
	if cfg.Experiment.ForceVariant {
		t.Error("expected force variant disabled by default")
	}
	if cfg.Experiment.FlagTimeout != defaultFlagTimeout {
		t.Errorf("unexpected flag timeout: %s", cfg.Experiment.FlagTimeout)
	}
	if !cfg.Webinar.StartsAt.IsZero() {
		t.Errorf("expected no webinar date, got %s", cfg.Webinar.StartsAt)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level, got %s", cfg.LogLevel)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"PORT":                                  "3000",
		"SHOWCASE_WEB_ENV":                      "Prod",
		"SHOWCASE_WEB_APP_URL":                  "https://app.example.com/",
		"SHOWCASE_WEB_SITE_URL":                 "https://www.example.com",
		"SHOWCASE_WEB_POSTHOG_KEY":              "sm://posthog-key",
		"SHOWCASE_WEB_MIXPANEL_TOKEN":           "mp-token",
		"SHOWCASE_WEB_ANALYTICS_SINKS":          " PostHog ",
		"SHOWCASE_WEB_FORCE_VARIANT":            "yes",
		"SHOWCASE_WEB_DEFAULT_VARIANT":          "Minimal",
		"SHOWCASE_WEB_FLAG_TIMEOUT":             "2s",
		"SHOWCASE_WEB_WEBINAR_DATETIME":         "2026-11-05T17:00:00Z",
		"SHOWCASE_WEB_AUTH_PROVIDER":            "clerk",
		"SHOWCASE_WEB_CLERK_SECRET_KEY":         "secret://clerk-key",
		"SHOWCASE_WEB_SESSION_SIGNING_KEY":      "sign-me",
		"SHOWCASE_WEB_WEBINAR_REGISTRATION_URL": "https://forms.example.com/submit",
		"LOG_LEVEL":                             "debug",
	}

	var requested []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		requested = append(requested, ref)
		return " resolved-" + ref + " ", nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("expected PORT fallback, got %s", cfg.Server.Port)
	}
	if cfg.Site.Environment != "prod" {
		t.Errorf("expected lowercased env, got %s", cfg.Site.Environment)
	}
	if cfg.Site.AppURL != "https://app.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Site.AppURL)
	}
	if cfg.Analytics.PostHogKey != "resolved-secret://posthog-key" {
		t.Errorf("unexpected posthog key: %s", cfg.Analytics.PostHogKey)
	}
	if cfg.Auth.ClerkSecretKey != "resolved-secret://clerk-key" {
		t.Errorf("unexpected clerk key: %s", cfg.Auth.ClerkSecretKey)
	}
	if len(requested) != 2 {
		t.Errorf("expected two secret lookups, got %v", requested)
	}
	if !cfg.Analytics.HasSink(SinkPostHog) || cfg.Analytics.HasSink(SinkMixpanel) {
		t.Errorf("expected posthog only, got %v", cfg.Analytics.Sinks)
	}
	if !cfg.Experiment.ForceVariant || cfg.Experiment.DefaultVariant != "minimal" {
		t.Errorf("unexpected experiment config: %+v", cfg.Experiment)
	}
	if cfg.Experiment.FlagTimeout != 2*time.Second {
		t.Errorf("unexpected flag timeout: %s", cfg.Experiment.FlagTimeout)
	}
	want := time.Date(2026, 11, 5, 17, 0, 0, 0, time.UTC)
	if !cfg.Webinar.StartsAt.Equal(want) {
		t.Errorf("unexpected webinar time: %s", cfg.Webinar.StartsAt)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := map[string]string{"SHOWCASE_WEB_SENTRY_DSN": "sm://sentry"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))

	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://sentry" {
		t.Errorf("expected normalised ref, got %s", secretErr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Errorf("expected unwrap to resolver error, got %v", err)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"SHOWCASE_WEB_APP_URL":         "not a url",
		"SHOWCASE_WEB_ANALYTICS_SINKS": "posthog,segment",
		"SHOWCASE_WEB_AUTH_PROVIDER":   "firebase",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"Site.AppURL", "Analytics.Sinks[segment]", "Auth.FirebaseProjectID"}
	if !reflect.DeepEqual(validationErr.Fields(), want) {
		t.Errorf("unexpected fields: %v", validationErr.Fields())
	}
}

func TestLoadRejectsFakeAuthInProd(t *testing.T) {
	env := map[string]string{"SHOWCASE_WEB_ENV": "prod"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadReadsDotEnvBelowExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SHOWCASE_WEB_PORT=7000\nSHOWCASE_WEB_FB_PIXEL_ID=pixel-1\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"SHOWCASE_WEB_PORT": "7100"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7100" {
		t.Errorf("expected explicit value to win, got %s", cfg.Server.Port)
	}
	if cfg.Analytics.FacebookPixelID != "pixel-1" {
		t.Errorf("expected pixel id from .env, got %s", cfg.Analytics.FacebookPixelID)
	}
}

func TestHasSecretReferences(t *testing.T) {
	found, err := HasSecretReferences(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"SHOWCASE_WEB_MIXPANEL_TOKEN": "sm://mixpanel",
	}))
	if err != nil {
		t.Fatalf("HasSecretReferences returned error: %v", err)
	}
	if !found {
		t.Error("expected secret reference to be detected")
	}

	found, err = HasSecretReferences(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"SHOWCASE_WEB_MIXPANEL_TOKEN": "plain",
	}))
	if err != nil {
		t.Fatalf("HasSecretReferences returned error: %v", err)
	}
	if found {
		t.Error("expected no secret references")
	}
}
