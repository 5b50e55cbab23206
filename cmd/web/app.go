package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/accounts"
	"github.com/getwowai/showcase/internal/analytics"
	"github.com/getwowai/showcase/internal/cms"
	"github.com/getwowai/showcase/internal/errorreport"
	"github.com/getwowai/showcase/internal/experiment"
	handlersPkg "github.com/getwowai/showcase/internal/handlers"
	"github.com/getwowai/showcase/internal/i18n"
	"github.com/getwowai/showcase/internal/links"
	mw "github.com/getwowai/showcase/internal/middleware"
	"github.com/getwowai/showcase/internal/platform/config"
	"github.com/getwowai/showcase/internal/platform/observability"
	"github.com/getwowai/showcase/internal/seo"
	"github.com/getwowai/showcase/internal/signup"
	"github.com/getwowai/showcase/internal/status"
	"github.com/getwowai/showcase/internal/webinar"
)

// App holds the long-lived dependencies shared by every handler.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	bundle      *i18n.Bundle
	views       *views
	analytics   *analytics.Client
	experiments *experiment.Service
	signup      *signup.Service
	links       links.Builder
	content     *cms.Store
	sessions    *mw.Sessions
	site        seo.Site
	pixels      handlersPkg.Analytics
	reporter    errorreport.Reporter
	provider    string
	registrar   signup.Registrar
	sentry      *errorreport.Sentry
	trackSchema *gojsonschema.Schema
}

// appDeps lets tests replace external collaborators.
type appDeps struct {
	sinks     []analytics.Sink
	provider  accounts.Provider
	reporter  errorreport.Reporter
	registrar signup.Registrar
}

type appOption func(*appDeps)

func withSinks(sinks ...analytics.Sink) appOption {
	return func(d *appDeps) { d.sinks = sinks }
}

func withProvider(p accounts.Provider) appOption {
	return func(d *appDeps) { d.provider = p }
}

func withReporter(r errorreport.Reporter) appOption {
	return func(d *appDeps) { d.reporter = r }
}

func withRegistrar(r signup.Registrar) appOption {
	return func(d *appDeps) { d.registrar = r }
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...appOption) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := appDeps{}
	for _, opt := range opts {
		opt(&deps)
	}

	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load message catalogs: %w", err)
	}
	views, err := newViews(cfg.Site.TemplatesDir, cfg.Site.Dev, bundle)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	schema, err := newTrackSchema()
	if err != nil {
		return nil, fmt.Errorf("compile beacon schema: %w", err)
	}

	a := &App{
		cfg:         cfg,
		logger:      logger,
		bundle:      bundle,
		views:       views,
		links:       links.New(cfg.Site.AppURL),
		content:     cms.NewStore(cfg.Site.ContentDir),
		sessions:    mw.NewSessions(cfg.Site.SessionSigningKey, cfg.Site.Environment == "prod", logger.Named("session")),
		site:        seo.Site{Name: bundle.T(i18n.DefaultLocale, "site.name"), BaseURL: cfg.Site.SiteURL},
		pixels:      handlersPkg.AnalyticsFromConfig(cfg),
		trackSchema: schema,
	}

	sinks := deps.sinks
	if sinks == nil {
		sinks = buildSinks(cfg.Analytics, logger.Named("analytics"))
	}
	a.analytics = analytics.NewClient(logger.Named("analytics"), sinks...)

	a.experiments = experiment.NewService(a.analytics, experiment.Settings{
		Key:            cfg.Experiment.Key,
		ForceVariant:   cfg.Experiment.ForceVariant,
		DefaultVariant: cfg.Experiment.DefaultVariant,
		FlagTimeout:    cfg.Experiment.FlagTimeout,
	}, logger.Named("experiment"))

	a.reporter = deps.reporter
	if a.reporter == nil {
		a.reporter, a.sentry = buildReporter(cfg, logger)
	}

	provider := deps.provider
	if provider == nil {
		provider, err = buildProvider(ctx, cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("configure auth provider: %w", err)
		}
	}
	registrar := deps.registrar
	if registrar == nil {
		registrar = webinar.NewClient(cfg.Webinar.RegistrationURL, 0)
	}
	a.provider = provider.Name()
	a.registrar = registrar
	a.signup = signup.NewService(signup.Deps{
		Provider:  provider,
		Reporter:  a.reporter,
		Registrar: registrar,
		Links:     a.links,
		Logger:    logger.Named("signup"),
		WebinarAt: cfg.Webinar.StartsAt,
	})

	logger.Info("app configured",
		zap.Strings("analytics_sinks", a.analytics.SinkNames()),
		zap.String("auth_provider", provider.Name()),
		zap.String("experiment", a.experiments.Key()),
		zap.Bool("sentry", a.sentry != nil),
	)
	return a, nil
}

func buildSinks(cfg config.AnalyticsConfig, logger *zap.Logger) []analytics.Sink {
	var sinks []analytics.Sink
	if cfg.HasSink(config.SinkPostHog) {
		ph := analytics.NewPostHog(analytics.PostHogConfig{
			APIKey:         cfg.PostHogKey,
			Host:           cfg.PostHogHost,
			PersonalAPIKey: cfg.PostHogPersonalAPIKey,
		}, logger)
		ph.Init()
		sinks = append(sinks, ph)
	}
	if cfg.HasSink(config.SinkMixpanel) {
		mp := analytics.NewMixpanel(analytics.MixpanelConfig{
			Token:  cfg.MixpanelToken,
			APIURL: cfg.MixpanelAPIURL,
		}, logger)
		mp.Init()
		sinks = append(sinks, mp)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, analytics.Noop{})
	}
	return sinks
}

func buildProvider(ctx context.Context, cfg config.AuthConfig) (accounts.Provider, error) {
	switch cfg.Provider {
	case config.AuthProviderClerk:
		return accounts.NewClerk(cfg.ClerkAPIURL, cfg.ClerkSecretKey, cfg.Timeout), nil
	case config.AuthProviderFirebase:
		return accounts.NewFirebase(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile, accounts.WithFirebaseTimeout(cfg.Timeout))
	case config.AuthProviderFake:
		return accounts.NewFake(), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
}

func buildReporter(cfg config.Config, logger *zap.Logger) (errorreport.Reporter, *errorreport.Sentry) {
	fallback := errorreport.Log{Logger: logger.Named("errorreport")}
	if cfg.Sentry.DSN == "" {
		return fallback, nil
	}
	s, err := errorreport.NewSentry(errorreport.Options{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Site.Environment,
		Release:     cfg.Sentry.Release,
	})
	if err != nil {
		logger.Warn("errorreport: sentry init failed; logging exceptions instead", zap.Error(err))
		return fallback, nil
	}
	return s, s
}

// Router assembles the HTTP routes.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(observability.TraceMiddleware)
	r.Use(mw.RequestLogger(a.logger.Named("http")))
	if a.sentry != nil {
		r.Use(a.sentryHub)
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", status.Handler(a.statusSummary))
	r.Handle("/assets/*", mw.Assets(filepath.Join(a.cfg.Site.PublicDir, "assets"), "/assets"))

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(a.sessions.Middleware)
		r.Use(a.sessions.CSRF)

		r.Get("/", a.RootRedirectHandler)
		r.With(mw.QueryLocale, mw.Tracking(a.analytics)).Get(links.SuccessPath, a.SuccessHandler)
		r.Post("/api/track", a.TrackHandler)

		r.Route("/{locale}", func(r chi.Router) {
			r.Use(mw.LocaleSegment(http.HandlerFunc(a.NotFoundHandler)))
			r.Use(mw.Locale)
			r.Use(mw.VaryLocale)
			r.Use(mw.Tracking(a.analytics))

			r.Get("/", a.LandingHandler)
			r.Get("/signup", a.FormPageHandler(signup.KindStandard))
			r.Post("/signup", a.FormSubmitHandler(signup.KindStandard))
			r.Post("/signup/validate", a.FormValidateHandler(signup.KindStandard))
			r.Get("/webinar", a.FormPageHandler(signup.KindWebinar))
			r.Post("/webinar", a.FormSubmitHandler(signup.KindWebinar))
			r.Post("/webinar/validate", a.FormValidateHandler(signup.KindWebinar))
			r.Get("/legal/{slug}", a.LegalHandler)
			r.NotFound(a.NotFoundHandler)
		})
	})
	r.NotFound(a.NotFoundHandler)
	return r
}

// statusSummary lists the integrations this instance is wired to.
func (a *App) statusSummary() status.Summary {
	sinks := a.analytics.SinkNames()
	auth := status.Enabled("auth", true, a.provider)
	if a.provider == config.AuthProviderFake && a.cfg.Site.Environment != "local" {
		auth.Status = status.StateDegraded
	}
	registrations := true
	if c, ok := a.registrar.(*webinar.Client); ok {
		registrations = c.Enabled()
	}
	return status.Summarize(time.Now(),
		status.Enabled("analytics", len(sinks) > 0, strings.Join(sinks, ",")),
		auth,
		status.Enabled("error_reporting", a.sentry != nil, ""),
		status.Enabled("webinar_registration", registrations, ""),
		status.Enabled("experiment", true, a.experiments.Key()),
	)
}

// sentryHub puts a per-request clone of the reporter's hub on the context so
// the panic handler reports to the same client.
func (a *App) sentryHub(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := sentry.SetHubOnContext(r.Context(), a.sentry.Hub().Clone())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Close flushes analytics sinks and the error reporter.
func (a *App) Close(timeout time.Duration) error {
	var errs []error
	if err := a.analytics.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close analytics: %w", err))
	}
	if !a.reporter.Flush(timeout) {
		errs = append(errs, errors.New("error reporter flush timed out"))
	}
	return errors.Join(errs...)
}
