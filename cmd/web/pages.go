package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/analytics"
	"github.com/getwowai/showcase/internal/cms"
	"github.com/getwowai/showcase/internal/format"
	handlersPkg "github.com/getwowai/showcase/internal/handlers"
	"github.com/getwowai/showcase/internal/i18n"
	"github.com/getwowai/showcase/internal/links"
	mw "github.com/getwowai/showcase/internal/middleware"
	"github.com/getwowai/showcase/internal/nav"
	"github.com/getwowai/showcase/internal/platform/requestctx"
	"github.com/getwowai/showcase/internal/seo"
	"github.com/getwowai/showcase/internal/tracking"
)

// Social proof counters shown on the landing page.
const (
	statStores    int64 = 1200
	statQuestions int64 = 250000
)

// newPage fills the layout fields every page shares.
func (a *App) newPage(r *http.Request, page string, meta seo.Page) handlersPkg.PageData {
	l := mw.LocaleFromContext(r.Context())
	data := handlersPkg.NewPageData(l, r.URL.Path, page)
	meta.Locale = l
	data.SEO = a.site.Build(meta)
	data.Title = data.SEO.Title
	data.Analytics = a.pixels
	data.CSRFToken = mw.CSRFToken(r)
	data.SignInURL = a.links.SignIn(links.SourceShowcase, l.String())
	return data
}

func (a *App) t(l i18n.Locale, key string, data ...map[string]any) string {
	return a.bundle.T(l, key, data...)
}

// RootRedirectHandler sends visitors to their best matching locale, keeping
// campaign query parameters.
func (a *App) RootRedirectHandler(w http.ResponseWriter, r *http.Request) {
	target := "/" + a.bundle.MatchRequest(r).String() + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// LandingHandler resolves the experiment variant and renders its layout.
func (a *App) LandingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := mw.LocaleFromContext(ctx)
	vc := a.experiments.Decide(ctx, tracking.FromContext(ctx), mw.GetSession(r))

	tracker := tracking.FromContext(ctx).With(map[string]any{
		analytics.PropExperiment: a.experiments.Key(),
		analytics.PropVariant:    string(vc.Variant),
	})
	tracker.TrackPageView(ctx, r.URL.Path, map[string]any{"variant_source": string(vc.Source)})
	requestctx.Logger(ctx).Debug("landing variant resolved",
		zap.String("variant", string(vc.Variant)),
		zap.String("source", string(vc.Source)),
		zap.Bool("overridden", vc.IsOverridden),
	)

	data := a.newPage(r, "landing", seo.Page{
		Title:       a.t(l, "meta.landing.title"),
		Description: a.t(l, "meta.landing.description"),
		Path:        "/",
	})
	data.SEO = data.SEO.WithJSONLD(
		seo.Organization(a.site.Name, a.cfg.Site.SiteURL, ""),
		seo.WebSite(a.site.Name, a.site.URL(l, "/"), l.String()),
	)
	data.Landing = &handlersPkg.LandingData{
		Experiment: a.experiments.Key(),
		Variant:    vc.Variant,
		Source:     vc.Source,
		SignupHref: nav.Href(l, "/signup"),
		Stats: handlersPkg.LandingStats{
			Stores:    format.FmtNumber(statStores, l),
			Questions: format.FmtNumber(statQuestions, l),
		},
		WebinarAt:   a.webinarAt(l),
		WebinarHref: nav.Href(l, "/webinar"),
	}
	a.renderPage(w, r, http.StatusOK, "landing", data)
}

// SuccessHandler renders the post-signup page. The session handoff is
// consumed and the visitor's anonymous identity is rotated.
func (a *App) SuccessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := mw.LocaleFromContext(ctx)
	sd := mw.GetSession(r)

	tracking.FromContext(ctx).TrackPageView(ctx, r.URL.Path, nil)

	success := &handlersPkg.SuccessData{
		ContinueURL: a.links.SignIn(links.SourceShowcase, l.String()),
	}
	if h, ok := sd.TakeHandoff(); ok {
		success.ContinueURL = a.links.Handoff(h.Param, h.Token, links.Source(h.Source), l.String())
		success.HasHandoff = true
	}
	sd.Reset()

	data := a.newPage(r, "success", seo.Page{
		Title:   a.t(l, "meta.success.title"),
		Path:    links.SuccessPath,
		NoIndex: true,
	})
	data.Success = success
	a.renderPage(w, r, http.StatusOK, "success", data)
}

// LegalHandler renders a markdown legal page in the request locale.
func (a *App) LegalHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := mw.LocaleFromContext(ctx)
	slug := chi.URLParam(r, "slug")

	page, err := a.content.Get("legal", slug, l.String())
	if errors.Is(err, cms.ErrNotFound) {
		a.NotFoundHandler(w, r)
		return
	}
	if err != nil {
		requestctx.Logger(ctx).Error("legal page load failed", zap.String("slug", slug), zap.Error(err))
		a.reporter.Capture(ctx, err, map[string]string{"page": "legal", "slug": slug}, nil)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	tracking.FromContext(ctx).TrackPageView(ctx, r.URL.Path, nil)

	description := page.SEO.Description
	if description == "" {
		description = page.Summary
	}
	data := a.newPage(r, "legal", seo.Page{
		Title:       a.t(l, "meta.legal.title", map[string]any{"Title": page.Title}),
		Description: description,
		Path:        "/legal/" + page.Slug,
		Image:       page.SEO.OGImage,
	})
	data.Breadcrumbs = nav.Breadcrumbs(l, r.URL.Path, page.Title)
	data.SEO = data.SEO.WithJSONLD(seo.BreadcrumbList(a.breadcrumbItems(l, data.Breadcrumbs)))
	updated := ""
	if !page.UpdatedAt.IsZero() {
		updated = format.FmtDate(page.UpdatedAt, l)
	}
	data.Legal = &handlersPkg.LegalData{Title: page.Title, HTML: page.HTML, UpdatedAt: updated}
	a.renderPage(w, r, http.StatusOK, "legal", data)
}

func (a *App) breadcrumbItems(l i18n.Locale, crumbs []nav.Crumb) []seo.BreadcrumbItem {
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		name := c.Label
		if c.LabelKey != "" {
			name = a.t(l, c.LabelKey)
		}
		items = append(items, seo.BreadcrumbItem{
			Name: name,
			Item: strings.TrimRight(a.cfg.Site.SiteURL, "/") + c.Href,
		})
	}
	return items
}

// NotFoundHandler renders the localized 404 page.
func (a *App) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	l, _ := nav.Split(r.URL.Path)
	ctx := mw.WithLocale(r.Context(), l)
	r = r.WithContext(ctx)
	data := a.newPage(r, "notfound", seo.Page{
		Title:   a.t(l, "error.not_found"),
		Path:    "/",
		NoIndex: true,
	})
	a.renderPage(w, r, http.StatusNotFound, "notfound", data)
}

// webinarAt formats the configured webinar start, or the "to be announced"
// label.
func (a *App) webinarAt(l i18n.Locale) string {
	if a.cfg.Webinar.StartsAt.IsZero() {
		return a.t(l, "webinar.date_tba")
	}
	return format.FmtDateTime(a.cfg.Webinar.StartsAt, l)
}
