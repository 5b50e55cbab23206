package handlers

import (
	"github.com/getwowai/showcase/internal/i18n"
	"github.com/getwowai/showcase/internal/nav"
	"github.com/getwowai/showcase/internal/seo"
)

// PageData is the view model for every page using the shared layout.
type PageData struct {
	Title     string
	Lang      string
	Dir       string
	SEO       seo.Meta
	Analytics Analytics
	CSRFToken string

	Path        string
	Nav         []nav.RenderedItem
	Languages   []nav.LocaleLink
	Breadcrumbs []nav.Crumb
	SignInURL   string
	// Template names the content block rendered inside the layout.
	Template string

	// Per-page view model payloads
	Landing *LandingData
	Form    *FormData
	Success *SuccessData
	Legal   *LegalData
}

// NewPageData fills the layout fields shared by every page.
func NewPageData(l i18n.Locale, requestPath, template string) PageData {
	return PageData{
		Lang:      l.String(),
		Dir:       l.Direction(),
		Path:      requestPath,
		Nav:       nav.Build(l, requestPath),
		Languages: nav.Languages(l, requestPath),
		Template:  template,
	}
}

// SuccessData is the view model for the post-signup page.
type SuccessData struct {
	// ContinueURL opens the app, carrying the session handoff when present.
	ContinueURL string
	HasHandoff  bool
}

// LegalData is the view model for markdown legal pages.
type LegalData struct {
	Title     string
	HTML      any
	UpdatedAt string
}
