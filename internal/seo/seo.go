// Package seo builds per-page metadata: canonical and hreflang links, Open
// Graph, Twitter cards and JSON-LD.
package seo

import (
	"html/template"
	"strings"

	"github.com/getwowai/showcase/internal/i18n"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
	Locale      string
}

type Twitter struct {
	Card  string
	Site  string
	Image string
}

// Alternate is one hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
	JSONLD      []template.JS
}

// Page describes the page being rendered.
type Page struct {
	Title       string
	Description string
	// Path is the path after the locale segment, e.g. "/signup".
	Path    string
	Locale  i18n.Locale
	Image   string
	NoIndex bool
}

// Site holds the site-wide values every page shares.
type Site struct {
	Name    string
	BaseURL string
	Twitter string
}

// URL joins the site base URL with a locale and path.
func (s Site) URL(l i18n.Locale, path string) string {
	path = "/" + strings.TrimLeft(path, "/")
	return strings.TrimRight(s.BaseURL, "/") + "/" + l.String() + path
}

var ogLocales = map[i18n.Locale]string{
	i18n.EN: "en_US",
	i18n.AR: "ar_SA",
}

// Build assembles the metadata for p.
func (s Site) Build(p Page) Meta {
	canonical := s.URL(p.Locale, p.Path)
	m := Meta{
		Title:       p.Title,
		Description: p.Description,
		Canonical:   canonical,
		Robots:      "index,follow",
		OG: OpenGraph{
			Title:       p.Title,
			Description: p.Description,
			Image:       p.Image,
			Type:        "website",
			URL:         canonical,
			SiteName:    s.Name,
			Locale:      ogLocales[p.Locale],
		},
		Twitter: Twitter{Card: "summary_large_image", Site: s.Twitter, Image: p.Image},
	}
	if p.NoIndex {
		m.Robots = "noindex,nofollow"
	}
	for _, l := range i18n.Locales() {
		m.Alternates = append(m.Alternates, Alternate{Href: s.URL(l, p.Path), Hreflang: l.String()})
	}
	m.Alternates = append(m.Alternates, Alternate{Href: s.URL(i18n.DefaultLocale, p.Path), Hreflang: "x-default"})
	return m
}

// WithJSONLD appends schema.org payloads.
func (m Meta) WithJSONLD(items ...map[string]any) Meta {
	for _, it := range items {
		if js := JSON(it); js != "" {
			m.JSONLD = append(m.JSONLD, template.JS(js))
		}
	}
	return m
}
