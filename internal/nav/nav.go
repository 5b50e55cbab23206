// Package nav builds locale-aware navigation, language switch links and
// breadcrumbs.
package nav

import (
	"path"
	"strings"

	"github.com/getwowai/showcase/internal/i18n"
)

// Item represents a top-level navigation item.
type Item struct {
	Path     string // path after the locale segment, e.g. "/webinar"
	LabelKey string // i18n key, e.g. "nav.webinar"
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	LabelKey string
	Active   bool
}

// LocaleLink points at the current page in another locale.
type LocaleLink struct {
	Href   string
	Locale i18n.Locale
	Active bool
}

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/webinar", LabelKey: "nav.webinar"},
	{Path: "/signup", LabelKey: "nav.signup"},
}

// Split separates a request path into its locale segment and the rest.
// Paths without a supported locale return the default locale and the path
// unchanged.
func Split(requestPath string) (i18n.Locale, string) {
	trimmed := strings.TrimPrefix(requestPath, "/")
	segment, rest, _ := strings.Cut(trimmed, "/")
	l, ok := i18n.Parse(segment)
	if !ok {
		return i18n.DefaultLocale, requestPath
	}
	return l, "/" + rest
}

// Href prefixes p with the locale segment.
func Href(l i18n.Locale, p string) string {
	return "/" + l.String() + "/" + strings.TrimLeft(p, "/")
}

// Build renders navigation items with active state given the current request
// path.
func Build(l i18n.Locale, requestPath string) []RenderedItem {
	_, current := Split(requestPath)
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:     Href(l, it.Path),
			LabelKey: it.LabelKey,
			Active:   isActive(it.Path, current),
		})
	}
	return items
}

// Languages returns the current page in every supported locale.
func Languages(l i18n.Locale, requestPath string) []LocaleLink {
	_, rest := Split(requestPath)
	out := make([]LocaleLink, 0, len(i18n.Locales()))
	for _, candidate := range i18n.Locales() {
		out = append(out, LocaleLink{
			Href:   Href(candidate, rest),
			Locale: candidate,
			Active: candidate == l,
		})
	}
	return out
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds breadcrumb entries from the current request path. The
// last crumb uses title when given.
func Breadcrumbs(l i18n.Locale, requestPath, title string) []Crumb {
	_, current := Split(requestPath)
	crumbs := []Crumb{{Href: Href(l, "/"), LabelKey: "nav.home", Active: current == "/"}}
	clean := path.Clean(current)
	if clean == "/" || clean == "." {
		return crumbs
	}
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	href := ""
	for i, part := range parts {
		href += "/" + part
		c := Crumb{Href: Href(l, href), Label: titleFromSegment(part), Active: i == len(parts)-1}
		if i == 0 {
			c.LabelKey = labelKeyFor(href)
		}
		if c.Active && title != "" {
			c.Label, c.LabelKey = title, ""
		}
		crumbs = append(crumbs, c)
	}
	return crumbs
}

func labelKeyFor(p string) string {
	for _, it := range Main {
		if it.Path == p {
			return it.LabelKey
		}
	}
	if p == "/legal" {
		return "nav.legal"
	}
	return ""
}

func titleFromSegment(seg string) string {
	if seg == "" {
		return seg
	}
	s := strings.ReplaceAll(seg, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	r := []rune(s)
	r[0] = toUpper(r[0])
	return string(r)
}

func toUpper(r rune) rune {
	// ASCII only is sufficient for slugs here
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
