package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getwowai/showcase/internal/i18n"
)

func TestSplit(t *testing.T) {
	l, rest := Split("/ar/signup")
	assert.Equal(t, i18n.AR, l)
	assert.Equal(t, "/signup", rest)

	l, rest = Split("/en/")
	assert.Equal(t, i18n.EN, l)
	assert.Equal(t, "/", rest)

	l, rest = Split("/signup-success")
	assert.Equal(t, i18n.EN, l)
	assert.Equal(t, "/signup-success", rest)
}

func TestBuildMarksActiveItem(t *testing.T) {
	items := Build(i18n.AR, "/ar/webinar")
	assert.Equal(t, []RenderedItem{
		{Href: "/ar/webinar", LabelKey: "nav.webinar", Active: true},
		{Href: "/ar/signup", LabelKey: "nav.signup"},
	}, items)
}

func TestLanguagesKeepPath(t *testing.T) {
	links := Languages(i18n.EN, "/en/legal/privacy")
	assert.Equal(t, []LocaleLink{
		{Href: "/en/legal/privacy", Locale: i18n.EN, Active: true},
		{Href: "/ar/legal/privacy", Locale: i18n.AR},
	}, links)
}

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs(i18n.EN, "/en/legal/privacy", "Privacy Policy")
	assert.Equal(t, []Crumb{
		{Href: "/en/", LabelKey: "nav.home"},
		{Href: "/en/legal", LabelKey: "nav.legal", Label: "Legal"},
		{Href: "/en/legal/privacy", Label: "Privacy Policy", Active: true},
	}, crumbs)

	assert.Equal(t, []Crumb{{Href: "/ar/", LabelKey: "nav.home", Active: true}}, Breadcrumbs(i18n.AR, "/ar/", ""))
}
