// Package links builds outbound URLs to the app with attribution parameters.
package links

import (
	"net/url"
	"strings"
)

// Source identifies which marketing surface sent the visitor.
type Source string

const (
	SourceShowcase Source = "showcase"
	SourceWebinar  Source = "webinar"
)

const utmMedium = "website"

// SuccessPath is the locale-independent post-signup page.
const SuccessPath = "/signup-success"

// Builder builds URLs on the app base URL.
type Builder struct {
	appURL string
}

// New returns a Builder for appURL.
func New(appURL string) Builder {
	return Builder{appURL: strings.TrimRight(strings.TrimSpace(appURL), "/")}
}

// SignIn returns the app sign-in URL tagged for source.
func (b Builder) SignIn(source Source, locale string) string {
	return b.build("/sign-in", source, locale, nil)
}

// SignUp returns the app sign-up URL tagged for source.
func (b Builder) SignUp(source Source, locale string) string {
	return b.build("/sign-up", source, locale, nil)
}

// Handoff returns the app URL that redeems a session handoff token.
func (b Builder) Handoff(param, token string, source Source, locale string) string {
	extra := url.Values{}
	if param != "" && token != "" {
		extra.Set(param, token)
	}
	return b.build("/", source, locale, extra)
}

func (b Builder) build(path string, source Source, locale string, extra url.Values) string {
	q := url.Values{}
	for k, vs := range extra {
		q[k] = vs
	}
	q.Set("utm_source", string(source))
	q.Set("utm_medium", utmMedium)
	q.Set("utm_campaign", campaign(source))
	if locale != "" {
		q.Set("lang", locale)
	}
	return b.appURL + path + "?" + q.Encode()
}

func campaign(source Source) string {
	if source == SourceWebinar {
		return "webinar"
	}
	return "signup"
}

// Success returns the success page path carrying locale.
func Success(locale string) string {
	return SuccessPath + "?" + url.Values{"locale": {locale}}.Encode()
}
