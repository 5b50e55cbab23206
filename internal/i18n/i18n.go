package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Bundle holds the message catalogs for every supported locale.
type Bundle struct {
	bundle     *goi18n.Bundle
	localizers map[Locale]*goi18n.Localizer
	matcher    language.Matcher
}

// Load reads locales/<locale>.yaml for each supported locale from fsys. The
// default locale catalog is required; others may be missing and fall back to it.
func Load(fsys fs.FS) (*Bundle, error) {
	b := goi18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	tags := make([]language.Tag, 0, len(supported))
	for _, l := range supported {
		tags = append(tags, language.Make(string(l)))
		path := "locales/" + string(l) + ".yaml"
		if _, err := b.LoadMessageFileFS(fsys, path); err != nil {
			if l == DefaultLocale {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
	}

	out := &Bundle{
		bundle:     b,
		localizers: make(map[Locale]*goi18n.Localizer, len(supported)),
		matcher:    language.NewMatcher(tags),
	}
	for _, l := range supported {
		out.localizers[l] = goi18n.NewLocalizer(b, string(l), string(DefaultLocale))
	}
	return out, nil
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return Load(embedded)
}

// T returns the message for key in locale l, falling back to the default
// locale and finally to key itself. An optional map supplies template data.
func (b *Bundle) T(l Locale, key string, data ...map[string]any) string {
	if b == nil {
		return key
	}
	cfg := &goi18n.LocalizeConfig{MessageID: key}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	if loc, ok := b.localizers[l]; ok && l != DefaultLocale {
		// a key missing here falls through to the default catalog
		if msg, err := loc.Localize(cfg); err == nil && msg != "" {
			return msg
		}
	}
	msg, err := b.localizers[DefaultLocale].Localize(cfg)
	if err != nil || msg == "" {
		return key
	}
	return msg
}

// Match chooses the best supported locale for an Accept-Language header.
func (b *Bundle) Match(acceptLanguage string) Locale {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, confidence := b.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(supported) {
		return DefaultLocale
	}
	return supported[idx]
}

// MatchRequest is Match applied to the request's Accept-Language header.
func (b *Bundle) MatchRequest(r *http.Request) Locale {
	return b.Match(r.Header.Get("Accept-Language"))
}
