package i18n

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported site language.
type Locale string

const (
	EN Locale = "en"
	AR Locale = "ar"
)

// DefaultLocale is used whenever a request names no supported locale.
const DefaultLocale = EN

var supported = []Locale{EN, AR}

// Locales lists the supported locales in display order.
func Locales() []Locale {
	out := make([]Locale, len(supported))
	copy(out, supported)
	return out
}

// Parse reports whether segment names a supported locale.
func Parse(segment string) (Locale, bool) {
	candidate := Locale(strings.ToLower(strings.TrimSpace(segment)))
	for _, l := range supported {
		if l == candidate {
			return l, true
		}
	}
	return "", false
}

// Resolve maps a URL path segment to a locale, falling back to DefaultLocale.
func Resolve(segment string) Locale {
	if l, ok := Parse(segment); ok {
		return l
	}
	return DefaultLocale
}

// IsLanguageTag reports whether segment is a well-formed BCP 47 tag, known
// or not. File names such as robots.txt are not.
func IsLanguageTag(segment string) bool {
	if segment == "" {
		return false
	}
	_, err := language.Parse(segment)
	if err == nil {
		return true
	}
	var unknown language.ValueError
	return errors.As(err, &unknown)
}

// Direction returns the text direction used by the html dir attribute.
func (l Locale) Direction() string {
	if l == AR {
		return "rtl"
	}
	return "ltr"
}

func (l Locale) String() string { return string(l) }
