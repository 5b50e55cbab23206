package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/getwowai/showcase/internal/i18n"
)

// VaryLocale sets Vary header for Accept-Language on dynamic responses
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r)
	})
}

// LocaleSegment answers with notFound when the {locale} segment cannot be a
// language tag at all, so stray paths like /favicon.ico never reach a page.
func LocaleSegment(notFound http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !i18n.IsLanguageTag(chi.URLParam(r, "locale")) {
				notFound.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Locale resolves the {locale} route segment. Unsupported segments render in
// the default locale rather than failing.
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := i18n.Resolve(chi.URLParam(r, "locale"))
		w.Header().Set("Content-Language", l.String())
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), l)))
	})
}

// QueryLocale resolves the locale from the ?locale= query parameter, for
// pages outside the {locale} tree.
func QueryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := i18n.Resolve(r.URL.Query().Get("locale"))
		w.Header().Set("Content-Language", l.String())
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), l)))
	})
}

// Lang returns the current locale code.
func Lang(r *http.Request) string {
	return LocaleFromContext(r.Context()).String()
}
