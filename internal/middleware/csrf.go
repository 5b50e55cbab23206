package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	// CSRFFormField is the hidden form input carrying the token.
	CSRFFormField = "csrf_token"
)

// CSRF verifies unsafe requests carry the session's token in the
// X-CSRF-Token header or the csrf_token form field. The token is mirrored to
// a readable cookie for the browser beacon.
func (s *Sessions) CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd := GetSession(r)
		token := sd.CSRFToken
		if token == "" { // initialize if missing
			token = newCSRFToken()
			sd.CSRFToken = token
			sd.MarkDirty()
		}

		if c, err := r.Cookie(csrfCookieName); err != nil || c.Value != token {
			http.SetCookie(w, &http.Cookie{
				Name:     csrfCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: false,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
				Expires:  s.now().Add(24 * time.Hour),
			})
		}

		if !isSafeMethod(r.Method) {
			got := r.Header.Get(csrfHeaderName)
			if got == "" {
				got = r.PostFormValue(CSRFFormField)
			}
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, r, http.StatusForbidden, "invalid CSRF token")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// CSRFToken returns the token to embed in forms.
func CSRFToken(r *http.Request) string {
	return GetSession(r).CSRFToken
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
