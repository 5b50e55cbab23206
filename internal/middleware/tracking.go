package middleware

import (
	"net/http"

	"github.com/getwowai/showcase/internal/tracking"
)

// Tracking attaches a tracker for the session's visitor and the page locale.
// It must run after the session and locale middleware.
func Tracking(client tracking.Capturer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			t := tracking.New(client, LocaleFromContext(ctx), GetSession(r).DistinctID)
			next.ServeHTTP(w, r.WithContext(tracking.WithTracker(ctx, t)))
		})
	}
}
