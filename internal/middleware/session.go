package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "SHOWCASE_SESSION"
	sessionTTL        = 180 * 24 * time.Hour
	// maxExposures bounds the ledger so the cookie stays small.
	maxExposures = 16
)

// SessionData is the signed cookie payload for an anonymous visitor.
type SessionData struct {
	DistinctID string            `json:"did"`
	CSRFToken  string            `json:"csrf,omitempty"`
	Exposures  map[string]string `json:"exp,omitempty"`
	Handoff    *Handoff          `json:"handoff,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool `json:"-"`
}

// Handoff carries the app session token from the signup POST to the success
// page.
type Handoff struct {
	Param  string `json:"p"`
	Token  string `json:"t"`
	Source string `json:"s,omitempty"`
}

// Sessions loads and persists SessionData in an HMAC-signed cookie.
type Sessions struct {
	key    []byte
	secure bool
	now    func() time.Time
}

// NewSessions returns a session store signing with signingKey. An empty key
// yields a process-ephemeral key, which invalidates cookies on restart.
func NewSessions(signingKey string, secure bool, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := []byte(strings.TrimSpace(signingKey))
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			logger.Warn("session: failed to generate signing key", zap.Error(err))
			key = []byte("insecure-dev-key-please-set-SHOWCASE_WEB_SESSION_SIGNING_KEY")
		}
		logger.Warn("session: using ephemeral signing key; set SHOWCASE_WEB_SESSION_SIGNING_KEY for production")
	}
	return &Sessions{key: key, secure: secure, now: time.Now}
}

// Middleware loads or initializes a session and stores it in request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := s.read(r)
		if sd.DistinctID == "" {
			now := s.now().UTC()
			sd.DistinctID = uuid.NewString()
			sd.CreatedAt = now
			sd.UpdatedAt = now
			sd.CSRFToken = newCSRFToken()
			sd.dirty = true
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)

		rw := NewResponseRecorder(w)
		// the cookie must go out with the headers
		rw.SetBeforeWrite(func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				s.write(w, sd)
			}
		})
		next.ServeHTTP(rw, r.WithContext(ctx))
		if !rw.Wrote() && (sd.dirty || !fromCookie) {
			s.write(w, sd)
		}
	})
}

// GetSession returns session data from context
func GetSession(r *http.Request) *SessionData {
	return SessionFromContext(r.Context())
}

// SessionFromContext returns the session stored by Sessions.Middleware, or an
// empty detached session.
func SessionFromContext(ctx context.Context) *SessionData {
	if sd, ok := ctx.Value(ctxKeySession).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

// MarkDirty flags the session for writing at end of request
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

// LastExposure returns the variant last exposed for experiment.
func (s *SessionData) LastExposure(experiment string) (string, bool) {
	v, ok := s.Exposures[experiment]
	return v, ok
}

// RecordExposure remembers that variant was exposed for experiment.
func (s *SessionData) RecordExposure(experiment, variant string) {
	if s.Exposures == nil {
		s.Exposures = map[string]string{}
	}
	if _, ok := s.Exposures[experiment]; !ok && len(s.Exposures) >= maxExposures {
		return
	}
	s.Exposures[experiment] = variant
	s.MarkDirty()
}

// SetHandoff stores the app handoff for the success page.
func (s *SessionData) SetHandoff(h Handoff) {
	s.Handoff = &h
	s.MarkDirty()
}

// TakeHandoff returns and clears the stored handoff.
func (s *SessionData) TakeHandoff() (Handoff, bool) {
	if s.Handoff == nil {
		return Handoff{}, false
	}
	h := *s.Handoff
	s.Handoff = nil
	s.MarkDirty()
	return h, true
}

// Reset starts a new anonymous identity: a fresh distinct id and CSRF token
// and an empty exposure ledger.
func (s *SessionData) Reset() {
	s.DistinctID = uuid.NewString()
	s.CSRFToken = newCSRFToken()
	s.Exposures = nil
	s.Handoff = nil
	s.MarkDirty()
}

// read parses and verifies the session cookie
func (s *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	parts := strings.Split(c.Value, ".")
	if len(parts) != 2 {
		return &SessionData{}, false
	}
	payloadB, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return &SessionData{}, false
	}
	sigB, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return &SessionData{}, false
	}
	if !hmac.Equal(sigB, s.sign(payloadB)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payloadB, &sd); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (s *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	b, _ := json.Marshal(sd)
	val := base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(s.sign(b))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(sessionTTL),
	})
}

func (s *Sessions) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
