package signup

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/accounts"
	"github.com/getwowai/showcase/internal/analytics"
	"github.com/getwowai/showcase/internal/errorreport"
	"github.com/getwowai/showcase/internal/links"
	"github.com/getwowai/showcase/internal/platform/observability"
	"github.com/getwowai/showcase/internal/tracking"
	"github.com/getwowai/showcase/internal/webinar"
)

const defaultRegistrationTimeout = 10 * time.Second

// Outcome is the terminal state of a submission.
type Outcome string

const (
	OutcomeInvalid      Outcome = "invalid"
	OutcomeSuccess      Outcome = "success"
	OutcomeExistingUser Outcome = "existing_user"
	OutcomeError        Outcome = "error"
)

// Registrar records webinar registrations.
type Registrar interface {
	Register(ctx context.Context, reg webinar.Registration) error
}

// Submission is what the handler needs to render or redirect.
type Submission struct {
	Outcome    Outcome
	Validation Result
	// RedirectURL is set for OutcomeSuccess and OutcomeExistingUser.
	RedirectURL string
	// ErrorKind is set for OutcomeError and OutcomeExistingUser.
	ErrorKind accounts.Kind
	Account   accounts.Account
}

// Toast reports whether the outcome shows a dismissible error toast.
func (s Submission) Toast() bool { return s.Outcome == OutcomeError }

// Deps wires a Service.
type Deps struct {
	Provider  accounts.Provider
	Reporter  errorreport.Reporter
	Registrar Registrar
	Links     links.Builder
	Logger    *zap.Logger
	// WebinarAt is attached to webinar registrations.
	WebinarAt           time.Time
	RegistrationTimeout time.Duration
}

// Service runs the submit flow shared by the standard and webinar forms.
type Service struct {
	provider  accounts.Provider
	reporter  errorreport.Reporter
	registrar Registrar
	links     links.Builder
	logger    *zap.Logger
	webinarAt time.Time
	regTTL    time.Duration

	// async runs best-effort background work; tests make it synchronous.
	async func(func())
}

// NewService constructs a Service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reporter := deps.Reporter
	if reporter == nil {
		reporter = errorreport.Log{Logger: logger}
	}
	ttl := deps.RegistrationTimeout
	if ttl <= 0 {
		ttl = defaultRegistrationTimeout
	}
	return &Service{
		provider:  deps.Provider,
		reporter:  reporter,
		registrar: deps.Registrar,
		links:     deps.Links,
		logger:    logger,
		webinarAt: deps.WebinarAt,
		regTTL:    ttl,
		async:     func(fn func()) { go fn() },
	}
}

// Submit validates p and, when valid, creates the account.
func (s *Service) Submit(ctx context.Context, kind Kind, p Params, tracker *tracking.Tracker) Submission {
	res := Validate(kind, p)
	if !res.Valid {
		s.count(kind, OutcomeInvalid)
		return Submission{Outcome: OutcomeInvalid, Validation: res}
	}

	locale := tracker.Locale().String()
	phone := NormalizePhone(p.PhoneNumber)
	countryCode := CountryCode(phone)

	tracker.TrackEvent(ctx, analytics.EventSignupAttempt, map[string]any{
		"form":           string(kind),
		"platform":       p.Platform,
		"has_name":       p.Name != "",
		"has_store_name": p.StoreName != "",
		"has_phone":      phone != "",
		"country_code":   countryCode,
	})

	metadata := map[string]any{
		"storeName":   p.StoreName,
		"platform":    p.Platform,
		"phoneNumber": phone,
		"locale":      locale,
		"source":      string(Source(kind)),
	}
	if kind == KindWebinar {
		metadata["avgOrders"] = p.AvgOrders
	}

	acct, err := s.createAccount(ctx, accounts.CreateRequest{
		Email:          p.Email,
		Password:       p.Password,
		Name:           p.Name,
		Phone:          phone,
		UnsafeMetadata: metadata,
	})
	if err == nil {
		tracker.TrackConversion(ctx, analytics.EventSignupSuccess, map[string]any{
			"form":     string(kind),
			"platform": p.Platform,
		})
		if kind == KindWebinar {
			s.register(ctx, p, phone, tracker)
		}
		s.count(kind, OutcomeSuccess)
		return Submission{
			Outcome:     OutcomeSuccess,
			Validation:  res,
			RedirectURL: links.Success(locale),
			Account:     acct,
		}
	}

	errKind := accounts.KindOf(err)
	tracker.TrackEvent(ctx, analytics.EventSignupFailed, map[string]any{
		"form":       string(kind),
		"platform":   p.Platform,
		"error_type": string(errKind),
	})
	s.reporter.Capture(ctx, err, map[string]string{
		"error_type": string(errKind),
		"form":       string(kind),
		"locale":     locale,
		"provider":   s.providerName(),
	}, map[string]any{
		"platform":     p.Platform,
		"country_code": countryCode,
	})

	if errKind == accounts.KindUserExists {
		if kind == KindWebinar {
			s.register(ctx, p, phone, tracker)
		}
		s.count(kind, OutcomeExistingUser)
		return Submission{
			Outcome:     OutcomeExistingUser,
			Validation:  res,
			RedirectURL: s.links.SignIn(Source(kind), locale),
			ErrorKind:   errKind,
		}
	}

	s.logger.Warn("signup: account creation failed",
		zap.String("form", string(kind)),
		zap.String("error_type", string(errKind)),
		zap.Error(err),
	)
	s.count(kind, OutcomeError)
	return Submission{Outcome: OutcomeError, Validation: res, ErrorKind: errKind}
}

func (s *Service) createAccount(ctx context.Context, req accounts.CreateRequest) (accounts.Account, error) {
	if s.provider == nil {
		return accounts.Account{}, accounts.ErrNotConfigured
	}
	acct, err := s.provider.CreateAccount(ctx, req)
	if err != nil {
		return acct, err
	}
	if !acct.Complete() {
		return acct, &accounts.Error{
			Kind:    accounts.KindUnknown,
			Message: "account created without a session handoff",
			Err:     errors.New("incomplete signup"),
		}
	}
	return acct, nil
}

// register posts the webinar registration on a detached goroutine so the
// redirect never waits on it.
func (s *Service) register(ctx context.Context, p Params, phone string, tracker *tracking.Tracker) {
	if s.registrar == nil {
		return
	}
	reg := webinar.Registration{
		Email:      p.Email,
		Name:       p.Name,
		StoreName:  p.StoreName,
		Phone:      phone,
		Platform:   p.Platform,
		AvgOrders:  p.AvgOrders,
		Locale:     tracker.Locale().String(),
		WebinarAt:  s.webinarAt,
		DistinctID: tracker.DistinctID(),
	}
	detached := context.WithoutCancel(ctx)
	s.async(func() {
		regCtx, cancel := context.WithTimeout(detached, s.regTTL)
		defer cancel()
		if err := s.registrar.Register(regCtx, reg); err != nil {
			s.logger.Warn("signup: webinar registration failed", zap.Error(err))
			s.reporter.Capture(regCtx, err, map[string]string{
				"form":   string(KindWebinar),
				"stage":  "webinar_registration",
				"locale": reg.Locale,
			}, nil)
			return
		}
		tracker.TrackEvent(regCtx, analytics.EventWebinarRegistered, map[string]any{
			"platform":   p.Platform,
			"avg_orders": p.AvgOrders,
		})
	})
}

func (s *Service) providerName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

func (s *Service) count(kind Kind, outcome Outcome) {
	observability.SignupOutcomes.WithLabelValues(string(kind), string(outcome)).Inc()
}

// Source is the UTM source for links built from a kind's form.
func Source(kind Kind) links.Source {
	if kind == KindWebinar {
		return links.SourceWebinar
	}
	return links.SourceShowcase
}
