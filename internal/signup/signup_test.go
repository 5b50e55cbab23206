package signup

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/getwowai/showcase/internal/accounts"
	"github.com/getwowai/showcase/internal/analytics"
	"github.com/getwowai/showcase/internal/analytics/analyticstest"
	"github.com/getwowai/showcase/internal/i18n"
	"github.com/getwowai/showcase/internal/links"
	"github.com/getwowai/showcase/internal/tracking"
	"github.com/getwowai/showcase/internal/webinar"
)

func TestIsPhoneNumberValid(t *testing.T) {
	assert.True(t, IsPhoneNumberValid("+12345678901"))
	assert.False(t, IsPhoneNumberValid("12345678901"))
	assert.False(t, IsPhoneNumberValid("+123"))
	assert.False(t, IsPhoneNumberValid("+1234567890123456"))
	assert.Equal(t, IsPhoneNumberValid("+12345678901"), IsPhoneNumberValid("+1 234-567-8901"))
	assert.Equal(t, "+12345678901", NormalizePhone(" +1 234-567-8901 "))
}

func TestPhoneError(t *testing.T) {
	assert.Equal(t, ErrPhoneCountryCode, PhoneError("0501234567"))
	assert.Equal(t, ErrPhoneInvalid, PhoneError("+123"))
	assert.Equal(t, ErrPhoneInvalid, PhoneError("+9665O1234567"))
	assert.Empty(t, PhoneError("+966 50-123-4567"))
}

func TestCountryCode(t *testing.T) {
	assert.Equal(t, "+966", CountryCode("+966 50 123 4567"))
	assert.Equal(t, "+971", CountryCode("+971501234567"))
	assert.Empty(t, CountryCode("0501234567"))
}

func TestIsEmailValid(t *testing.T) {
	assert.False(t, IsEmailValid("not-an-email"))
	assert.False(t, IsEmailValid("a@b"))
	assert.True(t, IsEmailValid("a@b.co"))
}

func validParams() Params {
	return Params{
		Email:       "sara@store.sa",
		Name:        "Sara",
		StoreName:   "Sara Store",
		PhoneNumber: "+966 50 123 4567",
		Password:    "correct-horse",
		Platform:    "salla",
	}
}

func TestValidateTogglesWithEachRequiredField(t *testing.T) {
	require.True(t, Validate(KindStandard, validParams()).Valid)

	breakers := map[Field]func(*Params){
		FieldEmail:     func(p *Params) { p.Email = "not-an-email" },
		FieldPassword:  func(p *Params) { p.Password = "short" },
		FieldName:      func(p *Params) { p.Name = " " },
		FieldStoreName: func(p *Params) { p.StoreName = "" },
		FieldPhone:     func(p *Params) { p.PhoneNumber = "501234567" },
		FieldPlatform:  func(p *Params) { p.Platform = "" },
	}
	for field, breakField := range breakers {
		t.Run(string(field), func(t *testing.T) {
			p := validParams()
			breakField(&p)
			res := Validate(KindStandard, p)
			assert.False(t, res.Valid)
			assert.Equal(t, []Field{field}, res.Missing)
			assert.NotEmpty(t, res.Error(field))

			// Fixing the field re-enables submission.
			assert.True(t, Validate(KindStandard, validParams()).Valid)
		})
	}
}

func TestValidateErrorCodes(t *testing.T) {
	res := Validate(KindStandard, Params{Email: "nope", Password: "1234", PhoneNumber: "0501234567"})
	assert.Equal(t, ErrEmailInvalid, res.Error(FieldEmail))
	assert.Equal(t, ErrPasswordShort, res.Error(FieldPassword))
	assert.Equal(t, ErrPhoneCountryCode, res.Error(FieldPhone))
	assert.Equal(t, ErrRequired, res.Error(FieldName))
	assert.Equal(t, []Field{FieldName, FieldEmail, FieldPhone, FieldStoreName, FieldPlatform, FieldPassword}, res.Missing)
}

func TestValidatePasswordChecksLengthOnly(t *testing.T) {
	p := validParams()
	p.Password = "        "
	assert.Empty(t, Validate(KindStandard, p).Error(FieldPassword))

	p.Password = "       "
	assert.Equal(t, ErrPasswordShort, Validate(KindStandard, p).Error(FieldPassword))

	p.Password = ""
	assert.Equal(t, ErrRequired, Validate(KindStandard, p).Error(FieldPassword))
}

func TestValidateWebinarRequiresAvgOrders(t *testing.T) {
	p := validParams()
	res := Validate(KindWebinar, p)
	assert.False(t, res.Valid)
	assert.Equal(t, []Field{FieldAvgOrders}, res.Missing)

	p.AvgOrders = "100_500"
	assert.True(t, Validate(KindWebinar, p).Valid)
}

func TestParamsFromFormAndTouched(t *testing.T) {
	form := url.Values{
		"email":       {" sara@store.sa "},
		"phoneNumber": {"+966501234567"},
		"password":    {" spaced password "},
		"touched":     {"email,phoneNumber", "password"},
	}
	p := ParamsFromForm(form)
	assert.Equal(t, "sara@store.sa", p.Email)
	assert.Equal(t, " spaced password ", p.Password)
	assert.Equal(t, map[Field]bool{FieldEmail: true, FieldPhone: true, FieldPassword: true}, Touched(form))
	assert.Equal(t, KindWebinar, ParseKind("webinar"))
	assert.Equal(t, KindStandard, ParseKind("other"))
}

type captureReporter struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (r *captureReporter) Capture(_ context.Context, err error, tags map[string]string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *captureReporter) Flush(time.Duration) bool { return true }

type fakeRegistrar struct {
	err  error
	regs []webinar.Registration
}

func (f *fakeRegistrar) Register(_ context.Context, reg webinar.Registration) error {
	f.regs = append(f.regs, reg)
	return f.err
}

type stubProvider struct {
	acct accounts.Account
	err  error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) CreateAccount(context.Context, accounts.CreateRequest) (accounts.Account, error) {
	return s.acct, s.err
}

func newTestService(t *testing.T, provider accounts.Provider, registrar Registrar) (*Service, *captureReporter) {
	t.Helper()
	reporter := &captureReporter{}
	svc := NewService(Deps{
		Provider:  provider,
		Reporter:  reporter,
		Registrar: registrar,
		Links:     links.New("https://app.getwow.ai"),
		Logger:    zaptest.NewLogger(t),
		WebinarAt: time.Date(2026, 11, 5, 17, 0, 0, 0, time.UTC),
	})
	svc.async = func(fn func()) { fn() }
	return svc, reporter
}

func TestSubmitSuccessFiresOneSuccessEvent(t *testing.T) {
	rec := analyticstest.NewRecorder()
	tracker := tracking.New(rec.Client(), i18n.AR, "visitor-1")
	svc, reporter := newTestService(t, accounts.NewFake(), nil)

	sub := svc.Submit(context.Background(), KindStandard, validParams(), tracker)

	require.Equal(t, OutcomeSuccess, sub.Outcome)
	assert.Equal(t, "/signup-success?locale=ar", sub.RedirectURL)
	assert.True(t, sub.Account.Complete())
	assert.False(t, sub.Toast())
	assert.Len(t, rec.Named(analytics.EventSignupSuccess), 1)
	assert.Empty(t, reporter.errs)

	attempts := rec.Named(analytics.EventSignupAttempt)
	require.Len(t, attempts, 1)
	props := attempts[0].Properties
	assert.Equal(t, "+966", props["country_code"])
	assert.Equal(t, true, props["has_store_name"])
	assert.Equal(t, "salla", props["platform"])
	assert.Equal(t, "ar", props[analytics.PropLocale])

	success := rec.Named(analytics.EventSignupSuccess)[0]
	assert.Equal(t, true, success.Properties[analytics.PropConversion])
}

func TestSubmitInvalidDoesNotCallProvider(t *testing.T) {
	rec := analyticstest.NewRecorder()
	tracker := tracking.New(rec.Client(), i18n.EN, "visitor-1")
	svc, _ := newTestService(t, stubProvider{err: errors.New("must not be called")}, nil)

	p := validParams()
	p.Email = "not-an-email"
	sub := svc.Submit(context.Background(), KindStandard, p, tracker)

	assert.Equal(t, OutcomeInvalid, sub.Outcome)
	assert.Equal(t, []Field{FieldEmail}, sub.Validation.Missing)
	assert.Empty(t, rec.Events())
}

func TestSubmitExistingUserRedirectsToSignIn(t *testing.T) {
	cases := []struct {
		kind   Kind
		source string
	}{
		{KindStandard, "showcase"},
		{KindWebinar, "webinar"},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			rec := analyticstest.NewRecorder()
			tracker := tracking.New(rec.Client(), i18n.EN, "visitor-1")
			registrar := &fakeRegistrar{}
			svc, reporter := newTestService(t, stubProvider{err: &accounts.Error{
				Kind:    accounts.KindUserExists,
				Message: "You're already signed in",
			}}, registrar)

			p := validParams()
			p.AvgOrders = "lt_100"
			sub := svc.Submit(context.Background(), tc.kind, p, tracker)

			require.Equal(t, OutcomeExistingUser, sub.Outcome)
			assert.False(t, sub.Toast())
			u, err := url.Parse(sub.RedirectURL)
			require.NoError(t, err)
			assert.Equal(t, "app.getwow.ai", u.Host)
			assert.Equal(t, "/sign-in", u.Path)
			assert.Equal(t, tc.source, u.Query().Get("utm_source"))
			assert.Empty(t, rec.Named(analytics.EventSignupSuccess))
			require.Len(t, reporter.errs, 1)
			assert.Equal(t, "user_already_exists", reporter.tags[0]["error_type"])
		})
	}
}

func TestSubmitClassifiedFailureShowsToast(t *testing.T) {
	rec := analyticstest.NewRecorder()
	tracker := tracking.New(rec.Client(), i18n.EN, "visitor-1")
	svc, reporter := newTestService(t, stubProvider{err: &accounts.Error{Kind: accounts.KindPassword, Message: "pwned"}}, nil)

	sub := svc.Submit(context.Background(), KindStandard, validParams(), tracker)

	assert.Equal(t, OutcomeError, sub.Outcome)
	assert.Equal(t, accounts.KindPassword, sub.ErrorKind)
	assert.True(t, sub.Toast())
	failed := rec.Named(analytics.EventSignupFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "password_error", failed[0].Properties["error_type"])
	require.Len(t, reporter.tags, 1)
	assert.Equal(t, "stub", reporter.tags[0]["provider"])
	assert.Equal(t, "standard", reporter.tags[0]["form"])
}

func TestSubmitIncompleteAccountIsUnknownError(t *testing.T) {
	svc, _ := newTestService(t, stubProvider{acct: accounts.Account{UserID: "u1"}}, nil)
	sub := svc.Submit(context.Background(), KindStandard, validParams(), nil)
	assert.Equal(t, OutcomeError, sub.Outcome)
	assert.Equal(t, accounts.KindUnknown, sub.ErrorKind)
}

func TestSubmitWebinarRegistersWithoutBlocking(t *testing.T) {
	rec := analyticstest.NewRecorder()
	tracker := tracking.New(rec.Client(), i18n.EN, "visitor-9")
	registrar := &fakeRegistrar{err: errors.New("form endpoint down")}
	svc, reporter := newTestService(t, accounts.NewFake(), registrar)

	p := validParams()
	p.AvgOrders = "500_2000"
	sub := svc.Submit(context.Background(), KindWebinar, p, tracker)

	require.Equal(t, OutcomeSuccess, sub.Outcome)
	require.Len(t, registrar.regs, 1)
	reg := registrar.regs[0]
	assert.Equal(t, "+966501234567", reg.Phone)
	assert.Equal(t, "500_2000", reg.AvgOrders)
	assert.Equal(t, "visitor-9", reg.DistinctID)
	require.Len(t, reporter.tags, 1)
	assert.Equal(t, "webinar_registration", reporter.tags[0]["stage"])
	assert.Empty(t, rec.Named(analytics.EventWebinarRegistered))
}
