package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/accounts"
	handlersPkg "github.com/getwowai/showcase/internal/handlers"
	mw "github.com/getwowai/showcase/internal/middleware"
	"github.com/getwowai/showcase/internal/nav"
	"github.com/getwowai/showcase/internal/platform/requestctx"
	"github.com/getwowai/showcase/internal/seo"
	"github.com/getwowai/showcase/internal/signup"
	"github.com/getwowai/showcase/internal/tracking"
)

// formPath is the route, after the locale segment, serving kind's form.
func formPath(kind signup.Kind) string {
	if kind == signup.KindWebinar {
		return "/webinar"
	}
	return "/signup"
}

// pageName is the template under templates/pages rendering kind's form.
func pageName(kind signup.Kind) string {
	if kind == signup.KindWebinar {
		return "webinar"
	}
	return "signup"
}

// formPageData builds the page view model around a form.
func (a *App) formPageData(r *http.Request, kind signup.Kind, params signup.Params, touched map[signup.Field]bool) handlersPkg.PageData {
	l := mw.LocaleFromContext(r.Context())
	meta := seo.Page{
		Title:       a.t(l, "meta.signup.title"),
		Description: a.t(l, "meta.signup.description"),
		Path:        formPath(kind),
	}
	if kind == signup.KindWebinar {
		meta.Title = a.t(l, "meta.webinar.title")
		meta.Description = a.t(l, "meta.webinar.description")
	}
	data := a.newPage(r, pageName(kind), meta)
	if kind == signup.KindWebinar {
		data.SEO = data.SEO.WithJSONLD(seo.OnlineEvent(
			a.t(l, "webinar.title"),
			a.t(l, "webinar.subtitle"),
			a.site.URL(l, "/webinar"),
			a.cfg.Webinar.StartsAt,
			a.site.Name,
		))
	}

	form := handlersPkg.NewFormData(kind, nav.Href(l, formPath(kind)), params, touched)
	form.SignInURL = a.links.SignIn(signup.Source(kind), l.String())
	if kind == signup.KindWebinar {
		form.WebinarAt = a.webinarAt(l)
	}
	data.Form = form
	return data
}

// FormPageHandler renders the empty signup or webinar form.
func (a *App) FormPageHandler(kind signup.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracking.FromContext(ctx).TrackPageView(ctx, r.URL.Path, map[string]any{"form": string(kind)})
		a.renderPage(w, r, http.StatusOK, pageName(kind), a.formPageData(r, kind, signup.Params{}, nil))
	}
}

// FormValidateHandler re-validates the posted fields and returns the field
// errors and submit button state as an htmx fragment.
func (a *App) FormValidateHandler(kind signup.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		data := a.formPageData(r, kind, signup.ParamsFromForm(r.PostForm), signup.Touched(r.PostForm))
		a.renderFragment(w, r, http.StatusOK, "frag_signup_status", data)
	}
}

// FormSubmitHandler runs the submit flow. Success and existing users leave
// the page; anything else re-renders the form with every error visible.
func (a *App) FormSubmitHandler(kind signup.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		params := signup.ParamsFromForm(r.PostForm)
		sub := a.signup.Submit(ctx, kind, params, tracking.FromContext(ctx))

		switch sub.Outcome {
		case signup.OutcomeSuccess:
			mw.GetSession(r).SetHandoff(mw.Handoff{
				Param:  sub.Account.HandoffParam,
				Token:  sub.Account.HandoffToken,
				Source: string(signup.Source(kind)),
			})
			mw.Redirect(w, r, sub.RedirectURL)
			return
		case signup.OutcomeExistingUser:
			mw.Redirect(w, r, sub.RedirectURL)
			return
		}

		requestctx.Logger(ctx).Debug("signup: form re-rendered",
			zap.String("form", string(kind)),
			zap.String("outcome", string(sub.Outcome)),
		)
		data := a.formPageData(r, kind, params, signup.Touched(r.PostForm))
		data.Form.ShowAll = true
		if sub.Toast() {
			data.Form.Toast = toastKey(sub.ErrorKind)
		}

		if mw.IsHTMX(ctx) {
			a.renderFragment(w, r, http.StatusOK, "frag_signup_form", data)
			return
		}
		status := http.StatusOK
		if sub.Outcome == signup.OutcomeInvalid {
			status = http.StatusUnprocessableEntity
		}
		a.renderPage(w, r, status, pageName(kind), data)
	}
}

// toastKey maps a failure kind to its toast message.
func toastKey(kind accounts.Kind) string {
	switch kind {
	case accounts.KindPassword, accounts.KindEmail, accounts.KindValidation:
		return "signup.toast." + string(kind)
	default:
		return "signup.toast." + string(accounts.KindUnknown)
	}
}
