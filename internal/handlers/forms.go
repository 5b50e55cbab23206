package handlers

import (
	"github.com/getwowai/showcase/internal/signup"
)

// FormData is the view model for the signup and webinar forms.
type FormData struct {
	Kind           signup.Kind
	Action         string
	ValidateAction string
	Params         signup.Params
	Validation     signup.Result
	Touched        map[signup.Field]bool
	// ShowAll surfaces every field error, e.g. after a rejected submit.
	ShowAll bool
	// Toast is the message key of a dismissible submission error.
	Toast     string
	WebinarAt string
	SignInURL string
}

// NewFormData validates params and builds the form view model.
func NewFormData(kind signup.Kind, action string, params signup.Params, touched map[signup.Field]bool) *FormData {
	if touched == nil {
		touched = map[signup.Field]bool{}
	}
	return &FormData{
		Kind:           kind,
		Action:         action,
		ValidateAction: action + "/validate",
		Params:         params,
		Validation:     signup.Validate(kind, params),
		Touched:        touched,
	}
}

// IsWebinar reports whether the form collects the webinar-only fields.
func (f *FormData) IsWebinar() bool { return f.Kind == signup.KindWebinar }

// Disabled reports whether submit is blocked.
func (f *FormData) Disabled() bool { return !f.Validation.Valid }

// FieldError returns the message key for a visible field error, or "".
func (f *FormData) FieldError(name string) string {
	field := signup.Field(name)
	if !f.ShowAll && !f.Touched[field] {
		return ""
	}
	if code := f.Validation.Error(field); code != "" {
		return "signup.error." + code
	}
	return ""
}

// MissingKeys returns the label keys of invalid fields for the tooltip.
func (f *FormData) MissingKeys() []string {
	out := make([]string, 0, len(f.Validation.Missing))
	for _, field := range f.Validation.Missing {
		out = append(out, FieldLabelKey(field))
	}
	return out
}

// TouchedList returns touched field names for the hidden input.
func (f *FormData) TouchedList() []string {
	out := make([]string, 0, len(f.Touched))
	for _, field := range signup.Fields(f.Kind) {
		if f.Touched[field] {
			out = append(out, string(field))
		}
	}
	return out
}

// FieldNames lists the form's field names in display order.
func (f *FormData) FieldNames() []string {
	fields := signup.Fields(f.Kind)
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = string(field)
	}
	return out
}

// SubmitKey is the submit button label.
func (f *FormData) SubmitKey() string {
	if f.IsWebinar() {
		return "webinar.submit"
	}
	return "signup.submit"
}

// Platforms lists the platform option values.
func (f *FormData) Platforms() []string { return signup.Platforms }

// AvgOrderBands lists the monthly order option values.
func (f *FormData) AvgOrderBands() []string { return signup.AvgOrderBands }

// FieldLabelKey maps a field to its label message key.
func FieldLabelKey(field signup.Field) string {
	switch field {
	case signup.FieldStoreName:
		return "signup.field.store_name"
	case signup.FieldPhone:
		return "signup.field.phone"
	case signup.FieldAvgOrders:
		return "signup.field.avg_orders"
	default:
		return "signup.field." + string(field)
	}
}
