// Package signup validates and submits the standard and webinar sign-up forms.
package signup

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Kind selects the form variant.
type Kind string

const (
	KindStandard Kind = "standard"
	KindWebinar  Kind = "webinar"
)

// ParseKind maps a form name to a Kind, defaulting to KindStandard.
func ParseKind(raw string) Kind {
	if Kind(raw) == KindWebinar {
		return KindWebinar
	}
	return KindStandard
}

// Field names match the posted form keys.
type Field string

const (
	FieldEmail     Field = "email"
	FieldName      Field = "name"
	FieldStoreName Field = "storeName"
	FieldPhone     Field = "phoneNumber"
	FieldPassword  Field = "password"
	FieldPlatform  Field = "platform"
	FieldAvgOrders Field = "avgOrders"
)

// Error codes; templates render them as signup.error.<code>.
const (
	ErrRequired         = "required"
	ErrEmailInvalid     = "email_invalid"
	ErrPasswordShort    = "password_short"
	ErrPhoneCountryCode = "phone_country_code"
	ErrPhoneInvalid     = "phone_invalid"
)

const minPasswordLength = 8

// Platforms lists the selectable store platforms.
var Platforms = []string{"shopify", "salla", "zid", "woocommerce", "other"}

// AvgOrderBands lists the selectable monthly order volumes on the webinar form.
var AvgOrderBands = []string{"lt_100", "100_500", "500_2000", "gt_2000"}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+\d{9,15}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "\t", "", " ", "")
)

// Params is the posted form state.
type Params struct {
	Email       string
	Name        string
	StoreName   string
	PhoneNumber string
	Password    string
	Platform    string
	AvgOrders   string
}

// ParamsFromForm reads Params from posted form values.
func ParamsFromForm(form url.Values) Params {
	return Params{
		Email:       strings.TrimSpace(form.Get(string(FieldEmail))),
		Name:        strings.TrimSpace(form.Get(string(FieldName))),
		StoreName:   strings.TrimSpace(form.Get(string(FieldStoreName))),
		PhoneNumber: strings.TrimSpace(form.Get(string(FieldPhone))),
		Password:    form.Get(string(FieldPassword)),
		Platform:    strings.TrimSpace(form.Get(string(FieldPlatform))),
		AvgOrders:   strings.TrimSpace(form.Get(string(FieldAvgOrders))),
	}
}

// Touched reads the fields the visitor has interacted with. The form keeps
// them in repeated "touched" inputs.
func Touched(form url.Values) map[Field]bool {
	out := map[Field]bool{}
	for _, raw := range form["touched"] {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out[Field(name)] = true
			}
		}
	}
	return out
}

// Fields lists the fields of a form kind in display order.
func Fields(kind Kind) []Field {
	fields := []Field{FieldName, FieldEmail, FieldPhone, FieldStoreName, FieldPlatform}
	if kind == KindWebinar {
		fields = append(fields, FieldAvgOrders)
	}
	return append(fields, FieldPassword)
}

// Result is the outcome of validating a form.
type Result struct {
	Valid       bool
	FieldErrors map[Field]string
	// Missing lists invalid fields in display order.
	Missing []Field
}

// Error returns the error code for f, or "".
func (r Result) Error(f Field) string { return r.FieldErrors[f] }

// Validate checks every field of kind. It has no side effects.
func Validate(kind Kind, p Params) Result {
	errs := map[Field]string{}

	switch {
	case strings.TrimSpace(p.Email) == "":
		errs[FieldEmail] = ErrRequired
	case !IsEmailValid(p.Email):
		errs[FieldEmail] = ErrEmailInvalid
	}
	if p.Password == "" {
		errs[FieldPassword] = ErrRequired
	} else if len([]rune(p.Password)) < minPasswordLength {
		errs[FieldPassword] = ErrPasswordShort
	}
	if strings.TrimSpace(p.PhoneNumber) == "" {
		errs[FieldPhone] = ErrRequired
	} else if code := PhoneError(p.PhoneNumber); code != "" {
		errs[FieldPhone] = code
	}
	if strings.TrimSpace(p.Name) == "" {
		errs[FieldName] = ErrRequired
	}
	if strings.TrimSpace(p.StoreName) == "" {
		errs[FieldStoreName] = ErrRequired
	}
	if !contains(Platforms, p.Platform) {
		errs[FieldPlatform] = ErrRequired
	}
	if kind == KindWebinar && !contains(AvgOrderBands, p.AvgOrders) {
		errs[FieldAvgOrders] = ErrRequired
	}

	res := Result{Valid: len(errs) == 0, FieldErrors: errs}
	for _, f := range Fields(kind) {
		if _, bad := errs[f]; bad {
			res.Missing = append(res.Missing, f)
		}
	}
	return res
}

// IsEmailValid reports whether email has a plausible address shape.
func IsEmailValid(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizePhone strips whitespace and hyphens, keeping digits and the
// leading +.
func NormalizePhone(phone string) string {
	return phoneStrip.Replace(strings.TrimSpace(phone))
}

// IsPhoneNumberValid reports whether phone is + followed by 9 to 15 digits
// after normalisation.
func IsPhoneNumberValid(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}

// PhoneError returns the error code for phone, or "" when it is valid.
func PhoneError(phone string) string {
	normalized := NormalizePhone(phone)
	if !strings.HasPrefix(normalized, "+") {
		return ErrPhoneCountryCode
	}
	if !phonePattern.MatchString(normalized) {
		return ErrPhoneInvalid
	}
	return ""
}

// CountryCode extracts the calling code ("+966") from a valid phone number.
func CountryCode(phone string) string {
	normalized := NormalizePhone(phone)
	if !strings.HasPrefix(normalized, "+") {
		return ""
	}
	num, err := phonenumbers.Parse(normalized, "")
	if err != nil || num.GetCountryCode() == 0 {
		return ""
	}
	return "+" + strconv.Itoa(int(num.GetCountryCode()))
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
