package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultClerkTimeout   = 10 * time.Second
	signInTokenTTLSeconds = 600
)

// Clerk creates users through the Clerk Backend API and issues a sign-in
// token the app redeems to start the user's first session.
type Clerk struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewClerk constructs a Clerk provider. baseURL is the Backend API root,
// e.g. https://api.clerk.com/v1.
func NewClerk(baseURL, secretKey string, timeout time.Duration) *Clerk {
	if timeout <= 0 {
		timeout = defaultClerkTimeout
	}
	return &Clerk{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secretKey: strings.TrimSpace(secretKey),
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Clerk) Name() string { return "clerk" }

type clerkCreateUser struct {
	EmailAddress   []string       `json:"email_address"`
	PhoneNumber    []string       `json:"phone_number,omitempty"`
	Password       string         `json:"password"`
	FirstName      string         `json:"first_name,omitempty"`
	LastName       string         `json:"last_name,omitempty"`
	UnsafeMetadata map[string]any `json:"unsafe_metadata,omitempty"`
}

type clerkUser struct {
	ID string `json:"id"`
}

type clerkSignInToken struct {
	Token  string `json:"token"`
	Status string `json:"status"`
}

type clerkErrorPayload struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
		Meta        struct {
			ParamName string `json:"param_name"`
		} `json:"meta"`
	} `json:"errors"`
}

// CreateAccount creates the user and a sign-in token for the handoff.
func (c *Clerk) CreateAccount(ctx context.Context, req CreateRequest) (Account, error) {
	if c == nil || c.baseURL == "" || c.secretKey == "" {
		return Account{}, ErrNotConfigured
	}

	first, last := splitName(req.Name)
	body := clerkCreateUser{
		EmailAddress:   []string{req.Email},
		Password:       req.Password,
		FirstName:      first,
		LastName:       last,
		UnsafeMetadata: req.UnsafeMetadata,
	}
	if req.Phone != "" {
		body.PhoneNumber = []string{req.Phone}
	}

	var user clerkUser
	if err := c.post(ctx, "users", body, &user); err != nil {
		return Account{}, err
	}

	var token clerkSignInToken
	if err := c.post(ctx, "sign_in_tokens", map[string]any{
		"user_id":            user.ID,
		"expires_in_seconds": signInTokenTTLSeconds,
	}, &token); err != nil {
		return Account{UserID: user.ID}, err
	}

	return Account{UserID: user.ID, Status: StatusComplete, HandoffToken: token.Token, HandoffParam: "__clerk_ticket"}, nil
}

func (c *Clerk) post(ctx context.Context, path string, body any, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &Error{Kind: KindUnknown, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &Error{Kind: KindUnknown, Message: "read response", Err: err}
	}
	if resp.StatusCode >= 400 {
		return classifyClerk(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindUnknown, Message: "decode response", Err: err}
	}
	return nil
}

// classifyClerk maps a Clerk error response onto a Kind. Error codes are
// authoritative; the message is consulted only for codes not listed here.
func classifyClerk(status int, raw []byte) *Error {
	var payload clerkErrorPayload
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Errors) == 0 {
		return &Error{Kind: KindUnknown, Message: fmt.Sprintf("status %d", status)}
	}
	first := payload.Errors[0]
	message := first.LongMessage
	if message == "" {
		message = first.Message
	}
	out := &Error{Code: first.Code, Message: message}

	switch first.Code {
	case "form_identifier_exists", "identifier_already_signed_in", "user_exists":
		out.Kind = KindUserExists
	case "form_password_pwned", "form_password_length_too_short", "form_password_not_strong_enough",
		"form_password_validation_failed", "form_password_size_in_bytes_exceeded":
		out.Kind = KindPassword
	case "form_param_format_invalid", "form_param_missing", "form_param_unknown", "form_data_missing":
		switch first.Meta.ParamName {
		case "email_address":
			out.Kind = KindEmail
		case "password":
			out.Kind = KindPassword
		default:
			out.Kind = KindValidation
		}
	case "form_identifier_not_found", "form_param_nil":
		out.Kind = KindValidation
	default:
		out.Kind = classifyMessage(message)
		if out.Kind == KindUnknown && status == http.StatusUnprocessableEntity {
			out.Kind = KindValidation
		}
	}
	return out
}
