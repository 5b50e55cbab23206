// Package accounts creates user accounts with the configured auth provider and
// classifies provider failures into a fixed set of kinds.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// StatusComplete marks an account that can be handed off to the app.
const StatusComplete = "complete"

// Kind classifies a failed account creation.
type Kind string

const (
	KindUserExists Kind = "user_already_exists"
	KindPassword   Kind = "password_error"
	KindEmail      Kind = "email_error"
	KindValidation Kind = "validation_error"
	KindUnknown    Kind = "unknown"
)

// ErrNotConfigured is returned when no provider is available.
var ErrNotConfigured = errors.New("accounts: provider not configured")

// CreateRequest carries the sign-up details sent to the provider.
type CreateRequest struct {
	Email          string
	Password       string
	Name           string
	Phone          string
	UnsafeMetadata map[string]any
}

// Account is the provider's view of a created user.
type Account struct {
	UserID string
	Status string
	// HandoffToken lets the app establish a session for the new user. The
	// app reads it from the HandoffParam query parameter.
	HandoffToken string
	HandoffParam string
}

// Complete reports whether the account can be handed off to the app.
func (a Account) Complete() bool {
	return a.Status == StatusComplete && a.HandoffToken != ""
}

// Provider creates accounts.
type Provider interface {
	Name() string
	CreateAccount(ctx context.Context, req CreateRequest) (Account, error)
}

// Error is a classified provider failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("accounts: %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("accounts: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var accErr *Error
	if errors.As(err, &accErr) {
		return accErr.Kind
	}
	return KindUnknown
}

// classifyMessage is the last-resort mapping for providers that only return
// free text.
func classifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "already signed"),
		strings.Contains(lower, "already exists"),
		strings.Contains(lower, "is taken"):
		return KindUserExists
	case strings.Contains(lower, "password"):
		return KindPassword
	case strings.Contains(lower, "email"):
		return KindEmail
	default:
		return KindUnknown
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
