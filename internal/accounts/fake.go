package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory provider for local development and tests. Emails
// containing "exists@" are treated as already registered.
type Fake struct {
	mu    sync.Mutex
	users map[string]string
}

// NewFake returns an empty Fake provider.
func NewFake() *Fake {
	return &Fake{users: map[string]string{}}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) CreateAccount(_ context.Context, req CreateRequest) (Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < 8 {
		return Account{}, &Error{Kind: KindPassword, Code: "form_password_length_too_short", Message: "password is too short"}
	}
	if !strings.Contains(email, "@") {
		return Account{}, &Error{Kind: KindEmail, Code: "form_param_format_invalid", Message: "email address is invalid"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok || strings.Contains(email, "exists@") {
		return Account{}, &Error{Kind: KindUserExists, Code: "form_identifier_exists", Message: "You're already signed up"}
	}
	id := "user_" + uuid.NewString()
	f.users[email] = id
	return Account{UserID: id, Status: StatusComplete, HandoffToken: "fake_" + uuid.NewString(), HandoffParam: "ticket"}, nil
}
