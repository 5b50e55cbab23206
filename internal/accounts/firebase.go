package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const defaultFirebaseTimeout = 10 * time.Second

type firebaseAuthAPI interface {
	CreateUser(ctx context.Context, user *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error)
	SetCustomUserClaims(ctx context.Context, uid string, claims map[string]interface{}) error
	CustomToken(ctx context.Context, uid string) (string, error)
}

// Firebase creates users with the Firebase Admin SDK and hands off with a
// custom token.
type Firebase struct {
	client  firebaseAuthAPI
	timeout time.Duration
}

// FirebaseOption customises Firebase instances.
type FirebaseOption func(*Firebase)

// WithFirebaseTimeout overrides the timeout used for Admin SDK calls.
func WithFirebaseTimeout(d time.Duration) FirebaseOption {
	return func(f *Firebase) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFirebase constructs a Firebase provider backed by the Admin SDK.
func NewFirebase(ctx context.Context, projectID, credentialsFile string, opts ...FirebaseOption) (*Firebase, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return newFirebaseWithClient(authClient, opts...), nil
}

func newFirebaseWithClient(client firebaseAuthAPI, opts ...FirebaseOption) *Firebase {
	f := &Firebase{client: client, timeout: defaultFirebaseTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *Firebase) Name() string { return "firebase" }

// CreateAccount creates the user, stores the sign-up metadata as custom
// claims and mints a custom token for the app.
func (f *Firebase) CreateAccount(ctx context.Context, req CreateRequest) (Account, error) {
	if f == nil || f.client == nil {
		return Account{}, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	user := (&firebaseauth.UserToCreate{}).
		Email(req.Email).
		Password(req.Password)
	if req.Name != "" {
		user = user.DisplayName(req.Name)
	}
	if req.Phone != "" {
		user = user.PhoneNumber(req.Phone)
	}

	record, err := f.client.CreateUser(ctx, user)
	if err != nil {
		return Account{}, classifyFirebase(err)
	}

	if len(req.UnsafeMetadata) > 0 {
		if err := f.client.SetCustomUserClaims(ctx, record.UID, req.UnsafeMetadata); err != nil {
			return Account{UserID: record.UID}, &Error{Kind: KindUnknown, Message: "set custom claims", Err: err}
		}
	}

	token, err := f.client.CustomToken(ctx, record.UID)
	if err != nil {
		return Account{UserID: record.UID}, &Error{Kind: KindUnknown, Message: "mint custom token", Err: err}
	}
	return Account{UserID: record.UID, Status: StatusComplete, HandoffToken: token, HandoffParam: "custom_token"}, nil
}

func classifyFirebase(err error) *Error {
	out := &Error{Message: err.Error(), Err: err}
	switch {
	case firebaseauth.IsEmailAlreadyExists(err):
		out.Kind = KindUserExists
		out.Code = "email-already-exists"
	case firebaseauth.IsPhoneNumberAlreadyExists(err):
		out.Kind = KindValidation
		out.Code = "phone-number-already-exists"
	default:
		// Admin SDK argument checks ("malformed email string", "password
		// must be a string at least 6 characters long") carry no code.
		out.Kind = classifyMessage(err.Error())
		if out.Kind == KindUnknown && errors.Is(err, context.DeadlineExceeded) {
			out.Code = "timeout"
		}
	}
	return out
}
