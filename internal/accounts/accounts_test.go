package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clerkServer(t *testing.T, userStatus int, userBody string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/users":
			w.WriteHeader(userStatus)
			_, _ = w.Write([]byte(userBody))
		case "/v1/sign_in_tokens":
			_, _ = w.Write([]byte(`{"token":"tok_123","status":"pending"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestClerkCreateAccountSuccess(t *testing.T) {
	srv, bodies := clerkServer(t, http.StatusOK, `{"id":"user_1"}`)
	clerk := NewClerk(srv.URL+"/v1/", "sk_test", 0)

	acct, err := clerk.CreateAccount(context.Background(), CreateRequest{
		Email:          "a@b.co",
		Password:       "hunter22!",
		Name:           "Sara Al Amri",
		Phone:          "+966501234567",
		UnsafeMetadata: map[string]any{"storeName": "Sara Store", "platform": "salla"},
	})
	require.NoError(t, err)
	assert.True(t, acct.Complete())
	assert.Equal(t, "user_1", acct.UserID)
	assert.Equal(t, "tok_123", acct.HandoffToken)

	require.Len(t, *bodies, 2)
	user := (*bodies)[0]
	assert.Equal(t, []any{"a@b.co"}, user["email_address"])
	assert.Equal(t, []any{"+966501234567"}, user["phone_number"])
	assert.Equal(t, "Sara", user["first_name"])
	assert.Equal(t, "Al Amri", user["last_name"])
	assert.Equal(t, "salla", user["unsafe_metadata"].(map[string]any)["platform"])
	assert.Equal(t, "user_1", (*bodies)[1]["user_id"])
}

func TestClerkClassifiesErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"identifier exists", 422, `{"errors":[{"code":"form_identifier_exists","message":"That email address is taken."}]}`, KindUserExists},
		{"pwned password", 422, `{"errors":[{"code":"form_password_pwned","message":"Password has been found in an online data breach."}]}`, KindPassword},
		{"bad email", 422, `{"errors":[{"code":"form_param_format_invalid","message":"is invalid","meta":{"param_name":"email_address"}}]}`, KindEmail},
		{"bad phone", 422, `{"errors":[{"code":"form_param_format_invalid","message":"is invalid","meta":{"param_name":"phone_number"}}]}`, KindValidation},
		{"message fallback", 400, `{"errors":[{"code":"something_new","message":"You're already signed in"}]}`, KindUserExists},
		{"unknown 422", 422, `{"errors":[{"code":"something_new","message":"nope"}]}`, KindValidation},
		{"server error", 500, `oops`, KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := clerkServer(t, tc.status, tc.body)
			_, err := NewClerk(srv.URL+"/v1", "sk_test", 0).CreateAccount(context.Background(), CreateRequest{Email: "a@b.co", Password: "12345678"})
			require.Error(t, err)
			assert.Equal(t, tc.want, KindOf(err))
		})
	}
}

func TestClerkNotConfigured(t *testing.T) {
	_, err := NewClerk("", "", 0).CreateAccount(context.Background(), CreateRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClassifyMessage(t *testing.T) {
	assert.Equal(t, KindUserExists, classifyMessage("Error: you're already signed up"))
	assert.Equal(t, KindPassword, classifyMessage("Password too weak"))
	assert.Equal(t, KindEmail, classifyMessage("malformed email string"))
	assert.Equal(t, KindUnknown, classifyMessage("rate limited"))
}

type fakeFirebaseAuth struct {
	createErr error
	claims    map[string]interface{}
}

func (f *fakeFirebaseAuth) CreateUser(context.Context, *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &firebaseauth.UserRecord{UserInfo: &firebaseauth.UserInfo{UID: "uid-1"}}, nil
}

func (f *fakeFirebaseAuth) SetCustomUserClaims(_ context.Context, _ string, claims map[string]interface{}) error {
	f.claims = claims
	return nil
}

func (f *fakeFirebaseAuth) CustomToken(context.Context, string) (string, error) {
	return "custom-token", nil
}

func TestFirebaseCreateAccount(t *testing.T) {
	fake := &fakeFirebaseAuth{}
	provider := newFirebaseWithClient(fake)

	acct, err := provider.CreateAccount(context.Background(), CreateRequest{
		Email:          "a@b.co",
		Password:       "12345678",
		UnsafeMetadata: map[string]any{"platform": "zid"},
	})
	require.NoError(t, err)
	assert.True(t, acct.Complete())
	assert.Equal(t, "uid-1", acct.UserID)
	assert.Equal(t, "zid", fake.claims["platform"])
}

func TestFirebaseClassifiesArgumentErrors(t *testing.T) {
	provider := newFirebaseWithClient(&fakeFirebaseAuth{createErr: errors.New("malformed email string: \"x\"")})
	_, err := provider.CreateAccount(context.Background(), CreateRequest{Email: "x", Password: "12345678"})
	assert.Equal(t, KindEmail, KindOf(err))

	provider = newFirebaseWithClient(&fakeFirebaseAuth{createErr: fmt.Errorf("create: %w", context.DeadlineExceeded)})
	_, err = provider.CreateAccount(context.Background(), CreateRequest{Email: "a@b.co", Password: "12345678"})
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFakeProvider(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	acct, err := fake.CreateAccount(ctx, CreateRequest{Email: "new@shop.sa", Password: "12345678"})
	require.NoError(t, err)
	assert.True(t, acct.Complete())

	_, err = fake.CreateAccount(ctx, CreateRequest{Email: "NEW@shop.sa", Password: "12345678"})
	assert.Equal(t, KindUserExists, KindOf(err))

	_, err = fake.CreateAccount(ctx, CreateRequest{Email: "exists@shop.sa", Password: "12345678"})
	assert.Equal(t, KindUserExists, KindOf(err))

	_, err = fake.CreateAccount(ctx, CreateRequest{Email: "a@b.co", Password: "short"})
	assert.Equal(t, KindPassword, KindOf(err))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
