package webinar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPostsForm(t *testing.T) {
	var got http.Header
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = r.ParseForm()
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	require.True(t, client.Enabled())
	err := client.Register(context.Background(), Registration{
		Email:     "a@b.co",
		AvgOrders: "100_500",
		Locale:    "ar",
		WebinarAt: time.Date(2026, 11, 5, 17, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
	assert.Equal(t, "a@b.co", form["email"])
	assert.Equal(t, "100_500", form["avg_orders"])
	assert.Equal(t, "2026-11-05T17:00:00Z", form["webinar_at"])
}

func TestRegisterReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Register(context.Background(), Registration{Email: "a@b.co"})
	assert.Error(t, err)
}

func TestRegisterWithoutEndpointIsNoop(t *testing.T) {
	client := NewClient("", 0)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Register(context.Background(), Registration{}))
}
