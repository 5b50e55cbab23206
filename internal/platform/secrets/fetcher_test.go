package secrets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResolveSecretCachesRemoteValue(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	resource := "projects/wow-prod/secrets/posthog_key/versions/latest"
	client.values[resource] = "phc_remote"

	fetcher, err := NewFetcher(ctx,
		WithSecretManagerClient(client),
		WithProject("wow-prod"),
		WithLogger(zap.NewNop()),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	defer fetcher.Close()

	for i := 0; i < 2; i++ {
		got, err := fetcher.ResolveSecret(ctx, "sm://posthog_key")
		if err != nil {
			t.Fatalf("ResolveSecret returned error: %v", err)
		}
		if got != "phc_remote" {
			t.Fatalf("expected phc_remote, got %s", got)
		}
	}

	if calls := client.callCount(resource); calls != 1 {
		t.Fatalf("expected remote fetch once, got %d", calls)
	}
}

func TestResolveSecretHonoursVersionAndProject(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	client.values["projects/other/secrets/clerk/versions/3"] = "sk_pinned"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("wow-prod"), WithFallbackFile(""))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	got, err := fetcher.ResolveSecret(ctx, "secret://clerk?version=3&project=other")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if got != "sk_pinned" {
		t.Fatalf("expected sk_pinned, got %s", got)
	}
}

func TestResolveSecretFallsBackWhenSecretManagerDenies(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	fallbackPath := filepath.Join(dir, ".secrets.local")
	if err := os.WriteFile(fallbackPath, []byte("secret://mixpanel_token=local-token\n"), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}

	client := newFakeSecretClient()
	client.errors["projects/wow-dev/secrets/mixpanel_token/versions/latest"] = status.Error(codes.PermissionDenied, "denied")

	fetcher, err := NewFetcher(ctx,
		WithSecretManagerClient(client),
		WithProject("wow-dev"),
		WithFallbackFile(fallbackPath),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	got, err := fetcher.ResolveSecret(ctx, "secret://mixpanel_token")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if got != "local-token" {
		t.Fatalf("expected local-token, got %s", got)
	}
}

func TestReadFallbackKeysByCanonicalReference(t *testing.T) {
	input := strings.Join([]string{
		"# local secrets",
		"",
		"secret://mixpanel_token=local-token",
		"secret://sentry_dsn?version=3=https://key@sentry.example/1",
		"sm://posthog_key = \"phc_abc==\"",
		"not a reference",
	}, "\n")

	values, err := readFallback(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readFallback returned error: %v", err)
	}
	want := map[string]string{
		"secret://mixpanel_token#latest": "local-token",
		"secret://sentry_dsn#3":          "https://key@sentry.example/1",
		"secret://posthog_key#latest":    "phc_abc==",
	}
	if len(values) != len(want) {
		t.Fatalf("expected %d values, got %v", len(want), values)
	}
	for key, expected := range want {
		if values[key] != expected {
			t.Fatalf("expected %s=%q, got %q", key, expected, values[key])
		}
	}
}

func TestResolveSecretSurfacesHardFailures(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	client.errors["projects/wow-dev/secrets/sentry_dsn/versions/latest"] = status.Error(codes.InvalidArgument, "bad")

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("wow-dev"), WithFallbackFile(""))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	_, err = fetcher.ResolveSecret(ctx, "secret://sentry_dsn")
	if err == nil || !strings.Contains(err.Error(), "fetch failed") {
		t.Fatalf("expected fetch failure, got %v", err)
	}
}

func TestParseReferenceRejectsUnknownScheme(t *testing.T) {
	if _, err := parseReference("vault://thing"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if _, err := parseReference("secret://"); err == nil {
		t.Fatal("expected error for missing secret name")
	}
}

type fakeSecretClient struct {
	mu      sync.Mutex
	values  map[string]string
	errors  map[string]error
	counter map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{
		values:  make(map[string]string),
		errors:  make(map[string]error),
		counter: make(map[string]int),
	}
}

func (f *fakeSecretClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := req.GetName()
	f.counter[name]++

	if err, ok := f.errors[name]; ok && err != nil {
		return nil, err
	}
	if value, ok := f.values[name]; ok {
		return &secretmanagerpb.AccessSecretVersionResponse{
			Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
		}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (f *fakeSecretClient) Close() error {
	return nil
}

func (f *fakeSecretClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter[name]
}
