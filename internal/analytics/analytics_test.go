package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/mixpanel"
	"github.com/posthog/posthog-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePostHog struct {
	mu       sync.Mutex
	messages []posthog.Message
	flags    map[string]interface{}
	delay    time.Duration
	closed   bool
}

func (f *fakePostHog) Enqueue(msg posthog.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePostHog) GetFeatureFlag(p posthog.FeatureFlagPayload) (interface{}, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flags[p.Key], nil
}

func (f *fakePostHog) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func withFakePostHog(t *testing.T, fake *fakePostHog) {
	t.Helper()
	prev := posthogFactory
	posthogFactory = func(string, posthog.Config) (posthogAPI, error) { return fake, nil }
	t.Cleanup(func() { posthogFactory = prev })
}

type fakeMixpanel struct {
	mu      sync.Mutex
	tracks  []string
	props   []map[string]interface{}
	updates []*mixpanel.Update
	block   chan struct{}
	failOn  string
}

func (f *fakeMixpanel) Track(distinctID, eventName string, e *mixpanel.Event) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if eventName == f.failOn {
		return errors.New("boom")
	}
	f.tracks = append(f.tracks, distinctID+":"+eventName)
	f.props = append(f.props, e.Properties)
	return nil
}

func (f *fakeMixpanel) Update(distinctID string, u *mixpanel.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return nil
}

func withFakeMixpanel(t *testing.T, fake *fakeMixpanel) {
	t.Helper()
	prev := mixpanelFactory
	mixpanelFactory = func(string, string) mixpanelAPI { return fake }
	t.Cleanup(func() { mixpanelFactory = prev })
}

func TestPostHogMissingKeyWarnsOnceAndStaysDisabled(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := NewPostHog(PostHogConfig{}, zap.New(core))

	sink.Init()
	sink.Init()

	assert.False(t, sink.Enabled())
	assert.Equal(t, 1, logs.FilterMessage("analytics: posthog key missing; sink disabled").Len())

	sink.Capture(context.Background(), Event{Name: "x", DistinctID: "d"})
	_, err := sink.FeatureFlag(context.Background(), "flag", "d")
	assert.ErrorIs(t, err, ErrNoFlagReader)
	assert.NoError(t, sink.Close())
}

func TestPostHogCaptureAndIdentify(t *testing.T) {
	fake := &fakePostHog{}
	withFakePostHog(t, fake)

	sink := NewPostHog(PostHogConfig{APIKey: "phc_test"}, zap.NewNop())
	sink.Init()
	require.True(t, sink.Enabled())

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.Capture(context.Background(), Event{
		Name:       EventPageView,
		DistinctID: "visitor-1",
		Properties: map[string]any{PropLocale: "ar"},
		Timestamp:  ts,
	})
	sink.Identify("visitor-1", map[string]any{"email": "a@b.co"})

	require.Len(t, fake.messages, 2)
	capture, ok := fake.messages[0].(posthog.Capture)
	require.True(t, ok)
	assert.Equal(t, "visitor-1", capture.DistinctId)
	assert.Equal(t, EventPageView, capture.Event)
	assert.Equal(t, ts, capture.Timestamp)
	assert.Equal(t, "ar", capture.Properties[PropLocale])

	identify, ok := fake.messages[1].(posthog.Identify)
	require.True(t, ok)
	assert.Equal(t, "a@b.co", identify.Properties["email"])

	require.NoError(t, sink.Close())
	assert.True(t, fake.closed)
}

func TestPostHogFeatureFlagHonoursContext(t *testing.T) {
	fake := &fakePostHog{flags: map[string]interface{}{"landing": "minimal"}}
	withFakePostHog(t, fake)

	sink := NewPostHog(PostHogConfig{APIKey: "phc_test"}, nil)
	sink.Init()

	value, err := sink.FeatureFlag(context.Background(), "landing", "v")
	require.NoError(t, err)
	assert.Equal(t, "minimal", value)

	fake.delay = 200 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	value, err = sink.FeatureFlag(ctx, "landing", "v")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, value)
}

func TestMixpanelTranslatesSetIntoPeopleUpdate(t *testing.T) {
	fake := &fakeMixpanel{}
	withFakeMixpanel(t, fake)

	sink := NewMixpanel(MixpanelConfig{Token: "tok"}, zap.NewNop())
	sink.Init()
	require.True(t, sink.Enabled())

	sink.Capture(context.Background(), Event{
		Name:       EventCTAClick,
		DistinctID: "v1",
		Properties: map[string]any{
			PropLocale: "en",
			PropSet:    map[string]any{PropLanguage: "en"},
		},
	})
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{"v1:" + EventCTAClick}, fake.tracks)
	assert.NotContains(t, fake.props[0], PropSet)
	require.Len(t, fake.updates, 1)
	assert.Equal(t, "$set", fake.updates[0].Operation)
	assert.Equal(t, "en", fake.updates[0].Properties[PropLanguage])
}

func TestMixpanelDropsWhenQueueFull(t *testing.T) {
	fake := &fakeMixpanel{block: make(chan struct{})}
	withFakeMixpanel(t, fake)

	sink := NewMixpanel(MixpanelConfig{Token: "tok", QueueSize: 1}, zap.NewNop())
	sink.Init()

	for i := 0; i < 10; i++ {
		sink.Capture(context.Background(), Event{Name: "e", DistinctID: "v"})
	}
	close(fake.block)
	require.NoError(t, sink.Close())

	// One event held by the worker plus at most one queued.
	assert.LessOrEqual(t, len(fake.tracks), 2)
	assert.GreaterOrEqual(t, len(fake.tracks), 1)

	sink.Capture(context.Background(), Event{Name: "late", DistinctID: "v"})
	assert.NotContains(t, fake.tracks, "v:late")
}

func TestMixpanelMissingTokenDisabled(t *testing.T) {
	sink := NewMixpanel(MixpanelConfig{}, nil)
	sink.Init()
	assert.False(t, sink.Enabled())
	sink.Capture(context.Background(), Event{Name: "e", DistinctID: "v"})
	assert.NoError(t, sink.Close())
}

func TestClientFansOutToEnabledSinks(t *testing.T) {
	ph := &fakePostHog{flags: map[string]interface{}{"exp": "control"}}
	withFakePostHog(t, ph)
	mp := &fakeMixpanel{}
	withFakeMixpanel(t, mp)

	posthogSink := NewPostHog(PostHogConfig{APIKey: "k"}, nil)
	posthogSink.Init()
	mixpanelSink := NewMixpanel(MixpanelConfig{Token: "t"}, nil)
	mixpanelSink.Init()

	client := NewClient(zap.NewNop(), Noop{}, posthogSink, mixpanelSink, nil)
	assert.True(t, client.Enabled())
	assert.Equal(t, []string{"posthog", "mixpanel"}, client.SinkNames())

	props := map[string]any{PropSet: map[string]any{PropLanguage: "ar"}}
	client.Capture(context.Background(), Event{Name: EventPageView, DistinctID: "v", Properties: props})

	value, err := client.FeatureFlag(context.Background(), "exp", "v")
	require.NoError(t, err)
	assert.Equal(t, "control", value)

	require.NoError(t, client.Close())
	assert.Len(t, ph.messages, 1)
	assert.Len(t, mp.tracks, 1)
	// The caller's map is untouched by the mixpanel sink.
	assert.Contains(t, props, PropSet)
}

func TestClientNilAndEmptyAreDisabled(t *testing.T) {
	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	nilClient.Capture(context.Background(), Event{Name: "e", DistinctID: "v"})
	nilClient.Identify("v", nil)
	assert.NoError(t, nilClient.Close())

	empty := NewClient(nil, Noop{})
	assert.False(t, empty.Enabled())
	_, err := empty.FeatureFlag(context.Background(), "k", "v")
	assert.ErrorIs(t, err, ErrNoFlagReader)
}
