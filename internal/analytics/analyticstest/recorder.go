// Package analyticstest provides an in-memory analytics sink for tests.
package analyticstest

import (
	"context"
	"sync"

	"github.com/getwowai/showcase/internal/analytics"
)

// Recorder is an enabled sink that keeps every captured event in memory. It
// also answers feature flag lookups from Flags.
type Recorder struct {
	mu         sync.Mutex
	events     []analytics.Event
	identifies []analytics.Event

	Flags   map[string]any
	FlagErr error
	Closed  bool
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{Flags: map[string]any{}}
}

func (r *Recorder) Name() string  { return "recorder" }
func (r *Recorder) Enabled() bool { return true }

func (r *Recorder) Capture(_ context.Context, ev analytics.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Identify(distinctID string, props map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identifies = append(r.identifies, analytics.Event{DistinctID: distinctID, Properties: props})
}

func (r *Recorder) FeatureFlag(ctx context.Context, key, _ string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FlagErr != nil {
		return nil, r.FlagErr
	}
	return r.Flags[key], nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}

// SetFlag sets the value returned for key.
func (r *Recorder) SetFlag(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Flags[key] = value
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]analytics.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the captured events called name.
func (r *Recorder) Named(name string) []analytics.Event {
	var out []analytics.Event
	for _, ev := range r.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Identifies returns a copy of the identify calls.
func (r *Recorder) Identifies() []analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]analytics.Event, len(r.identifies))
	copy(out, r.identifies)
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.identifies = nil
}

// Client wraps the recorder in an analytics client.
func (r *Recorder) Client() *analytics.Client {
	return analytics.NewClient(nil, r)
}
