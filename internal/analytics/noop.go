package analytics

import "context"

// Noop is a sink that discards everything. It stands in for an analytics
// backend in environments without keys.
type Noop struct{}

func (Noop) Name() string                    { return "noop" }
func (Noop) Enabled() bool                   { return false }
func (Noop) Capture(context.Context, Event)  {}
func (Noop) Identify(string, map[string]any) {}
func (Noop) Close() error                    { return nil }
