// Package status reports which external integrations the running site is
// wired to.
package status

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// Component states.
const (
	StateOperational = "operational"
	StateDisabled    = "disabled"
	StateDegraded    = "degraded"
)

// Summary is the overall status and its components.
type Summary struct {
	State      string      `json:"state"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Components []Component `json:"components"`
}

// Component is one integration.
type Component struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Summarize orders components by name. The summary is degraded when any
// component is; disabled components are expected in development.
func Summarize(now time.Time, components ...Component) Summary {
	out := make([]Component, len(components))
	copy(out, components)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	state := StateOperational
	for _, c := range out {
		if c.Status == StateDegraded {
			state = StateDegraded
			break
		}
	}
	return Summary{State: state, UpdatedAt: now.UTC(), Components: out}
}

// Enabled returns an operational or disabled component.
func Enabled(name string, on bool, detail string) Component {
	if on {
		return Component{Name: name, Status: StateOperational, Detail: detail}
	}
	return Component{Name: name, Status: StateDisabled, Detail: detail}
}

// Handler serves the summary built by fn as JSON. It never fails the
// request: a degraded integration does not take the site down.
func Handler(fn func() Summary) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(fn())
	}
}
