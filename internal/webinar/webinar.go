// Package webinar posts webinar registrations to the external collection form.
package webinar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 8 * time.Second

// Registration is the data collected by the webinar form.
type Registration struct {
	Email      string
	Name       string
	StoreName  string
	Phone      string
	Platform   string
	AvgOrders  string
	Locale     string
	WebinarAt  time.Time
	DistinctID string
}

// Client submits registrations. A client without an endpoint is a no-op.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient constructs a Client posting to endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.endpoint != "" }

// Register submits reg as an application/x-www-form-urlencoded POST.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	if !c.Enabled() {
		return nil
	}
	form := url.Values{}
	form.Set("email", reg.Email)
	form.Set("name", reg.Name)
	form.Set("store_name", reg.StoreName)
	form.Set("phone", reg.Phone)
	form.Set("platform", reg.Platform)
	form.Set("avg_orders", reg.AvgOrders)
	form.Set("locale", reg.Locale)
	form.Set("distinct_id", reg.DistinctID)
	if !reg.WebinarAt.IsZero() {
		form.Set("webinar_at", reg.WebinarAt.UTC().Format(time.RFC3339))
	}
	form.Set("submitted_at", time.Now().UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webinar: register: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	// Form collectors commonly answer with a redirect to a thank-you page.
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webinar: register status %d", resp.StatusCode)
	}
	return nil
}
