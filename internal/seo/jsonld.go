package seo

import (
	"encoding/json"
	"time"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url, inLanguage string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if inLanguage != "" {
		m["inLanguage"] = inLanguage
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// OnlineEvent describes a webinar. A zero start omits startDate.
func OnlineEvent(name, description, url string, start time.Time, organizer string) map[string]any {
	m := map[string]any{
		"@context":            "https://schema.org",
		"@type":               "Event",
		"name":                name,
		"description":         description,
		"eventAttendanceMode": "https://schema.org/OnlineEventAttendanceMode",
		"location": map[string]any{
			"@type": "VirtualLocation",
			"url":   url,
		},
		"organizer": map[string]any{"@type": "Organization", "name": organizer},
	}
	if !start.IsZero() {
		m["startDate"] = start.Format(time.RFC3339)
		m["eventStatus"] = "https://schema.org/EventScheduled"
	}
	return m
}
