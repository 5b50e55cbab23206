// Package cms serves localized static pages (privacy policy, terms) from
// markdown files with YAML front matter.
package cms

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no page exists for a slug in any locale.
var ErrNotFound = errors.New("cms: not found")

// Page represents a localized static page.
type Page struct {
	Kind          string
	Slug          string
	Lang          string
	Title         string
	Summary       string
	Body          string
	HTML          template.HTML
	Format        string // "markdown" (default) or "html"
	EffectiveDate time.Time
	UpdatedAt     time.Time
	SEO           PageSEO
}

// PageSEO holds optional metadata overrides.
type PageSEO struct {
	Title       string
	Description string
	OGImage     string
}

type frontMatter struct {
	Title         string         `yaml:"title"`
	Summary       string         `yaml:"summary"`
	Lang          string         `yaml:"lang"`
	Format        string         `yaml:"format"`
	EffectiveDate string         `yaml:"effective_date"`
	UpdatedAt     string         `yaml:"updated_at"`
	SEO           frontMatterSEO `yaml:"seo"`
}

type frontMatterSEO struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	OGImage     string `yaml:"og_image"`
}

const (
	defaultContentFormat = "markdown"
	defaultContentDir    = "content"
	defaultCacheTTL      = 5 * time.Minute
	fallbackLang         = "en"
)

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Store reads pages from <dir>/<kind>/<lang>/<slug>.md and caches the
// rendered result.
type Store struct {
	dir      string
	ttl      time.Duration
	renderer *renderer
	now      func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// Option customises a Store.
type Option func(*Store)

// WithCacheTTL overrides how long rendered pages are kept.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = defaultContentDir
	}
	s := &Store{
		dir:      dir,
		ttl:      defaultCacheTTL,
		renderer: newRenderer(),
		now:      time.Now,
		items:    map[string]cacheEntry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Dir returns the content root.
func (s *Store) Dir() string { return s.dir }

// Get returns the page for slug in lang, falling back to English.
func (s *Store) Get(kind, slug, lang string) (Page, error) {
	kind = sanitizeSlug(kind)
	if kind == "" {
		kind = "legal"
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = strings.ToLower(strings.TrimSpace(lang))

	key := strings.Join([]string{kind, lang, slug}, "|")
	if page, ok := s.cached(key); ok {
		return page, nil
	}

	priority := []string{lang}
	if lang != fallbackLang {
		priority = append(priority, fallbackLang)
	}
	for _, candidate := range priority {
		page, err := s.read(kind, slug, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Page{}, err
		}
		s.store(key, page)
		return page, nil
	}
	return Page{}, ErrNotFound
}

func (s *Store) read(kind, slug, lang string) (Page, error) {
	if lang == "" {
		return Page{}, ErrNotFound
	}
	file := filepath.Join(s.dir, kind, lang, slug+".md")

	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("cms: parse front matter %s: %w", file, err)
		}
	}
	page := Page{
		Kind:    kind,
		Slug:    slug,
		Lang:    firstNonEmpty(strings.TrimSpace(front.Lang), lang),
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		Body:    body,
		Format:  firstNonEmpty(strings.TrimSpace(front.Format), defaultContentFormat),
		SEO: PageSEO{
			Title:       strings.TrimSpace(front.SEO.Title),
			Description: strings.TrimSpace(front.SEO.Description),
			OGImage:     strings.TrimSpace(front.SEO.OGImage),
		},
	}
	page.EffectiveDate = parseContentDate(front.EffectiveDate)
	page.UpdatedAt = parseContentDate(front.UpdatedAt)
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	html, err := s.renderer.render(page.Format, body)
	if err != nil {
		return Page{}, fmt.Errorf("cms: render %s: %w", file, err)
	}
	page.HTML = html
	return page, nil
}

func (s *Store) cached(key string) (Page, bool) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (s *Store) store(key string, page Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = cacheEntry{page: page, expires: s.now().Add(s.ttl)}
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseContentDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006/01/02",
		"2006-1-2",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	parts := strings.Split(strings.TrimSpace(slug), "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = asciiUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func sanitizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.Trim(slug, "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func asciiUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
