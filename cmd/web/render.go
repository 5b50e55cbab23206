package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/format"
	"github.com/getwowai/showcase/internal/i18n"
	"github.com/getwowai/showcase/internal/platform/requestctx"
)

const sharedSet = "_shared"

// views holds one template set per page: the shared layouts and partials
// cloned with the page's own "content" definition.
type views struct {
	dir    string
	dev    bool
	bundle *i18n.Bundle

	mu    sync.RWMutex
	pages map[string]*template.Template
}

func newViews(dir string, dev bool, bundle *i18n.Bundle) (*views, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "templates"
	}
	v := &views{dir: dir, dev: dev, bundle: bundle}
	pages, err := v.parse()
	if err != nil {
		return nil, err
	}
	v.pages = pages
	return v, nil
}

func (v *views) funcs() template.FuncMap {
	return template.FuncMap{
		"now": time.Now,
		"t": func(lang, key string, kv ...any) string {
			return v.bundle.T(i18n.Resolve(lang), key, dict(kv...))
		},
		"dict": dict,
		"fmtNumber": func(lang string, n int64) string {
			return format.FmtNumber(n, i18n.Resolve(lang))
		},
		"fmtDate": func(lang string, t time.Time) string {
			return format.FmtDate(t, i18n.Resolve(lang))
		},
		"join": strings.Join,
		"list": func(items ...string) []string { return items },
	}
}

func (v *views) parse() (map[string]*template.Template, error) {
	var shared, pageFiles []string
	err := filepath.WalkDir(v.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pageFiles = append(pageFiles, path)
		} else {
			shared = append(shared, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(shared) == 0 || len(pageFiles) == 0 {
		return nil, fmt.Errorf("no templates found under %s", v.dir)
	}

	root, err := template.New("_root").Funcs(v.funcs()).ParseFiles(shared...)
	if err != nil {
		return nil, err
	}
	pages := map[string]*template.Template{sharedSet: root}
	for _, file := range pageFiles {
		clone, err := root.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFiles(file); err != nil {
			return nil, err
		}
		pages[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = clone
	}
	return pages, nil
}

// lookup returns the set for page. In dev mode, templates are reparsed on
// each request.
func (v *views) lookup(page string) (*template.Template, error) {
	if v.dev {
		pages, err := v.parse()
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.pages = pages
		v.mu.Unlock()
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	t, ok := v.pages[page]
	if !ok {
		return nil, fmt.Errorf("template set %q not found", page)
	}
	return t, nil
}

// execute renders name from page's set into a buffer so a failed render
// never leaves a half-written response.
func (v *views) execute(page, name string, data any) ([]byte, error) {
	t, err := v.lookup(page)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderPage executes the base layout for page.
func (a *App) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	a.write(w, r, status, page, "base", data)
}

// renderFragment executes a partial for htmx swaps.
func (a *App) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	a.write(w, r, status, sharedSet, name, data)
}

func (a *App) write(w http.ResponseWriter, r *http.Request, status int, page, name string, data any) {
	body, err := a.views.execute(page, name, data)
	if err != nil {
		requestctx.Logger(r.Context()).Error("template exec error",
			zap.String("page", page),
			zap.String("template", name),
			zap.Error(err),
		)
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func dict(kv ...any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = kv[i+1]
	}
	return out
}
