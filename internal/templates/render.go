// Package templates handles HTML template rendering for pages and
// Datastar SSE fragments.
package templates

import (
	"bytes"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"sync"
)

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
}

// Renderer manages HTML templates for pages and fragments.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer from a directory on disk.
// dir should contain fragments/*.html and pages/*.html.
func New(dir string) (*Renderer, error) {
	tmpl := template.New("").Funcs(funcMap)
	for _, pattern := range templateGlobs(dir) {
		var err error
		tmpl, err = tmpl.ParseGlob(pattern)
		if err != nil {
			return nil, err
		}
	}
	return &Renderer{templates: tmpl}, nil
}

// NewFS creates a renderer from an embedded filesystem with the same
// layout as New expects on disk.
func NewFS(fsys fs.FS) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys,
		"templates/fragments/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Execute renders a named template to a writer.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}

// MustRender renders a template and panics on error.
// Use only when you're certain the template exists.
func (r *Renderer) MustRender(name string, data any) string {
	s, err := r.Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse adds template definitions (e.g. runtime-generated forms).
func (r *Renderer) Parse(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.templates.Parse(text)
	return err
}

// Reload reloads templates from disk (useful for dev hot-reload).
func (r *Renderer) Reload(dir string) error {
	tmpl := template.New("").Funcs(funcMap)
	for _, pattern := range templateGlobs(dir) {
		var err error
		tmpl, err = tmpl.ParseGlob(pattern)
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}

func templateGlobs(dir string) []string {
	return []string{
		filepath.Join(dir, "fragments", "*.html"),
		filepath.Join(dir, "pages", "*.html"),
	}
}
