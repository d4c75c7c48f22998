// Package templates renders plain-text notification bodies.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed files
var embedded embed.FS

// LowStockAlert is the name of the low-stock alert template
const LowStockAlert = "mail/low_stock_alert.tmpl"

const layoutPath = "layouts/base.tmpl"

// Manager handles template loading and caching
type Manager struct {
	fsys    fs.FS
	debug   bool
	cache   map[string]*template.Template
	mu      sync.RWMutex
	funcMap template.FuncMap
}

// NewManager creates a new template manager.
// An empty dir selects the embedded templates. With debug set, templates are
// re-read on every render; otherwise they are parsed once and cached.
func NewManager(dir string, debug bool) (*Manager, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(embedded, "files")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded templates: %w", err)
		}
		fsys = sub
	} else {
		cleanDir := filepath.Clean(dir)
		if _, err := os.Stat(cleanDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("template directory does not exist: %s", cleanDir)
		}
		fsys = os.DirFS(cleanDir)
	}

	m := &Manager{
		fsys:  fsys,
		debug: debug,
		cache: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"formatDate":  formatDate,
			"formatTime":  formatTime,
			"formatMoney": formatMoney,
			"add":         add,
			"plural":      plural,
		},
	}

	if !debug {
		if err := m.loadTemplates(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// loadTemplates parses every mail template together with the layout
func (m *Manager) loadTemplates() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return fs.WalkDir(m.fsys, "mail", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".tmpl" {
			return nil
		}
		tmpl, err := m.parse(p)
		if err != nil {
			return err
		}
		m.cache[p] = tmpl
		return nil
	})
}

func (m *Manager) parse(name string) (*template.Template, error) {
	layout, err := fs.ReadFile(m.fsys, layoutPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	page, err := fs.ReadFile(m.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}

	tmpl := template.New("layout").Funcs(m.funcMap)
	if _, err := tmpl.Parse(string(layout)); err != nil {
		return nil, fmt.Errorf("failed to parse layout for %s: %w", name, err)
	}
	if _, err := tmpl.Parse(string(page)); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

func (m *Manager) lookup(name string) (*template.Template, error) {
	if m.debug {
		tmpl, err := m.parse(name)
		if err != nil {
			return nil, fmt.Errorf("failed to reload template: %w", err)
		}
		m.mu.Lock()
		m.cache[name] = tmpl
		m.mu.Unlock()
		return tmpl, nil
	}

	m.mu.RLock()
	tmpl, ok := m.cache[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	return tmpl, nil
}

// Render writes the body of a template wrapped in the layout
func (m *Manager) Render(w io.Writer, name string, data any) error {
	tmpl, err := m.lookup(name)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderMessage returns the subject line and body of a template
func (m *Manager) RenderMessage(name string, data any) (subject, body string, err error) {
	tmpl, err := m.lookup(name)
	if err != nil {
		return "", "", err
	}

	var sb, bb bytes.Buffer
	if err := tmpl.ExecuteTemplate(&sb, "subject", data); err != nil {
		return "", "", fmt.Errorf("failed to render subject of %s: %w", name, err)
	}
	if err := tmpl.ExecuteTemplate(&bb, "base", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), bb.String(), nil
}

// Template helper functions

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04")
}

func formatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

func add(a, b int) int {
	return a + b
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
