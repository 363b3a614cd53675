package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/cmd/bagspec/models"
)

//go:embed templates
var templateFS embed.FS

// Page names
const (
	PageLogin       = "login"
	PageDashboard   = "dashboard"
	PageForm        = "form"
	PageSubmissions = "submissions"
	PageInvalidLink = "invalid_link"
)

// Email names
const (
	EmailFormLink         = "email_form_link"
	EmailAdminSubmission  = "email_admin_submission"
	EmailClientSubmission = "email_client_submission"
)

// Renderer renders HTML pages for echo and email bodies for the notifier.
// Every page is parsed together with the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	emails *template.Template
}

// New parses all embedded templates
func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"fmtTime":  formatTime,
		"orNA":     orNA,
		"bagTitle": func(t models.BagType) string { return t.Title() },
		"plural":   plural,
	}

	layout, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pageFiles, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".html")

		tmpl, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		if _, err := tmpl.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	r.emails, err = template.New("emails").Funcs(funcs).ParseFS(templateFS, "templates/emails/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse emails: %w", err)
	}

	return r, nil
}

// MustNew is like New but panics on error
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render implements echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// RenderEmail renders an email body to a string
func (r *Renderer) RenderEmail(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.emails.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "N/A"
		}
		return t.UTC().Format("02 Jan 2006, 03:04 PM")
	case *time.Time:
		if t == nil {
			return "N/A"
		}
		return formatTime(*t)
	}
	return "N/A"
}

func orNA(v any) string {
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	case int64:
		if s == 0 {
			return "N/A"
		}
		return fmt.Sprintf("%d", s)
	case int:
		if s == 0 {
			return "N/A"
		}
		return fmt.Sprintf("%d", s)
	}
	return "N/A"
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
