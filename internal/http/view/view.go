// Package view renders the portal's server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const timeLayout = "02-01-2006 15:04"

type LoginPage struct {
	Email   string
	Message string
}

type ProfileView struct {
	Name    string
	Address string
	Mobile  string
}

type DashboardPage struct {
	Email     string
	CreatedAt string
	LastLogin string
	Profile   *ProfileView
}

type ErrorPage struct {
	Message string
}

type page struct {
	Title     string
	CSRFToken string
	Data      any
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{"login", "dashboard", "error"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Login(w http.ResponseWriter, status int, csrfToken string, data LoginPage) error {
	return r.render(w, "login", status, page{Title: "Log ind", CSRFToken: csrfToken, Data: data})
}

func (r *Renderer) Dashboard(w http.ResponseWriter, status int, csrfToken string, data DashboardPage) error {
	return r.render(w, "dashboard", status, page{Title: "Dashboard", CSRFToken: csrfToken, Data: data})
}

func (r *Renderer) Error(w http.ResponseWriter, status int, message string) error {
	return r.render(w, "error", status, page{Title: "Fejl", Data: ErrorPage{Message: message}})
}

// render executes into a buffer before any header is written.
func (r *Renderer) render(w http.ResponseWriter, name string, status int, p page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// FormatTime renders t in UTC for display.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
