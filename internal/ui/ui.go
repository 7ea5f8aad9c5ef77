// Package ui renders the login confirmation page shown by the authorize endpoint.
package ui

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
)

//go:embed confirm.html
var confirmPage string

// Renderer writes the confirmation page for an authorize query.
type Renderer interface {
	Render(w io.Writer, query url.Values) error
}

// PageData is exposed to the confirmation template.
type PageData struct {
	RedirectURI  string
	ClientID     string
	ResponseType string
	State        string
	Scope        string
	Scopes       []string
	LoginAction  string
	DefaultTTL   int
}

// TemplateRenderer renders the embedded HTML template.
type TemplateRenderer struct {
	tmpl        *template.Template
	loginAction string
	scopes      []string
	defaultTTL  int
}

// NewTemplateRenderer parses the embedded page. scopes populate the scope
// suggestions and defaultTTL pre-fills the expiresIn input.
func NewTemplateRenderer(loginAction string, scopes []string, defaultTTL int) (*TemplateRenderer, error) {
	tmpl, err := template.New("confirm").Parse(confirmPage)
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmation template: %w", err)
	}
	return &TemplateRenderer{
		tmpl:        tmpl,
		loginAction: loginAction,
		scopes:      scopes,
		defaultTTL:  defaultTTL,
	}, nil
}

// Render implements Renderer. Query values are HTML-escaped by the template engine.
func (r *TemplateRenderer) Render(w io.Writer, query url.Values) error {
	data := PageData{
		RedirectURI:  query.Get("redirect_uri"),
		ClientID:     query.Get("client_id"),
		ResponseType: query.Get("response_type"),
		State:        query.Get("state"),
		Scope:        query.Get("scope"),
		Scopes:       r.scopes,
		LoginAction:  r.loginAction,
		DefaultTTL:   r.defaultTTL,
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render confirmation page: %w", err)
	}
	return nil
}
