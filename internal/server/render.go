package server

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/livetemplate/accordion/internal/assets"
	"github.com/livetemplate/accordion/internal/runtime"
)

// Renderer executes the embedded page and block templates
type Renderer struct {
	tmpl *template.Template
}

// PageData is the template data for the widget page
type PageData struct {
	Title  string
	Widget template.HTML
	Config template.HTML
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(assets.TemplateFS(), "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Widget renders the widget block
func (r *Renderer) Widget(v runtime.WidgetView) (string, error) {
	return r.execute("widget", v)
}

// Config renders the configuration block
func (r *Renderer) Config(v runtime.ConfigView) (string, error) {
	return r.execute("config", v)
}

// Page writes the full page with both blocks pre-rendered
func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.tmpl.ExecuteTemplate(w, "page", data)
}

func (r *Renderer) execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
