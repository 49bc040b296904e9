// Package richtext renders item descriptions for the read-mode panel.
//
// Descriptions are trusted content: they come from the list the widget is
// bound to and are emitted without re-escaping. The "markdown" profile lets
// operators store markdown instead of HTML.
package richtext

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Profile selects how a stored description is turned into HTML
type Profile string

const (
	ProfileHTML     Profile = "html"
	ProfileMarkdown Profile = "markdown"
)

// ParseProfile maps a config value to a Profile; empty means html
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case "", ProfileHTML:
		return ProfileHTML, nil
	case ProfileMarkdown:
		return ProfileMarkdown, nil
	default:
		return "", fmt.Errorf("unknown rich text profile %q", s)
	}
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Render converts a description to HTML for the given profile
func Render(p Profile, description string) (template.HTML, error) {
	if p != ProfileMarkdown {
		return template.HTML(description), nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(description), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// MustRender renders and falls back to the raw description on error
func MustRender(p Profile, description string) template.HTML {
	out, err := Render(p, description)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(description))
	}
	return out
}
