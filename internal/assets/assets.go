// Package assets embeds the widget templates and the browser client
package assets

import (
	"embed"
	"io/fs"
)

//go:embed client/*
var clientFS embed.FS

//go:embed templates/*.tmpl
var templateFS embed.FS

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplateFS returns the embedded page and block templates
func TemplateFS() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetClientJS returns the browser JavaScript
func GetClientJS() ([]byte, error) {
	return clientFS.ReadFile("client/accordion.js")
}

// GetClientCSS returns the browser CSS
func GetClientCSS() ([]byte, error) {
	return clientFS.ReadFile("client/accordion.css")
}
