package host

import (
	"html/template"
	"strings"

	"github.com/livetemplate/accordion/internal/config"
)

// Palette holds the semantic colors the widget applies as CSS custom properties
type Palette struct {
	BodyText    string
	Link        string
	LinkHovered string
}

// Theme is the host theme as of the last change notification
type Theme struct {
	Inverted bool
	Palette  Palette
}

// ThemeFromConfig builds the initial theme
func ThemeFromConfig(cfg config.ThemeConfig) Theme {
	return Theme{
		Inverted: cfg.Inverted,
		Palette: Palette{
			BodyText:    cfg.BodyText,
			Link:        cfg.Link,
			LinkHovered: cfg.LinkHovered,
		},
	}
}

// Style renders the palette as an inline style declaration. Unset or unsafe
// colors are left out so the stylesheet defaults apply.
func (t Theme) Style() template.CSS {
	var decls []string
	for _, v := range []struct{ name, value string }{
		{"--bodyText", t.Palette.BodyText},
		{"--link", t.Palette.Link},
		{"--linkHovered", t.Palette.LinkHovered},
	} {
		if v.value == "" || !safeColor(v.value) {
			continue
		}
		decls = append(decls, v.name+": "+v.value)
	}
	return template.CSS(strings.Join(decls, "; "))
}

// safeColor accepts hex, named and functional color values
func safeColor(s string) bool {
	if len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("#(),.% -", r):
		default:
			return false
		}
	}
	return true
}
