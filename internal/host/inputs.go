package host

import "github.com/livetemplate/accordion"

// RenderInputs is everything the widget renders from, recomputed as a new
// value whenever the host sends a notification. Values are never mutated in
// place; the With methods return modified copies.
type RenderInputs struct {
	Properties         accordion.Properties
	Mode               accordion.Mode
	Theme              Theme
	EnvironmentMessage string
	UserDisplayName    string
	HasTeamsContext    bool
}

// NewRenderInputs assembles the inputs for one render
func NewRenderInputs(props accordion.Properties, mode accordion.Mode, theme Theme, env Environment, user string) RenderInputs {
	return RenderInputs{
		Properties:         props,
		Mode:               mode,
		Theme:              theme,
		EnvironmentMessage: env.Message(),
		UserDisplayName:    user,
		HasTeamsContext:    env.HasTeamsContext(),
	}
}

// WithTheme returns a copy carrying a new theme
func (in RenderInputs) WithTheme(t Theme) RenderInputs {
	in.Theme = t
	return in
}

// WithMode returns a copy in a different display mode
func (in RenderInputs) WithMode(m accordion.Mode) RenderInputs {
	in.Mode = m
	return in
}

// WithProperties returns a copy with new properties
func (in RenderInputs) WithProperties(p accordion.Properties) RenderInputs {
	in.Properties = p
	return in
}

// ListReference is the list the widget is bound to
func (in RenderInputs) ListReference() string {
	return in.Properties.ListReference
}
