package runtime

import (
	"html/template"

	"github.com/livetemplate/accordion"
)

// WidgetView is the template data for the widget block
type WidgetView struct {
	Mode               accordion.Mode
	ShowRead           bool
	ShowEdit           bool
	Description        string
	List               string
	EnvironmentMessage string
	UserDisplayName    string
	HasTeamsContext    bool
	Inverted           bool
	Style              template.CSS
	Panel              PanelView
	Form               FormView
}

// PanelView is the read-mode panel. Exactly one of Placeholder, NoList,
// Error or Items describes what is shown.
type PanelView struct {
	Placeholder bool
	NoList      bool
	Error       string
	Items       []ItemView
}

// ItemView is one collapsible panel
type ItemView struct {
	Title string
	Body  template.HTML
}

// FormView is the edit-mode add-item form
type FormView struct {
	Visible     bool
	Submitting  bool
	Title       string
	Description string
	Editor      template.HTML // description as markup for the rich-text editor
	Error       string
}

// ConfigView is the template data for the configuration surface
type ConfigView struct {
	Description   string
	SelectionMode accordion.SelectionMode
	ListName      string
	ListChoice    string
	ListReference string
	Lists         []ListOption
	Applying      bool
}

// Create reports whether the create profile is active
func (v ConfigView) Create() bool {
	return v.SelectionMode != accordion.SelectionSelect
}

// ListOption is one entry of the existing-list dropdown
type ListOption struct {
	Name     string
	Selected bool
}
