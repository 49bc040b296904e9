// Package accordion provides the core types for the list-backed accordion widget:
// items read from and appended to a named list, the display modes, and the
// property schema the host hands to the widget.
package accordion

import "strings"

// Item is one row of a list. The store owns any identifier; the widget never sees it.
type Item struct {
	Title       string `json:"Title" yaml:"title"`
	Description string `json:"Description" yaml:"description"` // rich text payload
}

// Mode selects which half of the widget is rendered.
type Mode string

const (
	ModeRead Mode = "read"
	ModeEdit Mode = "edit"
)

// ParseMode normalizes a host-supplied mode value. Unrecognized values are
// returned as-is and render neither component.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "display", "":
		return ModeRead
	case "edit":
		return ModeEdit
	default:
		return Mode(s)
	}
}

// IsKnown reports whether the mode routes to a component.
func (m Mode) IsKnown() bool {
	return m == ModeRead || m == ModeEdit
}

// SelectionMode is the configuration profile used to choose the backing list.
type SelectionMode string

const (
	SelectionCreate SelectionMode = "create" // type a new list name, provision on Apply
	SelectionSelect SelectionMode = "select" // pick an existing list from a dropdown
)

// Properties is the unified property schema persisted by the configuration surface.
type Properties struct {
	Description   string        `json:"description" yaml:"description"`
	ListReference string        `json:"list" yaml:"list"`
	ListChoice    string        `json:"listChoice,omitempty" yaml:"list_choice,omitempty"`
	SelectionMode SelectionMode `json:"selectionMode,omitempty" yaml:"selection_mode,omitempty"`
}

// HasList reports whether a backing list has been configured.
func (p Properties) HasList() bool {
	return strings.TrimSpace(p.ListReference) != ""
}
