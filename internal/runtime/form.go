package runtime

import (
	"errors"
	"strings"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/store"
)

// FormPhase is the edit-mode add-item form lifecycle
type FormPhase int

const (
	FormHidden FormPhase = iota
	FormVisible
	FormSubmitting
)

func (p FormPhase) String() string {
	switch p {
	case FormHidden:
		return "hidden"
	case FormVisible:
		return "visible"
	case FormSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// AlertEmptyTitle is shown when Submit is pressed without a title
const AlertEmptyTitle = "Please enter a title."

var (
	// ErrEmptyTitle rejects a submit with a blank title
	ErrEmptyTitle = errors.New(AlertEmptyTitle)
	// ErrSubmitInFlight rejects a submit while one is pending
	ErrSubmitInFlight = errors.New("an item is already being added")
	// ErrFormHidden rejects input while the form is closed
	ErrFormHidden = errors.New("the add item form is not open")
)

// FormState is the add-item form. Like PanelState it does no I/O.
type FormState struct {
	phase       FormPhase
	title       string
	description string
	err         string
}

// NewFormState creates a hidden, empty form
func NewFormState() *FormState {
	return &FormState{}
}

// Open shows the form; a form that is already open keeps its input
func (f *FormState) Open() {
	if f.phase == FormHidden {
		f.phase = FormVisible
	}
}

// Cancel hides the form and clears it. A pending submit cannot be cancelled.
func (f *FormState) Cancel() bool {
	if f.phase == FormSubmitting {
		return false
	}
	f.reset()
	return true
}

// SetTitle records title keystrokes
func (f *FormState) SetTitle(title string) error {
	if f.phase != FormVisible {
		return ErrFormHidden
	}
	f.title = title
	return nil
}

// SetDescription records rich-text edits and returns the accepted value
func (f *FormState) SetDescription(description string) (string, error) {
	if f.phase != FormVisible {
		return f.description, ErrFormHidden
	}
	f.description = description
	return description, nil
}

// BeginSubmit validates the input and enters Submitting. The returned item
// is what must be written.
func (f *FormState) BeginSubmit() (accordion.Item, error) {
	switch f.phase {
	case FormHidden:
		return accordion.Item{}, ErrFormHidden
	case FormSubmitting:
		return accordion.Item{}, ErrSubmitInFlight
	}
	if strings.TrimSpace(f.title) == "" {
		return accordion.Item{}, ErrEmptyTitle
	}
	f.phase = FormSubmitting
	f.err = ""
	return accordion.Item{Title: f.title, Description: f.description}, nil
}

// FinishSubmit applies the write result. Success resets and hides the form;
// failure returns it to Visible with the input kept and the error shown.
func (f *FormState) FinishSubmit(res AddResult) {
	if f.phase != FormSubmitting {
		return
	}
	if res.Err != nil {
		f.phase = FormVisible
		f.err = "Failed to add item: " + store.UserFriendlyMessage(res.Err)
		return
	}
	f.reset()
}

func (f *FormState) reset() {
	f.phase = FormHidden
	f.title = ""
	f.description = ""
	f.err = ""
}

// Phase returns the current lifecycle phase
func (f *FormState) Phase() FormPhase {
	return f.phase
}

// Title returns the title being typed
func (f *FormState) Title() string {
	return f.title
}

// Description returns the rich-text description being edited
func (f *FormState) Description() string {
	return f.description
}

// Error returns the message of the last failed submit
func (f *FormState) Error() string {
	return f.err
}
