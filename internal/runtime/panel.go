package runtime

import (
	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/store"
)

// PanelPhase is the read-mode panel lifecycle
type PanelPhase int

const (
	PanelUnloaded PanelPhase = iota
	PanelLoading
	PanelLoaded
	PanelFailed
)

func (p PanelPhase) String() string {
	switch p {
	case PanelUnloaded:
		return "unloaded"
	case PanelLoading:
		return "loading"
	case PanelLoaded:
		return "loaded"
	case PanelFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PanelState is the read-mode view state. It does no I/O: callers start a
// load with Begin and feed the fetch result back through Complete.
type PanelState struct {
	list       string
	phase      PanelPhase
	items      []accordion.Item
	err        error
	kind       store.Kind
	generation uint64
}

// NewPanelState creates an unloaded panel bound to list
func NewPanelState(list string) *PanelState {
	return &PanelState{list: list}
}

// NeedsLoad reports whether the panel must (re)fetch to show list
func (p *PanelState) NeedsLoad(list string) bool {
	return p.phase == PanelUnloaded || p.list != list
}

// Begin enters Loading for list and returns the generation the completion
// must carry. Any earlier in-flight load is superseded.
func (p *PanelState) Begin(list string) uint64 {
	p.generation++
	p.list = list
	p.phase = PanelLoading
	p.items = nil
	p.err = nil
	p.kind = store.KindNone
	return p.generation
}

// Complete applies a fetch result. It returns false, leaving the state
// untouched, when gen belongs to a superseded load.
func (p *PanelState) Complete(gen uint64, res FetchResult) bool {
	if gen != p.generation || p.phase != PanelLoading {
		return false
	}
	if res.Err != nil {
		p.phase = PanelFailed
		p.err = res.Err
		p.kind = res.Kind
		return true
	}
	p.phase = PanelLoaded
	p.items = append([]accordion.Item(nil), res.Items...)
	return true
}

// Append adds an item written by this instance so the view does not go stale.
// It is a no-op unless the panel is loaded for list.
func (p *PanelState) Append(list string, item accordion.Item) bool {
	if p.phase != PanelLoaded || p.list != list {
		return false
	}
	p.items = append(p.items, item)
	return true
}

// Phase returns the current lifecycle phase
func (p *PanelState) Phase() PanelPhase {
	return p.phase
}

// List returns the list the panel is bound to
func (p *PanelState) List() string {
	return p.list
}

// Items returns a copy of the loaded rows, or nil before the first load
func (p *PanelState) Items() []accordion.Item {
	if p.items == nil {
		return nil
	}
	return append([]accordion.Item(nil), p.items...)
}

// Failure returns the kind and error of the last failed fetch
func (p *PanelState) Failure() (store.Kind, error) {
	return p.kind, p.err
}
