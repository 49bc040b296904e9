package runtime

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/host"
	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/richtext"
	"github.com/livetemplate/accordion/internal/store"
)

// WidgetOptions configures a Widget
type WidgetOptions struct {
	Store   store.Store
	Inputs  host.RenderInputs
	Profile richtext.Profile
	Timeout time.Duration
	// OnUpdate is called, without locks held, after a store call completes
	// and changed what the widget renders.
	OnUpdate func()
}

// Widget is the composition root for one rendered instance. It routes the
// display mode to the read-mode panel or the edit-mode form and runs their
// store calls off the caller's goroutine.
type Widget struct {
	store    store.Store
	profile  richtext.Profile
	timeout  time.Duration
	onUpdate func()
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	inputs host.RenderInputs
	panel  *PanelState
	form   *FormState
	alert  string
	closed bool
}

// NewWidget creates a widget. Call Mount to start the initial load.
func NewWidget(opts WidgetOptions) *Widget {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStoreTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Widget{
		store:    opts.Store,
		profile:  opts.Profile,
		timeout:  opts.Timeout,
		onUpdate: opts.OnUpdate,
		log:      logging.Named("widget"),
		ctx:      ctx,
		cancel:   cancel,
		inputs:   opts.Inputs,
		form:     NewFormState(),
	}
}

// Mount mounts the component for the current mode
func (w *Widget) Mount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inputs.Mode == accordion.ModeRead {
		w.mountPanel()
	}
}

// HandleAction applies a browser action
func (w *Widget) HandleAction(action string, data map[string]interface{}) error {
	ctx := actionContext(action, data)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("widget is closed")
	}

	switch strings.ToLower(action) {
	case "add":
		w.form.Open()
	case "cancel":
		w.form.Cancel()
	case "title":
		return w.form.SetTitle(ctx.GetString("title"))
	case "description":
		_, err := w.form.SetDescription(ctx.GetString("description"))
		return err
	case "submit":
		if _, ok := data["title"]; ok {
			w.form.SetTitle(ctx.GetString("title"))
		}
		if _, ok := data["description"]; ok {
			w.form.SetDescription(ctx.GetString("description"))
		}
		return w.submit()
	case "mode":
		w.setInputs(w.inputs.WithMode(accordion.ParseMode(ctx.GetString("mode"))))
	case "theme":
		w.setInputs(w.inputs.WithTheme(host.Theme{
			Inverted: ctx.GetBool("inverted"),
			Palette: host.Palette{
				BodyText:    ctx.GetString("bodyText"),
				Link:        ctx.GetString("link"),
				LinkHovered: ctx.GetString("linkHovered"),
			},
		}))
	case "refresh":
		if w.inputs.Mode == accordion.ModeRead {
			w.mountPanel()
		}
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
	return nil
}

// SetInputs applies a host notification
func (w *Widget) SetInputs(in host.RenderInputs) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setInputs(in)
}

// SetProperties applies properties saved by a configuration surface
func (w *Widget) SetProperties(p accordion.Properties) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.setInputs(w.inputs.WithProperties(p))
}

// setInputs swaps the render inputs. Entering read mode mounts a fresh panel;
// in read mode a changed list reference reloads. Edit mode never fetches.
func (w *Widget) setInputs(in host.RenderInputs) {
	prev := w.inputs
	w.inputs = in

	if in.Mode != accordion.ModeRead {
		return
	}
	switch {
	case prev.Mode != accordion.ModeRead:
		w.mountPanel()
	case w.panel == nil || w.panel.NeedsLoad(in.ListReference()):
		w.mountPanel()
	}
}

// mountPanel replaces the panel and starts its fetch. Caller holds w.mu.
func (w *Widget) mountPanel() {
	list := strings.TrimSpace(w.inputs.ListReference())
	panel := NewPanelState(list)
	w.panel = panel
	if list == "" || w.closed {
		return
	}

	gen := panel.Begin(list)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
		res := FetchItems(ctx, w.store, list)
		cancel()

		w.mu.Lock()
		changed := w.panel == panel && panel.Complete(gen, res)
		w.mu.Unlock()

		if changed {
			w.notify()
		} else {
			w.log.Debug("discarded stale fetch", zap.String("list", list), zap.Uint64("generation", gen))
		}
	}()
}

// submit starts the add-item write. Caller holds w.mu.
func (w *Widget) submit() error {
	item, err := w.form.BeginSubmit()
	switch err {
	case nil:
	case ErrEmptyTitle:
		w.alert = AlertEmptyTitle
		return nil
	case ErrSubmitInFlight:
		return nil
	default:
		return err
	}

	list := w.inputs.ListReference()
	form := w.form
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
		res := AddItem(ctx, w.store, list, item.Title, item.Description)
		cancel()

		w.mu.Lock()
		form.FinishSubmit(res)
		if res.OK() && w.panel != nil {
			w.panel.Append(list, res.Item)
		}
		w.mu.Unlock()

		w.notify()
	}()
	return nil
}

func (w *Widget) notify() {
	if w.onUpdate != nil && w.ctx.Err() == nil {
		w.onUpdate()
	}
}

// TakeAlert returns and clears the pending alert
func (w *Widget) TakeAlert() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	alert := w.alert
	w.alert = ""
	return alert
}

// Inputs returns the current render inputs
func (w *Widget) Inputs() host.RenderInputs {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inputs
}

// Wait blocks until in-flight store calls have completed
func (w *Widget) Wait() {
	w.wg.Wait()
}

// Close cancels in-flight store calls and waits for them to return
func (w *Widget) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	return nil
}

// View snapshots what the widget renders
func (w *Widget) View() WidgetView {
	w.mu.Lock()
	defer w.mu.Unlock()

	in := w.inputs
	v := WidgetView{
		Mode:               in.Mode,
		ShowRead:           in.Mode == accordion.ModeRead,
		ShowEdit:           in.Mode == accordion.ModeEdit,
		Description:        in.Properties.Description,
		List:               in.ListReference(),
		EnvironmentMessage: in.EnvironmentMessage,
		UserDisplayName:    in.UserDisplayName,
		HasTeamsContext:    in.HasTeamsContext,
		Inverted:           in.Theme.Inverted,
		Style:              in.Theme.Style(),
	}
	if v.ShowRead {
		v.Panel = w.panelView()
	}
	if v.ShowEdit {
		v.Form = FormView{
			Visible:     w.form.Phase() != FormHidden,
			Submitting:  w.form.Phase() == FormSubmitting,
			Title:       w.form.Title(),
			Description: w.form.Description(),
			Editor:      template.HTML(w.form.Description()),
			Error:       w.form.Error(),
		}
	}
	return v
}

func (w *Widget) panelView() PanelView {
	if w.panel == nil {
		// not mounted yet
		if strings.TrimSpace(w.inputs.ListReference()) == "" {
			return PanelView{NoList: true}
		}
		return PanelView{Placeholder: true}
	}
	if w.panel.List() == "" {
		return PanelView{NoList: true}
	}
	switch w.panel.Phase() {
	case PanelLoaded:
		items := w.panel.Items()
		views := make([]ItemView, len(items))
		for i, it := range items {
			views[i] = ItemView{Title: it.Title, Body: richtext.MustRender(w.profile, it.Description)}
		}
		return PanelView{Items: views}
	case PanelFailed:
		_, err := w.panel.Failure()
		return PanelView{Error: store.UserFriendlyMessage(err)}
	default:
		return PanelView{Placeholder: true}
	}
}
