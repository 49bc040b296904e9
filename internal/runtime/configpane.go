package runtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/store"
)

// ConfigPaneOptions configures a ConfigPane
type ConfigPaneOptions struct {
	Store      store.Store
	Properties accordion.Properties
	Timeout    time.Duration
	// Persist saves applied properties and hands them to every instance
	Persist  func(ctx context.Context, p accordion.Properties) error
	OnUpdate func()
}

// ConfigPane is the settings surface for choosing or creating the backing
// list. Edits stay in a draft until Apply.
type ConfigPane struct {
	store    store.Store
	timeout  time.Duration
	persist  func(ctx context.Context, p accordion.Properties) error
	onUpdate func()
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	applied  accordion.Properties
	draft    accordion.Properties
	listName string
	lists    []string
	applying bool
	alert    string
	closed   bool
}

// NewConfigPane creates the configuration surface for props
func NewConfigPane(opts ConfigPaneOptions) *ConfigPane {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStoreTimeout
	}
	if opts.Properties.SelectionMode == "" {
		opts.Properties.SelectionMode = accordion.SelectionCreate
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ConfigPane{
		store:    opts.Store,
		timeout:  opts.Timeout,
		persist:  opts.Persist,
		onUpdate: opts.OnUpdate,
		log:      logging.Named("configpane"),
		ctx:      ctx,
		cancel:   cancel,
		applied:  opts.Properties,
		draft:    opts.Properties,
		listName: opts.Properties.ListReference,
	}
}

// Init pre-fetches the container names for the dropdown. A failure is logged
// and leaves the dropdown empty.
func (c *ConfigPane) Init(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	containers, err := c.store.ListContainers(ctx)
	if err != nil {
		c.log.Error("error fetching lists", zap.Error(err))
		return
	}
	names := make([]string, 0, len(containers))
	for _, ct := range containers {
		names = append(names, ct.Name)
	}

	c.mu.Lock()
	c.lists = names
	c.mu.Unlock()
}

// HandleAction applies a browser action
func (c *ConfigPane) HandleAction(action string, data map[string]interface{}) error {
	ctx := actionContext(action, data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("config pane is closed")
	}

	switch strings.ToLower(action) {
	case "description":
		c.draft.Description = ctx.GetString("description")
	case "selection":
		mode := accordion.SelectionMode(ctx.GetString("selectionMode"))
		if mode != accordion.SelectionCreate && mode != accordion.SelectionSelect {
			return fmt.Errorf("unknown selection mode: %q", mode)
		}
		c.draft.SelectionMode = mode
	case "listname":
		c.listName = ctx.GetString("listName")
	case "listchoice":
		c.draft.ListChoice = ctx.GetString("listChoice")
	case "apply":
		if v, ok := data["description"]; ok && v != nil {
			c.draft.Description = ctx.GetString("description")
		}
		if v, ok := data["selectionMode"]; ok && v != nil {
			mode := accordion.SelectionMode(ctx.GetString("selectionMode"))
			if mode != accordion.SelectionCreate && mode != accordion.SelectionSelect {
				return fmt.Errorf("unknown selection mode: %q", mode)
			}
			c.draft.SelectionMode = mode
		}
		if v, ok := data["listName"]; ok && v != nil {
			c.listName = ctx.GetString("listName")
		}
		if v, ok := data["listChoice"]; ok && v != nil {
			c.draft.ListChoice = ctx.GetString("listChoice")
		}
		c.apply()
	default:
		return fmt.Errorf("unknown action: %s", action)
	}
	return nil
}

// apply runs the active profile. Caller holds c.mu.
func (c *ConfigPane) apply() {
	if c.applying {
		return
	}

	switch c.draft.SelectionMode {
	case accordion.SelectionSelect:
		if c.draft.ListChoice == "" {
			c.alert = "Please select a list."
			return
		}
		c.alert = "You selected the pre-built list: " + c.draft.ListChoice
		props := c.draft
		props.ListReference = c.draft.ListChoice
		c.start(func(ctx context.Context) {
			c.save(ctx, props)
		})
	default:
		name := c.listName
		if strings.TrimSpace(name) == "" {
			c.alert = AlertEmptyListName
			return
		}
		props := c.draft
		props.ListReference = name
		c.start(func(ctx context.Context) {
			res := Provision(ctx, c.store, name)

			c.mu.Lock()
			c.alert = res.Alert
			if res.Outcome == ProvisionCreated {
				c.lists = append(c.lists, name)
			}
			c.mu.Unlock()

			if res.Outcome == ProvisionCreated || res.Outcome == ProvisionExists {
				c.save(ctx, props)
			}
		})
	}
}

// start runs fn off the action goroutine with the store timeout applied
func (c *ConfigPane) start(fn func(ctx context.Context)) {
	c.applying = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		fn(ctx)
		cancel()

		c.mu.Lock()
		c.applying = false
		c.mu.Unlock()

		if c.onUpdate != nil && c.ctx.Err() == nil {
			c.onUpdate()
		}
	}()
}

// save persists props and records them as applied
func (c *ConfigPane) save(ctx context.Context, props accordion.Properties) {
	if c.persist != nil {
		if err := c.persist(ctx, props); err != nil {
			c.log.Error("failed to persist properties", zap.Error(err))
			c.mu.Lock()
			c.alert = "Failed to save settings: " + err.Error()
			c.mu.Unlock()
			return
		}
	}
	c.mu.Lock()
	c.applied = props
	c.draft = props
	c.mu.Unlock()
}

// SetProperties adopts properties applied elsewhere
func (c *ConfigPane) SetProperties(p accordion.Properties) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied = p
	c.draft = p
	c.listName = p.ListReference
}

// Properties returns the last applied properties
func (c *ConfigPane) Properties() accordion.Properties {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied
}

// TakeAlert returns and clears the pending alert
func (c *ConfigPane) TakeAlert() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	alert := c.alert
	c.alert = ""
	return alert
}

// Wait blocks until a pending Apply has finished
func (c *ConfigPane) Wait() {
	c.wg.Wait()
}

// Close cancels a pending Apply and waits for it
func (c *ConfigPane) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// View snapshots the configuration surface
func (c *ConfigPane) View() ConfigView {
	c.mu.Lock()
	defer c.mu.Unlock()

	options := make([]ListOption, len(c.lists))
	for i, name := range c.lists {
		options[i] = ListOption{Name: name, Selected: name == c.draft.ListChoice}
	}

	return ConfigView{
		Description:   c.draft.Description,
		SelectionMode: c.draft.SelectionMode,
		ListName:      c.listName,
		ListChoice:    c.draft.ListChoice,
		ListReference: c.applied.ListReference,
		Lists:         options,
		Applying:      c.applying,
	}
}
