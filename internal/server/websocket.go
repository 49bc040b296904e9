package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/host"
	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/runtime"
)

// Block IDs addressed by the browser client
const (
	BlockWidget = "widget"
	BlockConfig = "config"
)

const writeTimeout = 10 * time.Second

// MessageEnvelope is a WebSocket message. Inbound messages carry an action and
// its data for one block; outbound messages carry the block's rendered HTML and
// an optional alert.
type MessageEnvelope struct {
	BlockID string          `json:"blockID"`
	Action  string          `json:"action"`
	Data    json.RawMessage `json:"data,omitempty"`
	HTML    string          `json:"html,omitempty"`
	Alert   string          `json:"alert,omitempty"`
}

// WebSocketHandler upgrades connections and gives each its own Session.
type WebSocketHandler struct {
	server   *Server
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler creates the handler for s
func NewWebSocketHandler(s *Server) *WebSocketHandler {
	return &WebSocketHandler{
		server: s,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the page may be framed by any allowed host
			},
		},
		log: logging.Named("ws"),
	}
}

// ServeHTTP upgrades the connection and runs its read loop
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	sess := h.server.newSession(r, conn)
	h.server.register(sess)
	defer func() {
		h.server.unregister(sess)
		sess.Close()
		conn.Close()
	}()

	h.log.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))
	sess.Start()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("unexpected close", zap.Error(err))
			}
			break
		}
		sess.HandleMessage(message)
	}

	h.log.Debug("client disconnected", zap.String("remote", conn.RemoteAddr().String()))
}

// messageWriter is the part of a WebSocket connection a Session writes to
type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Session is one browser connection: a widget instance and its configuration
// surface, with fully isolated state.
type Session struct {
	conn     messageWriter
	renderer *Renderer
	widget   *runtime.Widget
	config   *runtime.ConfigPane
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// SessionOptions configures a Session
type SessionOptions struct {
	Renderer *Renderer
	Widget   runtime.WidgetOptions
	Config   runtime.ConfigPaneOptions
}

// NewSession wires a widget and config pane to conn. Store completions
// re-render the affected block.
func NewSession(conn messageWriter, opts SessionOptions) *Session {
	s := &Session{
		conn:     conn,
		renderer: opts.Renderer,
		log:      logging.Named("session"),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	opts.Widget.OnUpdate = func() { s.Push(BlockWidget) }
	opts.Config.OnUpdate = func() { s.Push(BlockConfig) }
	s.widget = runtime.NewWidget(opts.Widget)
	s.config = runtime.NewConfigPane(opts.Config)
	return s
}

// Start mounts the widget, pushes both blocks, and pre-fetches the list names
// for the configuration dropdown.
func (s *Session) Start() {
	s.widget.Mount()
	s.Push(BlockWidget)
	s.Push(BlockConfig)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.config.Init(s.ctx)
		if s.ctx.Err() == nil {
			s.Push(BlockConfig)
		}
	}()
}

// HandleMessage routes an inbound envelope to its block and pushes the result
func (s *Session) HandleMessage(message []byte) {
	var env MessageEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		s.log.Warn("failed to parse message", zap.Error(err))
		return
	}

	handler, ok := s.block(env.BlockID)
	if !ok {
		s.log.Warn("unknown block", zap.String("blockID", env.BlockID))
		return
	}

	data := map[string]interface{}{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			s.log.Warn("failed to parse action data", zap.String("action", env.Action), zap.Error(err))
			return
		}
	}

	if err := handler.HandleAction(env.Action, data); err != nil {
		s.log.Warn("action failed",
			zap.String("blockID", env.BlockID),
			zap.String("action", env.Action),
			zap.Error(err))
	}
	s.Push(env.BlockID)
}

func (s *Session) block(id string) (runtime.ActionHandler, bool) {
	switch id {
	case BlockWidget:
		return s.widget, true
	case BlockConfig:
		return s.config, true
	default:
		return nil, false
	}
}

// Push renders a block and sends it with any pending alert
func (s *Session) Push(blockID string) {
	var (
		html  string
		alert string
		err   error
	)
	switch blockID {
	case BlockWidget:
		html, err = s.renderer.Widget(s.widget.View())
		alert = s.widget.TakeAlert()
	case BlockConfig:
		html, err = s.renderer.Config(s.config.View())
		alert = s.config.TakeAlert()
	default:
		return
	}
	if err != nil {
		s.log.Error("render failed", zap.String("blockID", blockID), zap.Error(err))
		return
	}

	s.send(MessageEnvelope{BlockID: blockID, Action: "html", HTML: html, Alert: alert})
}

// ApplyProperties adopts properties applied by any configuration surface
func (s *Session) ApplyProperties(p accordion.Properties) {
	s.widget.SetProperties(p)
	s.config.SetProperties(p)
	s.Push(BlockWidget)
	s.Push(BlockConfig)
}

// ApplyTheme adopts a theme change pushed by the host
func (s *Session) ApplyTheme(t host.Theme) {
	s.widget.SetInputs(s.widget.Inputs().WithTheme(t))
	s.Push(BlockWidget)
}

// send serializes writes to the connection
func (s *Session) send(env MessageEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if c, ok := s.conn.(*websocket.Conn); ok {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debug("failed to send message", zap.String("blockID", env.BlockID), zap.Error(err))
	}
}

// Close releases the widget and config pane, cancelling their store calls
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		if err := s.widget.Close(); err != nil {
			s.log.Warn("failed to close widget", zap.Error(err))
		}
		if err := s.config.Close(); err != nil {
			s.log.Warn("failed to close config pane", zap.Error(err))
		}
	})
}

// Widget returns the session's widget
func (s *Session) Widget() *runtime.Widget { return s.widget }

// Config returns the session's configuration surface
func (s *Session) Config() *runtime.ConfigPane { return s.config }
