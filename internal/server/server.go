package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/assets"
	"github.com/livetemplate/accordion/internal/config"
	"github.com/livetemplate/accordion/internal/host"
	"github.com/livetemplate/accordion/internal/logging"
	"github.com/livetemplate/accordion/internal/richtext"
	"github.com/livetemplate/accordion/internal/runtime"
	"github.com/livetemplate/accordion/internal/store"
)

// Server serves the widget page, its WebSocket and, when enabled, the list
// REST API. It is also the broadcast hub: applied properties are persisted to
// the config file and handed to every connected session.
type Server struct {
	cfgPath  string
	store    store.Store
	renderer *Renderer
	handler  http.Handler
	log      *zap.Logger

	mu  sync.RWMutex
	cfg *config.Config

	sessMu   sync.RWMutex
	sessions map[*Session]struct{}

	watcher     *Watcher
	ctx         context.Context
	cancel      context.CancelFunc
	limiterDone <-chan struct{}
}

// New creates a server for cfg. cfgPath is where applied properties are saved;
// empty keeps them in memory only.
func New(cfg *config.Config, cfgPath string, s store.Store) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfgPath:  cfgPath,
		store:    s,
		renderer: renderer,
		log:      logging.Named("server"),
		cfg:      cfg,
		sessions: make(map[*Session]struct{}),
	}
	srv.ctx, srv.cancel = context.WithCancel(context.Background())
	srv.handler = srv.routes()
	return srv, nil
}

func (s *Server) routes() http.Handler {
	cfg := s.Config()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.servePage)
	mux.Handle("GET /ws", NewWebSocketHandler(s))
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(assets.ClientFS())))
	mux.HandleFunc("GET /healthz", s.serveHealth)

	if cfg.IsAPIEnabled() {
		limit, done := RateLimitMiddleware(s.ctx,
			cfg.API.GetRateLimitRPS(),
			cfg.API.GetRateLimitBurst(),
			cfg.API.GetMaxTrackedIPs())
		s.limiterDone = done

		mux.Handle("/api/", chain(NewAPIHandler(s.store, cfg.Store.GetTimeout()),
			CORSMiddleware(cfg.API.GetCORSOrigins(), cfg.API.Auth.GetHeaderName()),
			limit,
			AuthMiddleware(cfg.API.Auth),
		))
		s.log.Info("list API enabled", zap.Bool("auth", cfg.API.IsAuthEnabled()))
	}

	return chain(mux,
		SecurityHeadersMiddleware(cfg.Server.FrameAncestors),
		CompressionMiddleware,
	)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Config returns the current configuration
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Properties returns the properties new sessions start with
func (s *Server) Properties() accordion.Properties {
	return s.Config().Widget.Properties()
}

// sessionOptions builds the per-connection state for a request. The "mode"
// query parameter overrides the configured display mode.
func (s *Server) sessionOptions(r *http.Request) SessionOptions {
	cfg := s.Config()

	mode := cfg.Widget.GetMode()
	if m := r.URL.Query().Get("mode"); m != "" {
		mode = accordion.ParseMode(m)
	}
	profile, err := richtext.ParseProfile(cfg.Widget.RichText)
	if err != nil {
		profile = richtext.ProfileHTML
	}

	props := cfg.Widget.Properties()
	env := host.DetectEnvironment(r, cfg.Environment)
	inputs := host.NewRenderInputs(props, mode, host.ThemeFromConfig(cfg.Theme), env, config.GetOperator())
	timeout := cfg.Store.GetTimeout()

	return SessionOptions{
		Renderer: s.renderer,
		Widget: runtime.WidgetOptions{
			Store:   s.store,
			Inputs:  inputs,
			Profile: profile,
			Timeout: timeout,
		},
		Config: runtime.ConfigPaneOptions{
			Store:      s.store,
			Properties: props,
			Timeout:    timeout,
			Persist:    s.ApplyProperties,
		},
	}
}

func (s *Server) newSession(r *http.Request, conn messageWriter) *Session {
	return NewSession(conn, s.sessionOptions(r))
}

func (s *Server) register(sess *Session) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	s.sessions[sess] = struct{}{}
	s.log.Debug("session registered", zap.Int("active", len(s.sessions)))
}

func (s *Server) unregister(sess *Session) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	delete(s.sessions, sess)
	s.log.Debug("session unregistered", zap.Int("active", len(s.sessions)))
}

func (s *Server) snapshot() []*Session {
	s.sessMu.RLock()
	defer s.sessMu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// SessionCount returns the number of connected sessions
func (s *Server) SessionCount() int {
	s.sessMu.RLock()
	defer s.sessMu.RUnlock()
	return len(s.sessions)
}

// ApplyProperties persists p to the config file and hands it to every session
func (s *Server) ApplyProperties(ctx context.Context, p accordion.Properties) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	next := *s.cfg
	next.Widget.SetProperties(p)
	if s.cfgPath != "" {
		if err := next.Save(s.cfgPath); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.cfg = &next
	s.mu.Unlock()

	s.log.Info("properties applied", zap.String("list", p.ListReference))
	s.broadcastProperties(p)
	return nil
}

func (s *Server) broadcastProperties(p accordion.Properties) {
	for _, sess := range s.snapshot() {
		sess.ApplyProperties(p)
	}
}

func (s *Server) broadcastTheme(t host.Theme) {
	for _, sess := range s.snapshot() {
		sess.ApplyTheme(t)
	}
}

// Reload re-reads the config file and broadcasts changed properties or
// theme. Server, store and API settings take effect on restart.
func (s *Server) Reload() error {
	if s.cfgPath == "" {
		return nil
	}
	cfg, err := config.Load(s.cfgPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	if props := cfg.Widget.Properties(); props != prev.Widget.Properties() {
		s.log.Info("properties reloaded", zap.String("list", props.ListReference))
		s.broadcastProperties(props)
	}
	if cfg.Theme != prev.Theme {
		s.broadcastTheme(host.ThemeFromConfig(cfg.Theme))
	}
	return nil
}

// servePage renders the widget page. Both blocks are pre-rendered from a
// throwaway session state; the WebSocket session replaces them on connect.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	opts := s.sessionOptions(r)
	widget := runtime.NewWidget(opts.Widget)
	pane := runtime.NewConfigPane(opts.Config)
	defer widget.Close()
	defer pane.Close()

	widgetHTML, err := s.renderer.Widget(widget.View())
	if err != nil {
		s.log.Error("failed to render widget", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	configHTML, err := s.renderer.Config(pane.View())
	if err != nil {
		s.log.Error("failed to render config", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = s.renderer.Page(w, PageData{
		Title:  s.Config().Title,
		Widget: template.HTML(widgetHTML),
		Config: template.HTML(configHTML),
	})
	if err != nil {
		s.log.Error("failed to write page", zap.Error(err))
	}
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"store":    s.store.Name(),
		"sessions": s.SessionCount(),
	})
}

// EnableWatch re-loads the config file whenever it changes
func (s *Server) EnableWatch() error {
	if s.cfgPath == "" {
		return errors.New("no config file to watch")
	}
	watcher, err := NewWatcher(s.cfgPath, func(path string) error {
		return s.Reload()
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	s.watcher = watcher
	s.watcher.Start()
	s.log.Info("watching config file", zap.String("path", s.cfgPath))
	return nil
}

// StopWatch stops the file watcher if it's running.
func (s *Server) StopWatch() error {
	if s.watcher != nil {
		return s.watcher.Stop()
	}
	return nil
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and disconnects every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	s.log.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpSrv.Shutdown(shutdownCtx)
	s.disconnectAll()
	return err
}

// disconnectAll closes every session's connection, ending its read loop
func (s *Server) disconnectAll() {
	for _, sess := range s.snapshot() {
		if c, ok := sess.conn.(io.Closer); ok {
			c.Close()
		}
	}
}

// Close stops the watcher and background goroutines and disconnects sessions.
// The store is owned by the caller.
func (s *Server) Close() error {
	err := s.StopWatch()
	s.cancel()
	if s.limiterDone != nil {
		<-s.limiterDone
	}
	s.disconnectAll()
	return err
}
