// Package server provides the HTTP dashboard for the AirBOT gesture controller.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/airbot/internal/app"
	"github.com/ayusman/airbot/internal/keys"
	"github.com/ayusman/airbot/internal/server/api"
	"github.com/ayusman/airbot/internal/store"
)

// ShutdownTimeout bounds how long Run waits for open requests on exit.
const ShutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	Keymap    *keys.Keymap
}

// Server represents the HTTP server for the AirBOT application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	events *EventHub
}

// New creates a new Server with the given configuration. Routes whose
// dependency is missing from config are not registered.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		events: NewEventHub(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/gestures", api.NewGestureHandler(s.config.Keymap))

	if a := s.config.App; a != nil {
		session := api.NewSessionHandler(a)
		s.mux.Handle("/api/status", session)
		s.mux.Handle("/api/log", session)
		s.mux.Handle("/api/session/", session)
		s.mux.Handle("/api/settings", api.NewSettingsHandler(a, s.config.Store))
		s.mux.Handle("/api/stream", NewStreamHandler(a.Frames()))
		s.mux.Handle("/api/events", s.events)

		a.OnDispatch(s.events.Publish)
	}

	if km := s.config.Keymap; km != nil {
		keymap := api.NewKeymapHandler(km, s.config.Store)
		s.mux.Handle("/api/keymap", keymap)
		s.mux.Handle("/api/keymap/", keymap)
	}

	if st := s.config.Store; st != nil {
		history := api.NewHistoryHandler(st)
		s.mux.Handle("/api/history", history)
		if s.config.App != nil {
			s.config.App.OnDispatch(history.Record)
		}
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Events returns the hub that pushes dispatches to WebSocket clients.
func (s *Server) Events() *EventHub {
	return s.events
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["running"] = s.config.App.Running()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.events.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
