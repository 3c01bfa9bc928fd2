// Package server provides the HTTP server for the Kuchipudi gesture recognition system.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/kuchipudi/internal/broadcast"
	"github.com/ayusman/kuchipudi/internal/capture"
	"github.com/ayusman/kuchipudi/internal/config"
	"github.com/ayusman/kuchipudi/internal/detector"
	"github.com/ayusman/kuchipudi/internal/server/api"
	"github.com/ayusman/kuchipudi/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Camera    capture.Camera
	Detector  detector.Detector
	// Broadcaster, if set, serves the gesture event WebSocket stream
	// at /api/gestures/stream.
	Broadcaster *broadcast.Broadcaster
	// Pipeline, if set, is exposed read/write at /api/config; PUT persists
	// to ConfigPath for the next start.
	Pipeline   *config.Config
	ConfigPath string
	// Events, if set, backs /api/events.
	Events api.EventSource
}

// Server represents the HTTP server for the Kuchipudi application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Register gesture API handler if Store is configured
	if s.config.Store != nil {
		gestureHandler := api.NewGestureHandler(s.config.Store)
		samplesHandler := api.NewSamplesHandler(s.config.Store)

		// Use a wrapper to route between gestures and samples handlers
		gestureRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check if this is a samples request: /api/gestures/{id}/samples
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			gestureHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/gestures", gestureRouter)
		s.mux.Handle("/api/gestures/", gestureRouter)

		actionHandler := api.NewActionHandler(s.config.Store)
		s.mux.Handle("/api/actions", actionHandler)
		s.mux.Handle("/api/actions/", actionHandler)

		s.mux.Handle("/api/stats", api.NewStatsHandler(s.config.Store))
	}

	// Register camera stream endpoint if Camera is configured
	if s.config.Camera != nil {
		streamHandler := NewStreamHandler(s.config.Camera)
		s.mux.Handle("/api/stream", streamHandler)
	}

	// Register landmarks WebSocket endpoint if Camera and Detector are configured
	if s.config.Camera != nil && s.config.Detector != nil {
		landmarksHandler := NewLandmarksHandler(s.config.Detector, s.config.Camera)
		s.mux.Handle("/api/landmarks", landmarksHandler)
	}

	// Register the gesture event stream if a Broadcaster is configured:
	// one WebSocket subscriber per connection.
	if s.config.Broadcaster != nil {
		gestureHandler := NewGestureStreamHandler(s.config.Broadcaster)
		s.mux.Handle("/api/gestures/stream", gestureHandler)
	}

	// Register the diagnostic config/events endpoints.
	if s.config.Pipeline != nil {
		s.mux.Handle("/api/config", api.NewConfigHandler(s.config.Pipeline, s.config.ConfigPath))
	}
	if s.config.Events != nil {
		s.mux.Handle("/api/events", api.NewEventsHandler(s.config.Events))
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

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It blocks
// until the server is shut down via Shutdown, or fails to bind.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server, closing every gesture
// subscriber with a normal close.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.Broadcaster != nil {
		s.config.Broadcaster.Shutdown()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
