package monitoring

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"braillekbd/config"
	"braillekbd/keyboard"
)

//go:embed dashboard.html
var dashboardHTML string

// DefaultConfigPath is served by /api/config when no path is given
const DefaultConfigPath = "/etc/braillekbd/config.json"

// Server provides HTTP endpoints for monitoring and for the web layer that
// shares the keyboard drivers
type Server struct {
	config *config.MonitoringConfig
	hub    *keyboard.Hub
	server *http.Server
	logger *slog.Logger

	// ctx outlives requests; LED sequences started by /api/feedback run on it
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new monitoring server
func NewServer(cfg *config.Config, version string, hub *keyboard.Hub, logger *slog.Logger) *Server {
	return NewServerWithConfigPath(cfg, version, hub, logger, DefaultConfigPath)
}

// NewServerWithConfigPath creates a new monitoring server with a custom config path
func NewServerWithConfigPath(cfg *config.Config, version string, hub *keyboard.Hub, logger *slog.Logger, configPath string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	mux := http.NewServeMux()

	// Health endpoint
	mux.Handle("/health", NewHealthHandler(cfg.App.InstanceID, version, hub))

	// Metrics endpoint (Prometheus format)
	mux.Handle("/metrics", NewMetricsHandler(hub))

	// Config endpoint
	mux.Handle("/api/config", NewConfigHandler(configPath))

	// Keyboard state and edits
	mux.Handle("/api/input", NewInputHandler(hub, cfg.Translit.Default, logger))

	// LED and vibration feedback
	mux.Handle("/api/feedback", NewFeedbackHandler(ctx, hub, cfg.Feedback.GetLedStep(), logger))

	// Line injection for mock keyboards
	mux.Handle("/api/simulate", NewSimulateHandler(hub))

	// Serial ports on this host
	mux.Handle("/api/ports", NewPortsHandler())

	// Dashboard endpoint
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, dashboardHTML)
	})

	return &Server{
		config: &cfg.Monitoring,
		hub:    hub,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Monitoring.Port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the monitoring server
func (s *Server) Start() error {
	s.logger.Info("Starting monitoring server", "port", s.config.Port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Monitoring server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the monitoring server and cancels running LED
// sequences
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping monitoring server")
	s.cancel()
	return s.server.Shutdown(ctx)
}

// lookup resolves the keyboard query parameter; empty means the first
// configured keyboard
func lookup(hub *keyboard.Hub, name string) (*keyboard.Driver, bool) {
	if name == "" {
		return hub.Default()
	}
	return hub.Get(name)
}
