package devtools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/treeline-dev/treeline/pkg/state"
)

// Config configures the inspector server.
type Config struct {
	// Address is the listen address (default: "127.0.0.1:6390").
	Address string

	// ReadTimeout is the WebSocket read deadline (default: 60s).
	ReadTimeout time.Duration

	// WriteTimeout is the WebSocket write deadline (default: 10s).
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown (default: 5s).
	ShutdownTimeout time.Duration

	// CheckOrigin validates WebSocket upgrade origins. The default
	// accepts any origin, which is acceptable for a loopback-only
	// development endpoint.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns the default inspector configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         "127.0.0.1:6390",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// Server is the development inspector. Attach its Observer to the engine
// to feed the live stream, then call ListenAndServe.
type Server struct {
	engine *state.Engine
	config *Config
	hub    *hub

	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates an inspector for e. A nil config uses DefaultConfig.
func New(e *state.Engine, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.ReadTimeout == 0 {
			config.ReadTimeout = defaults.ReadTimeout
		}
		if config.WriteTimeout == 0 {
			config.WriteTimeout = defaults.WriteTimeout
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
	}

	logger := slog.Default().With("component", "devtools")

	s := &Server{
		engine: e,
		config: config,
		hub:    newHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/store", s.handleStore)
	r.Get("/api/paths", s.handlePaths)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/live", s.handleLive)

	s.httpServer = &http.Server{
		Addr:              config.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Observer returns the live-stream observer to register with the engine.
func (s *Server) Observer() state.Observer {
	return s.hub
}

// ListenAndServe blocks serving the inspector until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("inspector listening", "address", s.config.Address)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the inspector and disconnects live clients.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.hub.closeAll()
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the inspector's HTTP handler for mounting into an
// existing router instead of running a standalone server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Export())
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.engine.Paths())
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	c := s.hub.add(conn)
	go s.hub.writeLoop(c, s.config.WriteTimeout)
	go s.hub.readLoop(c, s.config.ReadTimeout)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode error", "error", err)
	}
}
