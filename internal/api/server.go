package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/visionpilot/internal/engine"
	"github.com/nerrad567/visionpilot/internal/feature"
	"github.com/nerrad567/visionpilot/internal/infrastructure/config"
	"github.com/nerrad567/visionpilot/internal/infrastructure/logging"
	"github.com/nerrad567/visionpilot/internal/journal"
	"github.com/nerrad567/visionpilot/internal/mode"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// stopTimeout bounds how long POST /control/stop waits for teardown.
const stopTimeout = 15 * time.Second

// Host is the session control surface. *engine.Host implements it.
type Host interface {
	Start() error
	Stop(ctx context.Context) error
	Running() bool
	Status() engine.Status
	SetMode(m mode.Mode) error
	UpdateFeatureConfig(m mode.Mode, updates mode.FeatureUpdates) error
	ResetFeatureConfig(m mode.Mode) error
}

// Modes reads the mode store. *mode.Manager implements it.
type Modes interface {
	Summaries() []mode.Summary
	ModeConfig(m mode.Mode) (mode.FeatureConfig, error)
}

// Features reads the strategy registry. *feature.Registry implements it.
type Features interface {
	Available(m mode.Mode) []feature.Info
	ExecutionOrder(m mode.Mode) []feature.Type
}

// Connectivity reports whether an optional backend is connected.
type Connectivity interface {
	IsConnected() bool
}

// DBStats reports connection pool statistics.
type DBStats interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Host     Host
	Modes    Modes
	Features Features
	Journal  journal.Repository // optional
	Hub      *Hub               // optional; created when nil
	MQTT     Connectivity       // optional, for metrics
	InfluxDB Connectivity       // optional, for metrics
	DB       DBStats            // optional, for metrics
	Version  string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	host      Host
	modes     Modes
	features  Features
	journal   journal.Repository
	mqtt      Connectivity
	influx    Connectivity
	db        DBStats
	version   string
	hub       *Hub
	server    *http.Server
	startTime time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.Host == nil:
		return nil, errors.New("host is required")
	case deps.Modes == nil:
		return nil, errors.New("mode manager is required")
	case deps.Features == nil:
		return nil, errors.New("feature registry is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		host:      deps.Host,
		modes:     deps.Modes,
		features:  deps.Features,
		journal:   deps.Journal,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.DB,
		version:   deps.Version,
		hub:       hub,
		startTime: time.Now(),
	}, nil
}

// Hub returns the WebSocket hub so it can be registered as an engine observer.
func (s *Server) Hub() *Hub { return s.hub }

// Start binds the listener and serves in a background goroutine.
//
// Binding happens before Start returns, so a port conflict is reported
// to the caller rather than logged later.
//
// Parameters:
//   - ctx: Parent context for the hub; Close stops everything regardless
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	srvCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		cancel()
		return fmt.Errorf("binding API listener: %w", err)
	}
	s.logger.Info("API server listening", "address", ln.Addr().String())

	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	<-s.done
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
