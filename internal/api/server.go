// Package api provides the HTTP REST API and WebSocket server for the
// irrigation addon.
//
// It exposes the grow hierarchy (rooms, pumps, zones, water events),
// legacy zone schedules, settings, manual run controls and live job
// status to the addon frontend.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/engine"
	"github.com/goatboynz/pro-irrigation-addon/internal/grow"
	"github.com/goatboynz/pro-irrigation-addon/internal/hass"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/config"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
	"github.com/goatboynz/pro-irrigation-addon/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// JobQueue is the slice of the queue processor the API needs.
// *engine.QueueProcessor satisfies it.
type JobQueue interface {
	Enqueue(pump grow.Pump, job *engine.ActuationJob) (int, error)
	EmergencyStop(pumpID int64) (cleared int, inFlight *string)
	Status(pumpID int64) engine.PumpStatus
}

// EntityDirectory is the slice of the Home Assistant client the API needs
// for entity discovery, schedule reads and health checks. *hass.Client
// satisfies it.
type EntityDirectory interface {
	GetState(ctx context.Context, entityID string) (*hass.EntityState, error)
	ListEntities(ctx context.Context, prefix string) ([]hass.EntityState, error)
	HealthCheck(ctx context.Context) error
}

// TimingProvider supplies the current light timing for auto-mode legacy
// zone schedule calculations. *engine.TimingSource satisfies it.
type TimingProvider interface {
	Current(ctx context.Context) (*schedule.TimingSettings, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Repo    grow.Repository
	Queue   JobQueue
	Hass    EntityDirectory
	Timing  TimingProvider
	Version string
}

// Server is the HTTP API server for the irrigation addon.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	repo    grow.Repository
	queue   JobQueue
	hass    EntityDirectory
	timing  TimingProvider
	version string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger.With("component", "api"),
		repo:    deps.Repo,
		queue:   deps.Queue,
		hass:    deps.Hass,
		timing:  deps.Timing,
		version: deps.Version,
		hub:     NewHub(deps.Logger),
	}, nil
}

// Notifier returns an engine notifier that broadcasts job lifecycle events
// to connected WebSocket clients.
func (s *Server) Notifier() *WSNotifier {
	return &WSNotifier{hub: s.hub}
}

// SetQueue installs the job queue the manual-run and status handlers
// dispatch to. The queue is constructed after the server so it can be
// given the server's WebSocket notifier; SetQueue must be called before
// Start.
func (s *Server) SetQueue(queue JobQueue) {
	s.queue = queue
}

// Start begins listening for HTTP connections.
//
// It builds the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("api server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("api server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}
