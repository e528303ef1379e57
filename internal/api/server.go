package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-hub/internal/bridges/entitybridge"
	"github.com/nerrad567/gray-logic-hub/internal/entity"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hub/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hub/internal/process"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Commander executes entity commands and reports published states.
// *entitybridge.Bridge satisfies it.
type Commander interface {
	Execute(ctx context.Context, cmd entitybridge.CommandMessage) entitybridge.AckMessage
	AddStateListener(fn func(entitybridge.StateMessage)) (remove func())
	Statistics() entitybridge.BridgeStatistics
}

// EntryStatus describes one loaded integration entry.
type EntryStatus struct {
	Domain  string `json:"domain"`
	EntryID string `json:"entry_id"`
	Title   string `json:"title,omitempty"`

	// Ready is set once the entry's entities are registered.
	Ready             bool      `json:"ready"`
	LastUpdateSuccess bool      `json:"last_update_success"`
	LastUpdate        time.Time `json:"last_update,omitzero"`

	// SDK is nil for entries whose vendor process runs elsewhere.
	SDK *process.Stats `json:"sdk,omitempty"`
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *entity.Registry

	// Bridge and History are optional.
	Bridge  Commander
	History entity.StateHistoryRepository

	// Entries reports the loaded integration entries. Optional.
	Entries func() []EntryStatus

	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	registry *entity.Registry
	bridge   Commander
	history  entity.StateHistoryRepository
	entries  func() []EntryStatus
	version  string
	started  time.Time

	server   *http.Server
	hub      *Hub
	metrics  *metrics
	cancel   context.CancelFunc
	unlisten func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("entity registry is required")
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		logger:   deps.Logger,
		registry: deps.Registry,
		bridge:   deps.Bridge,
		history:  deps.History,
		entries:  deps.Entries,
		version:  deps.Version,
		hub:      NewHub(deps.WS, deps.Logger),
	}
	s.metrics = newMetrics(s)
	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays bridge state publications to it and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()

	go s.hub.Run(srvCtx)

	if s.bridge != nil {
		s.unlisten = s.bridge.AddStateListener(func(msg entitybridge.StateMessage) {
			s.hub.Broadcast(ChannelStateChanged, msg.EntityID, msg)
		})
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if s.unlisten != nil {
		s.unlisten()
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
		return fmt.Errorf("api server not started")
	}
	return nil
}
