package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mazewars/internal/config"
	"mazewars/internal/game"
)

// Server wires the engine, the websocket hub and the HTTP router together.
type Server struct {
	engine      *game.Engine
	hub         *Hub
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	logger      *zap.Logger
	instanceID  string
	cfg         config.ServerConfig

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
}

// NewServer builds the engine and the transport around it.
//
// Background workers do not start until Start (or Serve) is called, so tests
// can construct the server and use Router without goroutines running.
func NewServer(cfg config.ServerConfig, world game.WorldConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger:     logger,
		instanceID: uuid.NewString(),
		cfg:        cfg,
		stopChan:   make(chan struct{}),
	}

	s.hub = NewHub(HubConfig{
		MaxClients:     cfg.MaxClients,
		MaxConnsPerIP:  cfg.MaxConnsPerIP,
		InboundPerSec:  cfg.InboundPerSec,
		InboundBurst:   cfg.InboundBurst,
		AllowedOrigins: cfg.AllowedOrigins,
		StatsInterval:  cfg.StatsInterval,
	}, nil, logger)

	engine, err := game.NewEngine(game.EngineConfig{TickRate: cfg.TickRate, World: world}, s.hub, logger)
	if err != nil {
		return nil, err
	}
	engine.OnTick = RecordTick
	engine.OnTransition = RecordRoundTransition
	s.engine = engine
	s.hub.engine = engine

	s.rateLimiter = NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: cfg.HTTPPerSec,
		Burst:             cfg.HTTPBurst,
	})

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		Clients:        s.hub,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.AllowedOrigins,
		InstanceID:     s.instanceID,
		DisableLogging: true,
	})
	s.router.Get("/ws", s.hub.HandleWebSocket)

	return s, nil
}

// Engine returns the simulation host.
func (s *Server) Engine() *game.Engine {
	return s.engine
}

// Hub returns the websocket transport.
func (s *Server) Hub() *Hub {
	return s.hub
}

// InstanceID identifies this process in /health and logs.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// startWorkers launches the hub, the engine and the metrics loop.
func (s *Server) startWorkers() {
	s.startOnce.Do(func() {
		go s.hub.Run()
		s.engine.Start()
		go s.statsLoop()
	})
}

func (s *Server) statsLoop() {
	interval := s.cfg.StatsInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			stats := s.engine.GetEventLogStats()
			total, _ := stats["total"].(uint64)
			dropped, _ := stats["dropped"].(uint64)
			UpdateEventLogStats(total, dropped)
		}
	}
}

// Serve starts background workers and serves HTTP on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.startWorkers()

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("websocket", "ws://"+ln.Addr().String()+"/ws"),
		zap.Int("max_clients", s.cfg.MaxClients),
		zap.Int("tick_rate", s.cfg.TickRate),
		zap.String("instance", s.instanceID))

	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start binds addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops accepting requests, closes websocket clients and halts the engine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		s.hub.Stop()
		s.engine.Stop()
		s.rateLimiter.Stop()
	})
	return err
}
