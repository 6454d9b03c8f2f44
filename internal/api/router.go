package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"mazewars/internal/game"
)

// EngineInterface is the part of the engine the HTTP API reads.
// Tests substitute a fixed snapshot.
type EngineInterface interface {
	// Snapshot returns the state published by the last tick (never nil)
	Snapshot() *game.GameSnapshot
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine: fakeEngine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the snapshot source (required)
	Engine EngineInterface

	// Clients is optional; /api/state reports zero clients without it.
	Clients ClientCounter

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only if RateLimiter is nil. If both are nil,
	// DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins restricts browser origins for the read-only API.
	// If empty, any origin may read.
	CORSOrigins []string

	// InstanceID is reported by /health.
	InstanceID string

	// DisableLogging disables the request logger middleware.
	DisableLogging bool
}

type routerHandlers struct {
	engine     EngineInterface
	clients    ClientCounter
	renders    *RenderCache
	instanceID string
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It has no side effects beyond the rate limiter's cleanup goroutine when one
// is created here, so it is safe to use with httptest.NewServer. The websocket
// route is added by Server.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}

	corsOrigins := cfg.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	h := &routerHandlers{
		engine:     cfg.Engine,
		clients:    cfg.Clients,
		renders:    NewRenderCache(DefaultMaxRenders),
		instanceID: cfg.InstanceID,
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		r.Use(corsHandler)

		r.Get("/state", h.handleGetState)
		r.Get("/map", h.handleGetMap)
		r.Get("/map.png", h.handleMapPNG)
		r.Get("/stats", h.handleGetStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "not found", http.StatusNotFound)
	})

	return r
}
