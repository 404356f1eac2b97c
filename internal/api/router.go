package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"grid-arena/internal/notify"
	"grid-arena/internal/registry"
)

// RouterConfig contains the dependencies needed to construct the HTTP router.
// Designed for dependency injection: tests build a router around an in-memory
// registry and serve it with httptest.
type RouterConfig struct {
	// Registry is the session registry (required).
	Registry *registry.Registry

	// Hub is the notification hub (required; session detail reports its
	// subscriber count).
	Hub *notify.Hub

	// RateLimiter is an optional pre-configured limiter. If nil, one is
	// created from RateLimitConfig (or the defaults when that is nil too).
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins overrides the allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware, for benchmarks.
	DisableLogging bool
}

// routerHandlers holds the collaborators the REST handlers read from.
type routerHandlers struct {
	registry *registry.Registry
	hub      *notify.Hub
}

// NewRouter constructs the HTTP router with middleware and the REST routes.
//
// This function is PURE: no goroutines, no listeners, no background workers
// (the rate limiter's cleanup goroutine only starts if the caller did not
// pass one in). Safe to hand straight to httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS, to reject early and save CPU.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		registry: cfg.Registry,
		hub:      cfg.Hub,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", h.handleListSessions)
		r.Get("/sessions/{sessionID}", h.handleGetSession)
		r.Get("/stats", h.handleGetStats)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
