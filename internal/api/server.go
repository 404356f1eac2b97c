package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"grid-arena/internal/notify"
	"grid-arena/internal/registry"
)

// Server combines the REST router with the WebSocket command gateway.
type Server struct {
	registry    *registry.Registry
	hub         *notify.Hub
	router      *chi.Mux
	gateway     *Gateway
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// ServerConfig holds the server's tunables.
type ServerConfig struct {
	Gateway         GatewayConfig
	RateLimitConfig *RateLimitConfig
	CORSOrigins     []string
	DisableLogging  bool
}

// NewServer builds the full API surface. Construction is side-effect free
// apart from the rate limiter's cleanup goroutine; no listener opens until
// Start. Tests serve Router() with httptest instead of calling Start.
func NewServer(reg *registry.Registry, hub *notify.Hub, cfg ServerConfig) *Server {
	s := &Server{
		registry: reg,
		hub:      hub,
		gateway:  NewGateway(reg, hub, cfg.Gateway),
	}

	rateLimitCfg := DefaultRateLimitConfig
	if cfg.RateLimitConfig != nil {
		rateLimitCfg = *cfg.RateLimitConfig
	}
	s.rateLimiter = NewIPRateLimiter(rateLimitCfg)

	s.router = NewRouter(RouterConfig{
		Registry:       reg,
		Hub:            hub,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    cfg.CORSOrigins,
		DisableLogging: cfg.DisableLogging,
	})
	s.router.Get("/ws", s.gateway.HandleWS)

	return s
}

// Router returns the HTTP handler, for httptest in integration tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving on addr and blocks until the listener fails or
// Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("🌐 API server starting on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
