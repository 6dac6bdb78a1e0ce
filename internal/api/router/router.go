package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/lifevault-relay/internal/http/middleware"
	"github.com/wolfman30/lifevault-relay/internal/registry"
	"github.com/wolfman30/lifevault-relay/internal/relay"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	RegistryHandler    *registry.Handler
	RelayHandler       *relay.Handler
	Registry           CallerCounter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	AdminAuthSecret    string

	// Per-IP limit on the chat endpoint. Zero disables it.
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.Recoverer(logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.RequestSize(MaxBodyBytes))

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(routeNotFound)

	r.Get("/api/health", healthHandler(cfg.Registry, logger))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.RegistryHandler != nil {
		r.Post("/api/register-user", cfg.RegistryHandler.RegisterUser)
	}

	if cfg.RelayHandler != nil {
		r.With(httpmiddleware.RateLimit(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)).
			Post("/api/ai/chat", cfg.RelayHandler.Chat)
		r.Post("/api/ai/triage", cfg.RelayHandler.Triage)
	}

	// Caller inspection, protected by HMAC JWT
	if cfg.AdminAuthSecret != "" && cfg.RegistryHandler != nil {
		r.With(httpmiddleware.AdminJWT(cfg.AdminAuthSecret)).
			Get("/admin/callers/{uid}", cfg.RegistryHandler.GetCaller)
	}

	return r
}

// routeNotFound answers unmatched paths and methods alike.
func routeNotFound(w http.ResponseWriter, r *http.Request) {
	target := r.RequestURI
	if target == "" {
		target = r.URL.RequestURI()
	}
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": fmt.Sprintf("Route %s %s not found", r.Method, target),
	})
}
