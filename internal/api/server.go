// Package api provides the HTTP API server and handlers for shelfkeeper.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfkeeper/shelfkeeper/internal/config"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/ratelimit"
	"github.com/shelfkeeper/shelfkeeper/internal/service"
	"github.com/shelfkeeper/shelfkeeper/internal/sse"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

// Services groups the business services used by the API server.
type Services struct {
	Auth        *service.AuthService
	Collections *service.CollectionService
	Items       *service.ItemService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	services   *Services
	sseManager *sse.Manager
	router     *chi.Mux
	api        huma.API
	limiter    *ratelimit.KeyedRateLimiter
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes configured. A nil
// limiter disables rate limiting.
func NewServer(
	st *store.Store,
	services *Services,
	sseManager *sse.Manager,
	cfg config.ServerConfig,
	limiter *ratelimit.KeyedRateLimiter,
	log *slog.Logger,
) *Server {
	log = logger.OrDiscard(log)
	router := chi.NewRouter()

	s := &Server{
		store:      st,
		services:   services,
		sseManager: sseManager,
		router:     router,
		limiter:    limiter,
		logger:     log,
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("Shelfkeeper API", "1.0.0")
	humaConfig.Info.Description = "Personal series and volume tracker"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)

	RegisterErrorHandler()
	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(cfg config.ServerConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           int((5 * time.Minute).Seconds()),
	}))
	s.router.Use(authMiddleware(s.services.Auth))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerCollectionRoutes()
	s.registerItemRoutes()

	// The change stream writes text/event-stream, so it bypasses huma.
	if s.sseManager != nil {
		s.router.With(requireAuth).Get("/api/v1/sync/stream", sse.NewHandler(s.sseManager, s.logger).ServeHTTP)
	}
}
