package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okorolev/tolmach/internal/config"
	"github.com/okorolev/tolmach/internal/pipeline"
	"github.com/okorolev/tolmach/internal/websocket"
	"github.com/okorolev/tolmach/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(p *pipeline.Pipeline, wsServer *websocket.Server, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(p, wsServer, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Pipeline status and statistics
		router.Get("/status", r.handler.GetStatus)
		router.Get("/stats", r.handler.GetStats)

		// Pipeline control
		router.Post("/pipeline/start", r.handler.StartPipeline)
		router.Post("/pipeline/stop", r.handler.StopPipeline)

		// Live transcript stream
		router.Get("/ws", r.handler.HandleWebSocket)
	})

	return router
}
