package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/ratelimit"
)

// Server is the recommendation HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Config holds all dependencies and settings for creating a Server.
// Optional (nil-safe): Evaluator, Redis, Index, Limiter.
type Config struct {
	Recommender Recommender
	Profiler    Profiler
	Ingestor    Ingestor
	Evaluator   Evaluator
	DB          Pinger
	Redis       Pinger
	Index       HealthChecker
	Limiter     ratelimit.Limiter
	Logger      *slog.Logger

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	AuthToken           string
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg Config) *Server {
	h := NewHandlers(HandlersDeps{
		Recommender:         cfg.Recommender,
		Profiler:            cfg.Profiler,
		Ingestor:            cfg.Ingestor,
		Evaluator:           cfg.Evaluator,
		DB:                  cfg.DB,
		Redis:               cfg.Redis,
		Index:               cfg.Index,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Serving endpoints.
	mux.HandleFunc("GET /v1/users/{user_id}/recommendations", h.HandleRecommendations)
	mux.HandleFunc("GET /v1/products/{product_id}/similar", h.HandleSimilarProducts)
	mux.HandleFunc("GET /v1/products/{product_id}/frequently-bought-together", h.HandleFrequentlyBoughtTogether)
	mux.HandleFunc("GET /v1/trending", h.HandleTrending)
	mux.HandleFunc("GET /v1/trending/categories/{category_id}", h.HandleTrendingByCategory)

	// Personality endpoints.
	mux.HandleFunc("GET /v1/users/{user_id}/personality", h.HandlePersonalityProfile)
	mux.HandleFunc("GET /v1/users/{user_id}/personality/traits", h.HandlePersonalityTraits)

	// Feedback endpoints.
	mux.HandleFunc("POST /v1/feedback", h.HandleFeedback)
	mux.HandleFunc("POST /v1/users/{user_id}/not-interested", h.HandleNotInterested)
	mux.HandleFunc("DELETE /v1/users/{user_id}/not-interested/{product_id}", h.HandleRemoveNotInterested)

	// Event ingestion.
	mux.HandleFunc("POST /v1/interactions", h.HandleIngestInteraction)
	mux.HandleFunc("POST /v1/interactions/batch", h.HandleIngestInteractionBatch)

	// Offline evaluation.
	mux.HandleFunc("POST /v1/evaluation/run", h.HandleEvaluationRun)

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth →
	// recovery → rate limit → handler.
	var handler http.Handler = mux
	handler = ratelimit.Middleware(cfg.Limiter, ratelimit.UserOrIPKeyFunc)(handler)
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.AuthToken, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
