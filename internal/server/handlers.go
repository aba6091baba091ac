package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/evaluation"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/recs"
)

// Recommender serves ranked product lists. Implemented by
// *recs.Service.
type Recommender interface {
	Recommendations(ctx context.Context, userID int64, opts recs.Options) (model.RecommendationResult, error)
	Similar(ctx context.Context, productID int64, limit int) ([]model.RecommendedItem, error)
	Trending(ctx context.Context, limit int) ([]model.TrendingProduct, error)
	TrendingByCategory(ctx context.Context, categoryID int64, limit int) ([]model.TrendingProduct, error)
	FrequentlyBoughtTogether(ctx context.Context, productID int64, limit int) ([]model.ProductCandidate, error)
	RecordFeedback(ctx context.Context, fb model.RecommendationFeedback) (model.RecommendationFeedback, error)
	MarkNotInterested(ctx context.Context, userID, productID int64, reason string) error
	ClearNotInterested(ctx context.Context, userID, productID int64) error
}

// Profiler serves personality profiles. Implemented by
// *profiles.Service.
type Profiler interface {
	Get(ctx context.Context, userID int64) (model.PersonalityProfile, error)
}

// Ingestor accepts interaction events. Implemented by *ingest.Buffer.
type Ingestor interface {
	Append(ctx context.Context, events []model.InteractionEvent) ([]model.InteractionEvent, error)
	Len() int
	Capacity() int
}

// Evaluator runs offline quality evaluations. Implemented by
// *evaluation.Evaluator.
type Evaluator interface {
	Run(ctx context.Context, k, maxUsers int) (evaluation.Report, error)
}

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports vector index reachability.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	recommender Recommender
	profiler    Profiler
	ingestor    Ingestor
	evaluator   Evaluator
	db          Pinger
	redis       Pinger
	index       HealthChecker
	logger      *slog.Logger

	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Evaluator, Redis, Index.
type HandlersDeps struct {
	Recommender Recommender
	Profiler    Profiler
	Ingestor    Ingestor
	Evaluator   Evaluator
	DB          Pinger
	Redis       Pinger
	Index       HealthChecker
	Logger      *slog.Logger

	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		recommender:         d.Recommender,
		profiler:            d.Profiler,
		ingestor:            d.Ingestor,
		evaluator:           d.Evaluator,
		db:                  d.DB,
		redis:               d.Redis,
		index:               d.Index,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

type healthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version,omitempty"`
	Postgres     string `json:"postgres"`
	Redis        string `json:"redis,omitempty"`
	Qdrant       string `json:"qdrant,omitempty"`
	BufferDepth  int    `json:"buffer_depth"`
	BufferStatus string `json:"buffer_status"`
	Uptime       int64  `json:"uptime_seconds"`
}

// HandleHealth handles GET /health. Postgres down means unhealthy;
// Redis or Qdrant down only degrades, recommendations still serve.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "healthy",
		Version:  h.version,
		Postgres: "connected",
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	}
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		resp.Postgres = "disconnected"
		resp.Status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()); err != nil {
			resp.Redis = "disconnected"
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		} else {
			resp.Redis = "connected"
		}
	}

	if h.index != nil {
		if err := h.index.Healthy(r.Context()); err != nil {
			resp.Qdrant = "disconnected"
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		} else {
			resp.Qdrant = "connected"
		}
	}

	// Buffer pressure: over half full is high, over three quarters is
	// critical.
	resp.BufferStatus = "ok"
	if h.ingestor != nil {
		depth := h.ingestor.Len()
		capacity := h.ingestor.Capacity()
		resp.BufferDepth = depth
		if depth > capacity*3/4 {
			resp.BufferStatus = "critical"
			if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
		} else if depth > capacity/2 {
			resp.BufferStatus = "high"
		}
	}

	writeJSON(w, r, httpStatus, resp)
}
