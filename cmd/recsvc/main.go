package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/cache"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/evaluation"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/filtersignal"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/persona"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/ratelimit"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/recommend"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/search"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/server"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/embedding"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/ingest"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/profiles"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/recs"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/telemetry"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/trending"
	"github.com/AdnanSerri/ai-driven-ecommerce/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("RECSVC_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("recsvc starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	// Apply migrations. RunMigrations tracks applied files in
	// schema_migrations and skips duplicates, so errors here indicate
	// real failures.
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Redis cache (optional; a nil cache is a valid no-op).
	var userCache *cache.Cache
	if cfg.RedisURL != "" {
		userCache, err = cache.New(cfg.RedisURL, cfg.ProfileCacheTTL, cfg.RecommendationCacheTTL, logger)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		defer func() { _ = userCache.Close() }()
		if err := userCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup, serving without cache until it recovers", "error", err)
		} else {
			logger.Info("redis cache: enabled")
		}
	} else {
		logger.Info("redis cache: disabled (no REDIS_URL)")
	}

	// Embedding provider.
	embedder := newEmbeddingProvider(cfg, logger)

	// Qdrant index and background indexer (optional).
	var index search.Index
	var indexer *search.Indexer
	if cfg.QdrantURL != "" {
		qdrantIndex, err := search.NewQdrantIndex(search.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dims:       uint64(cfg.EmbeddingDimensions), //nolint:gosec // validated positive in config.Validate
		}, logger)
		if err != nil {
			return fmt.Errorf("qdrant: %w", err)
		}
		defer func() { _ = qdrantIndex.Close() }()

		if err := qdrantIndex.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("qdrant ensure collection: %w", err)
		}

		index = qdrantIndex
		indexer = search.NewIndexer(db, qdrantIndex, embedder, logger, 0, 0)
		indexer.Start(ctx)
		logger.Info("qdrant: enabled", "collection", cfg.QdrantCollection)
	} else {
		logger.Info("qdrant: disabled (no QDRANT_URL)")
	}

	// Pure scoring components share one tunable config.
	filters := filtersignal.New(cfg.Recommend)
	classifier := persona.New(cfg.Recommend, filters, logger)
	engine := recommend.New(cfg.Recommend, filters, logger)
	ranker := trending.NewRanker(trending.DefaultRecentDays, trending.DefaultBaselineDays)

	// Orchestration services.
	profileSvc := profiles.New(db, userCache, classifier, cfg, logger)
	recSvc := recs.New(db, userCache, index, embedder, profileSvc, engine, ranker, cfg, logger)
	evaluator := evaluation.New(db, engine, classifier, cfg, logger)

	// Interaction event buffer.
	buf := ingest.NewBuffer(db, userCache, logger, cfg.EventBufferSize, cfg.EventFlushTimeout)
	buf.Start(ctx)

	// Rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		memLimiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = memLimiter.Close() }()
		limiter = memLimiter
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	srvCfg := server.Config{
		Recommender:         recSvc,
		Profiler:            profileSvc,
		Ingestor:            buf,
		Evaluator:           evaluator,
		DB:                  db,
		Index:               index,
		Limiter:             limiter,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		AuthToken:           cfg.ServiceAuthToken,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	}
	if userCache != nil {
		srvCfg.Redis = userCache
	}
	srv := server.New(srvCfg)

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown, each phase with its own timeout. Order: stop
	// accepting HTTP requests and drain in-flight ones (they may still
	// append to the buffer), flush the event buffer to Postgres, then
	// let the indexer finish its current batch.
	slog.Info("recsvc shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	bufCtx, bufCancel := context.WithTimeout(context.Background(), 10*time.Second)
	buf.Drain(bufCtx)
	bufCancel()

	if indexer != nil {
		idxCtx, idxCancel := context.WithTimeout(context.Background(), 10*time.Second)
		indexer.Drain(idxCtx)
		idxCancel()
	}

	slog.Info("recsvc stopped")
	return nil
}

// newEmbeddingProvider selects the embedding provider: "ollama",
// "openai", "noop", or "auto" (default). Auto mode tries Ollama if
// reachable, then OpenAI if a key is present, else noop. Ollama is
// preferred: embeddings stay on-premises with no external API costs.
func newEmbeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	dims := cfg.EmbeddingDimensions

	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when RECSVC_EMBEDDING_PROVIDER=openai")
			return embedding.NewNoopProvider(dims)
		}
		logger.Info("embedding provider: openai", "model", cfg.EmbeddingModel, "dimensions", dims)
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)

	case "ollama":
		logger.Info("embedding provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)

	case "noop":
		logger.Info("embedding provider: noop (content similarity disabled)")
		return embedding.NewNoopProvider(dims)

	case "auto":
		fallthrough
	default:
		if ollamaReachable(cfg.OllamaURL) {
			logger.Info("embedding provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel, "dimensions", dims)
			return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, dims)
		}
		if cfg.OpenAIAPIKey != "" {
			logger.Info("embedding provider: openai (auto-detected)", "model", cfg.EmbeddingModel, "dimensions", dims)
			return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, dims)
		}
		logger.Warn("no embedding provider available, using noop (content similarity disabled)")
		return embedding.NewNoopProvider(dims)
	}
}

// ollamaReachable checks if an Ollama server is responding.
func ollamaReachable(baseURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
