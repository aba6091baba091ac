package search

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/metric"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/embedding"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/telemetry"
)

// ProductSource supplies products awaiting indexing. A product with a
// NULL embedding column is pending; storing its embedding marks it done,
// so failed batches are simply picked up again on the next poll.
type ProductSource interface {
	ProductsNeedingEmbedding(ctx context.Context, limit int) ([]storage.IndexableProduct, error)
	UpdateProductEmbedding(ctx context.Context, productID int64, embedding pgvector.Vector) error
	EmbeddingBacklog(ctx context.Context) (int64, error)
}

// ProductUpserter is the write side of the vector index.
type ProductUpserter interface {
	Upsert(ctx context.Context, points []ProductPoint) error
}

// Indexer polls for products without embeddings, embeds them, pushes
// the points into the vector index, and records the embeddings in
// Postgres.
type Indexer struct {
	source       ProductSource
	index        ProductUpserter
	provider     embedding.Provider
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int

	started    atomic.Bool
	cancelLoop context.CancelFunc
	done       chan struct{}
	once       sync.Once
	drainCh    chan context.Context // carries the drain context to pollLoop for the final batch
}

// NewIndexer creates an index worker. It does nothing until Start.
func NewIndexer(source ProductSource, index ProductUpserter, provider embedding.Provider, logger *slog.Logger, pollInterval time.Duration, batchSize int) *Indexer {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Indexer{
		source:       source,
		index:        index,
		provider:     provider,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		done:         make(chan struct{}),
		drainCh:      make(chan context.Context, 1),
	}
}

// Start begins the background poll loop. Safe to call only once;
// subsequent calls are no-ops and log a warning.
func (ix *Indexer) Start(ctx context.Context) {
	if !ix.started.CompareAndSwap(false, true) {
		ix.logger.Warn("search indexer: Start called more than once, ignoring")
		return
	}
	ix.registerMetrics()
	loopCtx, cancel := context.WithCancel(ctx)
	ix.cancelLoop = cancel
	go ix.pollLoop(loopCtx)
}

// Drain signals the poll loop to stop, runs one final batch, and blocks
// until done or the context expires.
func (ix *Indexer) Drain(ctx context.Context) {
	// Send the drain context before cancelling so pollLoop can receive
	// it on ctx.Done().
	select {
	case ix.drainCh <- ctx:
	default:
	}
	if ix.cancelLoop != nil {
		ix.cancelLoop()
	}
	select {
	case <-ix.done:
	case <-ctx.Done():
		ix.logger.Warn("search indexer: drain timed out")
	}
}

func (ix *Indexer) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(ix.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			var drainCtx context.Context
			select {
			case drainCtx = <-ix.drainCh:
			default:
			}
			if drainCtx != nil {
				ix.processBatch(drainCtx)
			} else {
				fallbackCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				ix.processBatch(fallbackCtx)
				cancel()
			}
			ix.once.Do(func() { close(ix.done) })
			return
		case <-ticker.C:
			batchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
			ix.processBatch(batchCtx)
			cancel()
		}
	}
}

func (ix *Indexer) processBatch(ctx context.Context) {
	products, err := ix.source.ProductsNeedingEmbedding(ctx, ix.batchSize)
	if err != nil {
		ix.logger.Error("search indexer: fetch pending products", "error", err)
		return
	}
	if len(products) == 0 {
		return
	}

	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = embedding.ProductText(p.Name, p.CategoryName, p.Description)
	}

	vecs, err := ix.provider.EmbedBatch(ctx, texts)
	if err != nil {
		ix.logger.Error("search indexer: embed batch", "error", err, "count", len(texts))
		return
	}

	points := make([]ProductPoint, len(products))
	for i, p := range products {
		points[i] = ProductPoint{
			ID:           p.ID,
			Name:         p.Name,
			CategoryID:   p.CategoryID,
			CategoryName: p.CategoryName,
			Price:        p.Price,
			Embedding:    vecs[i].Slice(),
		}
	}

	// Upsert into the index before recording embeddings: a product is
	// only marked done once the index can serve it. If the upsert fails
	// the whole batch stays pending and is retried next poll.
	if err := ix.index.Upsert(ctx, points); err != nil {
		ix.logger.Error("search indexer: upsert points", "error", err, "count", len(points))
		return
	}

	stored := 0
	for i, p := range products {
		if err := ix.source.UpdateProductEmbedding(ctx, p.ID, vecs[i]); err != nil {
			ix.logger.Error("search indexer: store embedding", "error", err, "product_id", p.ID)
			continue
		}
		stored++
	}

	ix.logger.Info("search indexer: indexed products", "indexed", len(points), "stored", stored)
}

// registerMetrics registers an observable OTEL gauge for the indexing
// backlog.
func (ix *Indexer) registerMetrics() {
	meter := telemetry.Meter("recsvc/indexer")

	_, _ = meter.Int64ObservableGauge("recsvc.index.backlog",
		metric.WithDescription("Number of products waiting for an embedding"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			count, err := ix.source.EmbeddingBacklog(ctx)
			if err != nil {
				return nil // Non-fatal: just skip this observation.
			}
			o.Observe(count)
			return nil
		}),
	)
}
