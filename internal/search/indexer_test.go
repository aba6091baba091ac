package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/embedding"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
)

type fakeProductSource struct {
	mu      sync.Mutex
	pending []storage.IndexableProduct
	stored  map[int64]pgvector.Vector
}

func (f *fakeProductSource) ProductsNeedingEmbedding(_ context.Context, limit int) ([]storage.IndexableProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.pending)
	if n > limit {
		n = limit
	}
	out := make([]storage.IndexableProduct, n)
	copy(out, f.pending[:n])
	return out, nil
}

func (f *fakeProductSource) UpdateProductEmbedding(_ context.Context, productID int64, emb pgvector.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = make(map[int64]pgvector.Vector)
	}
	f.stored[productID] = emb
	var remaining []storage.IndexableProduct
	for _, p := range f.pending {
		if p.ID != productID {
			remaining = append(remaining, p)
		}
	}
	f.pending = remaining
	return nil
}

func (f *fakeProductSource) EmbeddingBacklog(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.pending)), nil
}

type fakeUpserter struct {
	mu     sync.Mutex
	points []ProductPoint
	err    error
}

func (f *fakeUpserter) Upsert(_ context.Context, points []ProductPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, points...)
	return nil
}

func testIndexerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestIndexerProcessBatch(t *testing.T) {
	source := &fakeProductSource{
		pending: []storage.IndexableProduct{
			{ID: 1, Name: "Trail Runner", CategoryName: "Shoes", CategoryID: 3, Price: 90},
			{ID: 2, Name: "Espresso Maker", CategoryName: "Kitchen", CategoryID: 7, Price: 150},
		},
	}
	upserter := &fakeUpserter{}
	ix := NewIndexer(source, upserter, embedding.NewNoopProvider(4), testIndexerLogger(), time.Minute, 50)

	ix.processBatch(context.Background())

	require.Len(t, upserter.points, 2)
	assert.Equal(t, int64(1), upserter.points[0].ID)
	assert.Equal(t, int64(3), upserter.points[0].CategoryID)
	assert.Len(t, upserter.points[0].Embedding, 4)

	assert.Len(t, source.stored, 2)
	assert.Empty(t, source.pending)
}

func TestIndexerUpsertFailureLeavesBatchPending(t *testing.T) {
	source := &fakeProductSource{
		pending: []storage.IndexableProduct{{ID: 1, Name: "Trail Runner"}},
	}
	upserter := &fakeUpserter{err: errors.New("qdrant down")}
	ix := NewIndexer(source, upserter, embedding.NewNoopProvider(4), testIndexerLogger(), time.Minute, 50)

	ix.processBatch(context.Background())

	// Nothing stored: the batch is retried on the next poll.
	assert.Empty(t, source.stored)
	assert.Len(t, source.pending, 1)
}

func TestIndexerBatchSizeLimit(t *testing.T) {
	source := &fakeProductSource{}
	for i := int64(1); i <= 5; i++ {
		source.pending = append(source.pending, storage.IndexableProduct{ID: i, Name: "p"})
	}
	upserter := &fakeUpserter{}
	ix := NewIndexer(source, upserter, embedding.NewNoopProvider(4), testIndexerLogger(), time.Minute, 2)

	ix.processBatch(context.Background())

	assert.Len(t, upserter.points, 2)
	assert.Len(t, source.pending, 3)
}

func TestIndexerStartDrain(t *testing.T) {
	source := &fakeProductSource{
		pending: []storage.IndexableProduct{{ID: 1, Name: "Trail Runner"}},
	}
	upserter := &fakeUpserter{}
	ix := NewIndexer(source, upserter, embedding.NewNoopProvider(4), testIndexerLogger(), time.Hour, 50)

	ix.Start(context.Background())

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ix.Drain(drainCtx)

	// The final drain batch picks up the pending product.
	assert.Len(t, upserter.points, 1)
	assert.Empty(t, source.pending)
}
