// Package search provides the product vector index used for
// content-based similarity, backed by Qdrant.
package search

import (
	"context"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// Hit is a product id with its raw similarity score from the index.
// The caller hydrates full product rows from Postgres (source of truth).
type Hit struct {
	ProductID int64
	Score     float32
}

// Index is the read side of the product vector index.
// Implementations must be safe for concurrent use.
type Index interface {
	// NearestProducts returns products nearest to the embedding.
	// categoryID of 0 means no category filter; excludeIDs are removed
	// by the index before the limit is applied.
	NearestProducts(ctx context.Context, embedding []float32, categoryID int64, excludeIDs []int64, limit int) ([]Hit, error)

	// Healthy returns nil if the index is reachable.
	Healthy(ctx context.Context) error
}

// SimilarProducts converts raw hits to the shape the scorer consumes.
func SimilarProducts(hits []Hit) []model.SimilarProduct {
	if len(hits) == 0 {
		return nil
	}
	similar := make([]model.SimilarProduct, len(hits))
	for i, h := range hits {
		similar[i] = model.SimilarProduct{ProductID: h.ProductID, Score: float64(h.Score)}
	}
	return similar
}
