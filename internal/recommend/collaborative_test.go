package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

func purchasesOf(ids ...int64) []model.Purchase {
	now := time.Now()
	out := make([]model.Purchase, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Purchase{ProductID: id, CategoryID: 1, Price: 10, OrderedAt: now})
	}
	return out
}

func TestCollaborativeScores(t *testing.T) {
	user := purchasesOf(1, 2, 3)
	neighbors := map[int64][]model.Purchase{
		// Jaccard 2/5 = 0.4, contributes products 4 and 5.
		10: purchasesOf(1, 2, 4, 5),
		// Jaccard 3/3 = 1.0, contributes nothing new.
		11: purchasesOf(1, 2, 3),
		// Jaccard 0, ignored entirely.
		12: purchasesOf(7, 8),
	}

	scores := CollaborativeScores(user, neighbors)
	require.NotNil(t, scores)

	// Neighbor 10: jaccard = |{1,2}| / |{1,2,3,4,5}| = 0.4.
	// Neighbor 11: jaccard = 1.0. Total weight 1.4.
	assert.InDelta(t, 0.4/1.4, scores[4], 1e-9)
	assert.InDelta(t, 0.4/1.4, scores[5], 1e-9)
	assert.NotContains(t, scores, int64(1), "owned products are never scored")
	assert.NotContains(t, scores, int64(7), "below-threshold neighbors contribute nothing")
}

func TestCollaborativeScoresThreshold(t *testing.T) {
	user := purchasesOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	// Jaccard 1/19 ≈ 0.053, under the 0.1 threshold.
	scores := CollaborativeScores(user, map[int64][]model.Purchase{
		20: purchasesOf(1, 101, 102, 103, 104, 105, 106, 107, 108, 109),
	})
	assert.Nil(t, scores)
}

func TestCollaborativeScoresNoNeighbors(t *testing.T) {
	assert.Nil(t, CollaborativeScores(purchasesOf(1, 2), nil))
	assert.Nil(t, CollaborativeScores(nil, map[int64][]model.Purchase{5: purchasesOf(1)}))
}
