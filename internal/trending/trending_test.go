package trending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

func TestScoreWeights(t *testing.T) {
	r := NewRanker(7, 30)

	// 7 orders, 14 views, 7 wishlists over 7 days:
	// 1/day*5 + 2/day*1 + 1/day*2 = 9.
	score, growth := r.Score(7, 14, 7, 0, 0, 0)
	assert.InDelta(t, 9.0, score, 1e-9)
	assert.Nil(t, growth, "zero baseline activity yields no growth rate")
}

func TestScoreGrowthRate(t *testing.T) {
	r := NewRanker(7, 30)

	// Recent: 7 orders / 7 days = 5.0. Baseline: 23 orders over the
	// remaining 23 days = 5.0. Flat growth.
	score, growth := r.Score(7, 0, 0, 23, 0, 0)
	assert.InDelta(t, 5.0, score, 1e-9)
	require.NotNil(t, growth)
	assert.InDelta(t, 0.0, *growth, 1e-9)

	// Doubled velocity.
	_, growth = r.Score(14, 0, 0, 23, 0, 0)
	require.NotNil(t, growth)
	assert.InDelta(t, 1.0, *growth, 1e-9)
}

func TestScoreNoBaselinePeriod(t *testing.T) {
	r := NewRanker(7, 7)

	score, growth := r.Score(7, 0, 0, 100, 100, 100)
	assert.InDelta(t, 5.0, score, 1e-9)
	assert.Nil(t, growth, "equal windows leave no baseline period")
}

func TestIsTrending(t *testing.T) {
	r := NewRanker(7, 30)

	tests := []struct {
		name                      string
		recentOrders, recentViews int
		baseOrders, baseViews     int
		want                      bool
	}{
		{"growth above threshold", 14, 0, 23, 0, true},
		{"flat is not trending", 7, 0, 23, 0, false},
		{"no baseline with recent orders", 1, 0, 0, 0, true},
		{"no baseline with many views", 0, 6, 0, 0, true},
		{"no baseline with few views", 0, 5, 0, 0, false},
		{"no activity at all", 0, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.IsTrending(tt.recentOrders, tt.recentViews, tt.baseOrders, tt.baseViews, 0.5)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRank(t *testing.T) {
	r := NewRanker(7, 30)

	activity := func(id int64, orders, views, wishlists int) model.ProductActivity {
		return model.ProductActivity{
			Product:         model.ProductCandidate{ID: id, Name: "Product", CategoryID: 1, Price: 10},
			RecentOrders:    orders,
			RecentViews:     views,
			RecentWishlists: wishlists,
		}
	}

	ranked := r.Rank([]model.ProductActivity{
		activity(1, 1, 0, 0),
		activity(2, 10, 5, 3),
		activity(3, 0, 0, 0), // filtered, below min activity
		activity(4, 3, 2, 1),
	}, 1)

	require.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].ProductID)
	assert.Equal(t, int64(4), ranked[1].ProductID)
	assert.Equal(t, int64(1), ranked[2].ProductID)

	for _, tp := range ranked {
		require.NotNil(t, tp.CategoryID)
		require.NotNil(t, tp.Price)
		assert.Greater(t, tp.TrendingScore, 0.0)
	}
}

func TestRankStableOnTies(t *testing.T) {
	r := NewRanker(7, 30)

	var products []model.ProductActivity
	for id := int64(1); id <= 5; id++ {
		products = append(products, model.ProductActivity{
			Product:      model.ProductCandidate{ID: id, Name: "Product"},
			RecentOrders: 2,
		})
	}
	ranked := r.Rank(products, 1)
	require.Len(t, ranked, 5)
	for i, tp := range ranked {
		assert.Equal(t, int64(i+1), tp.ProductID, "tied scores keep input order")
	}
}
