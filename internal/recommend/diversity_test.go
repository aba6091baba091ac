package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

func scoredCandidate(id, categoryID int64, score float64) *candidate {
	p := model.ProductCandidate{ID: id, Name: "Product", CategoryID: categoryID, Price: 10}
	return &candidate{id: id, score: score, product: &p}
}

func TestSelectDiverseCategoryCap(t *testing.T) {
	e := newTestEngine(t)

	// Five top-scored items in one category; the cap keeps three and
	// lets the lower-scored second category through.
	sorted := []*candidate{
		scoredCandidate(1, 7, 0.9),
		scoredCandidate(2, 7, 0.8),
		scoredCandidate(3, 7, 0.7),
		scoredCandidate(4, 7, 0.6),
		scoredCandidate(5, 7, 0.5),
		scoredCandidate(6, 8, 0.4),
	}
	items := e.selectDiverse(sorted, 10)

	require.Len(t, items, 4)
	counts := make(map[int64]int)
	for _, item := range items {
		require.NotNil(t, item.CategoryID)
		counts[*item.CategoryID]++
	}
	assert.Equal(t, 3, counts[7])
	assert.Equal(t, 1, counts[8])
}

func TestSelectDiverseSecondPassAddsNewCategories(t *testing.T) {
	e := newTestEngine(t)

	// With the limit reached inside two categories, skipped items from
	// unseen categories are pulled in to satisfy the minimum.
	sorted := []*candidate{
		scoredCandidate(1, 1, 0.9),
		scoredCandidate(2, 1, 0.89),
		scoredCandidate(3, 1, 0.88),
		scoredCandidate(4, 1, 0.87), // skipped, category full
		scoredCandidate(5, 1, 0.86), // skipped, category full
		scoredCandidate(6, 2, 0.5),
	}
	items := e.selectDiverse(sorted, 10)
	require.Len(t, items, 4)

	categories := make(map[int64]bool)
	for _, item := range items {
		categories[*item.CategoryID] = true
	}
	assert.Len(t, categories, 2, "second pass never repeats an admitted category")
}

func TestSelectDiverseRespectsLimit(t *testing.T) {
	e := newTestEngine(t)

	var sorted []*candidate
	for i := int64(1); i <= 20; i++ {
		sorted = append(sorted, scoredCandidate(i, i, 1.0-float64(i)*0.01))
	}
	items := e.selectDiverse(sorted, 5)
	assert.Len(t, items, 5)
}

func TestSelectDiverseFallbackReason(t *testing.T) {
	e := newTestEngine(t)

	c := scoredCandidate(1, 7, 0.9)
	items := e.selectDiverse([]*candidate{c}, 10)
	require.Len(t, items, 1)
	assert.Equal(t, "Recommended for you", items[0].Reason)

	c.reasons = []string{"From your wishlist", "Bestseller"}
	items = e.selectDiverse([]*candidate{c}, 10)
	assert.Equal(t, "From your wishlist", items[0].Reason, "first reason wins")
}
