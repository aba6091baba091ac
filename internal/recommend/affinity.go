package recommend

import (
	"sort"
	"time"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// Signal weights for category affinity accumulation.
const (
	affinityWeightPurchase = 3.0
	affinityWeightWishlist = 2.0
	affinityWeightView     = 1.0
)

// CategoryAffinity computes the user's affinity for each category as a
// weighted, time-decayed sum of purchases, wishlist adds, and views,
// plus the filter-derived affinity scaled by its configured weight.
//
// Scores are normalized by the single maximum category score, not the
// sum: when one category dominates with low absolute counts all
// affinities are pushed toward 1.0. Known calibration quirk, kept.
func (e *Engine) CategoryAffinity(
	purchases []model.Purchase,
	wishlist []model.WishlistItem,
	views []model.View,
	interactions []model.InteractionEvent,
	now time.Time,
) map[int64]float64 {
	scores := make(map[int64]float64)
	var totalWeight float64

	for _, p := range purchases {
		if p.CategoryID == 0 {
			continue
		}
		w := affinityWeightPurchase * Decay(DaysSince(p.OrderedAt, now), e.cfg.DecayHalfLifePurchases)
		scores[p.CategoryID] += w
		totalWeight += w
	}

	for _, w := range wishlist {
		if w.CategoryID == 0 {
			continue
		}
		weight := affinityWeightWishlist * Decay(DaysSince(w.AddedAt, now), e.cfg.DecayHalfLifeWishlist)
		scores[w.CategoryID] += weight
		totalWeight += weight
	}

	for _, v := range views {
		if v.CategoryID == 0 {
			continue
		}
		w := affinityWeightView * Decay(DaysSince(v.ViewedAt, now), e.cfg.DecayHalfLifeViews)
		scores[v.CategoryID] += w
		totalWeight += w
	}

	// Filter category affinity is already normalized 0-1; scale by the
	// configured filter weight.
	for catID, affinity := range e.filters.CategoryAffinity(interactions) {
		w := e.cfg.FilterCategoryAffinityWeight * affinity
		scores[catID] += w
		totalWeight += w
	}

	if totalWeight <= 0 || len(scores) == 0 {
		return nil
	}

	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	normalized := make(map[int64]float64, len(scores))
	for catID, s := range scores {
		normalized[catID] = s / maxScore
	}
	return normalized
}

// topCategories returns up to n category ids ordered by descending
// affinity. Ties break on the lower category id so ranking is
// deterministic.
func topCategories(affinity map[int64]float64, n int) []int64 {
	type entry struct {
		catID int64
		score float64
	}
	entries := make([]entry, 0, len(affinity))
	for catID, score := range affinity {
		entries = append(entries, entry{catID, score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].catID < entries[j].catID
	})
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]int64, 0, n)
	for _, e := range entries[:n] {
		out = append(out, e.catID)
	}
	return out
}
