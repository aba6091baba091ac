// Package trending ranks products by accelerating activity. The score
// weighs daily order, view, and wishlist rates in a recent window and
// compares them against a longer baseline window to compute growth.
package trending

import (
	"sort"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// Velocity weights. Orders dominate, wishlists signal intent, views are
// the weakest signal.
const (
	orderWeight    = 5.0
	viewWeight     = 1.0
	wishlistWeight = 2.0
)

// Default activity windows in days. The baseline window contains the
// recent one; baseline rates are computed over the non-overlapping
// remainder.
const (
	DefaultRecentDays   = 7
	DefaultBaselineDays = 30
)

// Ranker computes trending scores over windowed activity counts. Pure
// and safe for concurrent use.
type Ranker struct {
	recentDays   int
	baselineDays int
}

func NewRanker(recentDays, baselineDays int) *Ranker {
	if recentDays <= 0 {
		recentDays = DefaultRecentDays
	}
	if baselineDays <= 0 {
		baselineDays = DefaultBaselineDays
	}
	return &Ranker{recentDays: recentDays, baselineDays: baselineDays}
}

// velocity converts windowed counts into the weighted daily-rate score.
func velocity(orders, views, wishlists int, days int) float64 {
	if days <= 0 {
		return 0
	}
	d := float64(days)
	return float64(orders)/d*orderWeight +
		float64(views)/d*viewWeight +
		float64(wishlists)/d*wishlistWeight
}

// Score returns the trending score for recent activity and, when a
// baseline period exists with nonzero activity, the relative growth
// rate. A nil growth rate means no baseline to compare against.
func (r *Ranker) Score(recentOrders, recentViews, recentWishlists, baselineOrders, baselineViews, baselineWishlists int) (float64, *float64) {
	score := velocity(recentOrders, recentViews, recentWishlists, r.recentDays)

	baselinePeriod := r.baselineDays - r.recentDays
	if baselinePeriod <= 0 {
		return score, nil
	}
	baseline := velocity(baselineOrders, baselineViews, baselineWishlists, baselinePeriod)
	if baseline <= 0 {
		return score, nil
	}
	growth := (score - baseline) / baseline
	return score, &growth
}

// IsTrending reports whether recent order and view activity grew at
// least threshold relative to baseline. Without a baseline, any recent
// order or more than five recent views counts as trending.
func (r *Ranker) IsTrending(recentOrders, recentViews, baselineOrders, baselineViews int, threshold float64) bool {
	_, growth := r.Score(recentOrders, recentViews, 0, baselineOrders, baselineViews, 0)
	if growth == nil {
		return recentOrders > 0 || recentViews > 5
	}
	return *growth >= threshold
}

// Rank scores products with at least minActivity recent events and
// returns them ordered by descending trending score. Ties keep input
// order.
func (r *Ranker) Rank(products []model.ProductActivity, minActivity int) []model.TrendingProduct {
	ranked := make([]model.TrendingProduct, 0, len(products))
	for _, pa := range products {
		total := pa.RecentOrders + pa.RecentViews + pa.RecentWishlists
		if total < minActivity {
			continue
		}
		score, growth := r.Score(
			pa.RecentOrders, pa.RecentViews, pa.RecentWishlists,
			pa.BaselineOrders, pa.BaselineViews, pa.BaselineWishlists,
		)

		tp := model.TrendingProduct{
			ProductID:     pa.Product.ID,
			Name:          pa.Product.Name,
			CategoryName:  pa.Product.CategoryName,
			TrendingScore: score,
			RecentOrders:  pa.RecentOrders,
			RecentViews:   pa.RecentViews,
			GrowthRate:    growth,
		}
		if pa.Product.CategoryID != 0 {
			catID := pa.Product.CategoryID
			tp.CategoryID = &catID
		}
		if pa.Product.Price > 0 {
			price := pa.Product.Price
			tp.Price = &price
		}
		tp.ImageURL = pa.Product.ImageURL
		ranked = append(ranked, tp)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TrendingScore > ranked[j].TrendingScore
	})
	return ranked
}
