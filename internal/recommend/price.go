package recommend

import (
	"math"
	"sort"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

const minPricedPurchases = 3

// PricePreference derives the user's preferred price band from purchase
// history, then blends it with price bounds the user typed into search
// filters. The band is the 25th to 75th price percentile widened by 20%
// on each side. Returns ok=false when fewer than three priced purchases
// exist.
func (e *Engine) PricePreference(purchases []model.Purchase, interactions []model.InteractionEvent) (min, max float64, ok bool) {
	prices := make([]float64, 0, len(purchases))
	for _, p := range purchases {
		if p.Price > 0 {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) < minPricedPurchases {
		return 0, 0, false
	}

	sort.Float64s(prices)
	min = percentile(prices, 25) * 0.8
	max = percentile(prices, 75) * 1.2

	if signals := e.filters.PriceSignals(interactions); signals.Min != nil || signals.Max != nil {
		min, max = e.filters.BlendPriceRange(min, max, signals)
	}
	return min, max, true
}

// ScorePrice returns the adjustment for a product price against the
// preferred band: a boost inside, a penalty far outside (below half the
// minimum or above double the maximum), otherwise zero.
func (e *Engine) ScorePrice(price, preferredMin, preferredMax float64) float64 {
	switch {
	case price >= preferredMin && price <= preferredMax:
		return e.cfg.PricePreferenceBoost
	case price < preferredMin*0.5 || price > preferredMax*2:
		return -e.cfg.PricePreferencePenalty
	default:
		return 0
	}
}

// percentile computes the pth percentile of sorted values using linear
// interpolation between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
