// Package filtersignal derives implicit price and category preference
// signals from logged filter-selection events.
//
// Filter usage reveals intent (what the user looked for) as opposed to
// action (what they bought). Every method requires a minimum number of
// filter-bearing events and returns "no signal" below it; absence is
// distinguished from a neutral score via nil returns and empty maps.
package filtersignal

import (
	"math"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// platformMaxPrice is the assumed platform price ceiling used to
// normalize filter range widths.
const platformMaxPrice = 500.0

// Analyzer extracts signals from filter interactions. Pure; holds only
// immutable configuration.
type Analyzer struct {
	cfg config.RecommendConfig
}

// New creates an analyzer.
func New(cfg config.RecommendConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// filterEvents returns the filter contexts of events that carry one.
func filterEvents(interactions []model.InteractionEvent) []model.FilterContext {
	var out []model.FilterContext
	for _, ev := range interactions {
		if fc := ev.Filter(); fc != nil {
			out = append(out, *fc)
		}
	}
	return out
}

// PriceRange is an averaged min/max price bound pair from filter usage.
// Either bound may be nil when no event set it.
type PriceRange struct {
	Min *float64
	Max *float64
}

// PriceSignals returns the average filter min/max prices, or a zero
// PriceRange when fewer than FilterMinSamples filter events exist.
func (a *Analyzer) PriceSignals(interactions []model.InteractionEvent) PriceRange {
	filters := filterEvents(interactions)
	if len(filters) < a.cfg.FilterMinSamples {
		return PriceRange{}
	}

	var minSum, maxSum float64
	var minCount, maxCount int
	for _, fc := range filters {
		if fc.MinPrice != nil {
			minSum += *fc.MinPrice
			minCount++
		}
		if fc.MaxPrice != nil {
			maxSum += *fc.MaxPrice
			maxCount++
		}
	}

	var pr PriceRange
	if minCount > 0 {
		avg := minSum / float64(minCount)
		pr.Min = &avg
	}
	if maxCount > 0 {
		avg := maxSum / float64(maxCount)
		pr.Max = &avg
	}
	return pr
}

// PriceSensitivitySignal scores how price-conscious the user's filter
// usage looks, in [0,1]. Narrow explicit ranges and low price caps read
// as sensitive; min-only filters read as quality seeking. Returns nil
// with insufficient samples.
func (a *Analyzer) PriceSensitivitySignal(interactions []model.InteractionEvent) *float64 {
	filters := filterEvents(interactions)
	if len(filters) < a.cfg.FilterMinSamples {
		return nil
	}

	var signals []float64
	for _, fc := range filters {
		switch {
		case fc.MinPrice != nil && fc.MaxPrice != nil:
			width := *fc.MaxPrice - *fc.MinPrice
			normalized := math.Min(width/platformMaxPrice, 1.0)
			signals = append(signals, 1-normalized)
		case fc.MaxPrice != nil:
			sensitivity := 1 - math.Min(*fc.MaxPrice/platformMaxPrice, 1.0)
			signals = append(signals, math.Min(0.8, sensitivity+0.2))
		case fc.MinPrice != nil:
			signals = append(signals, 0.3)
		}
	}
	if len(signals) == 0 {
		return nil
	}

	var sum float64
	for _, s := range signals {
		sum += s
	}
	avg := sum / float64(len(signals))
	return &avg
}

// CategoryAffinity scores categories by filter usage counts, capped at
// FilterCategoryMaxWeight uses each and normalized by the capped
// maximum observed count. Empty map means no signal.
func (a *Analyzer) CategoryAffinity(interactions []model.InteractionEvent) map[int64]float64 {
	filters := filterEvents(interactions)
	if len(filters) < a.cfg.FilterMinSamples {
		return nil
	}

	counts := make(map[int64]int)
	for _, fc := range filters {
		if fc.CategoryID != nil {
			counts[*fc.CategoryID]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	maxWeight := a.cfg.FilterCategoryMaxWeight
	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	cappedMax := maxCount
	if cappedMax > maxWeight {
		cappedMax = maxWeight
	}
	if cappedMax < 1 {
		cappedMax = 1
	}

	affinity := make(map[int64]float64, len(counts))
	for catID, n := range counts {
		if n > maxWeight {
			n = maxWeight
		}
		affinity[catID] = float64(n) / float64(cappedMax)
	}
	return affinity
}

// BlendPriceRange blends a purchase-derived price range with filter
// bounds using FilterSignalWeight. A missing filter bound leaves the
// purchase bound unblended.
func (a *Analyzer) BlendPriceRange(purchaseMin, purchaseMax float64, filters PriceRange) (float64, float64) {
	if filters.Min == nil && filters.Max == nil {
		return purchaseMin, purchaseMax
	}

	w := a.cfg.FilterSignalWeight
	blendedMin, blendedMax := purchaseMin, purchaseMax
	if filters.Min != nil {
		blendedMin = (1-w)*purchaseMin + w**filters.Min
	}
	if filters.Max != nil {
		blendedMax = (1-w)*purchaseMax + w**filters.Max
	}
	return blendedMin, blendedMax
}
