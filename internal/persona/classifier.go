// Package persona computes 5-dimension behavioral profiles and classifies
// them into one of 8 canonical shopper archetypes.
package persona

import (
	"log/slog"
	"math"
	"time"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/filtersignal"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// minDataPoints is the threshold below which classification is skipped
// and the default profile returned.
const minDataPoints = 5

// platformAvgPrice is the assumed platform-wide average item price used
// as the price sensitivity baseline.
const platformAvgPrice = 50.0

// dimensionWeights weight each dimension's contribution to the
// classification distance.
var dimensionWeights = model.Dimensions{
	PriceSensitivity:    0.25,
	ExplorationTendency: 0.20,
	SentimentTendency:   0.15,
	PurchaseFrequency:   0.20,
	DecisionSpeed:       0.20,
}

// canonicalProfiles are the ideal dimension vectors for each archetype.
var canonicalProfiles = map[model.Archetype]model.Dimensions{
	model.ArchetypeAdventurousPremium:  {PriceSensitivity: 0.2, ExplorationTendency: 0.9, SentimentTendency: 0.7, PurchaseFrequency: 0.6, DecisionSpeed: 0.8},
	model.ArchetypeCautiousValueSeeker: {PriceSensitivity: 0.9, ExplorationTendency: 0.3, SentimentTendency: 0.5, PurchaseFrequency: 0.4, DecisionSpeed: 0.2},
	model.ArchetypeLoyalEnthusiast:     {PriceSensitivity: 0.4, ExplorationTendency: 0.3, SentimentTendency: 0.8, PurchaseFrequency: 0.7, DecisionSpeed: 0.6},
	model.ArchetypeBargainHunter:       {PriceSensitivity: 1.0, ExplorationTendency: 0.7, SentimentTendency: 0.5, PurchaseFrequency: 0.5, DecisionSpeed: 0.9},
	model.ArchetypeQualityFocused:      {PriceSensitivity: 0.3, ExplorationTendency: 0.5, SentimentTendency: 0.6, PurchaseFrequency: 0.4, DecisionSpeed: 0.3},
	model.ArchetypeTrendFollower:       {PriceSensitivity: 0.5, ExplorationTendency: 0.8, SentimentTendency: 0.7, PurchaseFrequency: 0.7, DecisionSpeed: 0.7},
	model.ArchetypePracticalShopper:    {PriceSensitivity: 0.6, ExplorationTendency: 0.4, SentimentTendency: 0.5, PurchaseFrequency: 0.3, DecisionSpeed: 0.5},
	model.ArchetypeImpulseBuyer:        {PriceSensitivity: 0.4, ExplorationTendency: 0.9, SentimentTendency: 0.6, PurchaseFrequency: 0.8, DecisionSpeed: 1.0},
}

// Classifier computes personality dimensions and archetype classification.
// Pure and safe for concurrent use; all state is immutable configuration.
type Classifier struct {
	cfg     config.RecommendConfig
	filters *filtersignal.Analyzer
	logger  *slog.Logger
}

// New creates a classifier.
func New(cfg config.RecommendConfig, filters *filtersignal.Analyzer, logger *slog.Logger) *Classifier {
	return &Classifier{cfg: cfg, filters: filters, logger: logger}
}

// Inputs holds everything dimension computation reads. All collections
// may be empty; every dimension degrades to a neutral default.
type Inputs struct {
	Purchases    []model.Purchase
	Reviews      []model.Review
	Interactions []model.InteractionEvent
	Stats        model.PurchaseStats
}

// DataPoints counts the behavioral observations backing a profile.
func (in Inputs) DataPoints() int {
	return len(in.Purchases) + len(in.Reviews) + len(in.Interactions)
}

// Profile computes dimensions and classifies them in one call. With
// fewer than 5 data points it returns the fixed default profile rather
// than classifying noise.
func (c *Classifier) Profile(userID int64, in Inputs, now time.Time) model.PersonalityProfile {
	points := in.DataPoints()
	if points < minDataPoints {
		return model.PersonalityProfile{
			UserID:      userID,
			Dimensions:  model.Dimensions{PriceSensitivity: 0.5, ExplorationTendency: 0.5, SentimentTendency: 0.5, PurchaseFrequency: 0.5, DecisionSpeed: 0.5},
			Archetype:   model.ArchetypePracticalShopper,
			Confidence:  0.3,
			DataPoints:  points,
			LastUpdated: now,
		}
	}

	dims := c.CalculateDimensions(in)
	archetype, confidence := Classify(dims)

	c.logger.Debug("persona: classified user",
		"user_id", userID,
		"archetype", archetype,
		"confidence", confidence,
		"data_points", points)

	return model.PersonalityProfile{
		UserID:      userID,
		Dimensions:  dims,
		Archetype:   archetype,
		Confidence:  confidence,
		DataPoints:  points,
		LastUpdated: now,
	}
}

// CalculateDimensions computes the 5 behavioral dimensions, each
// clamped to [0,1].
func (c *Classifier) CalculateDimensions(in Inputs) model.Dimensions {
	return model.Dimensions{
		PriceSensitivity:    c.priceSensitivity(in.Purchases, in.Stats, in.Interactions),
		ExplorationTendency: explorationTendency(in.Purchases, in.Stats),
		SentimentTendency:   sentimentTendency(in.Reviews),
		PurchaseFrequency:   purchaseFrequency(in.Stats),
		DecisionSpeed:       decisionSpeed(in.Interactions),
	}
}

// priceSensitivity scores how price-conscious the user is. The purchase
// signal (what they actually bought) is blended 70/30 with the filter
// signal (what they searched for) when enough filter samples exist.
func (c *Classifier) priceSensitivity(purchases []model.Purchase, stats model.PurchaseStats, interactions []model.InteractionEvent) float64 {
	sensitivity := 0.5
	if len(purchases) > 0 && stats.AvgItemPrice > 0 {
		sensitivity = 1 - math.Min(stats.AvgItemPrice/(platformAvgPrice*2), 1.0)

		discounted := 0
		for _, p := range purchases {
			if p.Discounted || (p.OriginalPrice != nil && p.Price < *p.OriginalPrice) {
				discounted++
			}
		}
		sensitivity = (sensitivity + float64(discounted)/float64(len(purchases))) / 2
	}

	if filterSignal := c.filters.PriceSensitivitySignal(interactions); filterSignal != nil {
		w := c.cfg.FilterSignalWeight
		sensitivity = (1-w)*sensitivity + w*(*filterSignal)
	}

	return clamp01(sensitivity)
}

// explorationTendency averages category diversity and product novelty.
func explorationTendency(purchases []model.Purchase, stats model.PurchaseStats) float64 {
	if len(purchases) == 0 {
		return 0.5
	}

	diversity := math.Min(float64(stats.UniqueCategories)/10, 1.0)

	seen := make(map[int64]bool, len(purchases))
	for _, p := range purchases {
		seen[p.ProductID] = true
	}
	novelty := float64(len(seen)) / float64(len(purchases))

	return (diversity + novelty) / 2
}

// sentimentTendency maps the average review rating from 1..5 to [0,1].
func sentimentTendency(reviews []model.Review) float64 {
	if len(reviews) == 0 {
		return 0.5
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(len(reviews))
	return (avg - 1) / 4
}

// purchaseFrequency buckets the average days between orders.
func purchaseFrequency(stats model.PurchaseStats) float64 {
	if stats.FirstPurchase == nil || stats.LastPurchase == nil || stats.TotalOrders < 2 {
		return 0.3
	}

	totalDays := stats.LastPurchase.Sub(*stats.FirstPurchase).Hours() / 24
	if totalDays <= 0 {
		return 0.5
	}
	avgDaysBetween := totalDays / float64(stats.TotalOrders-1)

	switch {
	case avgDaysBetween <= 7:
		return 1.0
	case avgDaysBetween <= 14:
		return 0.8
	case avgDaysBetween <= 30:
		return 0.6
	case avgDaysBetween <= 60:
		return 0.4
	case avgDaysBetween <= 90:
		return 0.2
	default:
		return 0.1
	}
}

// decisionSpeed buckets the average view duration before acting.
func decisionSpeed(interactions []model.InteractionEvent) float64 {
	var total, count int
	for _, ev := range interactions {
		if ev.Type == model.InteractionView && ev.DurationSeconds != nil && *ev.DurationSeconds > 0 {
			total += *ev.DurationSeconds
			count++
		}
	}
	if count == 0 {
		return 0.5
	}

	avg := float64(total) / float64(count)
	switch {
	case avg <= 30:
		return 1.0
	case avg <= 60:
		return 0.7
	case avg <= 180:
		return 0.5
	case avg <= 300:
		return 0.3
	default:
		return 0.1
	}
}

// Classify picks the archetype whose canonical vector has the minimum
// weighted Euclidean distance from dims. Always returns an archetype;
// low confidence communicates uncertainty instead of "unknown".
func Classify(dims model.Dimensions) (model.Archetype, float64) {
	best := model.ArchetypePracticalShopper
	bestDist := math.Inf(1)

	for _, archetype := range model.Archetypes {
		profile := canonicalProfiles[archetype]
		dist := weightedDistance(dims, profile)
		if dist < bestDist {
			bestDist = dist
			best = archetype
		}
	}

	confidence := clamp01(1 - bestDist)
	return best, confidence
}

func weightedDistance(a, b model.Dimensions) float64 {
	sum := dimensionWeights.PriceSensitivity*sq(a.PriceSensitivity-b.PriceSensitivity) +
		dimensionWeights.ExplorationTendency*sq(a.ExplorationTendency-b.ExplorationTendency) +
		dimensionWeights.SentimentTendency*sq(a.SentimentTendency-b.SentimentTendency) +
		dimensionWeights.PurchaseFrequency*sq(a.PurchaseFrequency-b.PurchaseFrequency) +
		dimensionWeights.DecisionSpeed*sq(a.DecisionSpeed-b.DecisionSpeed)
	return math.Sqrt(sum)
}

func sq(x float64) float64 { return x * x }

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
