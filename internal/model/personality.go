package model

import "time"

// Archetype is one of the 8 canonical shopper personality classes.
type Archetype string

const (
	ArchetypeAdventurousPremium  Archetype = "adventurous_premium"
	ArchetypeCautiousValueSeeker Archetype = "cautious_value_seeker"
	ArchetypeLoyalEnthusiast     Archetype = "loyal_enthusiast"
	ArchetypeBargainHunter       Archetype = "bargain_hunter"
	ArchetypeQualityFocused      Archetype = "quality_focused"
	ArchetypeTrendFollower       Archetype = "trend_follower"
	ArchetypePracticalShopper    Archetype = "practical_shopper"
	ArchetypeImpulseBuyer        Archetype = "impulse_buyer"
)

// Archetypes lists every archetype in a stable order.
var Archetypes = []Archetype{
	ArchetypeAdventurousPremium,
	ArchetypeCautiousValueSeeker,
	ArchetypeLoyalEnthusiast,
	ArchetypeBargainHunter,
	ArchetypeQualityFocused,
	ArchetypeTrendFollower,
	ArchetypePracticalShopper,
	ArchetypeImpulseBuyer,
}

// Valid reports whether a is a known archetype.
func (a Archetype) Valid() bool {
	for _, known := range Archetypes {
		if a == known {
			return true
		}
	}
	return false
}

// Display returns the archetype with underscores replaced by spaces,
// for use in human-readable reason strings.
func (a Archetype) Display() string {
	out := make([]byte, len(a))
	for i := 0; i < len(a); i++ {
		if a[i] == '_' {
			out[i] = ' '
		} else {
			out[i] = a[i]
		}
	}
	return string(out)
}

// Dimensions holds the 5 behavioral dimensions, each in [0,1].
type Dimensions struct {
	PriceSensitivity    float64 `json:"price_sensitivity"`
	ExplorationTendency float64 `json:"exploration_tendency"`
	SentimentTendency   float64 `json:"sentiment_tendency"`
	PurchaseFrequency   float64 `json:"purchase_frequency"`
	DecisionSpeed       float64 `json:"decision_speed"`
}

// PersonalityProfile is a computed classification of a user's shopping
// behavior. Computed on demand and cached by the caller; never an input
// to its own computation.
type PersonalityProfile struct {
	UserID      int64      `json:"user_id"`
	Dimensions  Dimensions `json:"dimensions"`
	Archetype   Archetype  `json:"personality_type"`
	Confidence  float64    `json:"confidence"`
	DataPoints  int        `json:"data_points"`
	LastUpdated time.Time  `json:"last_updated"`
}

// PurchaseStats aggregates a user's order history for dimension
// computation.
type PurchaseStats struct {
	TotalOrders      int
	AvgItemPrice     float64
	UniqueCategories int
	FirstPurchase    *time.Time
	LastPurchase     *time.Time
}
