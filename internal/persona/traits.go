package persona

import "github.com/AdnanSerri/ai-driven-ecommerce/internal/model"

// archetypeTraits are human-readable trait descriptions per archetype.
var archetypeTraits = map[model.Archetype][]string{
	model.ArchetypeAdventurousPremium: {
		"Enjoys trying new and premium products",
		"Not deterred by higher prices for quality",
		"Quick decision maker",
		"Positive outlook on shopping experiences",
	},
	model.ArchetypeCautiousValueSeeker: {
		"Very price-conscious",
		"Prefers familiar, trusted products",
		"Takes time to research and compare",
		"Values consistency over novelty",
	},
	model.ArchetypeLoyalEnthusiast: {
		"Strong brand loyalty",
		"Highly engaged with favorite brands",
		"Frequent repeat purchases",
		"Positive reviews and recommendations",
	},
	model.ArchetypeBargainHunter: {
		"Always looking for the best deal",
		"Compares prices across platforms",
		"Acts quickly on good deals",
		"Explores many options before buying",
	},
	model.ArchetypeQualityFocused: {
		"Prioritizes quality over price",
		"Thorough researcher before purchase",
		"Willing to wait for the right product",
		"Values durability and craftsmanship",
	},
	model.ArchetypeTrendFollower: {
		"Early adopter of new products",
		"Influenced by popular trends",
		"Active in product communities",
		"Frequently updates purchases",
	},
	model.ArchetypePracticalShopper: {
		"Buys only what is needed",
		"Functional over aesthetic",
		"Balanced price-quality approach",
		"Predictable shopping patterns",
	},
	model.ArchetypeImpulseBuyer: {
		"Makes quick purchase decisions",
		"Attracted to new and exciting products",
		"High purchase frequency",
		"Emotionally driven buying",
	},
}

// Traits returns the human-readable trait list for an archetype.
func Traits(a model.Archetype) []string {
	return archetypeTraits[a]
}

// DimensionInfo describes one dimension score for API responses.
type DimensionInfo struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// DescribeDimensions expands a Dimensions value into named, described
// entries in a stable order.
func DescribeDimensions(d model.Dimensions) []DimensionInfo {
	return []DimensionInfo{
		{Name: "price_sensitivity", Score: d.PriceSensitivity, Description: "How sensitive to price changes and discounts"},
		{Name: "exploration_tendency", Score: d.ExplorationTendency, Description: "Willingness to try new products and categories"},
		{Name: "sentiment_tendency", Score: d.SentimentTendency, Description: "Overall positivity in reviews and feedback"},
		{Name: "purchase_frequency", Score: d.PurchaseFrequency, Description: "How often purchases are made"},
		{Name: "decision_speed", Score: d.DecisionSpeed, Description: "How quickly purchase decisions are made"},
	}
}
