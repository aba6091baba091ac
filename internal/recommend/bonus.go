package recommend

import "github.com/AdnanSerri/ai-driven-ecommerce/internal/model"

// personalityBaseScore is the neutral starting score every candidate
// gets before archetype bonuses apply.
const personalityBaseScore = 0.5

// bonusRule is one archetype scoring rule: a product predicate and the
// bonus awarded when it holds.
type bonusRule struct {
	when  func(p model.ProductCandidate) bool
	bonus float64
}

// ratingOrDefault returns the product rating, assuming a middling 3.5
// when the catalog has none.
func ratingOrDefault(p model.ProductCandidate) float64 {
	if p.Rating != nil {
		return *p.Rating
	}
	return 3.5
}

// archetypeRules maps each archetype to its product bonus rules. The
// table is evaluated uniformly: base 0.5 plus every matching bonus,
// capped at 1.0.
var archetypeRules = map[model.Archetype][]bonusRule{
	model.ArchetypeAdventurousPremium: {
		{when: func(p model.ProductCandidate) bool { return p.IsNew }, bonus: 0.3},
		{when: func(p model.ProductCandidate) bool { return p.Price > 50 }, bonus: 0.2},
	},
	model.ArchetypeCautiousValueSeeker: {
		{when: func(p model.ProductCandidate) bool { return ratingOrDefault(p) >= 4.0 }, bonus: 0.3},
		{when: func(p model.ProductCandidate) bool { return p.IsOnSale() }, bonus: 0.2},
	},
	model.ArchetypeBargainHunter: {
		{when: func(p model.ProductCandidate) bool { return p.IsOnSale() }, bonus: 0.4},
		{when: func(p model.ProductCandidate) bool { return p.Price < 30 }, bonus: 0.2},
	},
	model.ArchetypeQualityFocused: {
		{when: func(p model.ProductCandidate) bool { return ratingOrDefault(p) >= 4.5 }, bonus: 0.4},
		{when: func(p model.ProductCandidate) bool { return p.Price > 40 }, bonus: 0.1},
	},
	model.ArchetypeTrendFollower: {
		{when: func(p model.ProductCandidate) bool { return p.Popularity > 100 }, bonus: 0.3},
		{when: func(p model.ProductCandidate) bool { return p.IsNew }, bonus: 0.2},
	},
	model.ArchetypeImpulseBuyer: {
		{when: func(p model.ProductCandidate) bool { return p.IsNew }, bonus: 0.2},
		{when: func(p model.ProductCandidate) bool { return p.IsOnSale() }, bonus: 0.2},
		// Visual appeal proxy: products with images.
		{when: func(p model.ProductCandidate) bool { return p.ImageURL != nil && *p.ImageURL != "" }, bonus: 0.1},
	},
	model.ArchetypeLoyalEnthusiast: {
		{when: func(p model.ProductCandidate) bool { return ratingOrDefault(p) >= 4.0 }, bonus: 0.2},
	},
	model.ArchetypePracticalShopper: {
		{when: func(p model.ProductCandidate) bool { return ratingOrDefault(p) >= 3.5 && p.Price < 50 }, bonus: 0.3},
	},
}

// personalityScore computes the archetype-matched score for a product,
// in [0.5, 1.0].
func personalityScore(archetype model.Archetype, p model.ProductCandidate) float64 {
	score := personalityBaseScore
	for _, rule := range archetypeRules[archetype] {
		if rule.when(p) {
			score += rule.bonus
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
