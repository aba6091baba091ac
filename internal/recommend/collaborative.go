package recommend

import "github.com/AdnanSerri/ai-driven-ecommerce/internal/model"

// collaborativeMinSimilarity is the Jaccard threshold below which a
// neighboring user contributes nothing.
const collaborativeMinSimilarity = 0.1

// CollaborativeScores computes implicit-feedback scores for products
// purchased by users similar to the target user. Similarity is the
// Jaccard index of purchased product sets; neighbors below the
// threshold are ignored. Scores are normalized by the total similarity
// weight of admitted neighbors, and products the user already owns are
// never scored.
func CollaborativeScores(userPurchases []model.Purchase, neighbors map[int64][]model.Purchase) map[int64]float64 {
	owned := make(map[int64]bool, len(userPurchases))
	for _, p := range userPurchases {
		if p.ProductID != 0 {
			owned[p.ProductID] = true
		}
	}

	counts := make(map[int64]float64)
	var totalWeight float64

	for _, purchases := range neighbors {
		theirs := make(map[int64]bool, len(purchases))
		for _, p := range purchases {
			if p.ProductID != 0 {
				theirs[p.ProductID] = true
			}
		}

		intersection := 0
		for id := range theirs {
			if owned[id] {
				intersection++
			}
		}
		union := len(owned) + len(theirs) - intersection
		var similarity float64
		if union > 0 {
			similarity = float64(intersection) / float64(union)
		}
		if similarity <= collaborativeMinSimilarity {
			continue
		}

		totalWeight += similarity
		for _, p := range purchases {
			if p.ProductID != 0 && !owned[p.ProductID] {
				counts[p.ProductID] += similarity
			}
		}
	}

	if totalWeight <= 0 {
		return nil
	}
	scores := make(map[int64]float64, len(counts))
	for id, c := range counts {
		scores[id] = c / totalWeight
	}
	return scores
}
