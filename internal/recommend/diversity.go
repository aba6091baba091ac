package recommend

import (
	"fmt"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// selectDiverse walks score-sorted candidates and enforces category
// diversity. The first pass caps each category; a second pass revisits
// skipped candidates to reach the minimum category count, admitting
// only categories not yet represented. Final scores are clamped to
// [0, 1].
func (e *Engine) selectDiverse(sorted []*candidate, limit int) []model.RecommendedItem {
	maxPerCategory := e.cfg.DiversityMaxPerCategory
	minCategories := e.cfg.DiversityMinCategories

	categoryCounts := make(map[int64]int)
	selected := make(map[int64]bool)
	items := make([]model.RecommendedItem, 0, limit)
	var skipped []*candidate

	for _, c := range sorted {
		if len(items) >= limit {
			break
		}
		catID := c.categoryID()
		if categoryCounts[catID] >= maxPerCategory {
			skipped = append(skipped, c)
			continue
		}
		categoryCounts[catID]++
		selected[catID] = true
		items = append(items, c.item())
	}

	if len(selected) < minCategories && len(items) < limit {
		for _, c := range skipped {
			if len(items) >= limit {
				break
			}
			catID := c.categoryID()
			if selected[catID] {
				continue
			}
			selected[catID] = true
			categoryCounts[catID]++
			items = append(items, c.item())
		}
	}

	return items
}

func (c *candidate) categoryID() int64 {
	if c.product == nil {
		return 0
	}
	return c.product.CategoryID
}

func (c *candidate) item() model.RecommendedItem {
	item := model.RecommendedItem{
		ProductID: c.id,
		Name:      fmt.Sprintf("Product %d", c.id),
		Score:     clamp01(c.score),
		Reason:    reasonFallback,
	}
	if len(c.reasons) > 0 {
		item.Reason = c.reasons[0]
	}
	if c.product != nil {
		item.Name = c.product.Name
		if c.product.CategoryID != 0 {
			catID := c.product.CategoryID
			item.CategoryID = &catID
		}
		item.CategoryName = c.product.CategoryName
		if c.product.Price > 0 {
			price := c.product.Price
			item.Price = &price
		}
		item.ImageURL = c.product.ImageURL
	}
	return item
}
