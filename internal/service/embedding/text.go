package embedding

import (
	"fmt"
	"strings"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// ProductText composes the text embedded for one product.
func ProductText(name, category, description string) string {
	return fmt.Sprintf("%s. %s. %s", name, category, description)
}

// ProductRef names a product when building user preference text.
type ProductRef struct {
	Name         string
	CategoryName string
}

const (
	maxPreferencePurchases = 20
	maxPreferenceViews     = 10
	maxReviewChars         = 200
	maxPreferenceChars     = 5000
)

// UserPreferenceText folds a user's history into one text whose
// embedding stands in for their taste. Purchased products count twice,
// viewed products once, and the bodies of positive reviews (rating 4+)
// are appended. Returns "" when there is no usable history; callers
// skip content similarity then instead of embedding an empty string.
func UserPreferenceText(purchased, viewed []ProductRef, reviews []model.Review) string {
	var parts []string

	for i, p := range purchased {
		if i >= maxPreferencePurchases {
			break
		}
		t := strings.TrimSpace(p.Name + " " + p.CategoryName)
		if t == "" {
			continue
		}
		parts = append(parts, t, t)
	}

	for i, p := range viewed {
		if i >= maxPreferenceViews {
			break
		}
		t := strings.TrimSpace(p.Name + " " + p.CategoryName)
		if t == "" {
			continue
		}
		parts = append(parts, t)
	}

	for _, r := range reviews {
		if r.Rating >= 4 && r.Comment != "" {
			parts = append(parts, truncate(r.Comment, maxReviewChars))
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return truncate(strings.Join(parts, " "), maxPreferenceChars)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
