package model

import "time"

// Recommendation strategies.
const (
	StrategyHybrid  = "hybrid"
	StrategyPopular = "popular"
)

// RecommendedItem is one entry in a served recommendation list.
type RecommendedItem struct {
	ProductID    int64    `json:"product_id"`
	Name         string   `json:"name"`
	Score        float64  `json:"score"`
	Reason       string   `json:"reason"`
	CategoryID   *int64   `json:"category_id,omitempty"`
	CategoryName string   `json:"category_name,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	ImageURL     *string  `json:"image_url,omitempty"`
}

// RecommendationResult is the ordered output of a scoring call.
type RecommendationResult struct {
	Items         []RecommendedItem `json:"recommendations"`
	Strategy      string            `json:"strategy"`
	AlphaUsed     float64           `json:"alpha_used"`
	AlphaAdaptive bool              `json:"alpha_adaptive"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// TrendingProduct is one entry in a trending ranking.
type TrendingProduct struct {
	ProductID     int64    `json:"product_id"`
	Name          string   `json:"name"`
	Price         *float64 `json:"price,omitempty"`
	ImageURL      *string  `json:"image_url,omitempty"`
	CategoryID    *int64   `json:"category_id,omitempty"`
	CategoryName  string   `json:"category_name,omitempty"`
	TrendingScore float64  `json:"trending_score"`
	RecentOrders  int      `json:"recent_orders"`
	RecentViews   int      `json:"recent_views"`
	GrowthRate    *float64 `json:"growth_rate,omitempty"`
}
