package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ProductCandidate is a product eligible for recommendation scoring.
// Pointer fields are absent when the catalog row lacks them.
type ProductCandidate struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	CategoryID    int64            `json:"category_id"`
	CategoryName  string           `json:"category_name,omitempty"`
	Price         float64          `json:"price"`
	OriginalPrice *float64         `json:"original_price,omitempty"`
	Rating        *float64         `json:"rating,omitempty"`
	Popularity    int              `json:"popularity"`
	IsNew         bool             `json:"is_new"`
	OnSaleFlag    *bool            `json:"is_on_sale,omitempty"`
	ImageURL      *string          `json:"image_url,omitempty"`
	Embedding     *pgvector.Vector `json:"-"`
}

// IsOnSale reports whether the product is discounted. When the catalog
// carries no explicit flag it falls back to price < original_price, and
// to false when original_price is absent.
func (p ProductCandidate) IsOnSale() bool {
	if p.OnSaleFlag != nil {
		return *p.OnSaleFlag
	}
	if p.OriginalPrice != nil {
		return p.Price < *p.OriginalPrice
	}
	return false
}

// Purchase is one purchased item with the timestamp used for time decay.
type Purchase struct {
	ProductID     int64
	CategoryID    int64
	Price         float64
	OriginalPrice *float64
	Discounted    bool
	OrderedAt     time.Time
}

// WishlistItem is one wishlist entry with its add timestamp.
type WishlistItem struct {
	ProductID  int64
	CategoryID int64
	AddedAt    time.Time
}

// View is one product view with its timestamp.
type View struct {
	ProductID  int64
	CategoryID int64
	ViewedAt   time.Time
}

// Review is a user's product review.
type Review struct {
	ProductID int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// SimilarProduct is a content-similarity hit from the vector index.
type SimilarProduct struct {
	ProductID int64
	Score     float64
}

// ProductActivity holds windowed activity counts for trending ranking.
type ProductActivity struct {
	Product           ProductCandidate
	RecentOrders      int
	RecentViews       int
	RecentWishlists   int
	BaselineOrders    int
	BaselineViews     int
	BaselineWishlists int
}
