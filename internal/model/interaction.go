package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InteractionType is a closed set of user interaction kinds.
type InteractionType string

const (
	InteractionView           InteractionType = "view"
	InteractionClick          InteractionType = "click"
	InteractionAddToCart      InteractionType = "add_to_cart"
	InteractionRemoveFromCart InteractionType = "remove_from_cart"
	InteractionPurchase       InteractionType = "purchase"
	InteractionWishlist       InteractionType = "wishlist"
	InteractionReview         InteractionType = "review"
	InteractionShare          InteractionType = "share"
	InteractionCartCleared    InteractionType = "cart_cleared"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionClick, InteractionAddToCart,
		InteractionRemoveFromCart, InteractionPurchase, InteractionWishlist,
		InteractionReview, InteractionShare, InteractionCartCleared:
		return true
	}
	return false
}

// FilterContext is the filter state captured when a user applies a
// search/browse filter. Carried in interaction metadata; all fields
// optional. Nil pointers distinguish "not set" from zero values.
type FilterContext struct {
	MinPrice   *float64 `json:"min_price,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	CategoryID *int64   `json:"category_id,omitempty"`
}

// InteractionEvent is a single logged user interaction. Immutable once
// written; the interaction log is append-only.
type InteractionEvent struct {
	ID              uuid.UUID       `json:"id"`
	UserID          int64           `json:"user_id"`
	ProductID       int64           `json:"product_id"`
	Type            InteractionType `json:"interaction_type"`
	Timestamp       time.Time       `json:"timestamp"`
	DurationSeconds *int            `json:"duration_seconds,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// Filter extracts the filter_context from event metadata, or nil if the
// event carries none.
func (e InteractionEvent) Filter() *FilterContext {
	raw, ok := e.Metadata["filter_context"]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	fc := &FilterContext{}
	if v, ok := toFloat(m["min_price"]); ok {
		fc.MinPrice = &v
	}
	if v, ok := toFloat(m["max_price"]); ok {
		fc.MaxPrice = &v
	}
	if v, ok := toFloat(m["category_id"]); ok {
		id := int64(v)
		fc.CategoryID = &id
	}
	if fc.MinPrice == nil && fc.MaxPrice == nil && fc.CategoryID == nil {
		return nil
	}
	return fc
}

// toFloat coerces the numeric types JSON decoding can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FeedbackType is the closed set of recommendation feedback actions.
type FeedbackType string

const (
	FeedbackClicked       FeedbackType = "clicked"
	FeedbackPurchased     FeedbackType = "purchased"
	FeedbackDismissed     FeedbackType = "dismissed"
	FeedbackNotInterested FeedbackType = "not_interested"
	FeedbackViewed        FeedbackType = "viewed"
)

// Valid reports whether f is a known feedback action.
func (f FeedbackType) Valid() bool {
	switch f {
	case FeedbackClicked, FeedbackPurchased, FeedbackDismissed,
		FeedbackNotInterested, FeedbackViewed:
		return true
	}
	return false
}

// RecommendationFeedback records a user's reaction to a served
// recommendation. "not_interested" feeds the scorer's exclusion set.
type RecommendationFeedback struct {
	ID        uuid.UUID      `json:"id"`
	UserID    int64          `json:"user_id"`
	ProductID int64          `json:"product_id"`
	Action    FeedbackType   `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
