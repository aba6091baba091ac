package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// UserPurchases returns the user's purchase history, most recent first.
// Cancelled and refunded orders are excluded.
func (db *DB) UserPurchases(ctx context.Context, userID int64, limit int) ([]model.Purchase, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT oi.product_id, COALESCE(p.category_id, 0), oi.product_price,
		        p.original_price, o.ordered_at
		 FROM order_items oi
		 JOIN orders o ON oi.order_id = o.id
		 JOIN products p ON oi.product_id = p.id
		 WHERE o.user_id = $1
		   AND o.status NOT IN ('cancelled', 'refunded')
		 ORDER BY o.ordered_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: user purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ProductID, &p.CategoryID, &p.Price, &p.OriginalPrice, &p.OrderedAt); err != nil {
			return nil, fmt.Errorf("storage: scan purchase: %w", err)
		}
		p.Discounted = p.OriginalPrice != nil && p.Price < *p.OriginalPrice
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: user purchases: %w", err)
	}
	return purchases, nil
}

// UserPurchaseStats aggregates the user's order history.
func (db *DB) UserPurchaseStats(ctx context.Context, userID int64) (model.PurchaseStats, error) {
	var s model.PurchaseStats
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT o.id),
		        COALESCE(AVG(oi.product_price), 0),
		        COUNT(DISTINCT p.category_id),
		        MIN(o.ordered_at),
		        MAX(o.ordered_at)
		 FROM orders o
		 JOIN order_items oi ON o.id = oi.order_id
		 JOIN products p ON oi.product_id = p.id
		 WHERE o.user_id = $1
		   AND o.status NOT IN ('cancelled', 'refunded')`,
		userID,
	).Scan(&s.TotalOrders, &s.AvgItemPrice, &s.UniqueCategories, &s.FirstPurchase, &s.LastPurchase)
	if err != nil {
		return model.PurchaseStats{}, fmt.Errorf("storage: purchase stats: %w", err)
	}
	return s, nil
}

// UserWishlist returns the user's wishlist, most recently added first.
func (db *DB) UserWishlist(ctx context.Context, userID int64, limit int) ([]model.WishlistItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT w.product_id, COALESCE(p.category_id, 0), w.added_at
		 FROM wishlists w
		 JOIN products p ON w.product_id = p.id
		 WHERE w.user_id = $1
		 ORDER BY w.added_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: user wishlist: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		var w model.WishlistItem
		if err := rows.Scan(&w.ProductID, &w.CategoryID, &w.AddedAt); err != nil {
			return nil, fmt.Errorf("storage: scan wishlist item: %w", err)
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: user wishlist: %w", err)
	}
	return items, nil
}

// UserReviews returns reviews written by the user, most recent first.
func (db *DB) UserReviews(ctx context.Context, userID int64, limit int) ([]model.Review, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.product_id, r.rating, COALESCE(r.comment, ''), r.created_at
		 FROM reviews r
		 WHERE r.user_id = $1
		 ORDER BY r.created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: user reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ProductID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: user reviews: %w", err)
	}
	return reviews, nil
}

// NeighborPurchases returns purchase histories of other users who
// bought from the same categories as the target user, keyed by user id.
// Feeds collaborative scoring.
func (db *DB) NeighborPurchases(ctx context.Context, userID int64, maxNeighbors int) (map[int64][]model.Purchase, error) {
	rows, err := db.pool.Query(ctx,
		`WITH my_categories AS (
		     SELECT DISTINCT p.category_id
		     FROM order_items oi
		     JOIN orders o ON oi.order_id = o.id
		     JOIN products p ON oi.product_id = p.id
		     WHERE o.user_id = $1
		       AND o.status NOT IN ('cancelled', 'refunded')
		 ),
		 neighbor_ids AS (
		     SELECT o.user_id
		     FROM orders o
		     JOIN order_items oi ON oi.order_id = o.id
		     JOIN products p ON oi.product_id = p.id
		     WHERE o.user_id <> $1
		       AND o.status NOT IN ('cancelled', 'refunded')
		       AND p.category_id IN (SELECT category_id FROM my_categories)
		     GROUP BY o.user_id
		     ORDER BY COUNT(*) DESC
		     LIMIT $2
		 )
		 SELECT o.user_id, oi.product_id, COALESCE(p.category_id, 0),
		        oi.product_price, p.original_price, o.ordered_at
		 FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 JOIN products p ON oi.product_id = p.id
		 WHERE o.user_id IN (SELECT user_id FROM neighbor_ids)
		   AND o.status NOT IN ('cancelled', 'refunded')`,
		userID, maxNeighbors,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: neighbor purchases: %w", err)
	}
	defer rows.Close()

	neighbors := make(map[int64][]model.Purchase)
	for rows.Next() {
		var neighborID int64
		var p model.Purchase
		if err := rows.Scan(&neighborID, &p.ProductID, &p.CategoryID, &p.Price, &p.OriginalPrice, &p.OrderedAt); err != nil {
			return nil, fmt.Errorf("storage: scan neighbor purchase: %w", err)
		}
		p.Discounted = p.OriginalPrice != nil && p.Price < *p.OriginalPrice
		neighbors[neighborID] = append(neighbors[neighborID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: neighbor purchases: %w", err)
	}
	return neighbors, nil
}

// UserViews returns the user's product views inside the window, derived
// from the interaction log and joined with product categories.
func (db *DB) UserViews(ctx context.Context, userID int64, since time.Time, limit int) ([]model.View, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT ui.product_id, COALESCE(p.category_id, 0), ui.created_at
		 FROM user_interactions ui
		 LEFT JOIN products p ON ui.product_id = p.id
		 WHERE ui.user_id = $1
		   AND ui.interaction_type = 'view'
		   AND ui.created_at >= $2
		 ORDER BY ui.created_at DESC
		 LIMIT $3`,
		userID, since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: user views: %w", err)
	}
	defer rows.Close()

	var views []model.View
	for rows.Next() {
		var v model.View
		if err := rows.Scan(&v.ProductID, &v.CategoryID, &v.ViewedAt); err != nil {
			return nil, fmt.Errorf("storage: scan view: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: user views: %w", err)
	}
	return views, nil
}

// FrequentBuyers returns users with at least minPurchases purchased
// items, most active first. Used by offline evaluation to pick users
// whose history is deep enough to hold out.
func (db *DB) FrequentBuyers(ctx context.Context, minPurchases, limit int) ([]int64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT o.user_id
		 FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 WHERE o.status NOT IN ('cancelled', 'refunded')
		 GROUP BY o.user_id
		 HAVING COUNT(oi.id) >= $1
		 ORDER BY COUNT(oi.id) DESC, o.user_id
		 LIMIT $2`,
		minPurchases, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: frequent buyers: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan frequent buyer: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: frequent buyers: %w", err)
	}
	return users, nil
}
