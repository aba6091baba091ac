package storage

import (
	"context"
	"fmt"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// TrendingActivity returns per-product activity counts for the recent
// and baseline windows: views from the interaction log, orders from
// order items, wishlist additions from wishlists. Only products with
// any recent activity and stock are returned.
func (db *DB) TrendingActivity(ctx context.Context, recentDays, baselineDays, limit int) ([]model.ProductActivity, error) {
	return db.trendingActivity(ctx, 0, recentDays, baselineDays, limit)
}

// TrendingActivityByCategory is TrendingActivity narrowed to one
// category.
func (db *DB) TrendingActivityByCategory(ctx context.Context, categoryID int64, recentDays, baselineDays, limit int) ([]model.ProductActivity, error) {
	return db.trendingActivity(ctx, categoryID, recentDays, baselineDays, limit)
}

func (db *DB) trendingActivity(ctx context.Context, categoryID int64, recentDays, baselineDays, limit int) ([]model.ProductActivity, error) {
	rows, err := db.pool.Query(ctx,
		`WITH view_activity AS (
		     SELECT product_id,
		            COUNT(*) FILTER (WHERE created_at >= NOW() - make_interval(days => $1)) AS recent_views,
		            COUNT(*) FILTER (
		                WHERE created_at >= NOW() - make_interval(days => $2)
		                  AND created_at < NOW() - make_interval(days => $1)
		            ) AS baseline_views
		     FROM user_interactions
		     WHERE interaction_type = 'view'
		       AND created_at >= NOW() - make_interval(days => $2)
		     GROUP BY product_id
		 ),
		 order_activity AS (
		     SELECT oi.product_id,
		            COUNT(*) FILTER (WHERE o.ordered_at >= NOW() - make_interval(days => $1)) AS recent_orders,
		            COUNT(*) FILTER (
		                WHERE o.ordered_at >= NOW() - make_interval(days => $2)
		                  AND o.ordered_at < NOW() - make_interval(days => $1)
		            ) AS baseline_orders
		     FROM order_items oi
		     JOIN orders o ON oi.order_id = o.id
		     WHERE o.status NOT IN ('cancelled', 'refunded')
		       AND o.ordered_at >= NOW() - make_interval(days => $2)
		     GROUP BY oi.product_id
		 ),
		 wishlist_activity AS (
		     SELECT product_id,
		            COUNT(*) FILTER (WHERE added_at >= NOW() - make_interval(days => $1)) AS recent_wishlists,
		            COUNT(*) FILTER (
		                WHERE added_at >= NOW() - make_interval(days => $2)
		                  AND added_at < NOW() - make_interval(days => $1)
		            ) AS baseline_wishlists
		     FROM wishlists
		     WHERE added_at >= NOW() - make_interval(days => $2)
		     GROUP BY product_id
		 )
		 SELECT p.id, p.name, COALESCE(p.category_id, 0), COALESCE(c.name, ''),
		        p.price, p.original_price, p.image_url,
		        COALESCE(v.recent_views, 0), COALESCE(v.baseline_views, 0),
		        COALESCE(oa.recent_orders, 0), COALESCE(oa.baseline_orders, 0),
		        COALESCE(w.recent_wishlists, 0), COALESCE(w.baseline_wishlists, 0)
		 FROM products p
		 LEFT JOIN categories c ON p.category_id = c.id
		 LEFT JOIN view_activity v ON p.id = v.product_id
		 LEFT JOIN order_activity oa ON p.id = oa.product_id
		 LEFT JOIN wishlist_activity w ON p.id = w.product_id
		 WHERE p.stock > 0
		   AND ($4::bigint = 0 OR p.category_id = $4)
		   AND (COALESCE(v.recent_views, 0) > 0
		        OR COALESCE(oa.recent_orders, 0) > 0
		        OR COALESCE(w.recent_wishlists, 0) > 0)
		 ORDER BY p.id
		 LIMIT $3`,
		recentDays, baselineDays, limit, categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: trending activity: %w", err)
	}
	defer rows.Close()

	var activity []model.ProductActivity
	for rows.Next() {
		var pa model.ProductActivity
		if err := rows.Scan(&pa.Product.ID, &pa.Product.Name, &pa.Product.CategoryID,
			&pa.Product.CategoryName, &pa.Product.Price, &pa.Product.OriginalPrice,
			&pa.Product.ImageURL,
			&pa.RecentViews, &pa.BaselineViews,
			&pa.RecentOrders, &pa.BaselineOrders,
			&pa.RecentWishlists, &pa.BaselineWishlists); err != nil {
			return nil, fmt.Errorf("storage: scan trending activity: %w", err)
		}
		activity = append(activity, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: trending activity: %w", err)
	}
	return activity, nil
}
