package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// InsertFeedback records a user's reaction to a served recommendation.
func (db *DB) InsertFeedback(ctx context.Context, fb model.RecommendationFeedback) (uuid.UUID, error) {
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO recommendation_feedback (id, user_id, product_id, action, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		fb.ID, fb.UserID, fb.ProductID, string(fb.Action), fb.Metadata, fb.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: insert feedback: %w", err)
	}
	return fb.ID, nil
}

// AddNegativeFeedback marks a product as not interesting to the user.
// Re-marking updates the reason and timestamp.
func (db *DB) AddNegativeFeedback(ctx context.Context, userID, productID int64, reason string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO user_negative_feedback (user_id, product_id, reason, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NOW())
		 ON CONFLICT (user_id, product_id) DO UPDATE SET
		     reason = EXCLUDED.reason,
		     created_at = NOW()`,
		userID, productID, reason,
	)
	if err != nil {
		return fmt.Errorf("storage: add negative feedback: %w", err)
	}
	return nil
}

// RemoveNegativeFeedback clears a not-interested mark. Returns
// ErrNotFound when none existed.
func (db *DB) RemoveNegativeFeedback(ctx context.Context, userID, productID int64) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM user_negative_feedback WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("storage: remove negative feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NegativeFeedbackIDs returns product ids the user marked not
// interested. These are excluded from every recommendation.
func (db *DB) NegativeFeedbackIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT product_id FROM user_negative_feedback WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: negative feedback ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan negative feedback id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: negative feedback ids: %w", err)
	}
	return ids, nil
}
