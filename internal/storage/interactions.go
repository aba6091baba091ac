package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// InsertInteraction appends one event to the interaction log.
func (db *DB) InsertInteraction(ctx context.Context, ev model.InteractionEvent) (uuid.UUID, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO user_interactions (id, user_id, product_id, interaction_type,
		 duration_seconds, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.UserID, ev.ProductID, string(ev.Type),
		ev.DurationSeconds, ev.Metadata, ev.Timestamp,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: insert interaction: %w", err)
	}
	return ev.ID, nil
}

// InsertInteractionBatch appends events via COPY. Used by the buffered
// ingest path where events arrive faster than row-at-a-time inserts
// keep up with.
func (db *DB) InsertInteractionBatch(ctx context.Context, events []model.InteractionEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	columns := []string{"id", "user_id", "product_id", "interaction_type",
		"duration_seconds", "metadata", "created_at"}
	rows := make([][]any, len(events))
	for i, ev := range events {
		id := ev.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = now
		}
		rows[i] = []any{id, ev.UserID, ev.ProductID, string(ev.Type),
			ev.DurationSeconds, ev.Metadata, ts}
	}

	count, err := db.pool.CopyFrom(ctx,
		pgx.Identifier{"user_interactions"},
		columns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: copy interactions: %w", err)
	}
	return count, nil
}

// UserInteractions returns the user's interactions inside the window,
// most recent first. interactionType narrows to one type when set.
func (db *DB) UserInteractions(ctx context.Context, userID int64, since time.Time, interactionType model.InteractionType, limit int) ([]model.InteractionEvent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, product_id, interaction_type, duration_seconds, metadata, created_at
		 FROM user_interactions
		 WHERE user_id = $1
		   AND created_at >= $2
		   AND ($3 = '' OR interaction_type = $3)
		 ORDER BY created_at DESC
		 LIMIT $4`,
		userID, since, string(interactionType), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: user interactions: %w", err)
	}
	defer rows.Close()

	var events []model.InteractionEvent
	for rows.Next() {
		var ev model.InteractionEvent
		var typ string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.ProductID, &typ,
			&ev.DurationSeconds, &ev.Metadata, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("storage: scan interaction: %w", err)
		}
		ev.Type = model.InteractionType(typ)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: user interactions: %w", err)
	}
	return events, nil
}

// ProductViewCount counts views of a product inside the window.
func (db *DB) ProductViewCount(ctx context.Context, productID int64, since time.Time) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_interactions
		 WHERE product_id = $1
		   AND interaction_type = 'view'
		   AND created_at >= $2`,
		productID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: product view count: %w", err)
	}
	return count, nil
}
