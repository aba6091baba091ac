package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

const productColumns = `p.id, p.name, COALESCE(p.category_id, 0), COALESCE(c.name, ''),
	p.price, p.original_price, p.image_url,
	COALESCE(r.avg_rating, 0), COALESCE(s.order_count, 0),
	p.created_at > NOW() - INTERVAL '30 days'`

const productJoins = `FROM products p
	LEFT JOIN categories c ON p.category_id = c.id
	LEFT JOIN LATERAL (
	    SELECT AVG(rating)::float8 AS avg_rating FROM reviews WHERE product_id = p.id
	) r ON true
	LEFT JOIN LATERAL (
	    SELECT COUNT(*) AS order_count
	    FROM order_items oi
	    JOIN orders o ON oi.order_id = o.id
	    WHERE oi.product_id = p.id
	      AND o.status NOT IN ('cancelled', 'refunded')
	) s ON true`

func scanProduct(rows pgx.Rows) (model.ProductCandidate, error) {
	var p model.ProductCandidate
	var rating float64
	if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName,
		&p.Price, &p.OriginalPrice, &p.ImageURL,
		&rating, &p.Popularity, &p.IsNew); err != nil {
		return model.ProductCandidate{}, err
	}
	if rating > 0 {
		p.Rating = &rating
	}
	return p, nil
}

// ProductFilter narrows ProductCandidates. Zero values mean no filter.
type ProductFilter struct {
	IDs        []int64
	CategoryID int64
	Limit      int
}

// ProductCandidates returns catalog products with the rating, sales
// count, and recency fields the scorer reads.
func (db *DB) ProductCandidates(ctx context.Context, f ProductFilter) ([]model.ProductCandidate, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT ` + productColumns + ` ` + productJoins + `
		WHERE ($1::bigint[] IS NULL OR p.id = ANY($1))
		  AND ($2::bigint = 0 OR p.category_id = $2)
		ORDER BY p.id
		LIMIT $3`

	var ids any
	if len(f.IDs) > 0 {
		ids = f.IDs
	}
	rows, err := db.pool.Query(ctx, query, ids, f.CategoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: product candidates: %w", err)
	}
	defer rows.Close()

	var products []model.ProductCandidate
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: product candidates: %w", err)
	}
	return products, nil
}

// Product returns one product, or ErrNotFound.
func (db *DB) Product(ctx context.Context, id int64) (model.ProductCandidate, error) {
	products, err := db.ProductCandidates(ctx, ProductFilter{IDs: []int64{id}, Limit: 1})
	if err != nil {
		return model.ProductCandidate{}, err
	}
	if len(products) == 0 {
		return model.ProductCandidate{}, ErrNotFound
	}
	return products[0], nil
}

// PopularProducts returns products ranked by recent sales, falling back
// to the newest products when the window holds no sales.
func (db *DB) PopularProducts(ctx context.Context, limit, days int) ([]model.ProductCandidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT p.id, p.name, COALESCE(p.category_id, 0), COALESCE(c.name, ''),
		        p.price, p.original_price, p.image_url,
		        0::float8, COUNT(oi.id), p.created_at > NOW() - INTERVAL '30 days'
		 FROM products p
		 JOIN order_items oi ON p.id = oi.product_id
		 JOIN orders o ON oi.order_id = o.id
		 LEFT JOIN categories c ON p.category_id = c.id
		 WHERE o.ordered_at > NOW() - make_interval(days => $2)
		   AND o.status NOT IN ('cancelled', 'refunded')
		 GROUP BY p.id, p.name, p.category_id, c.name, p.price, p.original_price, p.image_url, p.created_at
		 ORDER BY COUNT(oi.id) DESC
		 LIMIT $1`,
		limit, days,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: popular products: %w", err)
	}
	defer rows.Close()

	var products []model.ProductCandidate
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan popular product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: popular products: %w", err)
	}
	if len(products) > 0 {
		return products, nil
	}

	// No sales in the window. Serve the newest products so cold-start
	// users still get results.
	rows, err = db.pool.Query(ctx,
		`SELECT `+productColumns+` `+productJoins+`
		 ORDER BY p.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: newest products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan newest product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: newest products: %w", err)
	}
	return products, nil
}

// ProductsForIndexing returns all products with the text fields used to
// build embeddings, in id order.
func (db *DB) ProductsForIndexing(ctx context.Context) ([]IndexableProduct, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT p.id, p.name, COALESCE(p.description, ''), COALESCE(c.name, ''),
		        COALESCE(p.category_id, 0), p.price
		 FROM products p
		 LEFT JOIN categories c ON p.category_id = c.id
		 ORDER BY p.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: products for indexing: %w", err)
	}
	defer rows.Close()

	var products []IndexableProduct
	for rows.Next() {
		var p IndexableProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryName, &p.CategoryID, &p.Price); err != nil {
			return nil, fmt.Errorf("storage: scan indexable product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: products for indexing: %w", err)
	}
	return products, nil
}

// IndexableProduct carries the fields embedded and stored in the vector
// index.
type IndexableProduct struct {
	ID           int64
	Name         string
	Description  string
	CategoryName string
	CategoryID   int64
	Price        float64
}

// ProductsNeedingEmbedding returns up to limit products that have no
// stored embedding yet, in id order. The index worker drains this set.
func (db *DB) ProductsNeedingEmbedding(ctx context.Context, limit int) ([]IndexableProduct, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT p.id, p.name, COALESCE(p.description, ''), COALESCE(c.name, ''),
		        COALESCE(p.category_id, 0), p.price
		 FROM products p
		 LEFT JOIN categories c ON p.category_id = c.id
		 WHERE p.embedding IS NULL
		 ORDER BY p.id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: products needing embedding: %w", err)
	}
	defer rows.Close()

	var products []IndexableProduct
	for rows.Next() {
		var p IndexableProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CategoryName, &p.CategoryID, &p.Price); err != nil {
			return nil, fmt.Errorf("storage: scan indexable product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: products needing embedding: %w", err)
	}
	return products, nil
}

// EmbeddingBacklog counts products still waiting for an embedding.
func (db *DB) EmbeddingBacklog(ctx context.Context) (int64, error) {
	var count int64
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE embedding IS NULL`,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: embedding backlog: %w", err)
	}
	return count, nil
}

// ProductEmbedding returns a product's stored embedding. ErrNotFound
// covers both a missing product and one not yet embedded.
func (db *DB) ProductEmbedding(ctx context.Context, productID int64) (pgvector.Vector, error) {
	var vec pgvector.Vector
	err := db.pool.QueryRow(ctx,
		`SELECT embedding FROM products WHERE id = $1 AND embedding IS NOT NULL`,
		productID,
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgvector.Vector{}, ErrNotFound
		}
		return pgvector.Vector{}, fmt.Errorf("storage: product embedding: %w", err)
	}
	return vec, nil
}

// UpdateProductEmbedding stores a product's embedding vector.
func (db *DB) UpdateProductEmbedding(ctx context.Context, productID int64, embedding pgvector.Vector) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE products SET embedding = $2 WHERE id = $1`,
		productID, embedding,
	)
	if err != nil {
		return fmt.Errorf("storage: update product embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FrequentlyBoughtTogether returns products co-purchased with the given
// product in at least minOccurrences shared orders.
func (db *DB) FrequentlyBoughtTogether(ctx context.Context, productID int64, limit, minOccurrences int) ([]model.ProductCandidate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT p.id, p.name, COALESCE(p.category_id, 0), COALESCE(c.name, ''),
		        p.price, p.original_price, p.image_url,
		        0::float8, COUNT(*)::int, p.created_at > NOW() - INTERVAL '30 days'
		 FROM order_items oi1
		 JOIN order_items oi2 ON oi1.order_id = oi2.order_id
		      AND oi1.product_id <> oi2.product_id
		 JOIN products p ON oi2.product_id = p.id
		 LEFT JOIN categories c ON p.category_id = c.id
		 JOIN orders o ON oi1.order_id = o.id
		 WHERE oi1.product_id = $1
		   AND o.status NOT IN ('cancelled', 'refunded')
		 GROUP BY p.id, p.name, p.category_id, c.name, p.price, p.original_price, p.image_url, p.created_at
		 HAVING COUNT(*) >= $2
		 ORDER BY COUNT(*) DESC
		 LIMIT $3`,
		productID, minOccurrences, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: frequently bought together: %w", err)
	}
	defer rows.Close()

	var products []model.ProductCandidate
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan co-purchase: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: frequently bought together: %w", err)
	}
	return products, nil
}
