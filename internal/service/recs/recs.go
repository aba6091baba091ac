// Package recs orchestrates recommendation serving.
//
// The scoring engine, trending ranker, and personality classifier are
// pure; this service gathers their inputs from Postgres, Redis, and the
// vector index, invokes them, and memoizes results. Every optional
// input degrades independently: a missing profile, an unreachable
// vector index, or a cold cache narrows the result rather than failing
// the request.
package recs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/cache"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/recommend"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/search"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/embedding"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/profiles"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/telemetry"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/trending"
)

// ErrSearchUnavailable is returned by Similar when no vector index is
// configured.
var ErrSearchUnavailable = errors.New("recs: vector index not configured")

const (
	historyLimit        = 50
	viewHistoryLimit    = 100
	maxNeighbors        = 20
	catalogSampleLimit  = 500
	categoryTopUpLimit  = 50
	minTrendingActivity = 3
	fbtMinOccurrences   = 2

	// Cache slot for session-free default recommendations.
	cacheKindDefault = "default"
)

// Options tunes one recommendation request.
type Options struct {
	Limit             int
	SessionProductIDs []int64
	Alpha             *float64
}

// Service gathers scoring inputs and serves ranked recommendations.
type Service struct {
	db       *storage.DB
	cache    *cache.Cache
	index    search.Index
	embedder embedding.Provider
	profiles *profiles.Service
	engine   *recommend.Engine
	ranker   *trending.Ranker
	logger   *slog.Logger
	cfg      config.Config

	gatherDuration metric.Float64Histogram
}

// New creates a recommendation Service. index may be nil when Qdrant is
// not configured; content similarity is skipped in that case. cache may
// be a nil *cache.Cache when Redis is not configured.
func New(
	db *storage.DB,
	c *cache.Cache,
	index search.Index,
	embedder embedding.Provider,
	profileSvc *profiles.Service,
	engine *recommend.Engine,
	ranker *trending.Ranker,
	cfg config.Config,
	logger *slog.Logger,
) *Service {
	meter := telemetry.Meter("recsvc/recs")
	gatherDur, _ := meter.Float64Histogram("recsvc.recommend.gather.duration",
		metric.WithDescription("Time to gather scoring inputs (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		db:             db,
		cache:          c,
		index:          index,
		embedder:       embedder,
		profiles:       profileSvc,
		engine:         engine,
		ranker:         ranker,
		cfg:            cfg,
		logger:         logger,
		gatherDuration: gatherDur,
	}
}

// Recommendations serves the hybrid ranked list for one user. Requests
// without session context or an alpha override are cacheable.
func (s *Service) Recommendations(ctx context.Context, userID int64, opts Options) (model.RecommendationResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.Recommend.DefaultLimit
	}

	cacheable := len(opts.SessionProductIDs) == 0 && opts.Alpha == nil
	if cacheable {
		if cached, err := s.cache.Recommendations(ctx, userID, cacheKindDefault); err == nil && len(cached.Items) >= limit {
			result := *cached
			result.Items = result.Items[:limit]
			return result, nil
		}
	}

	in, err := s.gatherInput(ctx, userID, limit, opts)
	if err != nil {
		return model.RecommendationResult{}, err
	}

	result := s.engine.Recommend(in)

	if cacheable {
		if err := s.cache.SetRecommendations(ctx, userID, cacheKindDefault, &result); err != nil {
			s.logger.Warn("recs: cache recommendations", "error", err, "user_id", userID)
		}
	}
	return result, nil
}

// gatherInput assembles everything the scoring engine reads. History
// queries run concurrently; candidate pools and content similarity
// follow because they depend on the history.
func (s *Service) gatherInput(ctx context.Context, userID int64, limit int, opts Options) (recommend.Input, error) {
	start := time.Now()
	now := start.UTC()
	since := now.AddDate(0, 0, -s.cfg.InteractionWindowDays)

	in := recommend.Input{
		UserID:            userID,
		Limit:             limit,
		SessionProductIDs: opts.SessionProductIDs,
		Alpha:             opts.Alpha,
		Now:               now,
	}

	var neighbors map[int64][]model.Purchase

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Purchases, err = s.db.UserPurchases(gctx, userID, historyLimit)
		return err
	})
	g.Go(func() (err error) {
		in.Wishlist, err = s.db.UserWishlist(gctx, userID, historyLimit)
		return err
	})
	g.Go(func() (err error) {
		in.Reviews, err = s.db.UserReviews(gctx, userID, historyLimit)
		return err
	})
	g.Go(func() (err error) {
		in.Interactions, err = s.db.UserInteractions(gctx, userID, since, "", s.cfg.InteractionMaxRecords)
		return err
	})
	g.Go(func() (err error) {
		in.Views, err = s.db.UserViews(gctx, userID, since, viewHistoryLimit)
		return err
	})
	g.Go(func() (err error) {
		in.NegativeFeedbackIDs, err = s.db.NegativeFeedbackIDs(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		in.PopularProducts, err = s.db.PopularProducts(gctx, limit*2, 30)
		return err
	})
	g.Go(func() (err error) {
		neighbors, err = s.db.NeighborPurchases(gctx, userID, maxNeighbors)
		return err
	})
	g.Go(func() error {
		profile, err := s.profiles.Get(gctx, userID)
		if err != nil {
			// Behavioral scoring still works without a profile.
			s.logger.Warn("recs: profile unavailable", "error", err, "user_id", userID)
			return nil
		}
		in.Profile = &profile
		return nil
	})
	if err := g.Wait(); err != nil {
		return recommend.Input{}, fmt.Errorf("recs: gather history: %w", err)
	}

	in.PurchasedIDs = distinctIDs(len(in.Purchases), func(i int) int64 { return in.Purchases[i].ProductID })
	in.WishlistIDs = distinctIDs(len(in.Wishlist), func(i int) int64 { return in.Wishlist[i].ProductID })
	in.ViewedIDs = distinctIDs(len(in.Views), func(i int) int64 { return in.Views[i].ProductID })
	in.CollaborativeScores = recommend.CollaborativeScores(in.Purchases, neighbors)

	if err := s.gatherCandidates(ctx, &in); err != nil {
		return recommend.Input{}, err
	}
	in.ContentSimilar = s.contentSimilar(ctx, &in, limit)

	s.gatherDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return in, nil
}

// gatherCandidates fills the scoring pool: a catalog sample, a top-up
// from each category the user has bought from, and the session
// products.
func (s *Service) gatherCandidates(ctx context.Context, in *recommend.Input) error {
	products, err := s.db.ProductCandidates(ctx, storage.ProductFilter{Limit: catalogSampleLimit})
	if err != nil {
		return fmt.Errorf("recs: gather candidates: %w", err)
	}

	seen := make(map[int64]bool, len(products))
	for _, p := range products {
		seen[p.ID] = true
	}

	for _, categoryID := range purchaseCategories(in.Purchases) {
		extra, err := s.db.ProductCandidates(ctx, storage.ProductFilter{
			CategoryID: categoryID,
			Limit:      categoryTopUpLimit,
		})
		if err != nil {
			return fmt.Errorf("recs: gather candidates: %w", err)
		}
		for _, p := range extra {
			if !seen[p.ID] {
				seen[p.ID] = true
				products = append(products, p)
			}
		}
	}
	in.AllProducts = products

	if len(in.SessionProductIDs) > 0 {
		in.SessionProducts, err = s.db.ProductCandidates(ctx, storage.ProductFilter{
			IDs:   in.SessionProductIDs,
			Limit: len(in.SessionProductIDs),
		})
		if err != nil {
			return fmt.Errorf("recs: gather session products: %w", err)
		}
	}
	return nil
}

// contentSimilar embeds the user's preference text and queries the
// vector index. Best effort: any failure logs and returns nil.
func (s *Service) contentSimilar(ctx context.Context, in *recommend.Input, limit int) []model.SimilarProduct {
	if s.index == nil || s.embedder == nil {
		return nil
	}

	refIDs := make([]int64, 0, len(in.PurchasedIDs)+len(in.ViewedIDs))
	refIDs = append(refIDs, in.PurchasedIDs...)
	refIDs = append(refIDs, in.ViewedIDs...)
	if len(refIDs) == 0 {
		return nil
	}

	refs, err := s.db.ProductCandidates(ctx, storage.ProductFilter{IDs: refIDs, Limit: len(refIDs)})
	if err != nil {
		s.logger.Warn("recs: load preference products", "error", err, "user_id", in.UserID)
		return nil
	}
	byID := make(map[int64]model.ProductCandidate, len(refs))
	for _, p := range refs {
		byID[p.ID] = p
	}

	purchased := productRefs(in.PurchasedIDs, byID)
	viewed := productRefs(in.ViewedIDs, byID)
	text := embedding.UserPreferenceText(purchased, viewed, in.Reviews)
	if text == "" {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("recs: preference embedding", "error", err, "user_id", in.UserID)
		return nil
	}

	exclude := make([]int64, 0, len(in.PurchasedIDs)+len(in.NegativeFeedbackIDs))
	exclude = append(exclude, in.PurchasedIDs...)
	exclude = append(exclude, in.NegativeFeedbackIDs...)
	hits, err := s.index.NearestProducts(ctx, vec.Slice(), 0, exclude, limit*2)
	if err != nil {
		s.logger.Warn("recs: vector search", "error", err, "user_id", in.UserID)
		return nil
	}
	return search.SimilarProducts(hits)
}

// Similar returns products near the given product in embedding space.
// Returns storage.ErrNotFound for an unknown or not-yet-indexed
// product.
func (s *Service) Similar(ctx context.Context, productID int64, limit int) ([]model.RecommendedItem, error) {
	if s.index == nil {
		return nil, ErrSearchUnavailable
	}
	if limit <= 0 {
		limit = s.cfg.Recommend.DefaultLimit
	}

	vec, err := s.db.ProductEmbedding(ctx, productID)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.NearestProducts(ctx, vec.Slice(), 0, []int64{productID}, limit)
	if err != nil {
		return nil, fmt.Errorf("recs: similar products: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ProductID
	}
	products, err := s.db.ProductCandidates(ctx, storage.ProductFilter{IDs: ids, Limit: len(ids)})
	if err != nil {
		return nil, fmt.Errorf("recs: similar products: %w", err)
	}
	byID := make(map[int64]model.ProductCandidate, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]model.RecommendedItem, 0, len(hits))
	for _, h := range hits {
		p, ok := byID[h.ProductID]
		if !ok {
			// Indexed but since removed from the catalog.
			continue
		}
		item := model.RecommendedItem{
			ProductID:    p.ID,
			Name:         p.Name,
			Score:        float64(h.Score),
			Reason:       "Similar to this product",
			CategoryName: p.CategoryName,
			ImageURL:     p.ImageURL,
		}
		if p.CategoryID != 0 {
			catID := p.CategoryID
			item.CategoryID = &catID
		}
		if p.Price > 0 {
			price := p.Price
			item.Price = &price
		}
		items = append(items, item)
	}
	return items, nil
}

// Trending returns the current trending ranking across the catalog.
func (s *Service) Trending(ctx context.Context, limit int) ([]model.TrendingProduct, error) {
	return s.trending(ctx, 0, limit)
}

// TrendingByCategory restricts the trending ranking to one category.
func (s *Service) TrendingByCategory(ctx context.Context, categoryID int64, limit int) ([]model.TrendingProduct, error) {
	return s.trending(ctx, categoryID, limit)
}

func (s *Service) trending(ctx context.Context, categoryID int64, limit int) ([]model.TrendingProduct, error) {
	if limit <= 0 {
		limit = s.cfg.Recommend.DefaultLimit
	}

	// Over-fetch so the minimum-activity filter does not starve the
	// ranking.
	var activity []model.ProductActivity
	var err error
	if categoryID != 0 {
		activity, err = s.db.TrendingActivityByCategory(ctx, categoryID,
			trending.DefaultRecentDays, trending.DefaultBaselineDays, limit*3)
	} else {
		activity, err = s.db.TrendingActivity(ctx,
			trending.DefaultRecentDays, trending.DefaultBaselineDays, limit*3)
	}
	if err != nil {
		return nil, err
	}

	ranked := s.ranker.Rank(activity, minTrendingActivity)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// FrequentlyBoughtTogether returns co-purchase companions for one
// product.
func (s *Service) FrequentlyBoughtTogether(ctx context.Context, productID int64, limit int) ([]model.ProductCandidate, error) {
	if limit <= 0 {
		limit = s.cfg.Recommend.DefaultLimit
	}
	return s.db.FrequentlyBoughtTogether(ctx, productID, limit, fbtMinOccurrences)
}

// RecordFeedback persists explicit recommendation feedback. Dismissals
// and not-interested actions also register negative feedback so the
// product stops being recommended, and drop the user's cached results.
func (s *Service) RecordFeedback(ctx context.Context, fb model.RecommendationFeedback) (model.RecommendationFeedback, error) {
	id, err := s.db.InsertFeedback(ctx, fb)
	if err != nil {
		return model.RecommendationFeedback{}, err
	}
	fb.ID = id

	if fb.Action == model.FeedbackDismissed || fb.Action == model.FeedbackNotInterested {
		if err := s.db.AddNegativeFeedback(ctx, fb.UserID, fb.ProductID, string(fb.Action)); err != nil {
			s.logger.Warn("recs: record negative feedback", "error", err, "user_id", fb.UserID)
		}
		s.invalidate(ctx, fb.UserID)
	}
	return fb, nil
}

// MarkNotInterested suppresses a product from the user's
// recommendations.
func (s *Service) MarkNotInterested(ctx context.Context, userID, productID int64, reason string) error {
	if reason == "" {
		reason = string(model.FeedbackNotInterested)
	}
	if err := s.db.AddNegativeFeedback(ctx, userID, productID, reason); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// ClearNotInterested lifts the suppression again.
func (s *Service) ClearNotInterested(ctx context.Context, userID, productID int64) error {
	if err := s.db.RemoveNegativeFeedback(ctx, userID, productID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("recs: invalidate cache", "error", err, "user_id", userID)
	}
}

// distinctIDs collects IDs in first-seen order.
func distinctIDs(n int, id func(i int) int64) []int64 {
	seen := make(map[int64]bool, n)
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		v := id(i)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func purchaseCategories(purchases []model.Purchase) []int64 {
	seen := make(map[int64]bool, len(purchases))
	out := make([]int64, 0, len(purchases))
	for _, p := range purchases {
		if p.CategoryID != 0 && !seen[p.CategoryID] {
			seen[p.CategoryID] = true
			out = append(out, p.CategoryID)
		}
	}
	return out
}

func productRefs(ids []int64, byID map[int64]model.ProductCandidate) []embedding.ProductRef {
	refs := make([]embedding.ProductRef, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		refs = append(refs, embedding.ProductRef{Name: p.Name, CategoryName: p.CategoryName})
	}
	return refs
}
