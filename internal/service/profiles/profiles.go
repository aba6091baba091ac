// Package profiles builds and caches user personality profiles.
//
// The classifier itself is pure; this service gathers its inputs from
// Postgres, memoizes results in Redis, and records how long the
// end-to-end build takes.
package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/cache"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/persona"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/telemetry"
)

const historyLimit = 50

// Service assembles personality profiles from purchase, review, and
// interaction history.
type Service struct {
	db         *storage.DB
	cache      *cache.Cache
	classifier *persona.Classifier
	logger     *slog.Logger

	windowDays int
	maxRecords int

	buildDuration metric.Float64Histogram
}

// New creates a profile Service. cache may be a nil *cache.Cache when
// Redis is not configured.
func New(db *storage.DB, c *cache.Cache, classifier *persona.Classifier, cfg config.Config, logger *slog.Logger) *Service {
	meter := telemetry.Meter("recsvc/profiles")
	buildDur, _ := meter.Float64Histogram("recsvc.profile.build.duration",
		metric.WithDescription("Time to gather inputs and classify a profile (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		db:            db,
		cache:         c,
		classifier:    classifier,
		logger:        logger,
		windowDays:    cfg.InteractionWindowDays,
		maxRecords:    cfg.InteractionMaxRecords,
		buildDuration: buildDur,
	}
}

// Get returns the user's profile, serving from cache when possible.
// Users with no history get the default profile, not an error.
func (s *Service) Get(ctx context.Context, userID int64) (model.PersonalityProfile, error) {
	if cached, err := s.cache.Profile(ctx, userID); err == nil {
		return *cached, nil
	}

	profile, err := s.Build(ctx, userID)
	if err != nil {
		return model.PersonalityProfile{}, err
	}

	if err := s.cache.SetProfile(ctx, userID, &profile); err != nil {
		s.logger.Warn("profiles: cache profile", "error", err, "user_id", userID)
	}
	return profile, nil
}

// Build recomputes the profile from storage, bypassing the cache.
func (s *Service) Build(ctx context.Context, userID int64) (model.PersonalityProfile, error) {
	start := time.Now()

	var in persona.Inputs
	since := start.AddDate(0, 0, -s.windowDays)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Purchases, err = s.db.UserPurchases(gctx, userID, historyLimit)
		return err
	})
	g.Go(func() (err error) {
		in.Reviews, err = s.db.UserReviews(gctx, userID, historyLimit)
		return err
	})
	g.Go(func() (err error) {
		in.Interactions, err = s.db.UserInteractions(gctx, userID, since, "", s.maxRecords)
		return err
	})
	g.Go(func() (err error) {
		in.Stats, err = s.db.UserPurchaseStats(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PersonalityProfile{}, fmt.Errorf("profiles: gather inputs: %w", err)
	}

	profile := s.classifier.Profile(userID, in, time.Now().UTC())
	s.buildDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return profile, nil
}
