// Package evaluation measures offline recommendation quality.
//
// The methodology is a temporal holdout: for each user with enough
// purchase history, the most recent purchases are hidden, the engine
// scores against the remaining history, and precision/recall@K report
// how many hidden purchases the ranking recovered.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/persona"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/recommend"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
)

const (
	// DefaultK is the ranking cutoff when the caller does not pick one.
	DefaultK = 10

	// Users need this many purchased items to qualify; the holdout
	// hides the most recent holdoutSize of them.
	minPurchases = 10
	holdoutSize  = 5

	purchaseHistoryLimit = 100
	historyLimit         = 50
	maxNeighbors         = 20
	catalogSampleLimit   = 500
	evalConcurrency      = 4
	defaultMaxUsers      = 100
)

// Report summarizes one evaluation run. Precision, recall, and F1 are
// averaged over evaluated users.
type Report struct {
	K              int       `json:"k"`
	UsersEvaluated int       `json:"users_evaluated"`
	UsersSkipped   int       `json:"users_skipped"`
	Precision      float64   `json:"precision_at_k"`
	Recall         float64   `json:"recall_at_k"`
	F1             float64   `json:"f1_at_k"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Evaluator runs holdout evaluations against live storage.
type Evaluator struct {
	db         *storage.DB
	engine     *recommend.Engine
	classifier *persona.Classifier
	cfg        config.Config
	logger     *slog.Logger
}

func New(db *storage.DB, engine *recommend.Engine, classifier *persona.Classifier, cfg config.Config, logger *slog.Logger) *Evaluator {
	return &Evaluator{db: db, engine: engine, classifier: classifier, cfg: cfg, logger: logger}
}

// Run evaluates up to maxUsers qualifying users at ranking cutoff k.
// Users whose inputs fail to load are skipped with a warning rather
// than failing the whole run.
func (e *Evaluator) Run(ctx context.Context, k, maxUsers int) (Report, error) {
	if k <= 0 {
		k = DefaultK
	}
	if maxUsers <= 0 {
		maxUsers = defaultMaxUsers
	}

	users, err := e.db.FrequentBuyers(ctx, minPurchases, maxUsers)
	if err != nil {
		return Report{}, fmt.Errorf("evaluation: %w", err)
	}

	var (
		mu           sync.Mutex
		sumPrecision float64
		sumRecall    float64
		evaluated    int
		skipped      int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(evalConcurrency)
	for _, userID := range users {
		g.Go(func() error {
			precision, recall, ok, err := e.evaluateUser(gctx, userID, k)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.logger.Warn("evaluation: user skipped", "error", err, "user_id", userID)
				skipped++
				return nil
			}
			if !ok {
				skipped++
				return nil
			}
			sumPrecision += precision
			sumRecall += recall
			evaluated++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("evaluation: %w", err)
	}

	report := Report{
		K:              k,
		UsersEvaluated: evaluated,
		UsersSkipped:   skipped,
		GeneratedAt:    time.Now().UTC(),
	}
	if evaluated > 0 {
		report.Precision = sumPrecision / float64(evaluated)
		report.Recall = sumRecall / float64(evaluated)
	}
	if report.Precision+report.Recall > 0 {
		report.F1 = 2 * report.Precision * report.Recall / (report.Precision + report.Recall)
	}

	e.logger.Info("evaluation: run complete",
		"k", k,
		"users_evaluated", evaluated,
		"users_skipped", skipped,
		"precision", report.Precision,
		"recall", report.Recall,
		"f1", report.F1,
	)
	return report, nil
}

// evaluateUser hides the user's most recent purchases, scores against
// the remaining history, and measures how many hidden purchases made
// the top K. ok is false when the user's history is too shallow after
// all.
func (e *Evaluator) evaluateUser(ctx context.Context, userID int64, k int) (precision, recall float64, ok bool, err error) {
	purchases, err := e.db.UserPurchases(ctx, userID, purchaseHistoryLimit)
	if err != nil {
		return 0, 0, false, err
	}
	if len(purchases) < minPurchases {
		return 0, 0, false, nil
	}

	// UserPurchases is most recent first, so the holdout is the head.
	holdout := purchases[:holdoutSize]
	train := purchases[holdoutSize:]

	holdoutSet := make(map[int64]bool, len(holdout))
	for _, p := range holdout {
		holdoutSet[p.ProductID] = true
	}

	in, err := e.buildInput(ctx, userID, train, k)
	if err != nil {
		return 0, 0, false, err
	}

	result := e.engine.Recommend(in)
	if len(result.Items) == 0 {
		return 0, 0, false, nil
	}

	hits := 0
	for _, item := range result.Items {
		if holdoutSet[item.ProductID] {
			hits++
		}
	}

	precision = float64(hits) / float64(len(result.Items))
	recall = float64(hits) / float64(len(holdout))
	return precision, recall, true, nil
}

// buildInput assembles a scoring input from the training slice of the
// user's history. The profile is classified from the same training
// slice so held-out purchases cannot leak through it.
func (e *Evaluator) buildInput(ctx context.Context, userID int64, train []model.Purchase, k int) (recommend.Input, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -e.cfg.InteractionWindowDays)

	reviews, err := e.db.UserReviews(ctx, userID, historyLimit)
	if err != nil {
		return recommend.Input{}, err
	}
	interactions, err := e.db.UserInteractions(ctx, userID, since, "", e.cfg.InteractionMaxRecords)
	if err != nil {
		return recommend.Input{}, err
	}
	stats, err := e.db.UserPurchaseStats(ctx, userID)
	if err != nil {
		return recommend.Input{}, err
	}
	neighbors, err := e.db.NeighborPurchases(ctx, userID, maxNeighbors)
	if err != nil {
		return recommend.Input{}, err
	}
	negative, err := e.db.NegativeFeedbackIDs(ctx, userID)
	if err != nil {
		return recommend.Input{}, err
	}
	popular, err := e.db.PopularProducts(ctx, k*2, 30)
	if err != nil {
		return recommend.Input{}, err
	}
	catalog, err := e.db.ProductCandidates(ctx, storage.ProductFilter{Limit: catalogSampleLimit})
	if err != nil {
		return recommend.Input{}, err
	}

	profile := e.classifier.Profile(userID, persona.Inputs{
		Purchases:    train,
		Reviews:      reviews,
		Interactions: interactions,
		Stats:        stats,
	}, now)

	trainIDs := make([]int64, 0, len(train))
	seen := make(map[int64]bool, len(train))
	for _, p := range train {
		if !seen[p.ProductID] {
			seen[p.ProductID] = true
			trainIDs = append(trainIDs, p.ProductID)
		}
	}

	return recommend.Input{
		UserID:              userID,
		Limit:               k,
		Profile:             &profile,
		Purchases:           train,
		PurchasedIDs:        trainIDs,
		Reviews:             reviews,
		Interactions:        interactions,
		CollaborativeScores: recommend.CollaborativeScores(train, neighbors),
		PopularProducts:     popular,
		AllProducts:         catalog,
		NegativeFeedbackIDs: negative,
		Now:                 now,
	}, nil
}
