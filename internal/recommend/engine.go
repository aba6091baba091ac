// Package recommend implements the hybrid scoring pipeline: behavioral
// signals (collaborative plus content similarity) blended with
// personality matching via an adaptive alpha, followed by additive
// boosts, price adjustment, and category-diverse selection.
package recommend

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/config"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/filtersignal"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

// Reason templates surfaced alongside recommendations.
const (
	reasonWishlist   = "From your wishlist"
	reasonPopular    = "Bestseller"
	reasonViewed     = "You viewed this recently"
	reasonSession    = "Related to your recent browsing"
	reasonPriceMatch = "Within your preferred price range"
	reasonCollab     = "Based on similar users"
	reasonContent    = "Similar to items you've viewed"
	reasonFallback   = "Recommended for you"
)

// Engine scores product candidates for a user. It is pure: all history
// and catalog data arrive in the Input and no I/O happens here.
type Engine struct {
	cfg     config.RecommendConfig
	filters *filtersignal.Analyzer
	logger  *slog.Logger
}

func New(cfg config.RecommendConfig, filters *filtersignal.Analyzer, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, filters: filters, logger: logger}
}

// Input carries everything a scoring call needs. Slices may be nil when
// the corresponding signal is unavailable.
type Input struct {
	UserID              int64
	Limit               int
	Profile             *model.PersonalityProfile
	PurchasedIDs        []int64
	WishlistIDs         []int64
	ViewedIDs           []int64
	Reviews             []model.Review
	CollaborativeScores map[int64]float64
	ContentSimilar      []model.SimilarProduct
	PopularProducts     []model.ProductCandidate
	AllProducts         []model.ProductCandidate
	Purchases           []model.Purchase
	Wishlist            []model.WishlistItem
	Views               []model.View
	NegativeFeedbackIDs []int64
	SessionProductIDs   []int64
	SessionProducts     []model.ProductCandidate
	Alpha               *float64
	Interactions        []model.InteractionEvent
	Now                 time.Time
}

// candidate accumulates score components for one product during a
// scoring call.
type candidate struct {
	id          int64
	score       float64
	behavioral  float64
	personality float64
	reasons     []string
	product     *model.ProductCandidate
}

// scoreboard keeps candidates in first-touch order so that the final
// stable sort breaks score ties deterministically by when a product
// first entered the pipeline.
type scoreboard struct {
	order []*candidate
	byID  map[int64]*candidate
}

func newScoreboard() *scoreboard {
	return &scoreboard{byID: make(map[int64]*candidate)}
}

func (b *scoreboard) get(id int64) *candidate {
	if c, ok := b.byID[id]; ok {
		return c
	}
	c := &candidate{id: id}
	b.byID[id] = c
	b.order = append(b.order, c)
	return c
}

// AdaptiveAlpha computes the personality/behavioral blend weight from
// available data. Without a personality profile the result is pure
// behavioral (alpha 0). Otherwise the default is raised when
// collaborative coverage is sparse or the user is new, then clamped to
// [0.1, 0.9].
func (e *Engine) AdaptiveAlpha(hasProfile bool, interactionCount int, collabCoverage float64) float64 {
	if !hasProfile {
		return 0.0
	}
	alpha := e.cfg.AlphaDefault
	if collabCoverage < e.cfg.AlphaSparseCollabThresh {
		alpha += e.cfg.AlphaSparseCollabBoost
	}
	if interactionCount < e.cfg.AlphaNewUserThreshold {
		alpha += e.cfg.AlphaNewUserBoost
	}
	if alpha < 0.1 {
		alpha = 0.1
	}
	if alpha > 0.9 {
		alpha = 0.9
	}
	return alpha
}

// Recommend runs the full scoring pipeline and returns up to in.Limit
// diverse recommendations.
func (e *Engine) Recommend(in Input) model.RecommendationResult {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	limit := in.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	purchased := idSet(in.PurchasedIDs)
	wishlisted := idSet(in.WishlistIDs)
	viewed := idSet(in.ViewedIDs)
	negative := idSet(in.NegativeFeedbackIDs)
	session := idSet(in.SessionProductIDs)

	negativeReviewed := make(map[int64]bool)
	for _, r := range in.Reviews {
		if r.Rating <= 2 {
			negativeReviewed[r.ProductID] = true
		}
	}

	hasCollab := len(in.CollaborativeScores) > 0
	hasContent := len(in.ContentSimilar) > 0
	hasProfile := in.Profile != nil && in.Profile.Archetype.Valid()
	hasHistory := len(purchased) > 0 || len(wishlisted) > 0 || len(viewed) > 0

	e.logger.Info("signal availability",
		"user_id", in.UserID,
		"has_collaborative", hasCollab,
		"has_content", hasContent,
		"has_personality", hasProfile,
		"has_history", hasHistory,
		"candidates", len(in.AllProducts),
	)

	var alphaUsed float64
	alphaAdaptive := false
	if in.Alpha != nil {
		alphaUsed = clamp01(*in.Alpha)
	} else {
		interactionCount := len(purchased) + len(wishlisted) + len(viewed)
		totalProducts := len(in.AllProducts)
		if totalProducts < 1 {
			totalProducts = 1
		}
		coverage := float64(len(in.CollaborativeScores)) / float64(totalProducts)
		alphaUsed = e.AdaptiveAlpha(hasProfile, interactionCount, coverage)
		alphaAdaptive = true
	}

	var affinity map[int64]float64
	if len(in.Purchases) > 0 || len(in.Wishlist) > 0 || len(in.Views) > 0 {
		affinity = e.CategoryAffinity(in.Purchases, in.Wishlist, in.Views, in.Interactions, now)
	}
	priceMin, priceMax, hasPricePref := e.PricePreference(in.Purchases, in.Interactions)

	board := newScoreboard()
	strategy := model.StrategyHybrid

	if !hasCollab && !hasContent && !hasHistory {
		strategy = model.StrategyPopular
		for i, p := range in.PopularProducts {
			if purchased[p.ID] || negative[p.ID] {
				continue
			}
			c := board.get(p.ID)
			c.score = 1.0 - float64(i)*0.05
			c.behavioral = c.score
			c.reasons = append(c.reasons, reasonPopular)
			c.attach(p)
		}
	} else {
		e.scoreBehavioral(board, in, alphaUsed, purchased, negative)
		e.scorePersonality(board, in, alphaUsed, hasProfile, purchased, negative)
		e.blend(board, in, alphaUsed)
		e.boostWishlist(board, in, now, purchased, negative)
		e.boostViewed(board, in, now, purchased, negative, negativeReviewed)
		e.boostSession(board, in, session, purchased, negative)
		e.boostCategoryAffinity(board, in, affinity, purchased, negative)
		if hasPricePref {
			e.scorePricePreference(board, in, priceMin, priceMax, purchased, negative)
		}
		for id := range negativeReviewed {
			if c, ok := board.byID[id]; ok {
				c.score -= 0.5
			}
		}
	}

	attachProducts(board, in.AllProducts)

	sort.SliceStable(board.order, func(i, j int) bool {
		return board.order[i].score > board.order[j].score
	})

	items := e.selectDiverse(board.order, limit)

	e.logger.Info("recommendations generated",
		"user_id", in.UserID,
		"strategy", strategy,
		"alpha_used", alphaUsed,
		"alpha_adaptive", alphaAdaptive,
		"scored", len(board.order),
		"returned", len(items),
	)

	return model.RecommendationResult{
		Items:         items,
		Strategy:      strategy,
		AlphaUsed:     alphaUsed,
		AlphaAdaptive: alphaAdaptive,
		GeneratedAt:   now,
	}
}

// scoreBehavioral accumulates collaborative and content-similarity
// scores. Skipped entirely at alpha 1.0 since the blend would zero the
// behavioral side anyway. Collaborative candidates enter in ascending
// product id order to keep first-touch order deterministic.
func (e *Engine) scoreBehavioral(board *scoreboard, in Input, alpha float64, purchased, negative map[int64]bool) {
	if alpha >= 1.0 {
		return
	}
	if len(in.CollaborativeScores) > 0 {
		ids := make([]int64, 0, len(in.CollaborativeScores))
		for id := range in.CollaborativeScores {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if purchased[id] || negative[id] {
				continue
			}
			c := board.get(id)
			c.behavioral += in.CollaborativeScores[id]
			c.reasons = append(c.reasons, reasonCollab)
		}
	}
	for i, sp := range in.ContentSimilar {
		if sp.ProductID == 0 || purchased[sp.ProductID] || negative[sp.ProductID] {
			continue
		}
		score := sp.Score
		if score == 0 {
			score = 1.0 - float64(i)*0.1
		}
		c := board.get(sp.ProductID)
		c.behavioral += score
		c.reasons = append(c.reasons, reasonContent)
	}
}

// scorePersonality applies the archetype bonus table to every
// candidate product. Skipped at alpha 0 where the blend would discard
// it.
func (e *Engine) scorePersonality(board *scoreboard, in Input, alpha float64, hasProfile bool, purchased, negative map[int64]bool) {
	if !hasProfile || alpha <= 0.0 {
		return
	}
	archetype := in.Profile.Archetype
	reason := fmt.Sprintf("Matches your %s style", archetype.Display())
	for i := range in.AllProducts {
		p := &in.AllProducts[i]
		if p.ID == 0 || purchased[p.ID] || negative[p.ID] {
			continue
		}
		c := board.get(p.ID)
		c.personality += personalityScore(archetype, *p)
		c.reasons = append(c.reasons, reason)
		c.attach(*p)
	}
}

// blend combines the behavioral and personality components:
// score = alpha*personality + (1-alpha)*behavioral. When a product has
// both a collaborative and a content score the behavioral side is
// averaged rather than summed.
func (e *Engine) blend(board *scoreboard, in Input, alpha float64) {
	contentIDs := make(map[int64]bool, len(in.ContentSimilar))
	for _, sp := range in.ContentSimilar {
		contentIDs[sp.ProductID] = true
	}
	for _, c := range board.order {
		behavioral := c.behavioral
		sources := 0
		if _, ok := in.CollaborativeScores[c.id]; ok {
			sources++
		}
		if contentIDs[c.id] {
			sources++
		}
		if sources > 1 {
			behavioral /= float64(sources)
		}
		c.score = alpha*c.personality + (1-alpha)*behavioral
	}
}

// boostWishlist adds a time-decayed boost for wishlisted products.
// Falls back to an undecayed boost when only the id set is known.
func (e *Engine) boostWishlist(board *scoreboard, in Input, now time.Time, purchased, negative map[int64]bool) {
	if len(in.Wishlist) > 0 {
		for _, w := range in.Wishlist {
			if w.ProductID == 0 || purchased[w.ProductID] || negative[w.ProductID] {
				continue
			}
			decay := Decay(DaysSince(w.AddedAt, now), e.cfg.DecayHalfLifeWishlist)
			c := board.get(w.ProductID)
			c.score += 0.4 * decay
			c.reasons = append(c.reasons, reasonWishlist)
		}
		return
	}
	for _, id := range in.WishlistIDs {
		if purchased[id] || negative[id] {
			continue
		}
		c := board.get(id)
		c.score += 0.4
		c.reasons = append(c.reasons, reasonWishlist)
	}
}

// boostViewed adds a time-decayed boost per viewed product, using only
// the most recent view of each. Negatively reviewed products are
// excluded.
func (e *Engine) boostViewed(board *scoreboard, in Input, now time.Time, purchased, negative, negativeReviewed map[int64]bool) {
	if len(in.Views) > 0 {
		type viewDecay struct {
			id    int64
			decay float64
		}
		best := make(map[int64]int) // product id -> index into ordered
		var ordered []viewDecay
		for _, v := range in.Views {
			if v.ProductID == 0 || purchased[v.ProductID] || negative[v.ProductID] || negativeReviewed[v.ProductID] {
				continue
			}
			decay := Decay(DaysSince(v.ViewedAt, now), e.cfg.DecayHalfLifeViews)
			if idx, ok := best[v.ProductID]; ok {
				if decay > ordered[idx].decay {
					ordered[idx].decay = decay
				}
				continue
			}
			best[v.ProductID] = len(ordered)
			ordered = append(ordered, viewDecay{v.ProductID, decay})
		}
		for _, vd := range ordered {
			c := board.get(vd.id)
			c.score += 0.2 * vd.decay
			c.reasons = append(c.reasons, reasonViewed)
		}
		return
	}
	for _, id := range in.ViewedIDs {
		if purchased[id] || negative[id] || negativeReviewed[id] {
			continue
		}
		c := board.get(id)
		c.score += 0.2
		c.reasons = append(c.reasons, reasonViewed)
	}
}

// boostSession boosts catalog products sharing a category with the
// current session's viewed products. Products already in the session
// are not boosted.
func (e *Engine) boostSession(board *scoreboard, in Input, session, purchased, negative map[int64]bool) {
	if len(session) == 0 || len(in.AllProducts) == 0 {
		return
	}
	sessionCategories := make(map[int64]bool)
	if len(in.SessionProducts) > 0 {
		for _, sp := range in.SessionProducts {
			if sp.CategoryID != 0 {
				sessionCategories[sp.CategoryID] = true
			}
		}
	} else {
		for _, p := range in.AllProducts {
			if session[p.ID] {
				sessionCategories[p.CategoryID] = true
			}
		}
	}
	for i := range in.AllProducts {
		p := &in.AllProducts[i]
		if p.ID == 0 || purchased[p.ID] || negative[p.ID] || session[p.ID] {
			continue
		}
		if sessionCategories[p.CategoryID] {
			c := board.get(p.ID)
			c.score += e.cfg.SessionBoostWeight
			c.reasons = append(c.reasons, reasonSession)
			c.attach(*p)
		}
	}
}

// boostCategoryAffinity boosts catalog products in the user's top
// affinity categories, with an extra boost for the single strongest
// category. The affinity reason is inserted first so it surfaces as
// the displayed explanation.
func (e *Engine) boostCategoryAffinity(board *scoreboard, in Input, affinity map[int64]float64, purchased, negative map[int64]bool) {
	if len(affinity) == 0 || len(in.AllProducts) == 0 {
		return
	}
	top := topCategories(affinity, e.cfg.CategoryAffinityTopN)
	topSet := make(map[int64]bool, len(top))
	for _, id := range top {
		topSet[id] = true
	}
	var topCategory int64
	if len(top) > 0 {
		topCategory = top[0]
	}

	categoryNames := make(map[int64]string)
	for _, p := range in.AllProducts {
		if p.CategoryID != 0 && p.CategoryName != "" {
			categoryNames[p.CategoryID] = p.CategoryName
		}
	}

	for i := range in.AllProducts {
		p := &in.AllProducts[i]
		if p.ID == 0 || p.CategoryID == 0 || purchased[p.ID] || negative[p.ID] {
			continue
		}
		if !topSet[p.CategoryID] {
			continue
		}
		c := board.get(p.ID)
		c.score += e.cfg.CategoryAffinityBoost
		name := categoryNames[p.CategoryID]
		if name == "" {
			name = "your favorites"
		}
		c.reasons = append([]string{fmt.Sprintf("Popular in %s", name)}, c.reasons...)
		c.attach(*p)
		if p.CategoryID == topCategory {
			c.score += e.cfg.CategoryAffinityTopBoost
		}
	}
}

// scorePricePreference adjusts scores of priced catalog products
// against the preferred band.
func (e *Engine) scorePricePreference(board *scoreboard, in Input, priceMin, priceMax float64, purchased, negative map[int64]bool) {
	for i := range in.AllProducts {
		p := &in.AllProducts[i]
		if p.ID == 0 || p.Price <= 0 || purchased[p.ID] || negative[p.ID] {
			continue
		}
		adj := e.ScorePrice(p.Price, priceMin, priceMax)
		if adj == 0 {
			continue
		}
		c := board.get(p.ID)
		c.score += adj
		if adj > 0 {
			c.reasons = append(c.reasons, reasonPriceMatch)
		}
		c.attach(*p)
	}
}

// attach records product data for a candidate, keeping the first
// attachment.
func (c *candidate) attach(p model.ProductCandidate) {
	if c.product == nil {
		cp := p
		c.product = &cp
	}
}

// attachProducts fills in product data for candidates that entered the
// board through id-only signals.
func attachProducts(board *scoreboard, products []model.ProductCandidate) {
	if len(products) == 0 {
		return
	}
	byID := make(map[int64]*model.ProductCandidate, len(products))
	for i := range products {
		if products[i].ID != 0 {
			byID[products[i].ID] = &products[i]
		}
	}
	for _, c := range board.order {
		if c.product == nil {
			if p, ok := byID[c.id]; ok {
				c.attach(*p)
			}
		}
	}
}

func idSet(ids []int64) map[int64]bool {
	s := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id != 0 {
			s[id] = true
		}
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
