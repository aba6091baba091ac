package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/evaluation"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/ingest"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/recs"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
)

type fakeRecommender struct {
	result      model.RecommendationResult
	similar     []model.RecommendedItem
	trending    []model.TrendingProduct
	fbt         []model.ProductCandidate
	err         error
	lastUserID  int64
	lastOptions recs.Options
}

func (f *fakeRecommender) Recommendations(_ context.Context, userID int64, opts recs.Options) (model.RecommendationResult, error) {
	f.lastUserID = userID
	f.lastOptions = opts
	return f.result, f.err
}

func (f *fakeRecommender) Similar(_ context.Context, _ int64, _ int) ([]model.RecommendedItem, error) {
	return f.similar, f.err
}

func (f *fakeRecommender) Trending(_ context.Context, _ int) ([]model.TrendingProduct, error) {
	return f.trending, f.err
}

func (f *fakeRecommender) TrendingByCategory(_ context.Context, _ int64, _ int) ([]model.TrendingProduct, error) {
	return f.trending, f.err
}

func (f *fakeRecommender) FrequentlyBoughtTogether(_ context.Context, _ int64, _ int) ([]model.ProductCandidate, error) {
	return f.fbt, f.err
}

func (f *fakeRecommender) RecordFeedback(_ context.Context, fb model.RecommendationFeedback) (model.RecommendationFeedback, error) {
	if f.err != nil {
		return model.RecommendationFeedback{}, f.err
	}
	fb.ID = uuid.New()
	return fb, nil
}

func (f *fakeRecommender) MarkNotInterested(_ context.Context, _, _ int64, _ string) error {
	return f.err
}

func (f *fakeRecommender) ClearNotInterested(_ context.Context, _, _ int64) error {
	return f.err
}

type fakeProfiler struct {
	profile model.PersonalityProfile
	err     error
}

func (f *fakeProfiler) Get(_ context.Context, userID int64) (model.PersonalityProfile, error) {
	if f.err != nil {
		return model.PersonalityProfile{}, f.err
	}
	p := f.profile
	p.UserID = userID
	return p, nil
}

type fakeIngestor struct {
	err      error
	appended []model.InteractionEvent
}

func (f *fakeIngestor) Append(_ context.Context, events []model.InteractionEvent) ([]model.InteractionEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.InteractionEvent, len(events))
	for i, ev := range events {
		ev.ID = uuid.New()
		out[i] = ev
	}
	f.appended = append(f.appended, out...)
	return out, nil
}

func (f *fakeIngestor) Len() int      { return len(f.appended) }
func (f *fakeIngestor) Capacity() int { return 1000 }

type fakeEvaluator struct {
	report evaluation.Report
	err    error
}

func (f *fakeEvaluator) Run(_ context.Context, k, _ int) (evaluation.Report, error) {
	if f.err != nil {
		return evaluation.Report{}, f.err
	}
	r := f.report
	r.K = k
	return r, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

type fakeIndex struct{ err error }

func (f *fakeIndex) Healthy(_ context.Context) error { return f.err }

type testDeps struct {
	recommender *fakeRecommender
	profiler    *fakeProfiler
	ingestor    *fakeIngestor
	evaluator   *fakeEvaluator
	db          *fakePinger
}

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *testDeps) {
	t.Helper()
	deps := &testDeps{
		recommender: &fakeRecommender{},
		profiler:    &fakeProfiler{},
		ingestor:    &fakeIngestor{},
		evaluator:   &fakeEvaluator{},
		db:          &fakePinger{},
	}
	cfg := Config{
		Recommender:         deps.recommender,
		Profiler:            deps.profiler,
		Ingestor:            deps.ingestor,
		Evaluator:           deps.evaluator,
		DB:                  deps.db,
		Logger:              slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		Port:                0,
		ReadTimeout:         time.Second,
		WriteTimeout:        time.Second,
		MaxRequestBodyBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg), deps
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, deps := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["postgres"])

	deps.db.err = errors.New("connection refused")
	rec = doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp["status"])
}

func TestHealthDegradedIndex(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.Index = &fakeIndex{err: errors.New("unreachable")}
	})

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "disconnected", resp["qdrant"])
}

func TestAuthToken(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.AuthToken = "secret-token"
	})

	// Health stays open.
	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// API requires the token.
	rec = doRequest(t, s, http.MethodGet, "/v1/trending", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/trending", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/trending", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestRecommendations(t *testing.T) {
	s, deps := newTestServer(t, nil)
	deps.recommender.result = model.RecommendationResult{
		Items:    []model.RecommendedItem{{ProductID: 7, Name: "Desk Lamp", Score: 0.9}},
		Strategy: model.StrategyHybrid,
	}

	rec := doRequest(t, s, http.MethodGet, "/v1/users/42/recommendations?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), deps.recommender.lastUserID)
	assert.Equal(t, 5, deps.recommender.lastOptions.Limit)

	var resp model.RecommendationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(7), resp.Items[0].ProductID)
}

func TestRecommendationsQueryValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, path := range []string{
		"/v1/users/0/recommendations",
		"/v1/users/abc/recommendations",
		"/v1/users/42/recommendations?limit=-1",
		"/v1/users/42/recommendations?alpha=1.5",
		"/v1/users/42/recommendations?alpha=nope",
		"/v1/users/42/recommendations?session_products=1,oops",
	} {
		rec := doRequest(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestRecommendationsSessionAndAlpha(t *testing.T) {
	s, deps := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet,
		"/v1/users/42/recommendations?session_products=3,5&alpha=0.7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{3, 5}, deps.recommender.lastOptions.SessionProductIDs)
	require.NotNil(t, deps.recommender.lastOptions.Alpha)
	assert.InDelta(t, 0.7, *deps.recommender.lastOptions.Alpha, 1e-9)
}

func TestSimilarProductsErrors(t *testing.T) {
	s, deps := newTestServer(t, nil)

	deps.recommender.err = storage.ErrNotFound
	rec := doRequest(t, s, http.MethodGet, "/v1/products/9/similar", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	deps.recommender.err = recs.ErrSearchUnavailable
	rec = doRequest(t, s, http.MethodGet, "/v1/products/9/similar", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTrendingByCategory(t *testing.T) {
	s, deps := newTestServer(t, nil)
	deps.recommender.trending = []model.TrendingProduct{{ProductID: 11, Name: "Keyboard", TrendingScore: 4.2}}

	rec := doRequest(t, s, http.MethodGet, "/v1/trending/categories/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CategoryID int64                   `json:"category_id"`
		Trending   []model.TrendingProduct `json:"trending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.CategoryID)
	require.Len(t, resp.Trending, 1)
}

func TestPersonalityProfile(t *testing.T) {
	s, deps := newTestServer(t, nil)
	deps.profiler.profile = model.PersonalityProfile{
		Archetype:  model.ArchetypeBargainHunter,
		Confidence: 0.8,
	}

	rec := doRequest(t, s, http.MethodGet, "/v1/users/42/personality", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.PersonalityProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.UserID)
	assert.Equal(t, model.ArchetypeBargainHunter, resp.Archetype)
}

func TestPersonalityTraits(t *testing.T) {
	s, deps := newTestServer(t, nil)
	deps.profiler.profile = model.PersonalityProfile{Archetype: model.ArchetypeAdventurousPremium}

	rec := doRequest(t, s, http.MethodGet, "/v1/users/42/personality/traits", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Traits     []string `json:"traits"`
		Dimensions []struct {
			Name  string  `json:"name"`
			Score float64 `json:"score"`
		} `json:"dimensions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Traits)
	assert.Len(t, resp.Dimensions, 5)
}

func TestFeedback(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/feedback", map[string]any{
		"user_id":    42,
		"product_id": 7,
		"action":     "clicked",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])
}

func TestFeedbackValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/feedback", map[string]any{
		"user_id": 42, "product_id": 7, "action": "teleported",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/feedback", map[string]any{
		"product_id": 7, "action": "clicked",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/feedback", map[string]any{
		"user_id": 42, "product_id": 7, "action": "clicked", "bogus": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotInterested(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/users/42/not-interested", map[string]any{
		"product_id": 7,
		"reason":     "already own one",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodDelete, "/v1/users/42/not-interested/7", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIngestInteraction(t *testing.T) {
	s, deps := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/interactions", map[string]any{
		"user_id":          42,
		"product_id":       7,
		"interaction_type": "view",
		"duration_seconds": 12,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, deps.ingestor.appended, 1)
	assert.Equal(t, model.InteractionView, deps.ingestor.appended[0].Type)
	require.NotNil(t, deps.ingestor.appended[0].DurationSeconds)
	assert.Equal(t, 12, *deps.ingestor.appended[0].DurationSeconds)
}

func TestIngestInteractionBatch(t *testing.T) {
	s, deps := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/interactions/batch", map[string]any{
		"events": []map[string]any{
			{"user_id": 1, "product_id": 2, "interaction_type": "view"},
			{"user_id": 1, "product_id": 3, "interaction_type": "add_to_cart"},
		},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, deps.ingestor.appended, 2)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestIngestBatchValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodPost, "/v1/interactions/batch", map[string]any{
		"events": []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestBackpressure(t *testing.T) {
	s, deps := newTestServer(t, nil)
	deps.ingestor.err = ingest.ErrBufferFull

	rec := doRequest(t, s, http.MethodPost, "/v1/interactions", map[string]any{
		"user_id": 42, "product_id": 7, "interaction_type": "view",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestEvaluationRun(t *testing.T) {
	s, deps := newTestServer(t, nil)
	deps.evaluator.report = evaluation.Report{
		UsersEvaluated: 20,
		Precision:      0.25,
		Recall:         0.4,
		F1:             0.3076923076923077,
	}

	rec := doRequest(t, s, http.MethodPost, "/v1/evaluation/run?k=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp evaluation.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.K)
	assert.Equal(t, 20, resp.UsersEvaluated)
}

func TestPanicRecovery(t *testing.T) {
	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.Recommender = panicRecommender{&fakeRecommender{}}
	})
	rec := doRequest(t, s, http.MethodGet, "/v1/trending", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicRecommender struct{ *fakeRecommender }

func (panicRecommender) Trending(_ context.Context, _ int) ([]model.TrendingProduct, error) {
	panic("boom")
}
