package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/recs"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/storage"
)

// HandleRecommendations handles GET /v1/users/{user_id}/recommendations.
//
// Query parameters: limit, session_products (comma-separated product
// ids from the current browsing session), alpha (manual blend override
// in [0,1]).
func (h *Handlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	opts := recs.Options{Limit: limit}

	if raw := r.URL.Query().Get("session_products"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 {
				writeError(w, r, http.StatusBadRequest, "invalid session_products")
				return
			}
			opts.SessionProductIDs = append(opts.SessionProductIDs, id)
		}
	}

	if raw := r.URL.Query().Get("alpha"); raw != "" {
		alpha, err := strconv.ParseFloat(raw, 64)
		if err != nil || alpha < 0 || alpha > 1 {
			writeError(w, r, http.StatusBadRequest, "alpha must be in [0, 1]")
			return
		}
		opts.Alpha = &alpha
	}

	result, err := h.recommender.Recommendations(r.Context(), userID, opts)
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleSimilarProducts handles GET /v1/products/{product_id}/similar.
func (h *Handlers) HandleSimilarProducts(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.recommender.Similar(r.Context(), productID, limit)
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"product_id": productID,
		"similar":    items,
	})
}

// HandleTrending handles GET /v1/trending.
func (h *Handlers) HandleTrending(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.recommender.Trending(r.Context(), limit)
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"trending": products})
}

// HandleTrendingByCategory handles GET /v1/trending/categories/{category_id}.
func (h *Handlers) HandleTrendingByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "category_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.recommender.TrendingByCategory(r.Context(), categoryID, limit)
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"category_id": categoryID,
		"trending":    products,
	})
}

// HandleFrequentlyBoughtTogether handles
// GET /v1/products/{product_id}/frequently-bought-together.
func (h *Handlers) HandleFrequentlyBoughtTogether(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.recommender.FrequentlyBoughtTogether(r.Context(), productID, limit)
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"product_id": productID,
		"products":   products,
	})
}

// serveError maps service errors to HTTP responses.
func (h *Handlers) serveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, recs.ErrSearchUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "similarity search unavailable")
	default:
		h.logger.Error("http handler", "error", err, "path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
