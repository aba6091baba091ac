package server

import (
	"net/http"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
)

type feedbackRequest struct {
	UserID    int64              `json:"user_id"`
	ProductID int64              `json:"product_id"`
	Action    model.FeedbackType `json:"action"`
	Metadata  map[string]any     `json:"metadata"`
}

// HandleFeedback handles POST /v1/feedback. Records how a user reacted
// to a served recommendation.
func (h *Handlers) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.UserID <= 0 || req.ProductID <= 0 {
		writeError(w, r, http.StatusBadRequest, "user_id and product_id are required")
		return
	}
	if !req.Action.Valid() {
		writeError(w, r, http.StatusBadRequest, "unknown feedback action")
		return
	}

	fb, err := h.recommender.RecordFeedback(r.Context(), model.RecommendationFeedback{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Action:    req.Action,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{"id": fb.ID})
}

type notInterestedRequest struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

// HandleNotInterested handles POST /v1/users/{user_id}/not-interested.
func (h *Handlers) HandleNotInterested(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req notInterestedRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.ProductID <= 0 {
		writeError(w, r, http.StatusBadRequest, "product_id is required")
		return
	}

	if err := h.recommender.MarkNotInterested(r.Context(), userID, req.ProductID, req.Reason); err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"user_id":    userID,
		"product_id": req.ProductID,
		"status":     "suppressed",
	})
}

// HandleRemoveNotInterested handles
// DELETE /v1/users/{user_id}/not-interested/{product_id}.
func (h *Handlers) HandleRemoveNotInterested(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	productID, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.recommender.ClearNotInterested(r.Context(), userID, productID); err != nil {
		h.serveError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
