package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/model"
	"github.com/AdnanSerri/ai-driven-ecommerce/internal/service/ingest"
)

type interactionRequest struct {
	UserID          int64                 `json:"user_id"`
	ProductID       int64                 `json:"product_id"`
	Type            model.InteractionType `json:"interaction_type"`
	Timestamp       *time.Time            `json:"timestamp"`
	DurationSeconds *int                  `json:"duration_seconds"`
	Metadata        map[string]any        `json:"metadata"`
}

func (req interactionRequest) event() model.InteractionEvent {
	ev := model.InteractionEvent{
		UserID:          req.UserID,
		ProductID:       req.ProductID,
		Type:            req.Type,
		DurationSeconds: req.DurationSeconds,
		Metadata:        req.Metadata,
	}
	if req.Timestamp != nil {
		ev.Timestamp = req.Timestamp.UTC()
	}
	return ev
}

// HandleIngestInteraction handles POST /v1/interactions. Events are
// buffered and flushed in batches; 202 means accepted, not yet durable.
func (h *Handlers) HandleIngestInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	accepted, err := h.ingestor.Append(r.Context(), []model.InteractionEvent{req.event()})
	if err != nil {
		h.serveIngestError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]any{
		"id":     accepted[0].ID,
		"status": "accepted",
	})
}

type interactionBatchRequest struct {
	Events []interactionRequest `json:"events"`
}

const maxBatchEvents = 1000

// HandleIngestInteractionBatch handles POST /v1/interactions/batch.
// The batch is accepted or rejected as a whole.
func (h *Handlers) HandleIngestInteractionBatch(w http.ResponseWriter, r *http.Request) {
	var req interactionBatchRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.Events) == 0 {
		writeError(w, r, http.StatusBadRequest, "events must not be empty")
		return
	}
	if len(req.Events) > maxBatchEvents {
		writeError(w, r, http.StatusBadRequest, "batch exceeds 1000 events")
		return
	}

	events := make([]model.InteractionEvent, len(req.Events))
	for i, e := range req.Events {
		events[i] = e.event()
	}

	accepted, err := h.ingestor.Append(r.Context(), events)
	if err != nil {
		h.serveIngestError(w, r, err)
		return
	}

	ids := make([]string, len(accepted))
	for i, ev := range accepted {
		ids[i] = ev.ID.String()
	}
	writeJSON(w, r, http.StatusAccepted, map[string]any{
		"ids":    ids,
		"count":  len(ids),
		"status": "accepted",
	})
}

// serveIngestError distinguishes backpressure from validation errors.
func (h *Handlers) serveIngestError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ingest.ErrBufferFull) {
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, r, http.StatusBadRequest, err.Error())
}
