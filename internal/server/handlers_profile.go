package server

import (
	"net/http"

	"github.com/AdnanSerri/ai-driven-ecommerce/internal/persona"
)

// HandlePersonalityProfile handles GET /v1/users/{user_id}/personality.
func (h *Handlers) HandlePersonalityProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.profiler.Get(r.Context(), userID)
	if err != nil {
		h.serveError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, profile)
}

// HandlePersonalityTraits handles GET /v1/users/{user_id}/personality/traits.
// Expands the profile into human-readable traits and scored dimensions
// for storefront display.
func (h *Handlers) HandlePersonalityTraits(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.profiler.Get(r.Context(), userID)
	if err != nil {
		h.serveError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"user_id":          userID,
		"personality_type": profile.Archetype,
		"confidence":       profile.Confidence,
		"traits":           persona.Traits(profile.Archetype),
		"dimensions":       persona.DescribeDimensions(profile.Dimensions),
	})
}
