package handlers

import (
	"encoding/json"
	"net/http"

	"duo-dare-backend/internal/middleware"
	"duo-dare-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PremiumHandler handles feature gate and billing HTTP requests
type PremiumHandler struct {
	premiumService *services.PremiumService
}

// NewPremiumHandler creates a new premium handler
func NewPremiumHandler(premiumService *services.PremiumService) *PremiumHandler {
	return &PremiumHandler{premiumService: premiumService}
}

// CheckFeature handles GET /api/v1/features/{feature}. A denial is a 200
// with can_access=false; only transport failures are errors.
func (h *PremiumHandler) CheckFeature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	feature := chi.URLParam(r, "feature")
	sessionCode := r.URL.Query().Get("session_code")

	decision, err := h.premiumService.CanAccessFeature(ctx, userID, feature, sessionCode)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// BillingWebhook handles POST /api/v1/billing/events. Store-side signature
// verification sits in front of this deployment; the handler trusts the
// event shape.
func (h *PremiumHandler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	var event services.BillingEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if event.UserID == "" {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.premiumService.ApplyBillingEvent(r.Context(), event); err != nil {
		log.Error().
			Err(err).
			Str("user_id", event.UserID).
			Str("type", event.Type).
			Msg("Failed to apply billing event")
		respondDomainError(w, err)
		return
	}

	log.Info().
		Str("user_id", event.UserID).
		Str("type", event.Type).
		Msg("Billing event applied")
	w.WriteHeader(http.StatusNoContent)
}
