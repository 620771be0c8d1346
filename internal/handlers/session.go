package handlers

import (
	"encoding/json"
	"net/http"

	"duo-dare-backend/internal/middleware"
	"duo-dare-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SessionHandler handles session-related HTTP requests
type SessionHandler struct {
	sessionService *services.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSessionRequest is the body for POST /api/v1/sessions
type CreateSessionRequest struct {
	Theme          string `json:"theme"`
	Intensity      int    `json:"intensity"`
	ChallengeCount int    `json:"challenge_count"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.sessionService.CreateSession(ctx, userID, req.Theme, req.Intensity, req.ChallengeCount)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create session")
		respondDomainError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("code", session.Code).
		Int("challenges", len(session.Challenges)).
		Msg("Session created")
	respondJSON(w, http.StatusCreated, session)
}

// JoinSessionRequest is the body for POST /api/v1/sessions/join
type JoinSessionRequest struct {
	Code string `json:"code"`
}

// Join handles POST /api/v1/sessions/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req JoinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Code) != 6 {
		respondError(w, "code must be 6 characters", http.StatusBadRequest)
		return
	}

	session, err := h.sessionService.JoinSession(ctx, req.Code, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", req.Code).Msg("Failed to join session")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("code", req.Code).Msg("Session joined")
	respondJSON(w, http.StatusOK, session)
}

// Get handles GET /api/v1/sessions/{code}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	session, err := h.sessionService.GetSession(ctx, code, userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Complete handles POST /api/v1/sessions/{code}/complete
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	session, err := h.sessionService.CompleteChallenge(ctx, code, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", code).Msg("Failed to complete challenge")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Skip handles POST /api/v1/sessions/{code}/skip
func (h *SessionHandler) Skip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	session, err := h.sessionService.SkipChallenge(ctx, code, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", code).Msg("Failed to skip challenge")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// Change handles POST /api/v1/sessions/{code}/change
func (h *SessionHandler) Change(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	session, err := h.sessionService.ChangeChallenge(ctx, code, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", code).Msg("Failed to change challenge")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// GrantBonus handles POST /api/v1/sessions/{code}/bonus, invoked after a
// completed rewarded ad.
func (h *SessionHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	session, err := h.sessionService.GrantBonusChange(ctx, code, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", code).Msg("Failed to grant bonus change")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// End handles DELETE /api/v1/sessions/{code}
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	code := chi.URLParam(r, "code")

	if err := h.sessionService.EndSession(ctx, code, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("code", code).Msg("Failed to end session")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("code", code).Msg("Session ended")
	w.WriteHeader(http.StatusNoContent)
}
