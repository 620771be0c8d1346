package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"duo-dare-backend/internal/middleware"
	"duo-dare-backend/internal/models"
	"duo-dare-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, sessionService *services.SessionService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		sessionService: sessionService,
	}
}

// RegisterRequest is the body for POST /api/v1/users
type RegisterRequest struct {
	Email       string             `json:"email"`
	Password    string             `json:"password"`
	DisplayName string             `json:"display_name"`
	Gender      string             `json:"gender"`
	DateOfBirth time.Time          `json:"date_of_birth"`
	Preferences models.Preferences `json:"preferences"`
}

// AuthResponse carries a user together with a bearer token
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register handles POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Register(r.Context(), services.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth,
		Preferences: req.Preferences,
	})
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to register user")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	respondJSON(w, http.StatusCreated, AuthResponse{User: user, Token: token})
}

// LoginRequest is the body for POST /api/v1/users/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdatePreferences handles PATCH /api/v1/users/me/preferences
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var prefs models.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePreferences(r.Context(), userID, prefs); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update preferences")
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePushTokenRequest is the body for PATCH /api/v1/users/me/push-token
type UpdatePushTokenRequest struct {
	PushToken *string `json:"push_token"`
}

// UpdatePushToken handles PATCH /api/v1/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update push token")
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAccount handles DELETE /api/v1/users/me. Sessions, messages, and
// media blobs go first, then the account row.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if err := h.sessionService.DeleteAllForUser(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user sessions")
		respondDomainError(w, err)
		return
	}
	if err := h.userService.Delete(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Account deleted")
	w.WriteHeader(http.StatusNoContent)
}
