package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"duo-dare-backend/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// errorStatus maps a domain error to its HTTP status and stable string code.
// Anything unmapped is an internal error reported as UnknownError.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, "UserNotFound"
	case errors.Is(err, models.ErrEmailTaken):
		return http.StatusConflict, "EmailTaken"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "InvalidCredentials"
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound, "SessionNotFound"
	case errors.Is(err, models.ErrSessionFull):
		return http.StatusConflict, "SessionFull"
	case errors.Is(err, models.ErrNotParticipant):
		return http.StatusForbidden, "NotParticipant"
	case errors.Is(err, models.ErrNotYourTurn):
		return http.StatusConflict, "NotYourTurn"
	case errors.Is(err, models.ErrSessionFinished):
		return http.StatusConflict, "SessionFinished"
	case errors.Is(err, models.ErrChangeLimitReached):
		return http.StatusConflict, "LimitReached"
	case errors.Is(err, models.ErrBonusLimitReached):
		return http.StatusConflict, "BonusLimitReached"
	case errors.Is(err, models.ErrNoChallenge):
		return http.StatusNotFound, "NoChallengeAvailable"
	case errors.Is(err, models.ErrMessageNotFound):
		return http.StatusNotFound, "MessageNotFound"
	case errors.Is(err, models.ErrMediaNotFound):
		return http.StatusNotFound, "MediaNotFound"
	case errors.Is(err, models.ErrMediaExpired):
		return http.StatusGone, "MediaExpired"
	case errors.Is(err, models.ErrInvalidMediaType):
		return http.StatusBadRequest, "InvalidMediaType"
	case errors.Is(err, models.ErrInvalidFileName):
		return http.StatusBadRequest, "InvalidFileName"
	case errors.Is(err, models.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FileTooLarge"
	case errors.Is(err, models.ErrUploadNotFound):
		return http.StatusNotFound, "UploadNotFound"
	case errors.Is(err, models.ErrPremiumRequired):
		return http.StatusPaymentRequired, "PremiumRequired"
	case errors.Is(err, models.ErrUnknownFeature):
		return http.StatusBadRequest, "UnknownFeature"
	default:
		return http.StatusInternalServerError, "UnknownError"
	}
}

// respondDomainError maps a service error to its HTTP shape. Internal errors
// are not echoed to the client.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
