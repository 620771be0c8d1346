package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"duo-dare-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

// TestErrorStatus verifies the mapping from domain errors to HTTP status and
// stable client codes.
func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrSessionNotFound, http.StatusNotFound, "SessionNotFound"},
		{models.ErrSessionFull, http.StatusConflict, "SessionFull"},
		{models.ErrNotParticipant, http.StatusForbidden, "NotParticipant"},
		{models.ErrNotYourTurn, http.StatusConflict, "NotYourTurn"},
		{models.ErrSessionFinished, http.StatusConflict, "SessionFinished"},
		{models.ErrChangeLimitReached, http.StatusConflict, "LimitReached"},
		{models.ErrMediaExpired, http.StatusGone, "MediaExpired"},
		{models.ErrMediaNotFound, http.StatusNotFound, "MediaNotFound"},
		{models.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FileTooLarge"},
		{models.ErrPremiumRequired, http.StatusPaymentRequired, "PremiumRequired"},
		{models.ErrInvalidCredentials, http.StatusUnauthorized, "InvalidCredentials"},
		{models.ErrEmailTaken, http.StatusConflict, "EmailTaken"},
		{models.ErrUnknownFeature, http.StatusBadRequest, "UnknownFeature"},
		{errors.New("database on fire"), http.StatusInternalServerError, "UnknownError"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

// TestErrorStatusUnwrapsWrapped verifies that wrapped domain errors still map
// to their code.
func TestErrorStatusUnwrapsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("change challenge: %w", models.ErrChangeLimitReached)
	status, code := errorStatus(wrapped)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "LimitReached", code)
}
