package models

import "errors"

// Domain errors. Services return these (wrapped where useful) and handlers
// map them to HTTP statuses and stable string codes.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionFull        = errors.New("session already has a partner")
	ErrNotParticipant     = errors.New("user is not a participant of this session")
	ErrNotYourTurn        = errors.New("not this player's turn")
	ErrSessionFinished    = errors.New("session has no remaining challenges")
	ErrChangeLimitReached = errors.New("challenge change limit reached")
	ErrBonusLimitReached  = errors.New("bonus change limit reached")
	ErrNoChallenge        = errors.New("no challenge available for the session filters")

	ErrMessageNotFound  = errors.New("message not found")
	ErrMediaNotFound    = errors.New("media not found")
	ErrMediaExpired     = errors.New("media expired")
	ErrInvalidMediaType = errors.New("invalid media type")
	ErrInvalidFileName  = errors.New("invalid file name")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUploadNotFound   = errors.New("upload request not found")

	ErrPremiumRequired = errors.New("premium subscription required")
	ErrUnknownFeature  = errors.New("unknown feature")
)
