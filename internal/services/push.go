package services

import (
	"context"
	"fmt"

	"duo-dare-backend/internal/config"
	"duo-dare-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// PushService delivers APNs notifications to players whose device holds no
// live WebSocket.
type PushService struct {
	client *apns2.Client
	topic  string
}

// NewPushService creates the APNs client. A disabled config returns a service
// whose sends are no-ops.
func NewPushService(cfg config.APNSConfig) (*PushService, error) {
	if !cfg.Enabled {
		return &PushService{}, nil
	}

	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &PushService{client: client, topic: cfg.Topic}, nil
}

// NotifyTurn tells a player it is their turn in a session.
func (s *PushService) NotifyTurn(ctx context.Context, user *models.User, sessionCode string) {
	s.send(ctx, user, "Your turn!", "Your partner completed a challenge. It's your move.", sessionCode)
}

// NotifyNewMessage tells a player a message arrived while they were away.
func (s *PushService) NotifyNewMessage(ctx context.Context, user *models.User, sessionCode string) {
	s.send(ctx, user, "New message", "Your partner sent you something.", sessionCode)
}

func (s *PushService) send(ctx context.Context, user *models.User, title, body, sessionCode string) {
	if s.client == nil || user.PushToken == nil || *user.PushToken == "" {
		return
	}

	notification := &apns2.Notification{
		DeviceToken: *user.PushToken,
		Topic:       s.topic,
		Payload: payload.NewPayload().
			AlertTitle(title).
			AlertBody(body).
			Custom("session_code", sessionCode),
	}

	res, err := s.client.PushWithContext(ctx, notification)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send push")
		return
	}
	if !res.Sent() {
		log.Warn().
			Str("user_id", user.ID).
			Str("reason", res.Reason).
			Msg("Push rejected by APNs")
	}
}
