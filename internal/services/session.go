package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"duo-dare-backend/internal/config"
	"duo-dare-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	codeLength = 6
	// Ambiguous characters (I, O, 0, 1) are excluded so codes survive being
	// read aloud or typed from a partner's screen.
	codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	minChallengeCount = 5
)

// SessionStore is the persistence surface the session service needs.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByCode(ctx context.Context, code string) (*models.Session, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	SetPartner(ctx context.Context, code, partnerID string) error
	AdvanceTurn(ctx context.Context, code string, role models.PlayerRole) (bool, error)
	ReplaceChallenge(ctx context.Context, code string, index int, challenge models.Challenge, role models.PlayerRole) error
	IncrementBonus(ctx context.Context, code string, role models.PlayerRole, max int) (bool, error)
	ListCodesByUser(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, code string) error
}

// ChallengePool draws catalog entries for new sessions and swaps.
type ChallengePool interface {
	Draw(ctx context.Context, theme string, maxIntensity, n int) ([]models.PoolChallenge, error)
	DrawOne(ctx context.Context, theme, targetGender string, maxIntensity int, excludeTexts []string) (*models.PoolChallenge, error)
}

// MediaKeyLister exposes the stored media keys of a session for cascade
// deletion.
type MediaKeyLister interface {
	ListMediaKeysBySession(ctx context.Context, code string) ([]string, error)
}

// BlobStore is the object-storage surface shared by the media and session
// services.
type BlobStore interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	ObjectURL(key string) string
	Delete(ctx context.Context, key string) error
}

// EventBus publishes realtime events to session participants.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
}

// Presence reports whether a user holds a live socket on this instance.
type Presence interface {
	IsOnline(userID string) bool
}

// Pusher delivers push notifications to users without a live socket.
type Pusher interface {
	NotifyTurn(ctx context.Context, user *models.User, sessionCode string)
	NotifyNewMessage(ctx context.Context, user *models.User, sessionCode string)
}

// SessionService handles session lifecycle and turn progression
type SessionService struct {
	sessions   SessionStore
	challenges ChallengePool
	users      UserStore
	mediaKeys  MediaKeyLister
	storage    BlobStore
	events     EventBus
	presence   Presence
	pusher     Pusher
	cfg        config.GameConfig
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions SessionStore,
	challenges ChallengePool,
	users UserStore,
	mediaKeys MediaKeyLister,
	storage BlobStore,
	events EventBus,
	presence Presence,
	pusher Pusher,
	cfg config.GameConfig,
) *SessionService {
	return &SessionService{
		sessions:   sessions,
		challenges: challenges,
		users:      users,
		mediaKeys:  mediaKeys,
		storage:    storage,
		events:     events,
		presence:   presence,
		pusher:     pusher,
		cfg:        cfg,
	}
}

// CreateSession configures a new game: the challenge list is drawn once and
// fixed for the session's lifetime. Free accounts are capped at the free
// challenge count, premium at the configured maximum.
func (s *SessionService) CreateSession(ctx context.Context, creatorID, theme string, intensity, challengeCount int) (*models.Session, error) {
	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	maxCount := s.cfg.FreeChallengeCount
	if creator.IsPremiumAt(time.Now()) {
		maxCount = s.cfg.MaxChallengeCount
	}
	if challengeCount < minChallengeCount {
		challengeCount = minChallengeCount
	}
	if challengeCount > maxCount {
		challengeCount = maxCount
	}

	drawn, err := s.challenges.Draw(ctx, theme, intensity, challengeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to draw challenges: %w", err)
	}
	if len(drawn) == 0 {
		return nil, models.ErrNoChallenge
	}

	challenges := make([]models.Challenge, len(drawn))
	for i, c := range drawn {
		challenges[i] = models.Challenge{
			Text:         c.Text,
			TargetGender: c.TargetGender,
			Intensity:    c.Intensity,
			Type:         c.Type,
			Theme:        c.Theme,
		}
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		Code:          code,
		CreatorID:     creatorID,
		Theme:         theme,
		Intensity:     intensity,
		Challenges:    challenges,
		CurrentPlayer: models.RoleCreator,
		CreatedAt:     time.Now(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// generateUniqueCode generates a session code not yet in use
func (s *SessionService) generateUniqueCode(ctx context.Context) (string, error) {
	maxAttempts := 10
	for i := 0; i < maxAttempts; i++ {
		code := generateCode()
		exists, err := s.sessions.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique code after %d attempts", maxAttempts)
}

func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// JoinSession fills the partner slot of an open session. Joining a session
// the user already participates in returns it unchanged.
func (s *SessionService) JoinSession(ctx context.Context, code, userID string) (*models.Session, error) {
	err := s.sessions.SetPartner(ctx, code, userID)
	if err != nil {
		session, getErr := s.sessions.GetByCode(ctx, code)
		if getErr == nil && session.RoleOf(userID) != "" {
			return session, nil
		}
		return nil, err
	}

	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type:        EventSessionJoined,
		SessionCode: code,
		Targets:     []string{session.CreatorID},
		Data:        map[string]any{"partner_id": userID},
	})
	return session, nil
}

// GetSession retrieves a session, restricted to its participants.
func (s *SessionService) GetSession(ctx context.Context, code, userID string) (*models.Session, error) {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if session.RoleOf(userID) == "" {
		return nil, models.ErrNotParticipant
	}
	return session, nil
}

// CompleteChallenge marks the current challenge done for the calling player,
// advancing the index and handing the turn over.
func (s *SessionService) CompleteChallenge(ctx context.Context, code, userID string) (*models.Session, error) {
	return s.advance(ctx, code, userID, "complete")
}

// SkipChallenge passes on the current challenge. Turn-wise it behaves
// exactly like completing it.
func (s *SessionService) SkipChallenge(ctx context.Context, code, userID string) (*models.Session, error) {
	return s.advance(ctx, code, userID, "skip")
}

func (s *SessionService) advance(ctx context.Context, code, userID, action string) (*models.Session, error) {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	role := session.RoleOf(userID)
	if role == "" {
		return nil, models.ErrNotParticipant
	}
	if session.Finished() {
		return nil, models.ErrSessionFinished
	}

	applied, err := s.sessions.AdvanceTurn(ctx, code, role)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The conditional update did not match: either the turn moved under
		// us or the last challenge was just consumed. Re-read to tell which.
		session, err = s.sessions.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if session.Finished() {
			return nil, models.ErrSessionFinished
		}
		return nil, models.ErrNotYourTurn
	}

	session, err = s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type:        EventTurnAdvanced,
		SessionCode: code,
		Targets:     participants(session),
		Data: map[string]any{
			"action":                  action,
			"current_challenge_index": session.CurrentChallengeIndex,
			"current_player":          session.CurrentPlayer,
		},
	})
	s.notifyTurnHolder(ctx, session)

	return session, nil
}

// ChangeChallenge swaps the current challenge for another drawn from the pool
// with the session's filters. Free players get a fixed number of swaps plus
// any rewarded-ad bonus; premium players are unlimited.
func (s *SessionService) ChangeChallenge(ctx context.Context, code, userID string) (*models.Session, error) {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	role := session.RoleOf(userID)
	if role == "" {
		return nil, models.ErrNotParticipant
	}
	if session.Finished() {
		return nil, models.ErrSessionFinished
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsPremiumAt(time.Now()) {
		limit := s.cfg.MaxChallengeChanges + session.BonusChanges(role)
		if session.ChangesUsed(role) >= limit {
			return nil, models.ErrChangeLimitReached
		}
	}

	current := session.Challenges[session.CurrentChallengeIndex]
	exclude := make([]string, len(session.Challenges))
	for i, c := range session.Challenges {
		exclude[i] = c.Text
	}

	replacement, err := s.challenges.DrawOne(ctx, session.Theme, current.TargetGender, session.Intensity, exclude)
	if err != nil {
		return nil, err
	}

	challenge := models.Challenge{
		Text:         replacement.Text,
		TargetGender: replacement.TargetGender,
		Intensity:    replacement.Intensity,
		Type:         replacement.Type,
		Theme:        replacement.Theme,
	}
	if err := s.sessions.ReplaceChallenge(ctx, code, session.CurrentChallengeIndex, challenge, role); err != nil {
		return nil, err
	}

	session, err = s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type:        EventChallengeChanged,
		SessionCode: code,
		Targets:     participants(session),
		Data: map[string]any{
			"current_challenge_index": session.CurrentChallengeIndex,
			"challenge":               challenge,
		},
	})
	return session, nil
}

// GrantBonusChange credits one extra challenge change after a rewarded ad,
// capped per player per session.
func (s *SessionService) GrantBonusChange(ctx context.Context, code, userID string) (*models.Session, error) {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	role := session.RoleOf(userID)
	if role == "" {
		return nil, models.ErrNotParticipant
	}

	granted, err := s.sessions.IncrementBonus(ctx, code, role, s.cfg.MaxBonusChanges)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, models.ErrBonusLimitReached
	}

	return s.sessions.GetByCode(ctx, code)
}

// EndSession deletes a session, its message log, and every media blob it
// still references.
func (s *SessionService) EndSession(ctx context.Context, code, userID string) error {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if session.RoleOf(userID) == "" {
		return models.ErrNotParticipant
	}

	if err := s.purgeSession(ctx, session); err != nil {
		return err
	}

	s.publish(ctx, Event{
		Type:        EventSessionEnded,
		SessionCode: code,
		Targets:     participants(session),
	})
	return nil
}

// DeleteAllForUser removes every session the user participates in, for
// account deletion.
func (s *SessionService) DeleteAllForUser(ctx context.Context, userID string) error {
	codes, err := s.sessions.ListCodesByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, code := range codes {
		session, err := s.sessions.GetByCode(ctx, code)
		if err != nil {
			continue
		}
		if err := s.purgeSession(ctx, session); err != nil {
			return err
		}
		s.publish(ctx, Event{
			Type:        EventSessionEnded,
			SessionCode: code,
			Targets:     participants(session),
		})
	}
	return nil
}

// purgeSession deletes the session's blobs and then the session row; the
// message log cascades with it.
func (s *SessionService) purgeSession(ctx context.Context, session *models.Session) error {
	keys, err := s.mediaKeys.ListMediaKeysBySession(ctx, session.Code)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			// The sweep picks up anything left behind.
			log.Error().Err(err).Str("key", key).Msg("Failed to delete media blob")
		}
	}
	return s.sessions.Delete(ctx, session.Code)
}

// notifyTurnHolder pushes to the player whose turn it now is, unless they
// already hold a live socket.
func (s *SessionService) notifyTurnHolder(ctx context.Context, session *models.Session) {
	holderID := session.CreatorID
	if session.CurrentPlayer == models.RolePartner {
		if session.PartnerID == nil {
			return
		}
		holderID = *session.PartnerID
	}
	if s.presence.IsOnline(holderID) {
		return
	}
	holder, err := s.users.GetByID(ctx, holderID)
	if err != nil {
		return
	}
	s.pusher.NotifyTurn(ctx, holder, session.Code)
}

func (s *SessionService) publish(ctx context.Context, event Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event", event.Type).
			Str("session_code", event.SessionCode).
			Msg("Failed to publish event")
	}
}

func participants(session *models.Session) []string {
	targets := []string{session.CreatorID}
	if session.PartnerID != nil {
		targets = append(targets, *session.PartnerID)
	}
	return targets
}
