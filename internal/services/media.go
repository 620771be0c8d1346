package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"duo-dare-backend/internal/models"

	"github.com/google/uuid"
)

// maxUploadBytes bounds the declared size of a media upload (50 MB).
const maxUploadBytes = 50 << 20

// MessageStore is the persistence surface the media service needs.
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	GetByUploadRequestID(ctx context.Context, requestID string) (*models.Message, error)
	ListBySession(ctx context.Context, code string, limit, offset int) ([]*models.Message, int, error)
	Publish(ctx context.Context, requestID, mediaURL string, publishedAt, expiresAt time.Time) error
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkDownloaded(ctx context.Context, id string) error
}

// SessionGetter is the read-only session lookup the media service needs.
type SessionGetter interface {
	GetByCode(ctx context.Context, code string) (*models.Session, error)
}

// MediaService handles the message log and the ephemeral media lifecycle:
// uploading → available → (downloaded) → expired → purged.
type MediaService struct {
	messages MessageStore
	sessions SessionGetter
	users    UserStore
	storage  BlobStore
	events   EventBus
	presence Presence
	pusher   Pusher
	ttl      time.Duration
}

// NewMediaService creates a new media service
func NewMediaService(
	messages MessageStore,
	sessions SessionGetter,
	users UserStore,
	storage BlobStore,
	events EventBus,
	presence Presence,
	pusher Pusher,
	ttl time.Duration,
) *MediaService {
	return &MediaService{
		messages: messages,
		sessions: sessions,
		users:    users,
		storage:  storage,
		events:   events,
		presence: presence,
		pusher:   pusher,
		ttl:      ttl,
	}
}

// SendTextMessage appends a text message to a session's log.
func (s *MediaService) SendTextMessage(ctx context.Context, code, senderID, content string) (*models.Message, error) {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if session.RoleOf(senderID) == "" {
		return nil, models.ErrNotParticipant
	}
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:           uuid.New().String(),
		SessionCode:  code,
		SenderID:     senderID,
		SenderGender: sender.Gender,
		Type:         models.MessageText,
		Content:      content,
		CreatedAt:    time.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.announce(ctx, session, msg)
	return msg, nil
}

// UploadParams describe a media upload request. RequestID is generated by the
// client, which makes retries of either phase idempotent.
type UploadParams struct {
	SessionCode string
	SenderID    string
	RequestID   string
	Type        models.MessageType
	Filename    string
	ContentType string
	SizeBytes   int64
}

// UploadTicket is the response to an initiated upload.
type UploadTicket struct {
	Message   *models.Message `json:"message"`
	UploadURL string          `json:"upload_url,omitempty"`
	ExpiresIn int             `json:"expires_in,omitempty"`
}

// InitiateUpload validates a media send and issues a pre-signed upload URL
// together with a pending (not yet visible) message row. Re-invoking with the
// same request ID returns the current state instead of duplicating.
func (s *MediaService) InitiateUpload(ctx context.Context, params UploadParams) (*UploadTicket, error) {
	if _, err := uuid.Parse(params.RequestID); err != nil {
		return nil, fmt.Errorf("invalid upload request id: %w", err)
	}

	if existing, err := s.messages.GetByUploadRequestID(ctx, params.RequestID); err == nil {
		if existing.SenderID != params.SenderID {
			return nil, models.ErrNotParticipant
		}
		ticket := &UploadTicket{Message: existing}
		if existing.Pending && existing.MediaKey != nil {
			url, err := s.storage.PresignPut(ctx, *existing.MediaKey, params.ContentType)
			if err != nil {
				return nil, err
			}
			ticket.UploadURL = url
			ticket.ExpiresIn = int(presignTTL.Seconds())
		}
		return ticket, nil
	}

	if !params.Type.IsMedia() {
		return nil, models.ErrInvalidMediaType
	}
	if params.SizeBytes > maxUploadBytes {
		return nil, models.ErrFileTooLarge
	}

	session, err := s.sessions.GetByCode(ctx, params.SessionCode)
	if err != nil {
		return nil, err
	}
	if session.RoleOf(params.SenderID) == "" {
		return nil, models.ErrNotParticipant
	}
	sender, err := s.users.GetByID(ctx, params.SenderID)
	if err != nil {
		return nil, err
	}

	ext, contentType, err := normalizeMedia(params.Filename, params.ContentType, params.Type)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("sessions/%s/media/%s%s", params.SessionCode, uuid.New().String(), ext)
	uploadURL, err := s.storage.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	requestID := params.RequestID
	msg := &models.Message{
		ID:              uuid.New().String(),
		SessionCode:     params.SessionCode,
		SenderID:        params.SenderID,
		SenderGender:    sender.Gender,
		Type:            params.Type,
		MediaKey:        &key,
		UploadRequestID: &requestID,
		Pending:         true,
		CreatedAt:       time.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	return &UploadTicket{
		Message:   msg,
		UploadURL: uploadURL,
		ExpiresIn: int(presignTTL.Seconds()),
	}, nil
}

// FinalizeUpload publishes a pending media message once the blob is uploaded,
// stamping its expiry at now + TTL. Idempotent per request ID.
func (s *MediaService) FinalizeUpload(ctx context.Context, requestID, userID string) (*models.Message, error) {
	msg, err := s.messages.GetByUploadRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, models.ErrNotParticipant
	}
	if !msg.Pending {
		return msg, nil
	}

	now := time.Now()
	mediaURL := s.storage.ObjectURL(*msg.MediaKey)
	if err := s.messages.Publish(ctx, requestID, mediaURL, now, now.Add(s.ttl)); err != nil {
		return nil, err
	}

	msg, err = s.messages.GetByUploadRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByCode(ctx, msg.SessionCode)
	if err == nil {
		s.announce(ctx, session, msg)
	}
	return msg, nil
}

// DownloadMedia returns the media URL for local persistence. The premium
// check always runs before the expiry check; both run before existence
// details leak out.
func (s *MediaService) DownloadMedia(ctx context.Context, code, messageID, userID string) (string, error) {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if session.RoleOf(userID) == "" {
		return "", models.ErrNotParticipant
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.IsPremiumAt(time.Now()) {
		return "", models.ErrPremiumRequired
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return "", models.ErrMediaNotFound
	}
	if msg.SessionCode != code || !msg.Type.IsMedia() || msg.Pending {
		return "", models.ErrMediaNotFound
	}
	if msg.MediaExpired(time.Now()) {
		return "", models.ErrMediaExpired
	}
	if msg.MediaPurged || msg.MediaURL == nil {
		return "", models.ErrMediaNotFound
	}

	if err := s.messages.MarkDownloaded(ctx, messageID); err != nil {
		return "", err
	}
	return *msg.MediaURL, nil
}

// MarkAsRead records the first read of a message. Repeat calls keep the
// original read_at.
func (s *MediaService) MarkAsRead(ctx context.Context, messageID, userID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	session, err := s.sessions.GetByCode(ctx, msg.SessionCode)
	if err != nil {
		return err
	}
	if session.RoleOf(userID) == "" {
		return models.ErrNotParticipant
	}
	return s.messages.MarkRead(ctx, messageID, time.Now())
}

// ListMessages retrieves a session's published messages, newest first.
func (s *MediaService) ListMessages(ctx context.Context, code, userID string, limit, offset int) ([]*models.Message, int, error) {
	session, err := s.sessions.GetByCode(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	if session.RoleOf(userID) == "" {
		return nil, 0, models.ErrNotParticipant
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.messages.ListBySession(ctx, code, limit, offset)
}

// announce fans the new message out and pushes to the partner if offline.
func (s *MediaService) announce(ctx context.Context, session *models.Session, msg *models.Message) {
	event := Event{
		Type:        EventMessageNew,
		SessionCode: session.Code,
		Targets:     participants(session),
		Data:        map[string]any{"message_id": msg.ID, "type": msg.Type},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		// Delivery is best effort; the log listing stays authoritative.
		return
	}

	partnerID := session.CreatorID
	if msg.SenderID == session.CreatorID {
		if session.PartnerID == nil {
			return
		}
		partnerID = *session.PartnerID
	}
	if s.presence.IsOnline(partnerID) {
		return
	}
	if partner, err := s.users.GetByID(ctx, partnerID); err == nil {
		s.pusher.NotifyNewMessage(ctx, partner, session.Code)
	}
}

// normalizeMedia derives a safe extension and content type for an upload.
func normalizeMedia(filename, contentType string, mediaType models.MessageType) (string, string, error) {
	name := strings.TrimSpace(filename)
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return "", "", models.ErrInvalidFileName
	}

	ext := strings.ToLower(path.Ext(name))
	if ext == "" || len(ext) > 5 {
		switch mediaType {
		case models.MessagePhoto:
			ext = ".jpg"
		case models.MessageVideo:
			ext = ".mp4"
		case models.MessageAudio:
			ext = ".m4a"
		}
	}

	if contentType == "" {
		switch mediaType {
		case models.MessagePhoto:
			contentType = "image/jpeg"
		case models.MessageVideo:
			contentType = "video/mp4"
		case models.MessageAudio:
			contentType = "audio/mp4"
		}
	}
	return ext, contentType, nil
}
