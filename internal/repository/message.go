package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duo-dare-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for session messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, session_code, sender_id, sender_gender, type, content,
	media_url, media_thumbnail, media_key, media_expires_at, media_downloaded,
	media_purged, read, read_at, upload_request_id, pending, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.SessionCode, &m.SenderID, &m.SenderGender, &m.Type, &m.Content,
		&m.MediaURL, &m.MediaThumbnail, &m.MediaKey, &m.MediaExpiresAt,
		&m.MediaDownloaded, &m.MediaPurged, &m.Read, &m.ReadAt,
		&m.UploadRequestID, &m.Pending, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, session_code, sender_id, sender_gender, type, content,
			media_url, media_thumbnail, media_key, media_expires_at, media_downloaded,
			media_purged, read, read_at, upload_request_id, pending, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.SessionCode, msg.SenderID, msg.SenderGender, msg.Type, msg.Content,
		msg.MediaURL, msg.MediaThumbnail, msg.MediaKey, msg.MediaExpiresAt,
		msg.MediaDownloaded, msg.MediaPurged, msg.Read, msg.ReadAt,
		msg.UploadRequestID, msg.Pending, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// GetByUploadRequestID retrieves a media message by its upload request ID
func (r *MessageRepository) GetByUploadRequestID(ctx context.Context, requestID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE upload_request_id = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get message by upload request: %w", err)
	}
	return msg, nil
}

// ListBySession retrieves published messages for a session with pagination,
// newest first
func (r *MessageRepository) ListBySession(ctx context.Context, code string, limit, offset int) ([]*models.Message, int, error) {
	countQuery := `SELECT COUNT(*) FROM messages WHERE session_code = $1 AND NOT pending`
	var total int
	if err := r.db.QueryRow(ctx, countQuery, code).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE session_code = $1 AND NOT pending
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, code, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, total, nil
}

// Publish finalizes a pending media message: stamps the URL and expiry and
// makes it visible. created_at is reset to the publication instant so the
// expiry window always spans the full TTL from when the partner can first see
// the message. A second call with the same request ID changes nothing.
func (r *MessageRepository) Publish(ctx context.Context, requestID, mediaURL string, publishedAt, expiresAt time.Time) error {
	query := `
		UPDATE messages
		SET pending = FALSE, media_url = $2, created_at = $3, media_expires_at = $4
		WHERE upload_request_id = $1 AND pending
	`
	_, err := r.db.Exec(ctx, query, requestID, mediaURL, publishedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// MarkRead sets the read flag. COALESCE keeps the first read_at, so repeated
// calls are idempotent.
func (r *MessageRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE messages SET read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrMessageNotFound
	}
	return nil
}

// MarkDownloaded records the first download of the media
func (r *MessageRepository) MarkDownloaded(ctx context.Context, id string) error {
	query := `UPDATE messages SET media_downloaded = TRUE WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark media downloaded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrMessageNotFound
	}
	return nil
}

// ListSweepable returns media messages whose blobs the sweeper should delete:
// expired published media, plus pending uploads abandoned before the cutoff.
func (r *MessageRepository) ListSweepable(ctx context.Context, now, abandonedBefore time.Time, limit int) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE media_key IS NOT NULL AND NOT media_purged
			AND (
				(NOT pending AND media_expires_at IS NOT NULL AND media_expires_at <= $1)
				OR (pending AND created_at < $2)
			)
		ORDER BY created_at
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, now, abandonedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweepable media: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sweepable media: %w", err)
	}
	return messages, nil
}

// MarkPurged records that the blob behind a message has been deleted
func (r *MessageRepository) MarkPurged(ctx context.Context, id string) error {
	query := `UPDATE messages SET media_purged = TRUE, media_url = NULL WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark media purged: %w", err)
	}
	return nil
}

// ListMediaKeysBySession returns the storage keys of all unpurged media in a
// session, for cascade deletion
func (r *MessageRepository) ListMediaKeysBySession(ctx context.Context, code string) ([]string, error) {
	query := `
		SELECT media_key FROM messages
		WHERE session_code = $1 AND media_key IS NOT NULL AND NOT media_purged
	`
	rows, err := r.db.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list media keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan media key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media keys: %w", err)
	}
	return keys, nil
}
