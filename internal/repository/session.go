package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"duo-dare-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles database operations for game sessions
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `code, creator_id, partner_id, theme, intensity, challenges,
	current_challenge_index, current_player, creator_changes_used, partner_changes_used,
	creator_bonus_changes, partner_bonus_changes, created_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	var challenges []byte
	err := row.Scan(
		&s.Code, &s.CreatorID, &s.PartnerID, &s.Theme, &s.Intensity, &challenges,
		&s.CurrentChallengeIndex, &s.CurrentPlayer, &s.CreatorChangesUsed,
		&s.PartnerChangesUsed, &s.CreatorBonusChanges, &s.PartnerBonusChanges,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(challenges, &s.Challenges); err != nil {
		return nil, fmt.Errorf("failed to decode challenges: %w", err)
	}
	return &s, nil
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	challenges, err := json.Marshal(session.Challenges)
	if err != nil {
		return fmt.Errorf("failed to encode challenges: %w", err)
	}
	query := `
		INSERT INTO sessions (code, creator_id, partner_id, theme, intensity, challenges,
			current_challenge_index, current_player, creator_changes_used, partner_changes_used,
			creator_bonus_changes, partner_bonus_changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.Exec(ctx, query,
		session.Code, session.CreatorID, session.PartnerID, session.Theme,
		session.Intensity, challenges, session.CurrentChallengeIndex,
		session.CurrentPlayer, session.CreatorChangesUsed, session.PartnerChangesUsed,
		session.CreatorBonusChanges, session.PartnerBonusChanges, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByCode retrieves a session by its code
func (r *SessionRepository) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE code = $1`
	session, err := scanSession(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// CodeExists checks if a session code already exists
func (r *SessionRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sessions WHERE code = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return exists, nil
}

// SetPartner fills the partner slot. The update only applies while the slot is
// empty, so a second concurrent join loses.
func (r *SessionRepository) SetPartner(ctx context.Context, code, partnerID string) error {
	query := `
		UPDATE sessions SET partner_id = $1
		WHERE code = $2 AND partner_id IS NULL AND creator_id <> $1
	`
	result, err := r.db.Exec(ctx, query, partnerID, code)
	if err != nil {
		return fmt.Errorf("failed to set partner: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish a missing session from an occupied slot.
		exists, err := r.CodeExists(ctx, code)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrSessionNotFound
		}
		return models.ErrSessionFull
	}
	return nil
}

// AdvanceTurn increments the challenge index and hands the turn to the other
// player. The WHERE clause makes the whole transition conditional on the
// caller actually holding the turn and challenges remaining, so two racing
// completes cannot both apply.
func (r *SessionRepository) AdvanceTurn(ctx context.Context, code string, role models.PlayerRole) (bool, error) {
	query := `
		UPDATE sessions
		SET current_challenge_index = current_challenge_index + 1,
			current_player = $3
		WHERE code = $1 AND current_player = $2
			AND current_challenge_index < jsonb_array_length(challenges)
	`
	result, err := r.db.Exec(ctx, query, code, role, role.Other())
	if err != nil {
		return false, fmt.Errorf("failed to advance turn: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ReplaceChallenge swaps the challenge at the given index and bumps the
// player's change counter in the same statement.
func (r *SessionRepository) ReplaceChallenge(ctx context.Context, code string, index int, challenge models.Challenge, role models.PlayerRole) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}
	counter := "creator_changes_used"
	if role == models.RolePartner {
		counter = "partner_changes_used"
	}
	query := fmt.Sprintf(`
		UPDATE sessions
		SET challenges = jsonb_set(challenges, ARRAY[$2::text], $3::jsonb),
			%s = %s + 1
		WHERE code = $1 AND current_challenge_index = $2
	`, counter, counter)
	result, err := r.db.Exec(ctx, query, code, index, data)
	if err != nil {
		return fmt.Errorf("failed to replace challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// IncrementBonus grants a rewarded-ad bonus change, bounded by max. Returns
// false when the cap is already reached.
func (r *SessionRepository) IncrementBonus(ctx context.Context, code string, role models.PlayerRole, max int) (bool, error) {
	counter := "creator_bonus_changes"
	if role == models.RolePartner {
		counter = "partner_bonus_changes"
	}
	query := fmt.Sprintf(`
		UPDATE sessions SET %s = %s + 1
		WHERE code = $1 AND %s < $2
	`, counter, counter, counter)
	result, err := r.db.Exec(ctx, query, code, max)
	if err != nil {
		return false, fmt.Errorf("failed to grant bonus change: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListCodesByUser returns the codes of every session the user participates in
func (r *SessionRepository) ListCodesByUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT code FROM sessions WHERE creator_id = $1 OR partner_id = $1`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan session code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return codes, nil
}

// Delete deletes a session; messages cascade via foreign key
func (r *SessionRepository) Delete(ctx context.Context, code string) error {
	query := `DELETE FROM sessions WHERE code = $1`
	result, err := r.db.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}
