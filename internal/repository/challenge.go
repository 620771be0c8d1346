package repository

import (
	"context"
	"errors"
	"fmt"

	"duo-dare-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChallengeRepository handles database operations for the challenge catalog
type ChallengeRepository struct {
	db *pgxpool.Pool
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Draw picks up to n random catalog entries matching the session filters.
// A zero maxIntensity means no intensity cap.
func (r *ChallengeRepository) Draw(ctx context.Context, theme string, maxIntensity, n int) ([]models.PoolChallenge, error) {
	query := `
		SELECT id, text, target_gender, intensity, type, theme
		FROM challenges
		WHERE ($1 = '' OR theme = $1) AND ($2 = 0 OR intensity <= $2)
		ORDER BY random()
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, theme, maxIntensity, n)
	if err != nil {
		return nil, fmt.Errorf("failed to draw challenges: %w", err)
	}
	defer rows.Close()

	var challenges []models.PoolChallenge
	for rows.Next() {
		var c models.PoolChallenge
		if err := rows.Scan(&c.ID, &c.Text, &c.TargetGender, &c.Intensity, &c.Type, &c.Theme); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}
	return challenges, nil
}

// DrawOne picks a single random replacement matching the filters, excluding
// the texts already present in the session's list.
func (r *ChallengeRepository) DrawOne(ctx context.Context, theme, targetGender string, maxIntensity int, excludeTexts []string) (*models.PoolChallenge, error) {
	query := `
		SELECT id, text, target_gender, intensity, type, theme
		FROM challenges
		WHERE ($1 = '' OR theme = $1)
			AND ($2 = '' OR target_gender = $2 OR target_gender = 'any')
			AND ($3 = 0 OR intensity <= $3)
			AND NOT (text = ANY($4))
		ORDER BY random()
		LIMIT 1
	`
	var c models.PoolChallenge
	err := r.db.QueryRow(ctx, query, theme, targetGender, maxIntensity, excludeTexts).Scan(
		&c.ID, &c.Text, &c.TargetGender, &c.Intensity, &c.Type, &c.Theme,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNoChallenge
		}
		return nil, fmt.Errorf("failed to draw replacement challenge: %w", err)
	}
	return &c, nil
}
