package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"duo-dare-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, gender, date_of_birth,
	premium, premium_plan, premium_until, preferences, push_token, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var prefs []byte
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.Gender, &user.DateOfBirth, &user.Premium, &user.PremiumPlan,
		&user.PremiumUntil, &prefs, &user.PushToken, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &user.Preferences); err != nil {
			return nil, fmt.Errorf("failed to decode preferences: %w", err)
		}
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	query := `
		INSERT INTO users (id, email, password_hash, display_name, gender, date_of_birth,
			premium, premium_plan, premium_until, preferences, push_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.DisplayName, user.Gender,
		user.DateOfBirth, user.Premium, user.PremiumPlan, user.PremiumUntil,
		prefs, user.PushToken, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// EmailExists checks if an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// UpdatePreferences replaces the preferences document for a user
func (r *UserRepository) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	query := `UPDATE users SET preferences = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, data, userID)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// SetPremium updates the subscription fields for a user
func (r *UserRepository) SetPremium(ctx context.Context, userID string, premium bool, plan models.PremiumPlan, until *time.Time) error {
	query := `UPDATE users SET premium = $1, premium_plan = $2, premium_until = $3 WHERE id = $4`
	result, err := r.db.Exec(ctx, query, premium, plan, until, userID)
	if err != nil {
		return fmt.Errorf("failed to update premium status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// DeactivateLapsed flips premium off for every user whose premium_until has
// passed. Returns the number of users deactivated.
func (r *UserRepository) DeactivateLapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET premium = FALSE, premium_plan = ''
		WHERE premium = TRUE AND premium_until IS NOT NULL AND premium_until < $1
	`
	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate lapsed premium: %w", err)
	}
	return result.RowsAffected(), nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = $1`
	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
