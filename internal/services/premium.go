package services

import (
	"context"
	"fmt"
	"time"

	"duo-dare-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// FeatureRequirement declares what a named feature demands of the caller.
type FeatureRequirement struct {
	RequiresPremium     bool
	RequiresBothPremium bool
}

// featureTable maps feature names to their entitlement requirements. Features
// with RequiresBothPremium need every session participant subscribed.
var featureTable = map[string]FeatureRequirement{
	"text_messages":       {},
	"photo_messages":      {},
	"media_download":      {RequiresPremium: true},
	"unlimited_changes":   {RequiresPremium: true},
	"extended_challenges": {RequiresPremium: true},
	"video_messages":      {RequiresPremium: true, RequiresBothPremium: true},
	"audio_messages":      {RequiresPremium: true, RequiresBothPremium: true},
}

// Decision is the outcome of a feature check. Not being entitled is a normal
// result, not an error.
type Decision struct {
	CanAccess bool   `json:"can_access"`
	Reason    string `json:"reason,omitempty"`
}

// Denial reasons.
const (
	ReasonPremiumRequired        = "premium_required"
	ReasonPartnerPremiumRequired = "partner_premium_required"
)

// PremiumStore is the persistence surface the premium service needs.
type PremiumStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetPremium(ctx context.Context, userID string, premium bool, plan models.PremiumPlan, until *time.Time) error
	DeactivateLapsed(ctx context.Context, now time.Time) (int64, error)
}

// PremiumService decides feature entitlement and applies subscription events
type PremiumService struct {
	users    PremiumStore
	sessions SessionGetter
}

// NewPremiumService creates a new premium service
func NewPremiumService(users PremiumStore, sessions SessionGetter) *PremiumService {
	return &PremiumService{users: users, sessions: sessions}
}

// CanAccessFeature checks whether the user (and, for shared features, their
// session partner) may use the named feature. Entitlement status is read-only
// here: lapsed subscriptions are deactivated by the reconciliation job, never
// on the read path.
func (s *PremiumService) CanAccessFeature(ctx context.Context, userID, feature, sessionCode string) (Decision, error) {
	req, ok := featureTable[feature]
	if !ok {
		return Decision{}, models.ErrUnknownFeature
	}
	if !req.RequiresPremium {
		return Decision{CanAccess: true}, nil
	}

	now := time.Now()
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if !user.IsPremiumAt(now) {
		return Decision{Reason: ReasonPremiumRequired}, nil
	}

	if !req.RequiresBothPremium {
		return Decision{CanAccess: true}, nil
	}
	if sessionCode == "" {
		return Decision{}, fmt.Errorf("feature %s requires a session code", feature)
	}

	session, err := s.sessions.GetByCode(ctx, sessionCode)
	if err != nil {
		return Decision{}, err
	}
	if session.RoleOf(userID) == "" {
		return Decision{}, models.ErrNotParticipant
	}
	partnerID := session.CreatorID
	if partnerID == userID {
		if session.PartnerID == nil {
			return Decision{Reason: ReasonPartnerPremiumRequired}, nil
		}
		partnerID = *session.PartnerID
	}

	partner, err := s.users.GetByID(ctx, partnerID)
	if err != nil {
		return Decision{}, err
	}
	if !partner.IsPremiumAt(now) {
		return Decision{Reason: ReasonPartnerPremiumRequired}, nil
	}
	return Decision{CanAccess: true}, nil
}

// BillingEvent is a store-originated subscription lifecycle notification.
type BillingEvent struct {
	Type           string             `json:"type"`
	UserID         string             `json:"user_id"`
	Plan           models.PremiumPlan `json:"plan"`
	ExpirationAtMs int64              `json:"expiration_at_ms"`
}

// ApplyBillingEvent updates a user's entitlement from a billing event.
func (s *PremiumService) ApplyBillingEvent(ctx context.Context, event BillingEvent) error {
	switch event.Type {
	case "purchase", "renewal":
		if event.Plan != models.PlanMonthly && event.Plan != models.PlanYearly {
			return fmt.Errorf("unknown premium plan %q", event.Plan)
		}
		until := msToTime(event.ExpirationAtMs)
		return s.users.SetPremium(ctx, event.UserID, true, event.Plan, &until)
	case "cancellation":
		// Access runs until the paid period ends; the reconciliation job
		// deactivates it then.
		log.Info().Str("user_id", event.UserID).Msg("Subscription cancelled")
		return nil
	case "expiration":
		return s.users.SetPremium(ctx, event.UserID, false, models.PlanNone, nil)
	default:
		return nil
	}
}

// ReconcileLapsed deactivates premium for every user whose paid period has
// ended. Returns how many users were deactivated.
func (s *PremiumService) ReconcileLapsed(ctx context.Context) (int64, error) {
	return s.users.DeactivateLapsed(ctx, time.Now())
}

func msToTime(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
}
