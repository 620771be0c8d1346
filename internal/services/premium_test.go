package services_test

import (
	"context"
	"testing"
	"time"

	"duo-dare-backend/internal/models"
	"duo-dare-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestCanAccessFreeFeature verifies that free features pass without touching
// the store.
func TestCanAccessFreeFeature(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	decision, err := svc.CanAccessFeature(context.Background(), "user-1", "text_messages", "")
	require.NoError(t, err)

	assert.True(t, decision.CanAccess)
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

// TestCanAccessUnknownFeature verifies that an unrecognized feature name is an
// error, not a silent denial.
func TestCanAccessUnknownFeature(t *testing.T) {
	svc := services.NewPremiumService(new(MockUserStore), new(MockSessionStore))

	_, err := svc.CanAccessFeature(context.Background(), "user-1", "telepathy", "")
	assert.ErrorIs(t, err, models.ErrUnknownFeature)
}

// TestCanAccessPremiumFeatureDenied verifies that a free user gets a denial
// decision, not an error.
func TestCanAccessPremiumFeatureDenied(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	users.On("GetByID", mock.Anything, "user-1").Return(freeUser("user-1"), nil)

	decision, err := svc.CanAccessFeature(context.Background(), "user-1", "media_download", "")
	require.NoError(t, err)

	assert.False(t, decision.CanAccess)
	assert.Equal(t, services.ReasonPremiumRequired, decision.Reason)
}

// TestCanAccessLapsedPremiumDenied verifies that the premium flag alone is not
// trusted when premium_until has passed.
func TestCanAccessLapsedPremiumDenied(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	lapsed := time.Now().Add(-time.Hour)
	users.On("GetByID", mock.Anything, "user-1").Return(&models.User{
		ID: "user-1", Premium: true, PremiumPlan: models.PlanMonthly, PremiumUntil: &lapsed,
	}, nil)

	decision, err := svc.CanAccessFeature(context.Background(), "user-1", "media_download", "")
	require.NoError(t, err)
	assert.False(t, decision.CanAccess)
}

// TestCanAccessBothPremiumFeature verifies that shared features need both
// session participants subscribed.
func TestCanAccessBothPremiumFeature(t *testing.T) {
	users := new(MockUserStore)
	sessions := new(MockSessionStore)
	svc := services.NewPremiumService(users, sessions)

	users.On("GetByID", mock.Anything, "creator").Return(premiumUser("creator"), nil)
	users.On("GetByID", mock.Anything, "partner").Return(freeUser("partner"), nil)
	sessions.On("GetByCode", mock.Anything, "ABC234").Return(testSession("creator", "partner"), nil)

	decision, err := svc.CanAccessFeature(context.Background(), "creator", "video_messages", "ABC234")
	require.NoError(t, err)

	assert.False(t, decision.CanAccess)
	assert.Equal(t, services.ReasonPartnerPremiumRequired, decision.Reason)
}

// TestCanAccessBothPremiumGranted verifies the happy path for shared features.
func TestCanAccessBothPremiumGranted(t *testing.T) {
	users := new(MockUserStore)
	sessions := new(MockSessionStore)
	svc := services.NewPremiumService(users, sessions)

	users.On("GetByID", mock.Anything, "creator").Return(premiumUser("creator"), nil)
	users.On("GetByID", mock.Anything, "partner").Return(premiumUser("partner"), nil)
	sessions.On("GetByCode", mock.Anything, "ABC234").Return(testSession("creator", "partner"), nil)

	decision, err := svc.CanAccessFeature(context.Background(), "creator", "audio_messages", "ABC234")
	require.NoError(t, err)
	assert.True(t, decision.CanAccess)
}

// TestCanAccessBothPremiumStranger verifies that a non-participant cannot use
// someone else's session code to probe a shared feature.
func TestCanAccessBothPremiumStranger(t *testing.T) {
	users := new(MockUserStore)
	sessions := new(MockSessionStore)
	svc := services.NewPremiumService(users, sessions)

	users.On("GetByID", mock.Anything, "stranger").Return(premiumUser("stranger"), nil)
	sessions.On("GetByCode", mock.Anything, "ABC234").Return(testSession("creator", "partner"), nil)

	_, err := svc.CanAccessFeature(context.Background(), "stranger", "video_messages", "ABC234")
	assert.ErrorIs(t, err, models.ErrNotParticipant)
}

// TestCanAccessBothPremiumNoPartner verifies that a session still waiting for
// a partner denies shared features.
func TestCanAccessBothPremiumNoPartner(t *testing.T) {
	users := new(MockUserStore)
	sessions := new(MockSessionStore)
	svc := services.NewPremiumService(users, sessions)

	users.On("GetByID", mock.Anything, "creator").Return(premiumUser("creator"), nil)
	sessions.On("GetByCode", mock.Anything, "ABC234").Return(testSession("creator", ""), nil)

	decision, err := svc.CanAccessFeature(context.Background(), "creator", "video_messages", "ABC234")
	require.NoError(t, err)

	assert.False(t, decision.CanAccess)
	assert.Equal(t, services.ReasonPartnerPremiumRequired, decision.Reason)
}

// TestApplyBillingEventPurchase verifies that a purchase activates premium
// with the plan and expiry from the event.
func TestApplyBillingEventPurchase(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	expiry := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Millisecond)
	users.On("SetPremium", mock.Anything, "user-1", true, models.PlanMonthly,
		mock.MatchedBy(func(until *time.Time) bool {
			return until != nil && until.Equal(expiry)
		})).Return(nil)

	err := svc.ApplyBillingEvent(context.Background(), services.BillingEvent{
		Type:           "purchase",
		UserID:         "user-1",
		Plan:           models.PlanMonthly,
		ExpirationAtMs: expiry.UnixMilli(),
	})
	require.NoError(t, err)
	users.AssertExpectations(t)
}

// TestApplyBillingEventUnknownPlan verifies that a purchase with an invalid
// plan is rejected.
func TestApplyBillingEventUnknownPlan(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	err := svc.ApplyBillingEvent(context.Background(), services.BillingEvent{
		Type: "purchase", UserID: "user-1", Plan: "lifetime",
	})
	assert.Error(t, err)
	users.AssertNotCalled(t, "SetPremium", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestApplyBillingEventCancellationKeepsAccess verifies that cancellation does
// not revoke anything: access runs until the paid period ends.
func TestApplyBillingEventCancellationKeepsAccess(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	err := svc.ApplyBillingEvent(context.Background(), services.BillingEvent{
		Type: "cancellation", UserID: "user-1",
	})
	require.NoError(t, err)
	users.AssertNotCalled(t, "SetPremium", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestApplyBillingEventExpiration verifies that expiration clears the premium
// state entirely.
func TestApplyBillingEventExpiration(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	users.On("SetPremium", mock.Anything, "user-1", false, models.PlanNone, (*time.Time)(nil)).Return(nil)

	err := svc.ApplyBillingEvent(context.Background(), services.BillingEvent{
		Type: "expiration", UserID: "user-1",
	})
	require.NoError(t, err)
	users.AssertExpectations(t)
}

// TestReconcileLapsed verifies that reconciliation reports how many users were
// deactivated.
func TestReconcileLapsed(t *testing.T) {
	users := new(MockUserStore)
	svc := services.NewPremiumService(users, new(MockSessionStore))

	users.On("DeactivateLapsed", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(7), nil)

	n, err := svc.ReconcileLapsed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
