package services_test

import (
	"context"
	"time"

	"duo-dare-backend/internal/models"
	"duo-dare-backend/internal/services"

	"github.com/stretchr/testify/mock"
)

// MockSessionStore is a testify mock of the session persistence surface. It
// also satisfies the read-only SessionGetter used by the media and premium
// services.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStore) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) SetPartner(ctx context.Context, code, partnerID string) error {
	args := m.Called(ctx, code, partnerID)
	return args.Error(0)
}

func (m *MockSessionStore) AdvanceTurn(ctx context.Context, code string, role models.PlayerRole) (bool, error) {
	args := m.Called(ctx, code, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) ReplaceChallenge(ctx context.Context, code string, index int, challenge models.Challenge, role models.PlayerRole) error {
	args := m.Called(ctx, code, index, challenge, role)
	return args.Error(0)
}

func (m *MockSessionStore) IncrementBonus(ctx context.Context, code string, role models.PlayerRole, max int) (bool, error) {
	args := m.Called(ctx, code, role, max)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) ListCodesByUser(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

// MockChallengePool is a testify mock of the challenge catalog.
type MockChallengePool struct {
	mock.Mock
}

func (m *MockChallengePool) Draw(ctx context.Context, theme string, maxIntensity, n int) ([]models.PoolChallenge, error) {
	args := m.Called(ctx, theme, maxIntensity, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PoolChallenge), args.Error(1)
}

func (m *MockChallengePool) DrawOne(ctx context.Context, theme, targetGender string, maxIntensity int, excludeTexts []string) (*models.PoolChallenge, error) {
	args := m.Called(ctx, theme, targetGender, maxIntensity, excludeTexts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PoolChallenge), args.Error(1)
}

// MockUserStore is a testify mock of the user persistence surface. It also
// satisfies the premium service's store.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStore) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

func (m *MockUserStore) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	args := m.Called(ctx, userID, pushToken)
	return args.Error(0)
}

func (m *MockUserStore) SetPremium(ctx context.Context, userID string, premium bool, plan models.PremiumPlan, until *time.Time) error {
	args := m.Called(ctx, userID, premium, plan, until)
	return args.Error(0)
}

func (m *MockUserStore) DeactivateLapsed(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserStore) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockMessageStore is a testify mock of the message log persistence surface.
type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Create(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageStore) GetByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageStore) GetByUploadRequestID(ctx context.Context, requestID string) (*models.Message, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageStore) ListBySession(ctx context.Context, code string, limit, offset int) ([]*models.Message, int, error) {
	args := m.Called(ctx, code, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Message), args.Int(1), args.Error(2)
}

func (m *MockMessageStore) Publish(ctx context.Context, requestID, mediaURL string, publishedAt, expiresAt time.Time) error {
	args := m.Called(ctx, requestID, mediaURL, publishedAt, expiresAt)
	return args.Error(0)
}

func (m *MockMessageStore) MarkRead(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockMessageStore) MarkDownloaded(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBlobStore is a testify mock of the object storage surface.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) ObjectURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// fakeBus records published events for assertions.
type fakeBus struct {
	events []services.Event
}

func (b *fakeBus) Publish(ctx context.Context, event services.Event) error {
	b.events = append(b.events, event)
	return nil
}

// fakePresence reports online status from a fixed set.
type fakePresence struct {
	online map[string]bool
}

func (p *fakePresence) IsOnline(userID string) bool {
	return p.online[userID]
}

// fakePusher counts push deliveries per user.
type fakePusher struct {
	turns    []string
	messages []string
}

func (p *fakePusher) NotifyTurn(ctx context.Context, user *models.User, sessionCode string) {
	p.turns = append(p.turns, user.ID)
}

func (p *fakePusher) NotifyNewMessage(ctx context.Context, user *models.User, sessionCode string) {
	p.messages = append(p.messages, user.ID)
}

// fakeKeyLister returns a fixed set of media keys.
type fakeKeyLister struct {
	keys []string
}

func (l *fakeKeyLister) ListMediaKeysBySession(ctx context.Context, code string) ([]string, error) {
	return l.keys, nil
}
