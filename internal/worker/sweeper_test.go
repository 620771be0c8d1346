package worker

import (
	"context"
	"testing"
	"time"

	"duo-dare-backend/internal/models"
	"duo-dare-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweepStore struct {
	sweepable []*models.Message
	purged    []string
}

func (f *fakeSweepStore) ListSweepable(ctx context.Context, now, abandonedBefore time.Time, limit int) ([]*models.Message, error) {
	return f.sweepable, nil
}

func (f *fakeSweepStore) MarkPurged(ctx context.Context, id string) error {
	f.purged = append(f.purged, id)
	return nil
}

type fakeSessionGetter struct {
	session *models.Session
}

func (f *fakeSessionGetter) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	return f.session, nil
}

type fakeBlobStore struct {
	deleted []string
}

func (f *fakeBlobStore) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	return "", nil
}

func (f *fakeBlobStore) ObjectURL(key string) string { return key }

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeEventBus struct {
	events []services.Event
}

func (f *fakeEventBus) Publish(ctx context.Context, event services.Event) error {
	f.events = append(f.events, event)
	return nil
}

func sweepableMessage(id, key string, pending bool) *models.Message {
	expires := time.Now().Add(-time.Minute)
	return &models.Message{
		ID:             id,
		SessionCode:    "ABC234",
		Type:           models.MessagePhoto,
		MediaKey:       &key,
		MediaExpiresAt: &expires,
		Pending:        pending,
	}
}

// TestMediaSweepPurgesExpired verifies that the sweep deletes the blob, marks
// the row purged, and announces the expiry to the session.
func TestMediaSweepPurgesExpired(t *testing.T) {
	partnerID := "partner"
	store := &fakeSweepStore{sweepable: []*models.Message{
		sweepableMessage("msg-1", "sessions/ABC234/media/a.jpg", false),
	}}
	storage := &fakeBlobStore{}
	bus := &fakeEventBus{}
	s := &Sweeper{
		messages: store,
		sessions: &fakeSessionGetter{session: &models.Session{
			Code: "ABC234", CreatorID: "creator", PartnerID: &partnerID,
		}},
		storage: storage,
		events:  bus,
	}

	err := s.handleMediaSweep(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"sessions/ABC234/media/a.jpg"}, storage.deleted)
	assert.Equal(t, []string{"msg-1"}, store.purged)
	require.Len(t, bus.events, 1)
	assert.Equal(t, services.EventMediaExpired, bus.events[0].Type)
	assert.ElementsMatch(t, []string{"creator", "partner"}, bus.events[0].Targets)
}

// TestMediaSweepSilentForAbandonedUploads verifies that reclaiming a pending
// upload announces nothing: the message was never visible.
func TestMediaSweepSilentForAbandonedUploads(t *testing.T) {
	store := &fakeSweepStore{sweepable: []*models.Message{
		sweepableMessage("msg-2", "sessions/ABC234/media/b.jpg", true),
	}}
	storage := &fakeBlobStore{}
	bus := &fakeEventBus{}
	s := &Sweeper{
		messages: store,
		sessions: &fakeSessionGetter{session: &models.Session{Code: "ABC234", CreatorID: "creator"}},
		storage:  storage,
		events:   bus,
	}

	err := s.handleMediaSweep(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"msg-2"}, store.purged)
	assert.Empty(t, bus.events)
}
