package worker

import (
	"context"
	"time"

	"duo-dare-backend/internal/models"
	"duo-dare-backend/internal/services"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const (
	TaskMediaSweep       = "media:sweep"
	TaskPremiumReconcile = "premium:reconcile"

	// Pending uploads older than this are treated as abandoned and their
	// blobs reclaimed.
	abandonedUploadAge = time.Hour

	sweepBatchSize = 200
)

// SweepStore lists and marks the media rows the sweeper operates on.
type SweepStore interface {
	ListSweepable(ctx context.Context, now, abandonedBefore time.Time, limit int) ([]*models.Message, error)
	MarkPurged(ctx context.Context, id string) error
}

// Sweeper runs the background jobs: deleting expired and orphaned media blobs
// (the authoritative expiry the clients only ever inferred) and deactivating
// lapsed premium subscriptions.
type Sweeper struct {
	messages SweepStore
	sessions services.SessionGetter
	storage  services.BlobStore
	premium  *services.PremiumService
	events   services.EventBus
	server   *asynq.Server
	client   *asynq.Client
	interval time.Duration
}

// NewSweeper creates the asynq server and client for the background jobs
func NewSweeper(
	messages SweepStore,
	sessions services.SessionGetter,
	storage services.BlobStore,
	premium *services.PremiumService,
	events services.EventBus,
	redisAddr, redisPassword string,
	redisDB int,
	interval time.Duration,
) *Sweeper {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword, DB: redisDB}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 3,
			"cleanup": 1,
		},
	})

	return &Sweeper{
		messages: messages,
		sessions: sessions,
		storage:  storage,
		premium:  premium,
		events:   events,
		server:   server,
		client:   asynq.NewClient(redisOpt),
		interval: interval,
	}
}

// Start registers the task handlers and begins periodic enqueueing. Returns
// once the worker is running; Stop shuts it down.
func (s *Sweeper) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskMediaSweep, s.handleMediaSweep)
	mux.HandleFunc(TaskPremiumReconcile, s.handlePremiumReconcile)

	go func() {
		if err := s.server.Run(mux); err != nil {
			log.Error().Err(err).Msg("Sweeper server stopped")
		}
	}()

	go s.enqueuePeriodically(ctx)

	log.Info().Dur("interval", s.interval).Msg("Sweeper started")
	return nil
}

// Stop shuts the worker down
func (s *Sweeper) Stop() {
	s.server.Shutdown()
	s.client.Close()
}

func (s *Sweeper) enqueuePeriodically(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.client.Enqueue(asynq.NewTask(TaskMediaSweep, nil), asynq.Queue("cleanup")); err != nil {
				log.Error().Err(err).Msg("Failed to enqueue media sweep")
			}
			if _, err := s.client.Enqueue(asynq.NewTask(TaskPremiumReconcile, nil), asynq.Queue("cleanup")); err != nil {
				log.Error().Err(err).Msg("Failed to enqueue premium reconciliation")
			}
		}
	}
}

// handleMediaSweep deletes the blobs behind expired media and abandoned
// pending uploads, marks the rows purged, and tells the session about it.
func (s *Sweeper) handleMediaSweep(ctx context.Context, _ *asynq.Task) error {
	now := time.Now()
	messages, err := s.messages.ListSweepable(ctx, now, now.Add(-abandonedUploadAge), sweepBatchSize)
	if err != nil {
		return err
	}

	purged := 0
	for _, msg := range messages {
		if msg.MediaKey != nil {
			if err := s.storage.Delete(ctx, *msg.MediaKey); err != nil {
				log.Error().Err(err).Str("key", *msg.MediaKey).Msg("Failed to delete expired blob")
				continue
			}
		}
		if err := s.messages.MarkPurged(ctx, msg.ID); err != nil {
			log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to mark media purged")
			continue
		}
		purged++
		s.notifyExpired(ctx, msg)
	}

	if purged > 0 {
		log.Info().Int("purged", purged).Msg("Media sweep completed")
	}
	return nil
}

func (s *Sweeper) notifyExpired(ctx context.Context, msg *models.Message) {
	if msg.Pending {
		// Abandoned uploads were never visible; nothing to announce.
		return
	}
	session, err := s.sessions.GetByCode(ctx, msg.SessionCode)
	if err != nil {
		return
	}
	targets := []string{session.CreatorID}
	if session.PartnerID != nil {
		targets = append(targets, *session.PartnerID)
	}
	event := services.Event{
		Type:        services.EventMediaExpired,
		SessionCode: msg.SessionCode,
		Targets:     targets,
		Data:        map[string]any{"message_id": msg.ID},
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to publish media expiry")
	}
}

// handlePremiumReconcile deactivates lapsed premium subscriptions
func (s *Sweeper) handlePremiumReconcile(ctx context.Context, _ *asynq.Task) error {
	n, err := s.premium.ReconcileLapsed(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("deactivated", n).Msg("Premium reconciliation completed")
	}
	return nil
}
