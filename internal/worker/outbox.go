package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"decorbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const deadLetterKey = "outbox:deadletter"

// OutboxStore persists events waiting for redelivery. *database.DB implements it.
type OutboxStore interface {
	CreateOutboxMessage(ctx context.Context, msg *models.OutboxMessage) error
	PendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	UpdateOutboxStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// Publisher delivers one event to the broker. *events.Bridge implements it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, ts time.Time) error
}

// OutboxWorker redelivers events the broker bridge failed to publish.
type OutboxWorker struct {
	store        OutboxStore
	publisher    Publisher
	redis        *redis.Client
	retryPolicy  RetryPolicy
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
}

func NewOutboxWorker(store OutboxStore, publisher Publisher, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *OutboxWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &OutboxWorker{
		store:        store,
		publisher:    publisher,
		redis:        redisClient,
		retryPolicy:  retry,
		pollInterval: 2 * time.Second,
		batchSize:    20,
		logger:       logger,
	}
}

// Enqueue persists a failed event and schedules its first retry.
func (w *OutboxWorker) Enqueue(ctx context.Context, eventType string, payload []byte, cause error) error {
	if eventType == "" {
		return errors.New("event type is required")
	}
	next := time.Now().Add(w.retryPolicy.NextDelay(1))
	msg := models.OutboxMessage{
		EventType:   eventType,
		Payload:     string(payload),
		Status:      models.OutboxPending,
		NextRetryAt: &next,
	}
	if cause != nil {
		msg.LastError = cause.Error()
	}
	if err := w.store.CreateOutboxMessage(ctx, &msg); err != nil {
		return err
	}
	return nil
}

// Start runs the redelivery loop until ctx is done.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("outbox worker started")
	defer w.logger.Info().Msg("outbox worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	msgs, err := w.store.PendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("outbox: fetch pending")
		return
	}
	for i := range msgs {
		w.process(ctx, &msgs[i])
	}
}

func (w *OutboxWorker) process(ctx context.Context, msg *models.OutboxMessage) {
	err := w.publisher.Publish(ctx, msg.EventType, []byte(msg.Payload), msg.CreatedAt)
	if err != nil {
		w.retryOrFail(ctx, msg, err)
		return
	}
	if err := w.store.UpdateOutboxStatus(ctx, msg.ID, models.OutboxDelivered, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("id", msg.ID).Msg("outbox: mark delivered")
	}
}

func (w *OutboxWorker) retryOrFail(ctx context.Context, msg *models.OutboxMessage, cause error) {
	attempt := msg.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		if err := w.store.UpdateOutboxStatus(ctx, msg.ID, models.OutboxFailed, cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("id", msg.ID).Msg("outbox: mark failed")
		}
		w.pushDeadLetter(ctx, msg)
		return
	}

	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateOutboxStatus(ctx, msg.ID, models.OutboxRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("id", msg.ID).Msg("outbox: mark retry")
	}
}

func (w *OutboxWorker) pushDeadLetter(ctx context.Context, msg *models.OutboxMessage) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		w.logger.Error().Err(err).Int64("id", msg.ID).Msg("outbox: encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("id", msg.ID).Msg("outbox: deadletter push")
	}
}
