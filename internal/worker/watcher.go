package worker

import (
	"context"
	"errors"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	"github.com/rs/zerolog"
)

// BookingSource lists the bookings a chat's role can see.
type BookingSource interface {
	ListFor(ctx context.Context, chatID int64) ([]models.Booking, error)
}

type AccountLister interface {
	ListAccounts(ctx context.Context) ([]*models.Account, error)
}

// WatchStore remembers the last status each chat was told about.
type WatchStore interface {
	WatchedStatuses(ctx context.Context, chatID int64) (map[string]string, error)
	SaveWatchedStatus(ctx context.Context, chatID int64, bookingID, status string) error
	ForgetWatched(ctx context.Context, chatID int64, keep map[string]struct{}) error
}

// Notifier tells a chat that one of its bookings moved.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, chatID int64, booking models.Booking, from lifecycle.Status)
}

// StatusWatcher polls the server for status changes made elsewhere (by the
// admin, the decorator, or the web client) and notifies linked chats.
type StatusWatcher struct {
	accounts AccountLister
	bookings BookingSource
	store    WatchStore
	notifier Notifier
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger
}

func NewStatusWatcher(accounts AccountLister, bookings BookingSource, store WatchStore, notifier Notifier,
	interval time.Duration, retry RetryPolicy, logger *zerolog.Logger,
) *StatusWatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatusWatcher{
		accounts: accounts,
		bookings: bookings,
		store:    store,
		notifier: notifier,
		interval: interval,
		retry:    retry,
		logger:   logger,
	}
}

// Start polls until ctx is done. After a failed poll the next one waits
// according to the retry policy instead of the regular interval.
func (w *StatusWatcher) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("status watcher started")
	defer w.logger.Info().Msg("status watcher stopped")

	failures := 0
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		delay := w.interval
		if err := w.Poll(ctx); err != nil {
			failures++
			delay = w.retry.NextDelay(failures)
			w.logger.Warn().Err(err).Int("failures", failures).Dur("retry_in", delay).Msg("status poll failed")
		} else {
			failures = 0
		}
		timer.Reset(delay)
	}
}

// Poll checks every linked chat once. It returns the last fetch error, if
// any; chats whose session has expired are skipped silently.
func (w *StatusWatcher) Poll(ctx context.Context) error {
	accounts, err := w.accounts.ListAccounts(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for _, acc := range accounts {
		if err := w.pollChat(ctx, acc.ChatID); err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				continue
			}
			w.logger.Debug().Err(err).Int64("chat_id", acc.ChatID).Msg("poll chat")
			lastErr = err
		}
	}
	return lastErr
}

func (w *StatusWatcher) pollChat(ctx context.Context, chatID int64) error {
	bookings, err := w.bookings.ListFor(ctx, chatID)
	if err != nil {
		return err
	}
	seen, err := w.store.WatchedStatuses(ctx, chatID)
	if err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		keep[b.ID] = struct{}{}
		prev, known := seen[b.ID]
		if known && prev == string(b.Status) {
			continue
		}
		// first sighting only seeds the table
		if known {
			w.notifier.NotifyStatusChange(ctx, chatID, b, lifecycle.Status(prev))
		}
		if err := w.store.SaveWatchedStatus(ctx, chatID, b.ID, string(b.Status)); err != nil {
			return err
		}
	}
	return w.store.ForgetWatched(ctx, chatID, keep)
}
