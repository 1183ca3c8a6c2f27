package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"decorbook/internal/domain"
	"decorbook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository uses the primary store until it errors, then serves
// from the fallback and probes the primary again once a minute.
type FailoverStateRepository struct {
	primary   domain.Store
	fallback  domain.Store
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of the last failed probe
}

func NewFailoverStateRepository(primary, fallback domain.Store, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Degraded reports whether calls currently go to the fallback.
func (r *FailoverStateRepository) Degraded() bool {
	return r.isDown.Load()
}

// usePrimary decides whether the next call should try the primary store.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverStateRepository) markDown(err error) {
	if !r.isDown.Load() {
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	}
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

// run tries the primary when allowed and falls back on error.
func run[T any](r *FailoverStateRepository, primary, fallback func(domain.Store) (T, error)) (T, error) {
	if r.usePrimary() {
		v, err := primary(r.primary)
		if err == nil || errors.Is(err, ErrUnknownOAuthState) {
			r.markUp()
			return v, err
		}
		r.markDown(err)
	}
	return fallback(r.fallback)
}

func (r *FailoverStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	call := func(s domain.Store) (*models.UserState, error) { return s.GetState(ctx, userID) }
	return run(r, call, call)
}

func (r *FailoverStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	call := func(s domain.Store) (struct{}, error) { return struct{}{}, s.SetState(ctx, state) }
	_, err := run(r, call, call)
	return err
}

func (r *FailoverStateRepository) ClearState(ctx context.Context, userID int64) error {
	call := func(s domain.Store) (struct{}, error) { return struct{}{}, s.ClearState(ctx, userID) }
	_, err := run(r, call, call)
	return err
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	call := func(s domain.Store) (bool, error) { return s.CheckRateLimit(ctx, userID, limit, window) }
	return run(r, call, call)
}

func (r *FailoverStateRepository) GetSession(ctx context.Context, chatID int64) (*models.Session, error) {
	call := func(s domain.Store) (*models.Session, error) { return s.GetSession(ctx, chatID) }
	return run(r, call, call)
}

func (r *FailoverStateRepository) SetSession(ctx context.Context, chatID int64, session *models.Session) error {
	call := func(s domain.Store) (struct{}, error) { return struct{}{}, s.SetSession(ctx, chatID, session) }
	_, err := run(r, call, call)
	return err
}

func (r *FailoverStateRepository) ClearSession(ctx context.Context, chatID int64) error {
	// Sign-out clears both stores.
	_ = r.fallback.ClearSession(ctx, chatID)
	call := func(s domain.Store) (struct{}, error) { return struct{}{}, s.ClearSession(ctx, chatID) }
	noop := func(domain.Store) (struct{}, error) { return struct{}{}, nil }
	_, err := run(r, call, noop)
	return err
}

func (r *FailoverStateRepository) SaveOAuthState(ctx context.Context, state string, chatID int64) error {
	call := func(s domain.Store) (struct{}, error) { return struct{}{}, s.SaveOAuthState(ctx, state, chatID) }
	_, err := run(r, call, call)
	return err
}

func (r *FailoverStateRepository) TakeOAuthState(ctx context.Context, state string) (int64, error) {
	call := func(s domain.Store) (int64, error) { return s.TakeOAuthState(ctx, state) }
	return run(r, call, call)
}
