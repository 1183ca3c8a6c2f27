package repository

import (
	"context"
	"sync"
	"time"

	"decorbook/internal/models"
)

// MemoryStateRepository is the in-process store used when Redis is absent or down.
type MemoryStateRepository struct {
	states      sync.Map
	sessions    sync.Map
	oauthStates sync.Map
	rateLimits  sync.Map
	ttl         time.Duration
	now         func() time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemoryStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	val, ok := r.states.Load(userID)
	if !ok {
		return nil, nil
	}
	return val.(*models.UserState), nil
}

func (r *MemoryStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	r.states.Store(state.UserID, state)
	return nil
}

func (r *MemoryStateRepository) ClearState(ctx context.Context, userID int64) error {
	r.states.Delete(userID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}

func (r *MemoryStateRepository) GetSession(ctx context.Context, chatID int64) (*models.Session, error) {
	val, ok := r.sessions.Load(chatID)
	if !ok {
		return nil, nil
	}
	sess := val.(*models.Session)
	if sess.Expired(r.now()) {
		r.sessions.Delete(chatID)
		return nil, nil
	}
	return sess, nil
}

func (r *MemoryStateRepository) SetSession(ctx context.Context, chatID int64, session *models.Session) error {
	r.sessions.Store(chatID, session)
	return nil
}

func (r *MemoryStateRepository) ClearSession(ctx context.Context, chatID int64) error {
	r.sessions.Delete(chatID)
	return nil
}

type oauthEntry struct {
	chatID    int64
	expiresAt time.Time
}

func (r *MemoryStateRepository) SaveOAuthState(ctx context.Context, state string, chatID int64) error {
	r.oauthStates.Store(state, oauthEntry{chatID: chatID, expiresAt: r.now().Add(oauthStateTTL)})
	return nil
}

func (r *MemoryStateRepository) TakeOAuthState(ctx context.Context, state string) (int64, error) {
	val, ok := r.oauthStates.LoadAndDelete(state)
	if !ok {
		return 0, ErrUnknownOAuthState
	}
	entry := val.(oauthEntry)
	if r.now().After(entry.expiresAt) {
		return 0, ErrUnknownOAuthState
	}
	return entry.chatID, nil
}
