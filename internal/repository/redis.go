package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"decorbook/internal/config"
	"decorbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrUnknownOAuthState is returned for a callback state that was never issued or already used.
var ErrUnknownOAuthState = errors.New("unknown or expired oauth state")

const oauthStateTTL = 10 * time.Minute

type RedisStateRepository struct {
	client     *redis.Client
	ttl        time.Duration
	sessionTTL time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisStateRepository(client *redis.Client, ttl, sessionTTL time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client:     client,
		ttl:        ttl,
		sessionTTL: sessionTTL,
	}
}

func stateKey(userID int64) string   { return fmt.Sprintf("user_state:%d", userID) }
func sessionKey(chatID int64) string { return fmt.Sprintf("session:%d", chatID) }
func oauthKey(state string) string   { return "oauth_state:" + state }

func (r *RedisStateRepository) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	var state models.UserState
	found, err := r.getJSON(ctx, stateKey(userID), &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *RedisStateRepository) SetState(ctx context.Context, state *models.UserState) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.setJSON(ctx, stateKey(state.UserID), state, r.ttl)
}

func (r *RedisStateRepository) ClearState(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state from redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%d", userID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (r *RedisStateRepository) GetSession(ctx context.Context, chatID int64) (*models.Session, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	var sess models.Session
	found, err := r.getJSON(ctx, sessionKey(chatID), &sess)
	if err != nil || !found {
		return nil, err
	}
	return &sess, nil
}

// SetSession stores the session until the shorter of the configured TTL and
// the token expiry.
func (r *RedisStateRepository) SetSession(ctx context.Context, chatID int64, session *models.Session) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	ttl := r.sessionTTL
	if !session.ExpiresAt.IsZero() {
		if left := time.Until(session.ExpiresAt); left > 0 && (ttl <= 0 || left < ttl) {
			ttl = left
		}
	}
	return r.setJSON(ctx, sessionKey(chatID), session, ttl)
}

func (r *RedisStateRepository) ClearSession(ctx context.Context, chatID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) SaveOAuthState(ctx context.Context, state string, chatID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.client.Set(ctx, oauthKey(state), chatID, oauthStateTTL).Err()
}

// TakeOAuthState resolves a callback state to its chat and forgets it.
func (r *RedisStateRepository) TakeOAuthState(ctx context.Context, state string) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.GetDel(ctx, oauthKey(state)).Result()
	if err == redis.Nil {
		return 0, ErrUnknownOAuthState
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read oauth state: %w", err)
	}
	return strconv.ParseInt(val, 10, 64)
}

func (r *RedisStateRepository) getJSON(ctx context.Context, key string, out any) (bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStateRepository) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
