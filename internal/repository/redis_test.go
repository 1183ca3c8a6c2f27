package repository

import (
	"context"
	"testing"
	"time"

	"decorbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisStateRepository(client, time.Hour, 24*time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetState", func(t *testing.T) {
		state := &models.UserState{
			UserID:      123,
			CurrentStep: models.StateBookDate,
			TempData:    map[string]interface{}{"service_id": "s1"},
		}

		err := repo.SetState(ctx, state)
		require.NoError(t, err)

		got, err := repo.GetState(ctx, 123)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.UserID, got.UserID)
		assert.Equal(t, state.CurrentStep, got.CurrentStep)
		assert.Equal(t, "s1", got.GetString("service_id"))
	})

	t.Run("GetNonExistentState", func(t *testing.T) {
		got, err := repo.GetState(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearState", func(t *testing.T) {
		state := &models.UserState{UserID: 456, CurrentStep: "test"}
		require.NoError(t, repo.SetState(ctx, state))

		err := repo.ClearState(ctx, 456)
		require.NoError(t, err)

		got, _ := repo.GetState(ctx, 456)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(789)
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		// Third request (exceeds limit)
		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Session", func(t *testing.T) {
		sess := &models.Session{Email: "a@example.com", AccessToken: "tok", Role: models.RoleAdmin}
		require.NoError(t, repo.SetSession(ctx, 10, sess))

		got, err := repo.GetSession(ctx, 10)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "tok", got.AccessToken)
		assert.Equal(t, models.RoleAdmin, got.Role)
		assert.Equal(t, 24*time.Hour, s.TTL(sessionKey(10)))

		require.NoError(t, repo.ClearSession(ctx, 10))
		got, err = repo.GetSession(ctx, 10)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("SessionTTLFollowsTokenExpiry", func(t *testing.T) {
		sess := &models.Session{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, repo.SetSession(ctx, 11, sess))
		ttl := s.TTL(sessionKey(11))
		assert.LessOrEqual(t, ttl, time.Hour)
		assert.Greater(t, ttl, 50*time.Minute)
	})

	t.Run("OAuthState", func(t *testing.T) {
		require.NoError(t, repo.SaveOAuthState(ctx, "st-1", 77))

		chatID, err := repo.TakeOAuthState(ctx, "st-1")
		require.NoError(t, err)
		assert.Equal(t, int64(77), chatID)

		_, err = repo.TakeOAuthState(ctx, "st-1")
		assert.ErrorIs(t, err, ErrUnknownOAuthState)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisStateRepository(nil, time.Hour, time.Hour)
		_, err := repo.GetState(ctx, 123)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")

		_, err = repo.GetSession(ctx, 1)
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		err := Ping(ctx, client)
		assert.NoError(t, err)
	})

	t.Run("Close", func(t *testing.T) {
		err := Close(client)
		assert.NoError(t, err)
	})
}
