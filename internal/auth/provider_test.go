package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"decorbook/internal/config"
	"decorbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "ann@example.com",
		"exp":   exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func newTestProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewProvider(config.AuthConfig{BaseURL: srv.URL + "/v1", APIKey: "k"})
}

func TestProvider_SignUpSetsProfile(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, exp)
	var calls []string

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, strings.TrimPrefix(r.URL.Path, "/v1/"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/v1/accounts:signUp":
			assert.Equal(t, "ann@example.com", body["email"])
			_ = json.NewEncoder(w).Encode(map[string]string{
				"idToken": token, "refreshToken": "r1", "email": "ann@example.com", "expiresIn": "3600",
			})
		case "/v1/accounts:update":
			assert.Equal(t, token, body["idToken"])
			assert.Equal(t, "Ann", body["displayName"])
			_ = json.NewEncoder(w).Encode(map[string]string{
				"displayName": "Ann", "photoUrl": "https://img/ann.png", "email": "ann@example.com",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sess, err := p.SignUp(context.Background(), "ann@example.com", "secret1", "Ann", "https://img/ann.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts:signUp", "accounts:update"}, calls)
	assert.Equal(t, "Ann", sess.DisplayName)
	assert.Equal(t, "https://img/ann.png", sess.PhotoURL)
	assert.Equal(t, token, sess.AccessToken)
	assert.Equal(t, "r1", sess.RefreshToken)
	assert.True(t, sess.ExpiresAt.Equal(exp))
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestProvider_SignInError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
	})

	_, err := p.SignIn(context.Background(), "ann@example.com", "bad")
	require.Error(t, err)
	assert.True(t, IsCode(err, "INVALID_LOGIN_CREDENTIALS"))
	assert.Equal(t, "Invalid email or password.", Message(err))
}

func TestProvider_SignInFallsBackToExpiresIn(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"idToken": "opaque", "expiresIn": "600", "email": "a@b.c"})
	})
	p.now = func() time.Time { return now }

	sess, err := p.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), sess.ExpiresAt)
	assert.Equal(t, now, sess.LastLoginAt)
}

func TestProvider_SignInWithIdP(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithIdp", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["postBody"], "providerId=google.com")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken": "t", "email": "g@example.com", "displayName": "G", "profilePicture": "https://img/g.png",
		})
	})

	sess, err := p.SignInWithIdP(context.Background(), "google-id-token", GoogleProviderID)
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", sess.Email)
	assert.Equal(t, "https://img/g.png", sess.PhotoURL)
}

func TestProvider_UpdateProfileRequiresSession(t *testing.T) {
	p := NewProvider(config.AuthConfig{BaseURL: "http://unused"})
	_, err := p.UpdateProfile(context.Background(), &models.Session{}, "x", "")
	assert.Equal(t, "Please sign in first.", Message(err))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Password should be at least 6 characters.",
		Message(parseError(400, []byte(`{"error":{"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`))))
	assert.Equal(t, fallbackMessage, Message(parseError(500, []byte(`not json`))))
	assert.Equal(t, fallbackMessage, Message(assert.AnError))
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	got, err := ExpiresAt(signedToken(t, exp))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	_, err = ExpiresAt("")
	assert.ErrorIs(t, err, ErrNoExpiry)

	_, err = ExpiresAt("not.a.jwt")
	assert.Error(t, err)
}
