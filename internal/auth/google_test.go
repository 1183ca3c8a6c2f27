package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"decorbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGoogle_AuthURLCarriesState(t *testing.T) {
	g := NewGoogle(config.GoogleConfig{ClientID: "cid", RedirectURL: "https://bot.example.com/oauth/callback"})

	u, err := url.Parse(g.AuthURL("state-42"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-42", q.Get("state"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestGoogle_IDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"idt"}`))
	}))
	defer srv.Close()

	g := NewGoogle(config.GoogleConfig{ClientID: "cid", ClientSecret: "sec"}).
		WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"})

	tok, err := g.IDToken(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "idt", tok)
}

func TestGoogle_IDTokenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	g := NewGoogle(config.GoogleConfig{}).WithEndpoint(oauth2.Endpoint{TokenURL: srv.URL + "/token"})
	_, err := g.IDToken(context.Background(), "c")
	assert.Error(t, err)
}
