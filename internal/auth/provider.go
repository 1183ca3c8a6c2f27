package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"decorbook/internal/config"
	"decorbook/internal/models"
)

// Provider is a client of the identity-toolkit style auth REST API.
type Provider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

func NewProvider(cfg config.AuthConfig) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	ProfilePic   string `json:"profilePicture"`
	LocalID      string `json:"localId"`
}

// SignUp registers an email/password account and sets its profile.
func (p *Provider) SignUp(ctx context.Context, email, password, displayName, photoURL string) (*models.Session, error) {
	var resp tokenResponse
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := p.call(ctx, "accounts:signUp", body, &resp); err != nil {
		return nil, err
	}

	now := p.now()
	sess := p.session(resp, now)
	sess.CreatedAt = now

	if displayName != "" || photoURL != "" {
		updated, err := p.UpdateProfile(ctx, sess, displayName, photoURL)
		if err != nil {
			return nil, err
		}
		sess = updated
	}
	return sess, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var resp tokenResponse
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := p.call(ctx, "accounts:signInWithPassword", body, &resp); err != nil {
		return nil, err
	}
	return p.session(resp, p.now()), nil
}

// SignInWithIdP exchanges a federated id token (for example from Google)
// for a provider session.
func (p *Provider) SignInWithIdP(ctx context.Context, idToken, providerID string) (*models.Session, error) {
	post := url.Values{"id_token": {idToken}, "providerId": {providerID}}
	body := map[string]any{
		"postBody":            post.Encode(),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}
	var resp tokenResponse
	if err := p.call(ctx, "accounts:signInWithIdp", body, &resp); err != nil {
		return nil, err
	}
	return p.session(resp, p.now()), nil
}

// UpdateProfile changes display name and photo and returns the refreshed session.
func (p *Provider) UpdateProfile(ctx context.Context, sess *models.Session, displayName, photoURL string) (*models.Session, error) {
	if sess == nil || sess.AccessToken == "" {
		return nil, &Error{Code: codeNotSignedIn}
	}
	body := map[string]any{"idToken": sess.AccessToken, "returnSecureToken": true}
	if displayName != "" {
		body["displayName"] = displayName
	}
	if photoURL != "" {
		body["photoUrl"] = photoURL
	}
	var resp tokenResponse
	if err := p.call(ctx, "accounts:update", body, &resp); err != nil {
		return nil, err
	}

	out := *sess
	if resp.DisplayName != "" {
		out.DisplayName = resp.DisplayName
	}
	if resp.PhotoURL != "" {
		out.PhotoURL = resp.PhotoURL
	}
	if resp.IDToken != "" {
		out.AccessToken = resp.IDToken
		out.ExpiresAt = expiry(resp.IDToken, resp.ExpiresIn, p.now())
	}
	if resp.RefreshToken != "" {
		out.RefreshToken = resp.RefreshToken
	}
	return &out, nil
}

func (p *Provider) session(resp tokenResponse, now time.Time) *models.Session {
	photo := resp.PhotoURL
	if photo == "" {
		photo = resp.ProfilePic
	}
	return &models.Session{
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     photo,
		AccessToken:  resp.IDToken,
		RefreshToken: resp.RefreshToken,
		LastLoginAt:  now,
		ExpiresAt:    expiry(resp.IDToken, resp.ExpiresIn, now),
	}
}

// expiry prefers the token's own exp claim and falls back to expiresIn seconds.
func expiry(token, expiresIn string, now time.Time) time.Time {
	if exp, err := ExpiresAt(token); err == nil {
		return exp
	}
	if secs, err := strconv.Atoi(expiresIn); err == nil && secs > 0 {
		return now.Add(time.Duration(secs) * time.Second)
	}
	return time.Time{}
}

func (p *Provider) call(ctx context.Context, method string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/%s?key=%s", p.baseURL, method, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}
