package auth

import (
	"context"
	"errors"
	"fmt"

	"decorbook/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const GoogleProviderID = "google.com"

// Google runs the OAuth2 authorization-code flow that feeds SignInWithIdP.
type Google struct {
	cfg *oauth2.Config
}

func NewGoogle(cfg config.GoogleConfig) *Google {
	return &Google{cfg: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}}
}

// WithEndpoint overrides the OAuth2 endpoint. Tests point it at httptest.
func (g *Google) WithEndpoint(ep oauth2.Endpoint) *Google {
	cp := *g.cfg
	cp.Endpoint = ep
	return &Google{cfg: &cp}
}

// AuthURL is the consent page the user opens. state ties the callback to a chat.
func (g *Google) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// IDToken exchanges the callback code and returns the OpenID id_token.
func (g *Google) IDToken(ctx context.Context, code string) (string, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oauth exchange: %w", err)
	}
	idToken, ok := tok.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errors.New("oauth exchange: no id_token in response")
	}
	return idToken, nil
}
