package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/domain"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
)

var (
	ErrNotSignedIn = fmt.Errorf("%w: sign in first", api.ErrUnauthorized)
	ErrNotOwner    = errors.New("booking belongs to another customer")
	ErrNotEditable = errors.New("booking can only change while pending and unpaid")
	ErrAdminOnly   = errors.New("admin role required")
)

// Clients hands out API clients: an anonymous one for public reads and one
// bound to the session of a chat.
type Clients interface {
	Public() domain.MarketplaceAPI
	ForChat(chatID int64) domain.MarketplaceAPI
	WithSession(sess *models.Session) domain.MarketplaceAPI
}

// ClientFactory builds per-chat clients over one shared public client.
type ClientFactory struct {
	public   *api.Client
	sessions domain.SessionRepository
	now      func() time.Time
}

func NewClientFactory(public *api.Client, sessions domain.SessionRepository) *ClientFactory {
	return &ClientFactory{public: public, sessions: sessions, now: time.Now}
}

func (f *ClientFactory) Public() domain.MarketplaceAPI {
	return f.public
}

// ForChat returns a client that reads the chat's session on every request,
// so a sign-out or a new sign-in takes effect immediately.
func (f *ClientFactory) ForChat(chatID int64) domain.MarketplaceAPI {
	return f.public.WithSession(api.SessionFunc(func(ctx context.Context) (*models.Session, error) {
		sess, err := f.sessions.GetSession(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if sess.Expired(f.now()) {
			return nil, ErrNotSignedIn
		}
		return sess, nil
	}))
}

// WithSession binds a client to a session that is not stored yet, as during sign-in.
func (f *ClientFactory) WithSession(sess *models.Session) domain.MarketplaceAPI {
	return f.public.WithSession(api.StaticSession(sess))
}

// sessionOf loads the live session of a chat and the role it acts with.
func sessionOf(ctx context.Context, sessions domain.SessionRepository, chatID int64, now time.Time) (*models.Session, lifecycle.Actor, error) {
	sess, err := sessions.GetSession(ctx, chatID)
	if err != nil {
		return nil, "", err
	}
	if sess.Expired(now) {
		return nil, "", ErrNotSignedIn
	}
	actor, err := lifecycle.ParseActor(sess.Role)
	if err != nil {
		return nil, "", err
	}
	return sess, actor, nil
}
