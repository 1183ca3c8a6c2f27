package api

import (
	"context"

	"decorbook/internal/models"
)

// SessionSource yields the signed-in user's session for a request.
type SessionSource interface {
	Session(ctx context.Context) (*models.Session, error)
}

// SessionFunc adapts a function to SessionSource.
type SessionFunc func(ctx context.Context) (*models.Session, error)

func (f SessionFunc) Session(ctx context.Context) (*models.Session, error) {
	return f(ctx)
}

// StaticSession always returns s.
func StaticSession(s *models.Session) SessionSource {
	return SessionFunc(func(context.Context) (*models.Session, error) {
		return s, nil
	})
}
