package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/domain"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/validation"

	"github.com/rs/zerolog"
)

const googleProviderID = "google.com"

// UserService signs chats in and out and keeps the session, the marketplace
// user record and the local chat link in step.
type UserService struct {
	provider  domain.AuthProvider
	clients   Clients
	sessions  domain.SessionRepository
	accounts  domain.AccountRepository
	validator *validation.Validator
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewUserService(provider domain.AuthProvider, clients Clients, sessions domain.SessionRepository, accounts domain.AccountRepository, validator *validation.Validator, logger *zerolog.Logger) *UserService {
	return &UserService{
		provider:  provider,
		clients:   clients,
		sessions:  sessions,
		accounts:  accounts,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *UserService) SignUp(ctx context.Context, chatID int64, username string, form validation.SignUpForm, photoURL string) (*models.Session, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.Name = strings.TrimSpace(form.Name)
	if err := s.validator.SignUp(form); err != nil {
		return nil, err
	}
	sess, err := s.provider.SignUp(ctx, form.Email, form.Password, form.Name, photoURL)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, chatID, username, sess, true)
}

func (s *UserService) SignIn(ctx context.Context, chatID int64, username, email, password string) (*models.Session, error) {
	sess, err := s.provider.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, chatID, username, sess, false)
}

// SignInWithGoogle finishes the federated flow with the id token obtained
// by the OAuth callback.
func (s *UserService) SignInWithGoogle(ctx context.Context, chatID int64, idToken string) (*models.Session, error) {
	sess, err := s.provider.SignInWithIdP(ctx, idToken, googleProviderID)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, chatID, "", sess, false)
}

// establish records the user with the API, resolves the role and stores the
// session for the chat.
func (s *UserService) establish(ctx context.Context, chatID int64, username string, sess *models.Session, created bool) (*models.Session, error) {
	now := s.now()
	if sess.LastLoginAt.IsZero() {
		sess.LastLoginAt = now
	}
	if created && sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}

	client := s.clients.WithSession(sess)
	user := models.User{
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		PhotoURL:    sess.PhotoURL,
		LastLoginAt: sess.LastLoginAt,
	}
	if created {
		user.Role = models.RoleCustomer
		user.CreatedAt = sess.CreatedAt
	}
	if err := client.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	role, err := client.UserRole(ctx, sess.Email)
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	if _, err := lifecycle.ParseActor(role); err != nil {
		s.logger.Warn().Str("role", role).Str("email", sess.Email).Msg("unknown role, using customer")
		role = models.RoleCustomer
	}
	sess.Role = role

	if err := s.sessions.SetSession(ctx, chatID, sess); err != nil {
		return nil, err
	}
	if s.accounts != nil {
		err := s.accounts.LinkAccount(ctx, &models.Account{
			ChatID:      chatID,
			Username:    username,
			Email:       sess.Email,
			DisplayName: sess.DisplayName,
			Role:        role,
		})
		if err != nil {
			// Сессия уже сохранена, без привязки только не будет уведомлений
			s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("link account failed")
		}
	}

	s.logger.Info().Int64("chat_id", chatID).Str("email", sess.Email).Str("role", role).Msg("signed in")
	return sess, nil
}

// SignOut forgets the chat's session and its account link.
func (s *UserService) SignOut(ctx context.Context, chatID int64) error {
	if err := s.sessions.ClearSession(ctx, chatID); err != nil {
		return err
	}
	if s.accounts != nil {
		if err := s.accounts.UnlinkAccount(ctx, chatID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProfile changes the display name and photo with the provider and the API.
func (s *UserService) UpdateProfile(ctx context.Context, chatID int64, form validation.ProfileForm) (*models.Session, error) {
	sess, _, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.validator.Profile(form); err != nil {
		return nil, err
	}

	updated, err := s.provider.UpdateProfile(ctx, sess, form.DisplayName, form.PhotoURL)
	if err != nil {
		return nil, err
	}

	patch := api.UserPatch{DisplayName: updated.DisplayName, PhotoURL: updated.PhotoURL}
	if err := s.clients.WithSession(updated).UpdateUser(ctx, updated.Email, patch); err != nil {
		return nil, err
	}
	if err := s.sessions.SetSession(ctx, chatID, updated); err != nil {
		return nil, err
	}
	if s.accounts != nil {
		err := s.accounts.LinkAccount(ctx, &models.Account{
			ChatID:      chatID,
			Email:       updated.Email,
			DisplayName: updated.DisplayName,
			Role:        updated.Role,
		})
		if err != nil {
			s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("refresh account link failed")
		}
	}
	return updated, nil
}

// Session returns the chat's live session, nil when signed out or expired.
func (s *UserService) Session(ctx context.Context, chatID int64) (*models.Session, error) {
	sess, err := s.sessions.GetSession(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		return nil, nil
	}
	return sess, nil
}

// Role is the actor a chat works as; anonymous chats have none.
func (s *UserService) Role(ctx context.Context, chatID int64) (lifecycle.Actor, bool, error) {
	_, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		if errors.Is(err, ErrNotSignedIn) {
			return "", false, nil
		}
		return "", false, err
	}
	return actor, true, nil
}
