package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/domain"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/validation"

	"github.com/rs/zerolog"
)

// CatalogService covers services and decorators: public browsing plus the
// admin's management actions.
type CatalogService struct {
	clients   Clients
	sessions  domain.SessionRepository
	validator *validation.Validator
	media     domain.MediaUploader
	pageSize  int
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewCatalogService(clients Clients, sessions domain.SessionRepository, validator *validation.Validator, media domain.MediaUploader, pageSize int, logger *zerolog.Logger) *CatalogService {
	if pageSize <= 0 {
		pageSize = models.DefaultPaginationSize
	}
	return &CatalogService{
		clients:   clients,
		sessions:  sessions,
		validator: validator,
		media:     media,
		pageSize:  pageSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Search lists one page of services. It is the function the search
// coordinator runs, so it must honour ctx cancellation.
func (s *CatalogService) Search(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = s.pageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.clients.Public().ListServices(ctx, f)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Service, error) {
	return s.clients.Public().GetService(ctx, id)
}

func (s *CatalogService) TopDecorators(ctx context.Context) ([]models.Decorator, error) {
	return s.clients.Public().TopDecorators(ctx)
}

// Decorators is the admin view of every decorator with its status.
func (s *CatalogService) Decorators(ctx context.Context, chatID int64) ([]models.Decorator, error) {
	if err := s.requireAdmin(ctx, chatID); err != nil {
		return nil, err
	}
	return s.clients.ForChat(chatID).ListDecorators(ctx, "")
}

// CreateService validates the form, uploads the optional image and creates
// the service. Cached public reads are dropped afterwards.
func (s *CatalogService) CreateService(ctx context.Context, chatID int64, form validation.ServiceForm, imageName string, image io.Reader) (*models.Service, error) {
	sess, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	if actor != lifecycle.ActorAdmin {
		return nil, ErrAdminOnly
	}
	if err := s.validator.Service(form); err != nil {
		return nil, err
	}

	payload := api.ServicePayload{
		Name:           strings.TrimSpace(form.Name),
		Category:       strings.TrimSpace(form.Category),
		Cost:           form.Cost,
		Unit:           strings.TrimSpace(form.Unit),
		Description:    strings.TrimSpace(form.Description),
		CreatedByEmail: sess.Email,
	}
	if image != nil && s.media != nil {
		link, err := s.media.Upload(ctx, imageName, image)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		payload.Image = link
	}

	client := s.clients.ForChat(chatID)
	svc, err := client.CreateService(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.clients.Public().InvalidateCache(ctx)

	s.logger.Info().Str("service_id", svc.ID).Str("name", svc.Name).Int64("chat_id", chatID).Msg("service created")
	return svc, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, chatID int64, serviceID string) error {
	if err := s.requireAdmin(ctx, chatID); err != nil {
		return err
	}
	if err := s.clients.ForChat(chatID).DeleteService(ctx, serviceID); err != nil {
		return err
	}
	s.clients.Public().InvalidateCache(ctx)
	return nil
}

// SetDecoratorStatus enables or disables a decorator.
func (s *CatalogService) SetDecoratorStatus(ctx context.Context, chatID int64, decoratorID, status string) error {
	if status != models.DecoratorActive && status != models.DecoratorDisabled {
		return fmt.Errorf("unknown decorator status %q", status)
	}
	if err := s.requireAdmin(ctx, chatID); err != nil {
		return err
	}
	if err := s.clients.ForChat(chatID).SetDecoratorStatus(ctx, decoratorID, status); err != nil {
		return err
	}
	s.clients.Public().InvalidateCache(ctx)
	return nil
}

func (s *CatalogService) requireAdmin(ctx context.Context, chatID int64) error {
	_, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return err
	}
	if actor != lifecycle.ActorAdmin {
		return ErrAdminOnly
	}
	return nil
}
