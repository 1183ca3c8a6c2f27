package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/domain"
	"decorbook/internal/events"
	"decorbook/internal/lifecycle"
	"decorbook/internal/metrics"
	"decorbook/internal/models"
	"decorbook/internal/validation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrUseAssign            = errors.New("decorators are assigned with AssignDecorator")
	ErrDecoratorUnavailable = errors.New("decorator is not active")
)

type BookingService struct {
	clients   Clients
	sessions  domain.SessionRepository
	validator *validation.Validator
	eventBus  domain.EventPublisher
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewBookingService(clients Clients, sessions domain.SessionRepository, validator *validation.Validator, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		clients:   clients,
		sessions:  sessions,
		validator: validator,
		eventBus:  eventBus,
		logger:    logger,
		now:       time.Now,
	}
}

// TransitionResult is what a chat sees after a successful status change.
type TransitionResult struct {
	Booking  models.Booking
	From     lifecycle.Status
	To       lifecycle.Status
	Bookings []models.Booking
	Notice   string
	// Refreshed is false when the booking could not be read back after the
	// change; Booking then holds the record as it was before the request.
	Refreshed bool
}

// Create books svc for the signed-in customer. The form is validated before
// any request is sent.
func (s *BookingService) Create(ctx context.Context, chatID int64, svc *models.Service, form validation.BookingForm) (*models.Booking, error) {
	sess, _, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.validator.Booking(form); err != nil {
		return nil, err
	}

	location := strings.TrimSpace(form.Location)
	if form.ServiceType == lifecycle.ServiceInStudio {
		location = ""
	}
	total := svc.Cost.Mul(decimal.NewFromInt(int64(form.TotalUnit)))

	client := s.clients.ForChat(chatID)
	id, err := client.CreateBooking(ctx, api.NewBooking{
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		ServiceCategory: svc.Category,
		TotalCost:       total.InexactFloat64(),
		TotalUnit:       form.TotalUnit,
		CustomerEmail:   sess.Email,
		CustomerName:    sess.DisplayName,
		ServiceType:     form.ServiceType,
		Location:        location,
		Date:            form.Date,
		Time:            form.Time,
		Notes:           strings.TrimSpace(form.Notes),
		Status:          lifecycle.StatusPending,
		PaymentStatus:   lifecycle.PaymentUnpaid,
	})
	if err != nil {
		return nil, err
	}

	booking, err := client.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload booking %s: %w", id, err)
	}

	s.publishEvent(events.EventBookingCreated, *booking, events.BookingEventPayload{ChatID: chatID, ChangedByEmail: sess.Email})
	return booking, nil
}

// Update applies an edit form to the customer's own pending, unpaid booking.
// The total is recomputed from the booking's unit price.
func (s *BookingService) Update(ctx context.Context, chatID int64, bookingID string, form validation.BookingForm) (*models.Booking, error) {
	sess, _, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.validator.Booking(form); err != nil {
		return nil, err
	}

	client := s.clients.ForChat(chatID)
	booking, err := s.ownEditable(ctx, client, sess, bookingID)
	if err != nil {
		return nil, err
	}

	location := strings.TrimSpace(form.Location)
	if form.ServiceType == lifecycle.ServiceInStudio {
		location = ""
	}
	notes := strings.TrimSpace(form.Notes)
	total := unitPrice(booking).Mul(decimal.NewFromInt(int64(form.TotalUnit))).InexactFloat64()

	patch := models.BookingPatch{
		Date:        &form.Date,
		Time:        &form.Time,
		TotalUnit:   &form.TotalUnit,
		TotalCost:   &total,
		ServiceType: &form.ServiceType,
		Location:    &location,
		Notes:       &notes,
	}
	if err := client.UpdateBooking(ctx, bookingID, patch); err != nil {
		return nil, err
	}

	updated, err := client.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("reload booking %s: %w", bookingID, err)
	}
	s.publishEvent(events.EventBookingUpdated, *updated, events.BookingEventPayload{ChatID: chatID, ChangedByEmail: sess.Email})
	return updated, nil
}

// Cancel deletes the customer's own pending, unpaid booking.
func (s *BookingService) Cancel(ctx context.Context, chatID int64, bookingID string) error {
	sess, _, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return err
	}

	client := s.clients.ForChat(chatID)
	booking, err := s.ownEditable(ctx, client, sess, bookingID)
	if err != nil {
		return err
	}
	if err := client.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}

	s.publishEvent(events.EventBookingCanceled, *booking, events.BookingEventPayload{ChatID: chatID, ChangedByEmail: sess.Email})
	return nil
}

// ListFor returns the bookings the chat's role works with: everything for an
// admin, assigned projects for a decorator, own bookings for a customer.
func (s *BookingService) ListFor(ctx context.Context, chatID int64) ([]models.Booking, error) {
	sess, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	return s.list(ctx, s.clients.ForChat(chatID), sess, actor)
}

func (s *BookingService) list(ctx context.Context, client domain.MarketplaceAPI, sess *models.Session, actor lifecycle.Actor) ([]models.Booking, error) {
	switch actor {
	case lifecycle.ActorAdmin:
		return client.AllBookings(ctx)
	case lifecycle.ActorDecorator:
		return client.DecoratorBookings(ctx, sess.Email)
	default:
		return client.MyBookings(ctx, sess.Email)
	}
}

func (s *BookingService) Get(ctx context.Context, chatID int64, bookingID string) (*models.Booking, error) {
	if _, _, err := sessionOf(ctx, s.sessions, chatID, s.now()); err != nil {
		return nil, err
	}
	return s.clients.ForChat(chatID).GetBooking(ctx, bookingID)
}

// Transition moves a booking one step along its lifecycle. The step is
// checked locally against the last fetched record; a refused step sends no
// request. On success the role's list is fetched again.
func (s *BookingService) Transition(ctx context.Context, chatID int64, bookingID string, action lifecycle.Action) (*TransitionResult, error) {
	if action == lifecycle.ActionAssign {
		return nil, ErrUseAssign
	}
	sess, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}

	client := s.clients.ForChat(chatID)
	booking, err := client.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := booking.Status
	next, err := lifecycle.NextState(from, action, lifecycle.TransitionContext{
		Actor:         actor,
		PaymentStatus: booking.PaymentStatus,
		ServiceType:   booking.ServiceType,
	})
	if err != nil {
		metrics.IncTransition(string(action), "refused")
		return nil, err
	}

	if err := client.UpdateBookingStatus(ctx, bookingID, next); err != nil {
		metrics.IncTransition(string(action), "failed")
		s.logger.Warn().Err(err).Str("booking_id", bookingID).Str("action", string(action)).Msg("status update failed")
		return nil, err
	}
	metrics.IncTransition(string(action), "ok")

	res := s.afterChange(ctx, client, sess, actor, *booking)
	res.From = from
	res.To = next
	res.Notice = fmt.Sprintf("%s: %s", booking.ServiceName, next.Label())

	s.publishEvent(events.EventBookingStatusChanged, res.Booking, events.BookingEventPayload{
		Status:         string(next),
		From:           string(from),
		Action:         string(action),
		ChangedBy:      string(actor),
		ChangedByEmail: sess.Email,
		ChatID:         chatID,
	})
	return res, nil
}

// AssignDecorator is the admin's pick of a decorator for a paid on-site
// booking; it moves the booking to decorator assigned.
func (s *BookingService) AssignDecorator(ctx context.Context, chatID int64, bookingID, decoratorID string) (*TransitionResult, error) {
	sess, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	if actor != lifecycle.ActorAdmin {
		return nil, ErrAdminOnly
	}

	client := s.clients.ForChat(chatID)
	booking, err := client.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.NextState(booking.Status, lifecycle.ActionAssign, lifecycle.TransitionContext{
		Actor:         actor,
		PaymentStatus: booking.PaymentStatus,
		ServiceType:   booking.ServiceType,
	})
	if err != nil {
		metrics.IncTransition(string(lifecycle.ActionAssign), "refused")
		return nil, err
	}

	decorator, err := s.findDecorator(ctx, client, decoratorID)
	if err != nil {
		return nil, err
	}

	assignment := models.Assignment{
		DecoratorID:    decorator.ID,
		DecoratorName:  decorator.Name,
		DecoratorEmail: decorator.Email,
		Status:         next,
	}
	if err := client.AssignDecorator(ctx, bookingID, assignment); err != nil {
		metrics.IncTransition(string(lifecycle.ActionAssign), "failed")
		return nil, err
	}
	metrics.IncTransition(string(lifecycle.ActionAssign), "ok")

	res := s.afterChange(ctx, client, sess, actor, *booking)
	res.From = lifecycle.StatusPending
	res.To = next
	res.Notice = fmt.Sprintf("%s assigned to %s", decorator.Name, booking.ServiceName)

	s.publishEvent(events.EventDecoratorAssigned, res.Booking, events.BookingEventPayload{
		Status:         string(next),
		DecoratorName:  decorator.Name,
		DecoratorEmail: decorator.Email,
		From:           string(lifecycle.StatusPending),
		Action:         string(lifecycle.ActionAssign),
		ChangedBy:      string(actor),
		ChangedByEmail: sess.Email,
		ChatID:         chatID,
	})
	return res, nil
}

// AvailableDecorators lists the active decorators an admin can pick from.
func (s *BookingService) AvailableDecorators(ctx context.Context, chatID int64) ([]models.Decorator, error) {
	_, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	if actor != lifecycle.ActorAdmin {
		return nil, ErrAdminOnly
	}
	all, err := s.clients.ForChat(chatID).ListDecorators(ctx, models.DecoratorActive)
	if err != nil {
		return nil, err
	}
	out := make([]models.Decorator, 0, len(all))
	for _, d := range all {
		if d.Active() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *BookingService) findDecorator(ctx context.Context, client domain.MarketplaceAPI, id string) (*models.Decorator, error) {
	all, err := client.ListDecorators(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if !all[i].Active() {
			return nil, ErrDecoratorUnavailable
		}
		return &all[i], nil
	}
	return nil, fmt.Errorf("decorator %s: %w", id, api.ErrNotFound)
}

// afterChange re-fetches the actor's list and picks the changed booking out
// of it. A booking that left the list (a rejected project) is read by id.
// If neither read works, before is returned unchanged with Refreshed unset.
func (s *BookingService) afterChange(ctx context.Context, client domain.MarketplaceAPI, sess *models.Session, actor lifecycle.Actor, before models.Booking) *TransitionResult {
	res := &TransitionResult{Booking: before}

	list, err := s.list(ctx, client, sess, actor)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", before.ID).Msg("refresh after status change failed")
	}
	res.Bookings = list

	for _, b := range list {
		if b.ID == before.ID {
			res.Booking = b
			res.Refreshed = true
			return res
		}
	}

	fresh, err := client.GetBooking(ctx, before.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", before.ID).Msg("read back after status change failed")
		return res
	}
	res.Booking = *fresh
	res.Refreshed = true
	return res
}

func (s *BookingService) ownEditable(ctx context.Context, client domain.MarketplaceAPI, sess *models.Session, bookingID string) (*models.Booking, error) {
	booking, err := client.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(booking.CustomerEmail, sess.Email) {
		return nil, ErrNotOwner
	}
	if booking.Status != lifecycle.StatusPending || booking.PaymentStatus == lifecycle.PaymentPaid {
		return nil, ErrNotEditable
	}
	return booking, nil
}

func unitPrice(b *models.Booking) decimal.Decimal {
	if b.TotalUnit <= 0 {
		return b.TotalCost
	}
	return b.TotalCost.Div(decimal.NewFromInt(int64(b.TotalUnit)))
}

func (s *BookingService) publishEvent(eventType string, booking models.Booking, extra events.BookingEventPayload) {
	if s.eventBus == nil {
		return
	}

	payload := extra
	payload.BookingID = booking.ID
	payload.ServiceName = booking.ServiceName
	payload.CustomerEmail = booking.CustomerEmail
	// значения из extra описывают принятый сервером запрос и важнее прочитанной записи
	if payload.DecoratorEmail == "" {
		payload.DecoratorEmail = booking.DecoratorEmail
	}
	if payload.DecoratorName == "" {
		payload.DecoratorName = booking.DecoratorName
	}
	if payload.Status == "" {
		payload.Status = string(booking.Status)
	}
	payload.PaymentStatus = string(booking.PaymentStatus)
	payload.Date = booking.Date
	payload.Time = booking.Time

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
