package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/config"
	"decorbook/internal/domain"
	"decorbook/internal/events"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	"github.com/rs/zerolog"
)

var ErrAlreadyPaid = errors.New("booking is already paid")

// PaymentService drives the hosted checkout. The client never decides
// whether a payment happened; it only relays the gate's session id.
type PaymentService struct {
	clients  Clients
	sessions domain.SessionRepository
	eventBus domain.EventPublisher
	config   config.PaymentConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewPaymentService(clients Clients, sessions domain.SessionRepository, eventBus domain.EventPublisher, cfg config.PaymentConfig, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{
		clients:  clients,
		sessions: sessions,
		eventBus: eventBus,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// StartCheckout opens a checkout session for the customer's own unpaid
// booking and returns the URL to send them to.
func (s *PaymentService) StartCheckout(ctx context.Context, chatID int64, bookingID string) (string, error) {
	sess, _, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return "", err
	}

	client := s.clients.ForChat(chatID)
	booking, err := client.GetBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(booking.CustomerEmail, sess.Email) {
		return "", ErrNotOwner
	}
	if booking.PaymentStatus == lifecycle.PaymentPaid {
		return "", ErrAlreadyPaid
	}
	if booking.Status != lifecycle.StatusPending {
		return "", ErrNotEditable
	}

	return client.CreateCheckoutSession(ctx, api.CheckoutRequest{
		BookingID:     booking.ID,
		ServiceName:   booking.ServiceName,
		Cost:          booking.TotalCost.InexactFloat64(),
		CustomerEmail: sess.Email,
		SuccessURL:    s.SuccessURL(chatID),
		CancelURL:     s.CancelURL(chatID),
		Currency:      s.config.Currency,
	})
}

// SuccessURL keeps the literal {CHECKOUT_SESSION_ID} placeholder the gate
// substitutes on redirect.
func (s *PaymentService) SuccessURL(chatID int64) string {
	return strings.TrimRight(s.config.PublicBaseURL, "/") +
		"/payment/success?session_id={CHECKOUT_SESSION_ID}&chat=" + strconv.FormatInt(chatID, 10)
}

func (s *PaymentService) CancelURL(chatID int64) string {
	q := url.Values{"chat": {strconv.FormatInt(chatID, 10)}}
	return strings.TrimRight(s.config.PublicBaseURL, "/") + "/payment/cancel?" + q.Encode()
}

// ConfirmCheckout reports the gate's session id to the API, which marks the
// booking paid, and returns the booking as the server now has it.
func (s *PaymentService) ConfirmCheckout(ctx context.Context, chatID int64, sessionID string) (*models.CheckoutConfirmation, *models.Booking, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil, errors.New("empty checkout session id")
	}
	if _, _, err := sessionOf(ctx, s.sessions, chatID, s.now()); err != nil {
		return nil, nil, err
	}

	client := s.clients.ForChat(chatID)
	conf, err := client.ConfirmPayment(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	payload := events.BookingEventPayload{
		BookingID:     conf.BookingID,
		PaymentStatus: string(lifecycle.PaymentPaid),
		ChatID:        chatID,
		TransactionID: conf.TransactionID,
		TrackingID:    conf.TrackingID,
	}

	var booking *models.Booking
	if conf.BookingID != "" {
		booking, err = client.GetBooking(ctx, conf.BookingID)
		if err != nil {
			s.logger.Warn().Err(err).Str("booking_id", conf.BookingID).Msg("reload paid booking failed")
			booking = nil
		}
	}
	if booking != nil {
		payload.ServiceName = booking.ServiceName
		payload.CustomerEmail = booking.CustomerEmail
		payload.Status = string(booking.Status)
		payload.Date = booking.Date
		payload.Time = booking.Time
	}

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventPaymentConfirmed, payload); err != nil {
			s.logger.Error().Err(err).Str("event_type", events.EventPaymentConfirmed).Msg("publish event error")
		}
	}
	return conf, booking, nil
}

// History lists the payments of the signed-in user.
func (s *PaymentService) History(ctx context.Context, chatID int64) ([]models.Payment, error) {
	sess, _, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	payments, err := s.clients.ForChat(chatID).Payments(ctx, sess.Email)
	if err != nil {
		return nil, fmt.Errorf("payments: %w", err)
	}
	return payments, nil
}
