package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"decorbook/internal/dashboard"
	"decorbook/internal/events"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
)

const notifyTimeout = 30 * time.Second

// Subscribe wires booking events to push notifications. The bus calls
// handlers synchronously, so the sends run in the background.
func (b *Bot) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingStatusChanged, b.onEvent(b.notifyStatusEvent))
	bus.Subscribe(events.EventDecoratorAssigned, b.onEvent(b.notifyStatusEvent))
	bus.Subscribe(events.EventPaymentConfirmed, b.onEvent(b.notifyPayment))
	bus.Subscribe(events.EventBookingCreated, b.onEvent(b.notifyNewBooking))
}

func (b *Bot) onEvent(handle func(ctx context.Context, p events.BookingEventPayload)) events.EventHandler {
	return func(e *events.Event) error {
		p, err := e.Decode()
		if err != nil {
			return fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
		l := b.logger.With().Str("event_type", e.Type).Str("booking_id", p.BookingID).Logger()
		b.goSafe(func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			handle(l.WithContext(ctx), p)
		})
		return nil
	}
}

// notifyStatusEvent tells everyone linked to the booking except the chat that
// made the change. The ledger is updated for all of them so the watcher does
// not repeat the news.
func (b *Bot) notifyStatusEvent(ctx context.Context, p events.BookingEventPayload) {
	text := statusChangeText(p.ServiceName, p.Date, p.Time, lifecycle.Status(p.From), lifecycle.Status(p.Status))
	if p.Status == string(lifecycle.StatusDecoratorAssigned) && p.DecoratorName != "" {
		text += "\n🎨 Decorator: " + p.DecoratorName
	}

	b.remember(ctx, p.ChatID, p.BookingID, p.Status)
	for _, chatID := range b.linkedChats(ctx, p.CustomerEmail, p.DecoratorEmail) {
		if chatID == p.ChatID {
			continue
		}
		b.sendMessage(chatID, text)
		b.remember(ctx, chatID, p.BookingID, p.Status)
		b.metrics.notified("status_changed")
	}
}

// notifyPayment sends the receipt to the customer and puts the booking in
// front of the admins, who can assign a decorator right from the card.
func (b *Bot) notifyPayment(ctx context.Context, p events.BookingEventPayload) {
	receipt := fmt.Sprintf("✅ Payment received for %s.\nTransaction: %s\nTracking: %s", p.ServiceName, p.TransactionID, p.TrackingID)

	customers := b.linkedChats(ctx, p.CustomerEmail)
	if p.ChatID != 0 && !containsChat(customers, p.ChatID) {
		customers = append(customers, p.ChatID)
	}
	for _, chatID := range customers {
		b.sendMessage(chatID, receipt)
		b.metrics.notified("payment_confirmed")
	}

	for _, chatID := range b.adminChats(ctx) {
		booking, err := b.bookings.Get(ctx, chatID, p.BookingID)
		if err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", chatID).Str("booking_id", p.BookingID).Msg("load paid booking for admin")
			continue
		}
		b.sendMessage(chatID, "💰 New paid booking:")
		b.sendBookingCard(chatID, *booking, lifecycle.ActorAdmin)
		b.metrics.notified("payment_admin")
	}
}

func (b *Bot) notifyNewBooking(ctx context.Context, p events.BookingEventPayload) {
	text := fmt.Sprintf("🆕 New booking: %s on %s %s by %s", p.ServiceName, p.Date, p.Time, p.CustomerEmail)
	for _, chatID := range b.adminChats(ctx) {
		b.sendMessage(chatID, text)
		b.metrics.notified("booking_created")
	}
}

// NotifyStatusChange reports a change the watcher found on the server.
func (b *Bot) NotifyStatusChange(ctx context.Context, chatID int64, booking models.Booking, from lifecycle.Status) {
	actor, _ := b.viewer(ctx, chatID)
	text := statusChangeText(booking.ServiceName, booking.Date, booking.Time, from, booking.Status) +
		"\n\n" + dashboard.BookingCard(booking, actor)
	if kb := dashboard.BookingKeyboard(booking, actor); kb != nil {
		b.sendKeyboard(chatID, text, *kb)
	} else {
		b.sendMessage(chatID, text)
	}
	b.metrics.notified("watcher")
}

func (b *Bot) NotifyCheckoutCancelled(ctx context.Context, chatID int64) {
	b.sendMessage(chatID, "Payment was cancelled. Your booking stays unpaid, you can pay any time from /bookings.")
	b.metrics.notified("checkout_cancelled")
}

func (b *Bot) NotifySignedIn(ctx context.Context, chatID int64, sess *models.Session) {
	b.clearUserState(ctx, chatID)
	b.welcome(ctx, chatID, sess)
	b.metrics.notified("signed_in")
}

func (b *Bot) NotifyFailure(ctx context.Context, chatID int64, err error) {
	b.sendMessage(chatID, userMessage(err))
	b.metrics.notified("failure")
}

func statusChangeText(service, date, tm string, from, to lifecycle.Status) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 %s (%s %s)\n", service, date, tm))
	if from != "" && from != to {
		sb.WriteString(fmt.Sprintf("%s → %s %s", from.Label(), dashboard.StatusIcon(to), to.Label()))
	} else {
		sb.WriteString(fmt.Sprintf("Status: %s %s", dashboard.StatusIcon(to), to.Label()))
	}
	return sb.String()
}

// linkedChats returns the chats signed in to any of the emails.
func (b *Bot) linkedChats(ctx context.Context, emails ...string) []int64 {
	if b.accounts == nil {
		return nil
	}
	var out []int64
	for _, email := range emails {
		if email == "" {
			continue
		}
		accounts, err := b.accounts.GetAccountsByEmail(ctx, email)
		if err != nil {
			b.logger.Error().Err(err).Str("email", email).Msg("linked chats")
			continue
		}
		for _, acc := range accounts {
			if !containsChat(out, acc.ChatID) {
				out = append(out, acc.ChatID)
			}
		}
	}
	return out
}

func (b *Bot) adminChats(ctx context.Context) []int64 {
	if b.accounts == nil {
		return nil
	}
	accounts, err := b.accounts.ListAccounts(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("list accounts")
		return nil
	}
	var out []int64
	for _, acc := range accounts {
		if acc.Role == models.RoleAdmin {
			out = append(out, acc.ChatID)
		}
	}
	return out
}

func (b *Bot) remember(ctx context.Context, chatID int64, bookingID, status string) {
	if b.watched == nil || chatID == 0 || bookingID == "" {
		return
	}
	if err := b.watched.SaveWatchedStatus(ctx, chatID, bookingID, status); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Str("booking_id", bookingID).Msg("save watched status")
	}
}

func containsChat(chats []int64, chatID int64) bool {
	for _, c := range chats {
		if c == chatID {
			return true
		}
	}
	return false
}
