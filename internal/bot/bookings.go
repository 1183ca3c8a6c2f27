package bot

import (
	"context"
	"fmt"
	"strings"

	"decorbook/internal/dashboard"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// showBookings lists the bookings of the chat's role, newest first as the
// server returns them.
func (b *Bot) showBookings(ctx context.Context, chatID int64, messageID, page int, actor lifecycle.Actor) {
	bookings, err := b.bookings.ListFor(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "list bookings")
		return
	}

	title := "📋 My bookings"
	switch actor {
	case lifecycle.ActorAdmin:
		title = "📋 All bookings"
	case lifecycle.ActorDecorator:
		title = "🎨 Assigned projects"
	}
	if len(bookings) == 0 {
		empty := "You have no bookings yet. Browse /services to book one."
		if actor == lifecycle.ActorDecorator {
			empty = "No projects are assigned to you yet."
		}
		b.sendMessage(chatID, title+"\n\n"+empty)
		return
	}

	b.renderPaginatedBookings(PaginationParams{
		ChatID:    chatID,
		MessageID: messageID,
		Page:      page,
		Title:     title,
		PageKind:  dashboard.KindBookingsPage,
	}, bookings, actor)
}

func (b *Bot) showBooking(ctx context.Context, chatID int64, bookingID string) {
	booking, err := b.bookings.Get(ctx, chatID, bookingID)
	if err != nil {
		b.sendError(ctx, chatID, err, "load booking")
		return
	}
	actor, _ := b.viewer(ctx, chatID)
	b.sendBookingCard(chatID, *booking, actor)
}

// handleTransition applies a lifecycle action and redraws the card with the
// booking as the server now reports it.
func (b *Bot) handleTransition(ctx context.Context, chatID int64, messageID int, bookingID string, action lifecycle.Action) {
	res, err := b.bookings.Transition(ctx, chatID, bookingID, action)
	if err != nil {
		b.sendError(ctx, chatID, err, "transition "+string(action))
		return
	}
	zerolog.Ctx(ctx).Info().
		Str("booking_id", bookingID).
		Str("action", string(action)).
		Str("from", string(res.From)).
		Str("to", string(res.To)).
		Msg("booking status changed")

	actor, _ := b.viewer(ctx, chatID)
	b.showTransitionResult(chatID, messageID, res, actor)
}

// showTransitionResult redraws the card only with a record read after the
// change; otherwise the old card stays and the user is sent to refresh.
func (b *Bot) showTransitionResult(chatID int64, messageID int, res *service.TransitionResult, actor lifecycle.Actor) {
	if res.Refreshed {
		b.editBookingCard(chatID, messageID, res.Booking, actor)
	}
	if res.Notice != "" {
		b.sendMessage(chatID, res.Notice)
	}
	if !res.Refreshed {
		b.sendMessage(chatID, notRefreshedNotice)
	}
}

func (b *Bot) showDecoratorPicker(ctx context.Context, chatID int64, messageID int, bookingID string) {
	booking, err := b.bookings.Get(ctx, chatID, bookingID)
	if err != nil {
		b.sendError(ctx, chatID, err, "load booking")
		return
	}
	// the guard runs here too so the admin is told before picking anyone
	if _, err := lifecycle.NextState(booking.Status, lifecycle.ActionAssign, lifecycle.TransitionContext{
		Actor:         lifecycle.ActorAdmin,
		PaymentStatus: booking.PaymentStatus,
		ServiceType:   booking.ServiceType,
	}); err != nil {
		b.sendError(ctx, chatID, err, "select decorator")
		return
	}

	decorators, err := b.bookings.AvailableDecorators(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "list decorators")
		return
	}
	if len(decorators) == 0 {
		b.sendMessage(chatID, "No active decorators right now. Enable one in /decorators.")
		return
	}

	keyboard := dashboard.DecoratorKeyboard(booking.ID, decorators)
	text := fmt.Sprintf("🎨 Pick a decorator for %s (%s %s):", booking.ServiceName, booking.Date, booking.Time)
	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, text, &keyboard); err == nil {
			return
		}
	}
	b.sendKeyboard(chatID, text, keyboard)
}

func (b *Bot) handleAssign(ctx context.Context, chatID int64, messageID int, bookingID, decoratorID string) {
	res, err := b.bookings.AssignDecorator(ctx, chatID, bookingID, decoratorID)
	if err != nil {
		b.sendError(ctx, chatID, err, "assign decorator")
		return
	}
	b.showTransitionResult(chatID, messageID, res, lifecycle.ActorAdmin)
}

func (b *Bot) handleCancelBooking(ctx context.Context, chatID int64, messageID int, bookingID string) {
	if err := b.bookings.Cancel(ctx, chatID, bookingID); err != nil {
		b.sendError(ctx, chatID, err, "cancel booking")
		return
	}
	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, "🗑 Booking cancelled.", nil); err == nil {
			return
		}
	}
	b.sendMessage(chatID, "🗑 Booking cancelled.")
}

func (b *Bot) handlePay(ctx context.Context, chatID int64, bookingID string) {
	url, err := b.payments.StartCheckout(ctx, chatID, bookingID)
	if err != nil {
		b.sendError(ctx, chatID, err, "start checkout")
		return
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("💳 Pay now", url),
	))
	b.sendKeyboard(chatID, "Complete the payment on the secure checkout page. I will let you know once it goes through.", keyboard)
}

func (b *Bot) showPayments(ctx context.Context, chatID int64) {
	payments, err := b.payments.History(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "payment history")
		return
	}
	if len(payments) == 0 {
		b.sendMessage(chatID, "💳 No payments yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("💳 Payment history\n\n")
	for _, p := range payments {
		sb.WriteString(dashboard.PaymentLine(p, b.loc) + "\n")
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		callbackButton("📥 Export to Excel", dashboard.KindExport, exportPayments),
	))
	b.sendKeyboard(chatID, sb.String(), keyboard)
}

func (b *Bot) showService(ctx context.Context, chatID int64, messageID int, serviceID string) {
	svc, err := b.catalog.Get(ctx, serviceID)
	if err != nil {
		b.sendError(ctx, chatID, err, "load service")
		return
	}
	b.sendServiceCard(chatID, messageID, svc)
}

func (b *Bot) sendServiceCard(chatID int64, messageID int, svc *models.Service) {
	var sb strings.Builder
	sb.WriteString("🎀 " + svc.Name + "\n")
	if svc.Category != "" {
		sb.WriteString("Category: " + svc.Category + "\n")
	}
	sb.WriteString(fmt.Sprintf("💰 %s %s\n", svc.Cost.StringFixed(2), svc.Unit))
	if svc.Rating > 0 {
		sb.WriteString(fmt.Sprintf("⭐ %.1f\n", svc.Rating))
	}
	if svc.Description != "" {
		sb.WriteString("\n" + svc.Description + "\n")
	}
	if svc.Image != "" {
		sb.WriteString("\n🖼 " + svc.Image)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		callbackButton("📅 Book this", dashboard.KindBook, svc.ID),
	))
	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, sb.String(), &keyboard); err == nil {
			return
		}
	}
	b.sendKeyboard(chatID, sb.String(), keyboard)
}
