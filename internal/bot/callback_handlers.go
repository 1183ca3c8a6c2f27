package bot

import (
	"context"

	"decorbook/internal/dashboard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.From.ID
	messageID := 0
	if callback.Message != nil {
		chatID = callback.Message.Chat.ID
		messageID = callback.Message.MessageID
	}

	cb, ok := dashboard.Parse(callback.Data)
	if !ok {
		zerolog.Ctx(ctx).Warn().Str("data", callback.Data).Int64("chat_id", chatID).Msg("malformed callback data")
		b.answer(callback.ID, "This button is no longer valid.")
		return
	}
	b.metrics.callback(cb.Kind)

	// Отвечаем на callback сразу, чтобы убрать "часики"
	if cb.Kind == dashboard.KindNoop {
		b.answer(callback.ID, "Not available right now.")
		return
	}
	b.answer(callback.ID, "")

	switch cb.Kind {
	case dashboard.KindTransition:
		b.handleTransition(ctx, chatID, messageID, cb.ID, cb.Action)
	case dashboard.KindSelectDecorator:
		b.showDecoratorPicker(ctx, chatID, messageID, cb.ID)
	case dashboard.KindPickDecorator:
		b.handleAssign(ctx, chatID, messageID, cb.ID, cb.Extra)
	case dashboard.KindEdit:
		b.startBookingEdit(ctx, chatID, cb.ID)
	case dashboard.KindCancel:
		b.handleCancelBooking(ctx, chatID, messageID, cb.ID)
	case dashboard.KindPay:
		b.handlePay(ctx, chatID, cb.ID)
	case dashboard.KindBooking:
		b.showBooking(ctx, chatID, cb.ID)
	case dashboard.KindBookingsPage:
		actor, _ := b.viewer(ctx, chatID)
		b.showBookings(ctx, chatID, messageID, cb.Page, actor)

	case dashboard.KindServicesPage:
		state := b.getUserState(ctx, chatID)
		query := ""
		if state != nil {
			query = state.GetString(keyQuery)
		}
		b.searchPage(ctx, chatID, messageID, query, cb.Page+1, true)
	case dashboard.KindService:
		b.showService(ctx, chatID, 0, cb.ID)
	case dashboard.KindBook:
		b.startBooking(ctx, chatID, cb.ID)
	case dashboard.KindServiceType:
		b.handleServiceType(ctx, chatID, cb.ID)
	case dashboard.KindConfirm:
		b.confirmBooking(ctx, chatID, messageID)
	case dashboard.KindAbort:
		b.clearUserState(ctx, chatID)
		if messageID != 0 {
			_, _ = b.tgService.EditMessage(chatID, messageID, "✖️ Cancelled.", nil)
		} else {
			b.sendMessage(chatID, "✖️ Cancelled.")
		}

	case dashboard.KindDecoratorStatus:
		b.handleDecoratorStatus(ctx, chatID, messageID, cb.ID, cb.Extra)
	case dashboard.KindDeleteService:
		b.handleDeleteService(ctx, chatID, messageID, cb.ID)
	case dashboard.KindExport:
		b.handleExport(ctx, chatID, cb.ID)

	case dashboard.KindDemo:
		b.handleDemoLogin(ctx, chatID, callback.From, cb.ID)
	case dashboard.KindProfile:
		b.startProfileEdit(ctx, chatID)
	case dashboard.KindMenu:
		b.clearUserState(ctx, chatID)
		actor, signedIn := b.viewer(ctx, chatID)
		b.showHome(ctx, chatID, actor, signedIn)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if err := b.tgService.AnswerCallback(callbackID, text); err != nil {
		b.logger.Debug().Err(err).Msg("answer callback")
	}
}

func (b *Bot) handleDemoLogin(ctx context.Context, chatID int64, from *tgbotapi.User, role string) {
	account, ok := b.config.Demo.Account(role)
	if !ok {
		b.sendMessage(chatID, "This demo account is not available.")
		return
	}
	username := ""
	if from != nil {
		username = from.UserName
	}
	sess, err := b.users.SignIn(ctx, chatID, username, account.Email, account.Password)
	if err != nil {
		b.sendError(ctx, chatID, err, "demo sign in")
		return
	}
	b.sendMessage(chatID, "🎭 You are exploring as a demo "+role+".")
	b.welcome(ctx, chatID, sess)
}
