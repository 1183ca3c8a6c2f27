package bot

import (
	"context"
	"fmt"
	"strings"

	"decorbook/internal/dashboard"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Вспомогательные методы для работы с состояниями пользователей

func (b *Bot) setUserState(ctx context.Context, chatID int64, step string, tempData map[string]interface{}) {
	if err := b.state.SetUserState(ctx, chatID, step, tempData); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Str("step", step).Msg("set user state")
	}
}

func (b *Bot) getUserState(ctx context.Context, chatID int64) *models.UserState {
	state, err := b.state.GetUserState(ctx, chatID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("get user state")
		return nil
	}
	return state
}

func (b *Bot) clearUserState(ctx context.Context, chatID int64) {
	if err := b.state.ClearUserState(ctx, chatID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("clear user state")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}

func (b *Bot) sendKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if _, err := b.tgService.SendWithInlineKeyboard(chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send keyboard")
	}
}

// sendError logs err and shows the matching notice.
func (b *Bot) sendError(ctx context.Context, chatID int64, err error, op string) {
	zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Str("op", op).Msg("request failed")
	b.sendMessage(chatID, userMessage(err))
}

// viewer is the role a chat acts with; signedIn is false for anonymous chats.
func (b *Bot) viewer(ctx context.Context, chatID int64) (lifecycle.Actor, bool) {
	actor, signedIn, err := b.users.Role(ctx, chatID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("resolve role")
		return "", false
	}
	return actor, signedIn
}

// sendBookingCard sends one booking with the controls actor may press.
func (b *Bot) sendBookingCard(chatID int64, booking models.Booking, actor lifecycle.Actor) {
	text := dashboard.BookingCard(booking, actor)
	if kb := dashboard.BookingKeyboard(booking, actor); kb != nil {
		b.sendKeyboard(chatID, text, *kb)
		return
	}
	b.sendMessage(chatID, text)
}

// editBookingCard replaces a card in place after a change.
func (b *Bot) editBookingCard(chatID int64, messageID int, booking models.Booking, actor lifecycle.Actor) {
	if messageID == 0 {
		b.sendBookingCard(chatID, booking, actor)
		return
	}
	text := dashboard.BookingCard(booking, actor)
	if _, err := b.tgService.EditMessage(chatID, messageID, text, dashboard.BookingKeyboard(booking, actor)); err != nil {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("edit card failed, sending a new one")
		b.sendBookingCard(chatID, booking, actor)
	}
}

func callbackButton(label, kind string, parts ...string) tgbotapi.InlineKeyboardButton {
	data, _ := dashboard.Encode(kind, parts...)
	return tgbotapi.NewInlineKeyboardButtonData(label, data)
}

func menuText(actor lifecycle.Actor, signedIn bool, name string) string {
	var sb strings.Builder
	if signedIn {
		sb.WriteString(fmt.Sprintf("👋 Hi, %s! You are signed in as %s.\n\n", name, actor))
	} else {
		sb.WriteString("👋 Welcome to DecorBook: decorations for weddings, birthdays and every event in between.\n\n")
	}
	for _, r := range dashboard.Menu(actor, signedIn) {
		sb.WriteString(fmt.Sprintf("%s: %s\n", r.Command, r.Title))
	}
	return sb.String()
}

func sanitizeInput(text string) string {
	text = strings.TrimSpace(text)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' {
			return -1
		}
		return r
	}, text)
}

// skipped reports whether the user declined an optional field.
func skipped(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "-", "skip", "no", "none":
		return true
	}
	return false
}
