package bot

import (
	"fmt"
	"strings"

	"decorbook/internal/dashboard"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PaginationParams struct {
	ChatID    int64
	MessageID int // 0 if new message
	Page      int // zero-based
	Title     string
	PageKind  string
	Footer    [][]tgbotapi.InlineKeyboardButton
}

// renderPaginatedList - универсальная функция для отрисовки пагинированного списка
func (b *Bot) renderPaginatedList(params PaginationParams, totalCount int, itemsPerPage int, renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton)) {
	if itemsPerPage <= 0 {
		itemsPerPage = b.config.Bot.PageSize
	}
	if itemsPerPage <= 0 {
		itemsPerPage = models.DefaultPaginationSize
	}

	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
	}
	if params.Page < 0 {
		params.Page = 0
	}

	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	content, keyboard := renderer(startIdx, endIdx)

	var message strings.Builder
	message.WriteString(params.Title + "\n\n")
	if totalPages > 1 {
		message.WriteString(fmt.Sprintf("Page %d of %d\n\n", params.Page+1, totalPages))
	}
	message.WriteString(content)

	// Добавляем навигационные кнопки
	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", dashboard.PageData(params.PageKind, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", dashboard.PageData(params.PageKind, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}
	keyboard = append(keyboard, params.Footer...)

	if len(keyboard) == 0 {
		if params.MessageID != 0 {
			_, _ = b.tgService.EditMessage(params.ChatID, params.MessageID, message.String(), nil)
			return
		}
		b.sendMessage(params.ChatID, message.String())
		return
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	if params.MessageID != 0 {
		if _, err := b.tgService.EditMessage(params.ChatID, params.MessageID, message.String(), &markup); err == nil {
			return
		}
	}
	b.sendKeyboard(params.ChatID, message.String(), markup)
}

// renderPaginatedBookings - обертка для списка заявок
func (b *Bot) renderPaginatedBookings(params PaginationParams, bookings []models.Booking, actor lifecycle.Actor) {
	b.renderPaginatedList(params, len(bookings), 5, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		for _, booking := range bookings[startIdx:endIdx] {
			content.WriteString(fmt.Sprintf("%s %s, %s %s\n", dashboard.StatusIcon(booking.Status), booking.ServiceName, booking.Date, booking.Time))
			content.WriteString(fmt.Sprintf("   %s %s · %s\n", booking.Status.Label(), dashboard.Progress(booking.Status), dashboard.PaymentLabel(booking.PaymentStatus)))
			if actor != lifecycle.ActorCustomer && booking.CustomerEmail != "" {
				content.WriteString("   👤 " + booking.CustomerEmail + "\n")
			}
			content.WriteString("\n")

			keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
				callbackButton(fmt.Sprintf("%s %s (%s)", dashboard.StatusIcon(booking.Status), booking.ServiceName, booking.Date), dashboard.KindBooking, booking.ID),
			))
		}
		return content.String(), keyboard
	})
}

// renderServicePage shows one server-side page of the catalog.
func (b *Bot) renderServicePage(params PaginationParams, page *models.ServicePage, perPage int) {
	b.renderPaginatedList(params, page.Total, perPage, func(startIdx, _ int) (string, [][]tgbotapi.InlineKeyboardButton) {
		if len(page.Services) == 0 {
			return "Nothing matches your search. Try another word.", nil
		}
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton
		for i, svc := range page.Services {
			content.WriteString(fmt.Sprintf("%d. %s\n", startIdx+i+1, dashboard.ServiceLine(svc)))
			keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
				callbackButton(fmt.Sprintf("%d. %s", startIdx+i+1, svc.Name), dashboard.KindService, svc.ID),
			))
		}
		return content.String(), keyboard
	})
}
