package bot

import (
	"context"
	"fmt"
	"strings"

	"decorbook/internal/dashboard"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// showDecorators lists every decorator with a button that flips its status.
func (b *Bot) showDecorators(ctx context.Context, chatID int64, messageID int) {
	decorators, err := b.catalog.Decorators(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "list decorators")
		return
	}
	if len(decorators) == 0 {
		b.sendMessage(chatID, "No decorators have applied yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎨 Decorators\n\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(decorators))
	for _, d := range decorators {
		icon, label, next := "✅", "Disable", models.DecoratorDisabled
		if !d.Active() {
			icon, label, next = "⛔", "Enable", models.DecoratorActive
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s)", icon, d.Name, d.Email))
		if len(d.Specialties) > 0 {
			sb.WriteString(" · " + strings.Join(d.Specialties, ", "))
		}
		sb.WriteString("\n")

		data, ok := dashboard.Encode(dashboard.KindDecoratorStatus, d.ID, next)
		if !ok {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label+" "+d.Name, data),
		))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, sb.String(), &keyboard); err == nil {
			return
		}
	}
	b.sendKeyboard(chatID, sb.String(), keyboard)
}

func (b *Bot) handleDecoratorStatus(ctx context.Context, chatID int64, messageID int, decoratorID, status string) {
	if err := b.catalog.SetDecoratorStatus(ctx, chatID, decoratorID, status); err != nil {
		b.sendError(ctx, chatID, err, "set decorator status")
		return
	}
	b.showDecorators(ctx, chatID, messageID)
}

func (b *Bot) showAnalytics(ctx context.Context, chatID int64) {
	stats, err := b.analytics.Dashboard(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "analytics")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Analytics\n\n")
	sb.WriteString(fmt.Sprintf("Bookings: %d (paid %d)\n", stats.TotalBookings, stats.PaidBookings))
	sb.WriteString(fmt.Sprintf("Revenue: %s\n", stats.TotalRevenue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("Users: %d · Decorators: %d\n", stats.TotalUsers, stats.TotalDecorators))

	if len(stats.StatusBreakdown) > 0 {
		sb.WriteString("\nBy status:\n")
		for _, s := range lifecycle.AllStatuses() {
			sb.WriteString(fmt.Sprintf("%s %s: %d\n", dashboard.StatusIcon(s), s.Label(), stats.StatusBreakdown[string(s)]))
		}
	}
	if len(stats.ServiceDemand) > 0 {
		sb.WriteString("\nTop services:\n")
		for i, d := range stats.ServiceDemand {
			if i == 5 {
				break
			}
			sb.WriteString(fmt.Sprintf("%d. %s: %d bookings, %s\n", i+1, d.ServiceName, d.Bookings, d.Revenue.StringFixed(2)))
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		callbackButton("📥 Analytics", dashboard.KindExport, exportAnalytics),
		callbackButton("📥 Bookings", dashboard.KindExport, exportBookings),
	))
	b.sendKeyboard(chatID, sb.String(), keyboard)
}

// showDeleteService offers delete buttons for the services matching query.
func (b *Bot) showDeleteService(ctx context.Context, chatID int64, query string) {
	page, err := b.catalog.Search(ctx, models.ServiceFilter{Search: query, Page: 1, Limit: b.pageSize()})
	if err != nil {
		b.sendError(ctx, chatID, err, "search services")
		return
	}
	if len(page.Services) == 0 {
		b.sendMessage(chatID, "No services found. Usage: /delete_service <name>")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, svc := range page.Services {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			callbackButton("🗑 "+svc.Name, dashboard.KindDeleteService, svc.ID),
		))
	}
	text := "Pick the service to delete. This cannot be undone."
	if page.Total > len(page.Services) {
		text += fmt.Sprintf("\nShowing %d of %d, narrow it down with /delete_service <name>.", len(page.Services), page.Total)
	}
	b.sendKeyboard(chatID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleDeleteService(ctx context.Context, chatID int64, messageID int, serviceID string) {
	if err := b.catalog.DeleteService(ctx, chatID, serviceID); err != nil {
		b.sendError(ctx, chatID, err, "delete service")
		return
	}
	if messageID != 0 {
		if _, err := b.tgService.EditMessage(chatID, messageID, "🗑 Service deleted.", nil); err == nil {
			return
		}
	}
	b.sendMessage(chatID, "🗑 Service deleted.")
}
