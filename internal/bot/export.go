package bot

import (
	"context"
	"fmt"

	"decorbook/internal/export"
	"decorbook/internal/lifecycle"
)

const (
	exportPayments  = "payments"
	exportBookings  = "bookings"
	exportAnalytics = "analytics"
)

// handleExport builds a workbook and sends it as a document. A copy is kept
// under the export path when one is configured.
func (b *Bot) handleExport(ctx context.Context, chatID int64, kind string) {
	var (
		data []byte
		err  error
	)

	switch kind {
	case exportPayments:
		payments, lerr := b.payments.History(ctx, chatID)
		if lerr != nil {
			b.sendError(ctx, chatID, lerr, "export payments")
			return
		}
		data, err = export.Payments(payments, b.loc)
	case exportBookings:
		bookings, lerr := b.bookings.ListFor(ctx, chatID)
		if lerr != nil {
			b.sendError(ctx, chatID, lerr, "export bookings")
			return
		}
		data, err = export.Bookings(bookings)
	case exportAnalytics:
		if actor, _ := b.viewer(ctx, chatID); actor != lifecycle.ActorAdmin {
			b.sendMessage(chatID, "⛔ This page is not available for your role.")
			return
		}
		stats, lerr := b.analytics.Dashboard(ctx, chatID)
		if lerr != nil {
			b.sendError(ctx, chatID, lerr, "export analytics")
			return
		}
		data, err = export.Analytics(stats)
	default:
		b.sendMessage(chatID, "Unknown export.")
		return
	}
	if err != nil {
		b.sendError(ctx, chatID, fmt.Errorf("build %s workbook: %w", kind, err), "export")
		return
	}

	name := export.FileName(kind, b.now().In(b.loc))
	if dir := b.config.Exports.Path; dir != "" {
		if path, serr := export.Save(dir, name, data); serr != nil {
			b.logger.Warn().Err(serr).Str("kind", kind).Msg("keep export copy")
		} else {
			b.logger.Info().Str("path", path).Int64("chat_id", chatID).Msg("export saved")
		}
	}

	if _, err := b.tgService.SendDocument(chatID, name, data, "📊 Your "+kind+" export"); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Str("kind", kind).Msg("send export")
		b.sendMessage(chatID, genericFailure)
	}
}
