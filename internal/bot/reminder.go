package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	"github.com/robfig/cron/v3"
)

const (
	defaultReminderCron = "0 9 * * *"
	defaultDigestCron   = "0 20 * * *"
)

// ScheduleReminders registers the daily reminder and the admin digest on c.
func (b *Bot) ScheduleReminders(c *cron.Cron) error {
	reminder := b.config.Bot.ReminderCron
	if reminder == "" {
		reminder = defaultReminderCron
	}
	if _, err := c.AddFunc(reminder, b.runJob("reminders", b.sendTomorrowReminders)); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", reminder, err)
	}

	digest := b.config.Bot.DigestCron
	if digest == "" {
		digest = defaultDigestCron
	}
	if _, err := c.AddFunc(digest, b.runJob("digest", b.sendAdminDigest)); err != nil {
		return fmt.Errorf("schedule digest %q: %w", digest, err)
	}

	b.logger.Info().Str("reminder_cron", reminder).Str("digest_cron", digest).Msg("reminders scheduled")
	return nil
}

func (b *Bot) runJob(name string, job func(ctx context.Context)) func() {
	return func() {
		b.withRecovery(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			l := b.logger.With().Str("job", name).Logger()
			job(l.WithContext(ctx))
		})
	}
}

// sendTomorrowReminders reminds every linked chat of its bookings for the
// next day. Chats whose session has lapsed are skipped.
func (b *Bot) sendTomorrowReminders(ctx context.Context) {
	if b.accounts == nil {
		return
	}
	accounts, err := b.accounts.ListAccounts(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("reminder: list accounts error")
		return
	}

	tomorrow := b.now().In(b.loc).AddDate(0, 0, 1).Format(models.DateFormat)
	sent := 0
	for _, acc := range accounts {
		bookings, err := b.bookings.ListFor(ctx, acc.ChatID)
		if err != nil {
			b.logger.Debug().Err(err).Int64("chat_id", acc.ChatID).Msg("reminder: list bookings error")
			continue
		}
		var due []models.Booking
		for _, booking := range bookings {
			if booking.Date == tomorrow && shouldRemind(booking.Status) {
				due = append(due, booking)
			}
		}
		if len(due) == 0 {
			continue
		}
		b.sendMessage(acc.ChatID, formatReminderMessage(due))
		b.metrics.notified("reminder")
		sent++
	}
	b.logger.Info().Str("date", tomorrow).Int("chats", sent).Msg("reminders sent")
}

func shouldRemind(s lifecycle.Status) bool {
	return s != lifecycle.StatusCompleted
}

func formatReminderMessage(bookings []models.Booking) string {
	var sb strings.Builder
	sb.WriteString("⏰ Reminder: tomorrow you have\n")
	for _, b := range bookings {
		sb.WriteString(fmt.Sprintf("• %s at %s", b.ServiceName, b.Time))
		if b.ServiceType == lifecycle.ServiceOnSite && b.Location != "" {
			sb.WriteString(", " + b.Location)
		}
		if b.PaymentStatus != lifecycle.PaymentPaid {
			sb.WriteString(" (unpaid)")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// sendAdminDigest lists paid on-site bookings still waiting for a decorator.
func (b *Bot) sendAdminDigest(ctx context.Context) {
	for _, chatID := range b.adminChats(ctx) {
		bookings, err := b.bookings.ListFor(ctx, chatID)
		if err != nil {
			b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("digest: list bookings error")
			continue
		}
		waiting := awaitingDecorator(bookings)
		if len(waiting) == 0 {
			continue
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("📌 %d paid booking(s) wait for a decorator:\n", len(waiting)))
		for _, booking := range waiting {
			sb.WriteString(fmt.Sprintf("• %s, %s %s, %s\n", booking.ServiceName, booking.Date, booking.Time, booking.Location))
		}
		sb.WriteString("\nOpen /manage_bookings to assign them.")
		b.sendMessage(chatID, sb.String())
		b.metrics.notified("digest")
	}
}

func awaitingDecorator(bookings []models.Booking) []models.Booking {
	var out []models.Booking
	for _, booking := range bookings {
		if booking.Status == lifecycle.StatusPending &&
			booking.PaymentStatus == lifecycle.PaymentPaid &&
			booking.ServiceType == lifecycle.ServiceOnSite {
			out = append(out, booking)
		}
	}
	return out
}
