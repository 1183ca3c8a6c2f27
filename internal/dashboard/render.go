package dashboard

import (
	"fmt"
	"strings"
	"time"

	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const disabledMark = "🚫 "

// BookingCard is the text block of one booking as the viewer sees it. The
// decorator line only shows once a decorator holds the booking.
func BookingCard(b models.Booking, actor lifecycle.Actor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", StatusIcon(b.Status), b.ServiceName)
	fmt.Fprintf(&sb, "📅 %s %s\n", b.Date, b.Time)
	if b.ServiceType == lifecycle.ServiceOnSite {
		fmt.Fprintf(&sb, "📍 On-site: %s\n", b.Location)
	} else {
		sb.WriteString("🏠 In-studio\n")
	}
	fmt.Fprintf(&sb, "💰 %s (%d units), %s\n", b.TotalCost.StringFixed(2), b.TotalUnit, PaymentLabel(b.PaymentStatus))
	fmt.Fprintf(&sb, "Status: %s %s\n", b.Status.Label(), Progress(b.Status))

	if actor != lifecycle.ActorCustomer && b.CustomerEmail != "" {
		name := b.CustomerName
		if name == "" {
			name = b.CustomerEmail
		}
		fmt.Fprintf(&sb, "👤 %s\n", name)
	}
	if b.Status != lifecycle.StatusPending && b.HasDecorator() {
		name := b.DecoratorName
		if name == "" {
			name = b.DecoratorEmail
		}
		fmt.Fprintf(&sb, "🎨 %s\n", name)
	}
	if b.TrackingID != "" {
		fmt.Fprintf(&sb, "Tracking: %s\n", b.TrackingID)
	}
	if b.Notes != "" {
		fmt.Fprintf(&sb, "📝 %s\n", b.Notes)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// BookingKeyboard renders the controls of a booking for actor, nil when
// there are none. Disabled controls stay visible but do nothing.
func BookingKeyboard(b models.Booking, actor lifecycle.Actor) *tgbotapi.InlineKeyboardMarkup {
	controls := lifecycle.Controls(b.Snapshot(), actor)
	if len(controls) == 0 {
		return nil
	}

	row := make([]tgbotapi.InlineKeyboardButton, 0, len(controls))
	for _, c := range controls {
		row = append(row, controlButton(c, b.ID))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}

func controlButton(c lifecycle.Control, bookingID string) tgbotapi.InlineKeyboardButton {
	if !c.Enabled {
		data, _ := Encode(KindNoop, string(c.Kind))
		return tgbotapi.NewInlineKeyboardButtonData(disabledMark+c.Label, data)
	}

	var data string
	switch {
	case c.Action == lifecycle.ActionAssign:
		data, _ = Encode(KindSelectDecorator, bookingID)
	case c.Action != "":
		data = TransitionData(c.Action, bookingID)
	case c.Kind == lifecycle.ControlEdit:
		data, _ = Encode(KindEdit, bookingID)
	case c.Kind == lifecycle.ControlCancel:
		data, _ = Encode(KindCancel, bookingID)
	case c.Kind == lifecycle.ControlPay:
		data, _ = Encode(KindPay, bookingID)
	}
	return tgbotapi.NewInlineKeyboardButtonData(c.Label, data)
}

// DecoratorKeyboard lists decorators to pick for a booking, one per row.
func DecoratorKeyboard(bookingID string, decorators []models.Decorator) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(decorators))
	for _, d := range decorators {
		data, ok := Encode(KindPickDecorator, bookingID, d.ID)
		if !ok {
			continue
		}
		label := d.Name
		if d.Rating > 0 {
			label = fmt.Sprintf("%s ⭐ %.1f", d.Name, d.Rating)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func StatusIcon(s lifecycle.Status) string {
	switch s {
	case lifecycle.StatusPending:
		return "⏳"
	case lifecycle.StatusDecoratorAssigned:
		return "🎨"
	case lifecycle.StatusPlanning:
		return "📐"
	case lifecycle.StatusMaterialPrepared:
		return "📦"
	case lifecycle.StatusOnTheWay:
		return "🚚"
	case lifecycle.StatusSetupInProgress:
		return "🛠"
	case lifecycle.StatusCompleted:
		return "✅"
	default:
		return "❔"
	}
}

// Progress draws the position on the forward path, empty for unknown statuses.
func Progress(s lifecycle.Status) string {
	i := s.Ordinal()
	if i < 0 {
		return ""
	}
	total := len(lifecycle.AllStatuses())
	return "[" + strings.Repeat("●", i+1) + strings.Repeat("○", total-i-1) + "]"
}

func PaymentLabel(p lifecycle.PaymentStatus) string {
	if p == lifecycle.PaymentPaid {
		return "paid"
	}
	return "unpaid"
}

// ServiceLine is a one-line catalog entry.
func ServiceLine(s models.Service) string {
	return fmt.Sprintf("%s (%s): %s per %s", s.Name, s.Category, s.Cost.StringFixed(2), s.Unit)
}

// PaymentLine is a one-line history entry, the time shown in loc.
func PaymentLine(p models.Payment, loc *time.Location) string {
	currency := strings.ToUpper(p.Currency)
	paid := ""
	if !p.PaidAt.IsZero() {
		paid = p.PaidAt.In(loc).Format("2006-01-02 15:04")
	}
	return strings.TrimSpace(fmt.Sprintf("%s: %s %s, tx %s %s", p.ServiceName, p.Amount.StringFixed(2), currency, p.TransactionID, paid))
}
