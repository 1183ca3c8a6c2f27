package bot

import (
	"context"
	"fmt"
	"strings"

	"decorbook/internal/dashboard"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := msg.Text
	l := zerolog.Ctx(ctx)

	if b.metrics != nil {
		b.metrics.MessagesProcessed.Inc()
	}

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	l.Debug().
		Int64("chat_id", chatID).
		Str("username", username).
		Bool("command", msg.IsCommand()).
		Msg("Handling message")

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg)
		return
	}

	state := b.getUserState(ctx, chatID)
	if state != nil && b.handleUserStateSteps(ctx, msg, state) {
		return
	}

	b.sendMessage(chatID, "Send /help to see what I can do.")
}

// handleCommand resolves a command to a page and renders it. Any command
// abandons the dialog in progress.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd, _ := dashboard.SplitCommand(msg.Text)
	b.clearUserState(ctx, chatID)

	if cmd == "/cancel" {
		if b.searches != nil {
			b.searches.Forget(chatID)
		}
		b.metrics.command("cancel")
		b.sendMessage(chatID, "Cancelled. Send /help for the menu.")
		return
	}

	actor, signedIn := b.viewer(ctx, chatID)
	res := dashboard.Resolve(msg.Text, actor, signedIn)
	b.metrics.command(string(res.Page))
	zerolog.Ctx(ctx).Debug().Str("command", cmd).Str("page", string(res.Page)).Msg("route resolved")

	b.showPage(ctx, msg, res, actor, signedIn)
}

func (b *Bot) showPage(ctx context.Context, msg *tgbotapi.Message, res dashboard.Resolution, actor lifecycle.Actor, signedIn bool) {
	chatID := msg.Chat.ID

	switch res.Page {
	case dashboard.PageHome, dashboard.PageHelp:
		b.showHome(ctx, chatID, actor, signedIn)
	case dashboard.PageServices:
		b.startSearch(ctx, chatID, res.Args)
	case dashboard.PageService:
		if res.Args == "" {
			b.sendMessage(chatID, "Usage: /service <id>. Browse the catalog with /services.")
			return
		}
		b.showService(ctx, chatID, 0, res.Args)
	case dashboard.PageCoverage:
		b.showCoverage(ctx, chatID, res.Args)
	case dashboard.PageAbout:
		b.showAbout(ctx, chatID)
	case dashboard.PageContact:
		b.showContact(chatID)
	case dashboard.PageLogin:
		b.startLogin(ctx, chatID, signedIn)
	case dashboard.PageRegister:
		b.startRegister(ctx, chatID, signedIn)
	case dashboard.PageDemo:
		b.showDemo(chatID)
	case dashboard.PageBookings, dashboard.PageManageBookings, dashboard.PageProjects:
		b.showBookings(ctx, chatID, 0, 0, actor)
	case dashboard.PagePayments:
		b.showPayments(ctx, chatID)
	case dashboard.PageProfile:
		b.showProfile(ctx, chatID)
	case dashboard.PageLogout:
		b.logout(ctx, chatID)
	case dashboard.PageDecorators:
		b.showDecorators(ctx, chatID, 0)
	case dashboard.PageAnalytics:
		b.showAnalytics(ctx, chatID)
	case dashboard.PageNewService:
		b.startNewService(ctx, chatID)
	case dashboard.PageDeleteService:
		b.showDeleteService(ctx, chatID, res.Args)
	case dashboard.PageForbidden:
		b.sendMessage(chatID, "⛔ This page is not available for your role.")
	case dashboard.PageLoginRequired:
		b.sendMessage(chatID, "🔐 Please sign in first: /login (or /register, or try /demo).")
	default:
		b.sendMessage(chatID, "🤷 Unknown command. Send /help for the list.")
	}
}

func (b *Bot) showHome(ctx context.Context, chatID int64, actor lifecycle.Actor, signedIn bool) {
	name := ""
	if signedIn {
		if sess, err := b.users.Session(ctx, chatID); err == nil && sess != nil {
			name = sess.Name()
		}
	}
	text := menuText(actor, signedIn, name)

	// на главной показываем лучших декораторов, если API отвечает
	if top, err := b.catalog.TopDecorators(ctx); err == nil && len(top) > 0 {
		var sb strings.Builder
		sb.WriteString("\n⭐ Top decorators:\n")
		for i, d := range top {
			if i == 3 {
				break
			}
			sb.WriteString(fmt.Sprintf("%d. %s", i+1, d.Name))
			if d.Rating > 0 {
				sb.WriteString(fmt.Sprintf(" (%.1f)", d.Rating))
			}
			sb.WriteString("\n")
		}
		text += sb.String()
	}
	b.sendMessage(chatID, text)
}

func (b *Bot) showAbout(ctx context.Context, chatID int64) {
	text := "🎀 DecorBook connects you with professional decorators for home and venue events.\n\n" +
		"Book in-studio consultations or on-site decoration, pay online, and follow every step: " +
		"planning, materials, travel and setup."
	if b.coverage != nil && b.coverage.Len() > 0 {
		text += fmt.Sprintf("\n\nWe currently serve %d districts. See /coverage.", len(b.coverage.Districts()))
	}
	b.sendMessage(chatID, text)
}

func (b *Bot) showContact(chatID int64) {
	contact := b.config.Bot.SupportContact
	if contact == "" {
		contact = "our support team"
	}
	b.sendMessage(chatID, "📞 Questions about a booking? Write to "+contact+".\nWorking hours: "+models.WorkdayStart+" to "+models.WorkdayEnd+".")
}

func (b *Bot) showDemo(chatID int64) {
	var row []tgbotapi.InlineKeyboardButton
	for _, role := range []string{models.RoleCustomer, models.RoleDecorator, models.RoleAdmin} {
		if _, ok := b.config.Demo.Account(role); ok {
			row = append(row, callbackButton("Try as "+role, dashboard.KindDemo, role))
		}
	}
	if len(row) == 0 {
		b.sendMessage(chatID, "Demo accounts are not available right now.")
		return
	}
	b.sendKeyboard(chatID, "🎭 Explore the dashboard with a demo account:", tgbotapi.NewInlineKeyboardMarkup(row))
}

func (b *Bot) startLogin(ctx context.Context, chatID int64, signedIn bool) {
	if signedIn {
		b.sendMessage(chatID, "You are already signed in. Use /logout to switch accounts.")
		return
	}
	b.setUserState(ctx, chatID, models.StateLoginEmail, nil)

	text := "🔐 Sign in\n\nSend your email address, or /cancel."
	if b.google == nil || b.oauth == nil {
		b.sendMessage(chatID, text)
		return
	}

	state := uuid.NewString()
	if err := b.oauth.SaveOAuthState(ctx, state, chatID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("save oauth state")
		b.sendMessage(chatID, text)
		return
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("Sign in with Google", b.google.AuthURL(state)),
	))
	b.sendKeyboard(chatID, text, keyboard)
}

func (b *Bot) startRegister(ctx context.Context, chatID int64, signedIn bool) {
	if signedIn {
		b.sendMessage(chatID, "You are already signed in. Use /logout first to create another account.")
		return
	}
	b.setUserState(ctx, chatID, models.StateRegisterName, nil)
	b.sendMessage(chatID, "📝 Create an account\n\nWhat is your name?")
}

func (b *Bot) logout(ctx context.Context, chatID int64) {
	if err := b.users.SignOut(ctx, chatID); err != nil {
		b.sendError(ctx, chatID, err, "sign out")
		return
	}
	if b.searches != nil {
		b.searches.Forget(chatID)
	}
	b.sendMessage(chatID, "👋 Signed out. See you soon!")
}

func (b *Bot) showProfile(ctx context.Context, chatID int64) {
	sess, err := b.users.Session(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "profile")
		return
	}
	if sess == nil {
		b.sendMessage(chatID, "🔐 Please sign in first: /login")
		return
	}

	var sb strings.Builder
	sb.WriteString("👤 Profile\n\n")
	sb.WriteString("Name: " + sess.Name() + "\n")
	sb.WriteString("Email: " + sess.Email + "\n")
	sb.WriteString("Role: " + sess.Role + "\n")
	if sess.PhotoURL != "" {
		sb.WriteString("Photo: " + sess.PhotoURL + "\n")
	}
	if !sess.LastLoginAt.IsZero() {
		sb.WriteString("Last sign-in: " + sess.LastLoginAt.In(b.loc).Format("2006-01-02 15:04") + "\n")
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		callbackButton("✏️ Edit profile", dashboard.KindProfile, "edit"),
	))
	b.sendKeyboard(chatID, sb.String(), keyboard)
}

func (b *Bot) showCoverage(ctx context.Context, chatID int64, query string) {
	if b.coverage == nil || b.coverage.Len() == 0 {
		b.sendMessage(chatID, "Coverage information is not available right now.")
		return
	}
	if strings.TrimSpace(query) == "" {
		b.setUserState(ctx, chatID, models.StateCoverageSearch, nil)
		b.sendMessage(chatID, "🗺 We serve these districts:\n"+strings.Join(b.coverage.Districts(), ", ")+
			"\n\nSend a district or area name to see the nearest warehouse.")
		return
	}
	b.sendCoverageMatches(chatID, query)
}
