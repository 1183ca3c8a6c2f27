package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"decorbook/internal/coverage"
	"decorbook/internal/dashboard"
	"decorbook/internal/lifecycle"
	"decorbook/internal/media"
	"decorbook/internal/models"
	"decorbook/internal/search"
	"decorbook/internal/service"
	"decorbook/internal/validation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Keys of the dialog scratch data. Values are stored as strings so they
// survive the JSON round trip through Redis unchanged.
const (
	keyServiceID   = "service_id"
	keyServiceName = "service_name"
	keyEditID      = "edit_id"
	keyServiceType = "service_type"
	keyLocation    = "location"
	keyDate        = "date"
	keyTime        = "time"
	keyUnits       = "units"
	keyNotes       = "notes"
	keyEmail       = "email"
	keyName        = "name"
	keyQuery       = "query"
	keyCategory    = "category"
	keyCost        = "cost"
	keyUnit        = "unit"
	keyDescription = "description"
)

// handleUserStateSteps routes free text to the dialog step the chat is in.
// It reports false when the step does not take text.
func (b *Bot) handleUserStateSteps(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) bool {
	chatID := msg.Chat.ID
	text := sanitizeInput(msg.Text)

	switch state.CurrentStep {
	case models.StateLoginEmail:
		b.handleLoginEmail(ctx, chatID, text, state)
	case models.StateLoginPassword:
		b.handleLoginPassword(ctx, msg, state)
	case models.StateRegisterName:
		b.handleRegisterName(ctx, chatID, text, state)
	case models.StateRegisterEmail:
		b.handleRegisterEmail(ctx, chatID, text, state)
	case models.StateRegisterPass:
		b.handleRegisterPassword(ctx, msg, state)
	case models.StateSearch:
		b.submitSearch(ctx, chatID, text, false)
	case models.StateCoverageSearch:
		b.sendCoverageMatches(chatID, text)
	case models.StateBookType:
		b.sendMessage(chatID, "Please choose the service type with the buttons above.")
	case models.StateBookLocation:
		b.handleBookLocation(ctx, chatID, text, state)
	case models.StateBookDate:
		b.handleBookDate(ctx, chatID, text, state)
	case models.StateBookTime:
		b.handleBookTime(ctx, chatID, text, state)
	case models.StateBookUnits:
		b.handleBookUnits(ctx, chatID, text, state)
	case models.StateBookNotes:
		b.handleBookNotes(ctx, chatID, text, state)
	case models.StateBookConfirm:
		b.sendMessage(chatID, "Please confirm or cancel with the buttons above.")
	case models.StateProfileName:
		b.handleProfileName(ctx, chatID, text, state)
	case models.StateProfilePhoto:
		b.handleProfilePhoto(ctx, msg, state)
	case models.StateServiceName, models.StateServiceCat, models.StateServiceCost,
		models.StateServiceUnit, models.StateServiceDesc:
		b.handleServiceStep(ctx, chatID, text, state)
	case models.StateServiceImage:
		b.handleServiceImage(ctx, msg, state)
	default:
		return false
	}
	return true
}

// fieldProblem returns the message of the first complaint about field.
func fieldProblem(err error, field string) (string, bool) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return "", false
	}
	for _, fe := range verrs {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.tgService.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("delete message")
	}
}

// Sign in

func (b *Bot) handleLoginEmail(ctx context.Context, chatID int64, text string, state *models.UserState) {
	if !strings.Contains(text, "@") {
		b.sendMessage(chatID, "⚠️ That does not look like an email address. Try again or /cancel.")
		return
	}
	state.Set(keyEmail, strings.ToLower(text))
	b.setUserState(ctx, chatID, models.StateLoginPassword, state.TempData)
	b.sendMessage(chatID, "Now send your password. The message will be deleted right away.")
}

func (b *Bot) handleLoginPassword(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	chatID := msg.Chat.ID
	b.deleteMessage(chatID, msg.MessageID)

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	sess, err := b.users.SignIn(ctx, chatID, username, state.GetString(keyEmail), strings.TrimSpace(msg.Text))
	if err != nil {
		b.clearUserState(ctx, chatID)
		b.sendError(ctx, chatID, err, "sign in")
		return
	}
	b.clearUserState(ctx, chatID)
	b.welcome(ctx, chatID, sess)
}

func (b *Bot) welcome(ctx context.Context, chatID int64, sess *models.Session) {
	actor, _ := lifecycle.ParseActor(sess.Role)
	b.sendMessage(chatID, menuText(actor, true, sess.Name()))
}

// Registration

func (b *Bot) handleRegisterName(ctx context.Context, chatID int64, text string, state *models.UserState) {
	err := b.validator.SignUp(validation.SignUpForm{Name: text})
	if problem, ok := fieldProblem(err, "Name"); ok {
		b.sendMessage(chatID, "⚠️ "+problem)
		return
	}
	state.Set(keyName, text)
	b.setUserState(ctx, chatID, models.StateRegisterEmail, state.TempData)
	b.sendMessage(chatID, "Your email address?")
}

func (b *Bot) handleRegisterEmail(ctx context.Context, chatID int64, text string, state *models.UserState) {
	err := b.validator.SignUp(validation.SignUpForm{Email: text})
	if problem, ok := fieldProblem(err, "Email"); ok {
		b.sendMessage(chatID, "⚠️ "+problem)
		return
	}
	state.Set(keyEmail, strings.ToLower(text))
	b.setUserState(ctx, chatID, models.StateRegisterPass, state.TempData)
	b.sendMessage(chatID, "Choose a password (at least 6 characters). The message will be deleted right away.")
}

func (b *Bot) handleRegisterPassword(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	chatID := msg.Chat.ID
	b.deleteMessage(chatID, msg.MessageID)

	form := validation.SignUpForm{
		Name:     state.GetString(keyName),
		Email:    state.GetString(keyEmail),
		Password: strings.TrimSpace(msg.Text),
	}
	if problem, ok := fieldProblem(b.validator.SignUp(form), "Password"); ok {
		b.sendMessage(chatID, "⚠️ "+problem)
		return
	}

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	sess, err := b.users.SignUp(ctx, chatID, username, form, "")
	b.clearUserState(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "sign up")
		return
	}
	b.sendMessage(chatID, "🎉 Your account is ready.")
	b.welcome(ctx, chatID, sess)
}

// Profile

func (b *Bot) startProfileEdit(ctx context.Context, chatID int64) {
	b.setUserState(ctx, chatID, models.StateProfileName, nil)
	b.sendMessage(chatID, "✏️ Send your new display name, or /cancel.")
}

func (b *Bot) handleProfileName(ctx context.Context, chatID int64, text string, state *models.UserState) {
	err := b.validator.Profile(validation.ProfileForm{DisplayName: text})
	if problem, ok := fieldProblem(err, "DisplayName"); ok {
		b.sendMessage(chatID, "⚠️ "+problem)
		return
	}
	state.Set(keyName, text)
	b.setUserState(ctx, chatID, models.StateProfilePhoto, state.TempData)
	b.sendMessage(chatID, "Send a photo or a photo URL for your profile, or \"-\" to keep the current one.")
}

func (b *Bot) handleProfilePhoto(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	chatID := msg.Chat.ID
	form := validation.ProfileForm{DisplayName: state.GetString(keyName)}

	switch {
	case len(msg.Photo) > 0:
		url, err := b.uploadPhoto(ctx, msg.Photo, "profile")
		if err != nil {
			b.sendError(ctx, chatID, err, "upload profile photo")
			return
		}
		form.PhotoURL = url
	case skipped(msg.Text):
		if sess, err := b.users.Session(ctx, chatID); err == nil && sess != nil {
			form.PhotoURL = sess.PhotoURL
		}
	default:
		form.PhotoURL = sanitizeInput(msg.Text)
	}

	sess, err := b.users.UpdateProfile(ctx, chatID, form)
	if err != nil {
		if _, ok := fieldProblem(err, "PhotoURL"); ok {
			b.sendMessage(chatID, userMessage(err))
			return
		}
		b.clearUserState(ctx, chatID)
		b.sendError(ctx, chatID, err, "update profile")
		return
	}
	b.clearUserState(ctx, chatID)
	b.sendMessage(chatID, "✅ Profile updated, "+sess.Name()+".")
}

// uploadPhoto copies the largest size of a Telegram photo to image hosting.
func (b *Bot) uploadPhoto(ctx context.Context, sizes []tgbotapi.PhotoSize, prefix string) (string, error) {
	if b.media == nil {
		return "", media.ErrNotConfigured
	}
	body, name, err := b.fetchPhoto(ctx, sizes, prefix)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return b.media.Upload(ctx, name, body)
}

func (b *Bot) fetchPhoto(ctx context.Context, sizes []tgbotapi.PhotoSize, prefix string) (io.ReadCloser, string, error) {
	largest := sizes[len(sizes)-1]
	url, err := b.tgService.FileURL(largest.FileID)
	if err != nil {
		return nil, "", fmt.Errorf("file url: %w", err)
	}
	body, err := media.Fetch(ctx, b.httpClient, url)
	if err != nil {
		return nil, "", err
	}
	return body, prefix + "_" + largest.FileUniqueID, nil
}

// Catalog search

func (b *Bot) startSearch(ctx context.Context, chatID int64, query string) {
	b.setUserState(ctx, chatID, models.StateSearch, map[string]interface{}{keyQuery: query})
	if query == "" {
		b.sendMessage(chatID, "🔎 Type what you are looking for (e.g. wedding, birthday). Here is the full catalog:")
	}
	b.submitSearch(ctx, chatID, query, true)
}

// submitSearch sends a catalog query for the chat. Typed queries are
// debounced; a newer query supersedes the result of an older one.
func (b *Bot) submitSearch(ctx context.Context, chatID int64, query string, immediate bool) {
	b.searchPage(ctx, chatID, 0, query, 1, immediate)
}

func (b *Bot) searchPage(ctx context.Context, chatID int64, messageID int, query string, page int, immediate bool) {
	b.setUserState(ctx, chatID, models.StateSearch, map[string]interface{}{keyQuery: query})
	filter := models.ServiceFilter{Search: query, Page: page, Limit: b.pageSize()}

	if b.searches == nil {
		result, err := b.catalog.Search(ctx, filter)
		if err != nil {
			b.sendError(ctx, chatID, err, "search services")
			return
		}
		b.showSearchResult(chatID, messageID, filter, result)
		return
	}

	// the coordinator outlives this update, so the target message is looked up on delivery
	b.searchTargets.Store(chatID, messageID)
	c := b.searches.For(chatID, func(r search.Result) {
		if r.Err != nil {
			b.logger.Warn().Err(r.Err).Int64("chat_id", chatID).Uint64("seq", r.Seq).Msg("search failed")
			b.sendMessage(chatID, userMessage(r.Err))
			return
		}
		target, _ := b.searchTargets.Load(chatID)
		msgID, _ := target.(int)
		b.showSearchResult(chatID, msgID, r.Filter, r.Page)
	})
	if immediate {
		c.SubmitNow(filter)
		return
	}
	c.Submit(filter)
}

func (b *Bot) showSearchResult(chatID int64, messageID int, filter models.ServiceFilter, result *models.ServicePage) {
	title := "🛍 Services"
	if filter.Search != "" {
		title = fmt.Sprintf("🛍 Services matching \"%s\"", filter.Search)
	}
	page := filter.Page - 1
	if page < 0 {
		page = 0
	}
	b.renderServicePage(PaginationParams{
		ChatID:    chatID,
		MessageID: messageID,
		Page:      page,
		Title:     title,
		PageKind:  dashboard.KindServicesPage,
	}, result, filter.Limit)
}

func (b *Bot) pageSize() int {
	if b.config.Bot.PageSize > 0 {
		return b.config.Bot.PageSize
	}
	return models.DefaultPaginationSize
}

// Coverage

func (b *Bot) sendCoverageMatches(chatID int64, query string) {
	if b.coverage == nil {
		b.sendMessage(chatID, "Coverage information is not available right now.")
		return
	}
	matches := b.coverage.Search(query)
	if len(matches) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("😔 We do not cover \"%s\" yet. Send another area or /cancel.", query))
		return
	}

	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, w := range matches {
		if i == 5 {
			break
		}
		sb.WriteString(fmt.Sprintf("📍 %s, %s (%s)\n", w.District, w.Region, w.Status))
		if len(w.CoveredArea) > 0 {
			sb.WriteString("   Areas: " + strings.Join(w.CoveredArea, ", ") + "\n")
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🗺 "+w.District, coverage.MapLink(w)),
		))
	}
	b.sendKeyboard(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// Booking dialog

func (b *Bot) startBooking(ctx context.Context, chatID int64, serviceID string) {
	if _, signedIn := b.viewer(ctx, chatID); !signedIn {
		b.sendMessage(chatID, "🔐 Please sign in to book: /login")
		return
	}
	svc, err := b.catalog.Get(ctx, serviceID)
	if err != nil {
		b.sendError(ctx, chatID, err, "load service")
		return
	}
	data := map[string]interface{}{keyServiceID: svc.ID, keyServiceName: svc.Name}
	b.setUserState(ctx, chatID, models.StateBookType, data)
	b.askServiceType(chatID, svc.Name)
}

func (b *Bot) startBookingEdit(ctx context.Context, chatID int64, bookingID string) {
	booking, err := b.bookings.Get(ctx, chatID, bookingID)
	if err != nil {
		b.sendError(ctx, chatID, err, "load booking")
		return
	}
	if booking.Status != lifecycle.StatusPending || booking.PaymentStatus == lifecycle.PaymentPaid {
		b.sendMessage(chatID, userMessage(service.ErrNotEditable))
		return
	}
	data := map[string]interface{}{
		keyEditID:      booking.ID,
		keyServiceID:   booking.ServiceID,
		keyServiceName: booking.ServiceName,
		keyLocation:    booking.Location,
		keyNotes:       booking.Notes,
		keyUnits:       strconv.Itoa(booking.TotalUnit),
	}
	b.setUserState(ctx, chatID, models.StateBookType, data)
	b.askServiceType(chatID, booking.ServiceName+" (editing)")
}

func (b *Bot) askServiceType(chatID int64, serviceName string) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		callbackButton("🏠 In-studio", dashboard.KindServiceType, string(lifecycle.ServiceInStudio)),
		callbackButton("📍 On-site", dashboard.KindServiceType, string(lifecycle.ServiceOnSite)),
	))
	b.sendKeyboard(chatID, "📅 Booking: "+serviceName+"\n\nWhere should the work happen?", keyboard)
}

func (b *Bot) handleServiceType(ctx context.Context, chatID int64, value string) {
	state := b.getUserState(ctx, chatID)
	if state == nil || state.CurrentStep != models.StateBookType {
		b.sendMessage(chatID, "This booking dialog has expired. Open the service again with /services.")
		return
	}
	st, err := lifecycle.ParseServiceType(value)
	if err != nil {
		b.sendMessage(chatID, "⚠️ Unknown service type.")
		return
	}
	state.Set(keyServiceType, string(st))

	if st == lifecycle.ServiceOnSite {
		b.setUserState(ctx, chatID, models.StateBookLocation, state.TempData)
		prompt := "📍 Send the venue address."
		if prev := state.GetString(keyLocation); prev != "" {
			prompt += " Current: " + prev + " (send \"-\" to keep it)."
		}
		b.sendMessage(chatID, prompt)
		return
	}
	state.Set(keyLocation, "")
	b.setUserState(ctx, chatID, models.StateBookDate, state.TempData)
	b.askDate(chatID)
}

func (b *Bot) askDate(chatID int64) {
	tomorrow := b.now().In(b.loc).AddDate(0, 0, 1).Format(models.DateFormat)
	b.sendMessage(chatID, "📅 Which date? Use YYYY-MM-DD, for example "+tomorrow+".")
}

// bookingForm rebuilds the form from the dialog data.
func bookingForm(state *models.UserState) validation.BookingForm {
	units, _ := strconv.Atoi(state.GetString(keyUnits))
	return validation.BookingForm{
		ServiceType: lifecycle.ServiceType(state.GetString(keyServiceType)),
		Location:    state.GetString(keyLocation),
		Date:        state.GetString(keyDate),
		Time:        state.GetString(keyTime),
		TotalUnit:   units,
		Notes:       state.GetString(keyNotes),
	}
}

// checkField validates the form so far and reports the complaint about one field.
func (b *Bot) checkField(chatID int64, form validation.BookingForm, field string) bool {
	if problem, ok := fieldProblem(b.validator.Booking(form), field); ok {
		b.sendMessage(chatID, "⚠️ "+problem+". Try again or /cancel.")
		return false
	}
	return true
}

func (b *Bot) handleBookLocation(ctx context.Context, chatID int64, text string, state *models.UserState) {
	if !(skipped(text) && state.GetString(keyLocation) != "") {
		state.Set(keyLocation, text)
	}
	if !b.checkField(chatID, bookingForm(state), "Location") {
		return
	}
	b.setUserState(ctx, chatID, models.StateBookDate, state.TempData)
	b.askDate(chatID)
}

func (b *Bot) handleBookDate(ctx context.Context, chatID int64, text string, state *models.UserState) {
	state.Set(keyDate, text)
	if !b.checkField(chatID, bookingForm(state), "Date") {
		return
	}
	b.setUserState(ctx, chatID, models.StateBookTime, state.TempData)
	b.sendMessage(chatID, fmt.Sprintf("🕐 What time? Use HH:MM between %s and %s.", models.WorkdayStart, models.WorkdayEnd))
}

func (b *Bot) handleBookTime(ctx context.Context, chatID int64, text string, state *models.UserState) {
	state.Set(keyTime, text)
	if !b.checkField(chatID, bookingForm(state), "Time") {
		return
	}
	b.setUserState(ctx, chatID, models.StateBookUnits, state.TempData)
	prompt := "🔢 How many units?"
	if prev := state.GetString(keyUnits); prev != "" {
		prompt += " Current: " + prev + "."
	}
	b.sendMessage(chatID, prompt)
}

func (b *Bot) handleBookUnits(ctx context.Context, chatID int64, text string, state *models.UserState) {
	if _, err := strconv.Atoi(text); err != nil {
		b.sendMessage(chatID, "⚠️ Please send a whole number.")
		return
	}
	state.Set(keyUnits, text)
	if !b.checkField(chatID, bookingForm(state), "TotalUnit") {
		return
	}
	b.setUserState(ctx, chatID, models.StateBookNotes, state.TempData)
	b.sendMessage(chatID, "📝 Any notes for the decorator? Send \"-\" to skip.")
}

func (b *Bot) handleBookNotes(ctx context.Context, chatID int64, text string, state *models.UserState) {
	if skipped(text) {
		text = ""
	}
	state.Set(keyNotes, text)
	form := bookingForm(state)
	if !b.checkField(chatID, form, "Notes") {
		return
	}
	b.setUserState(ctx, chatID, models.StateBookConfirm, state.TempData)

	var sb strings.Builder
	sb.WriteString("Please check your booking:\n\n")
	sb.WriteString("🎀 " + state.GetString(keyServiceName) + "\n")
	if form.ServiceType == lifecycle.ServiceOnSite {
		sb.WriteString("📍 On-site: " + form.Location + "\n")
	} else {
		sb.WriteString("🏠 In-studio\n")
	}
	sb.WriteString(fmt.Sprintf("📅 %s %s\n🔢 %d units\n", form.Date, form.Time, form.TotalUnit))
	if form.Notes != "" {
		sb.WriteString("📝 " + form.Notes + "\n")
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		callbackButton("✅ Confirm", dashboard.KindConfirm, "book"),
		callbackButton("✖️ Cancel", dashboard.KindAbort, "book"),
	))
	b.sendKeyboard(chatID, sb.String(), keyboard)
}

// confirmBooking submits the dialog as a new booking or as an edit.
func (b *Bot) confirmBooking(ctx context.Context, chatID int64, messageID int) {
	state := b.getUserState(ctx, chatID)
	if state == nil || state.CurrentStep != models.StateBookConfirm {
		b.sendMessage(chatID, "This booking dialog has expired. Please start again.")
		return
	}
	form := bookingForm(state)
	actor, _ := b.viewer(ctx, chatID)

	var (
		booking *models.Booking
		err     error
		done    string
	)
	if editID := state.GetString(keyEditID); editID != "" {
		booking, err = b.bookings.Update(ctx, chatID, editID, form)
		done = "✅ Booking updated."
	} else {
		var svc *models.Service
		svc, err = b.catalog.Get(ctx, state.GetString(keyServiceID))
		if err == nil {
			booking, err = b.bookings.Create(ctx, chatID, svc, form)
		}
		done = "✅ Booking created. Pay online to confirm it."
	}
	if err != nil {
		// validation errors keep the dialog so the user can /cancel or retry
		b.sendError(ctx, chatID, err, "submit booking")
		return
	}
	b.clearUserState(ctx, chatID)

	if b.metrics != nil && state.GetString(keyEditID) == "" {
		b.metrics.BookingsCreated.WithLabelValues(string(form.ServiceType)).Inc()
	}
	if messageID != 0 {
		_, _ = b.tgService.EditMessage(chatID, messageID, done, nil)
	} else {
		b.sendMessage(chatID, done)
	}
	b.sendBookingCard(chatID, *booking, actor)
}

// New service (admin)

func (b *Bot) startNewService(ctx context.Context, chatID int64) {
	b.setUserState(ctx, chatID, models.StateServiceName, nil)
	b.sendMessage(chatID, "🆕 New service\n\nName of the service?")
}

var serviceSteps = []struct {
	step   string
	key    string
	field  string
	prompt string
}{
	{models.StateServiceName, keyName, "Name", "Name of the service?"},
	{models.StateServiceCat, keyCategory, "Category", "Category (e.g. wedding, birthday, corporate)?"},
	{models.StateServiceCost, keyCost, "Cost", "Cost per unit?"},
	{models.StateServiceUnit, keyUnit, "Unit", "Unit of measure (e.g. per event, per sq-ft)?"},
	{models.StateServiceDesc, keyDescription, "Description", "Short description, or \"-\" to skip."},
}

func serviceForm(state *models.UserState) validation.ServiceForm {
	cost, _ := strconv.ParseFloat(state.GetString(keyCost), 64)
	return validation.ServiceForm{
		Name:        state.GetString(keyName),
		Category:    state.GetString(keyCategory),
		Cost:        cost,
		Unit:        state.GetString(keyUnit),
		Description: state.GetString(keyDescription),
	}
}

func (b *Bot) handleServiceStep(ctx context.Context, chatID int64, text string, state *models.UserState) {
	for i, s := range serviceSteps {
		if s.step != state.CurrentStep {
			continue
		}
		if s.key == keyDescription && skipped(text) {
			text = ""
		}
		if s.key == keyCost {
			if _, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64); err != nil {
				b.sendMessage(chatID, "⚠️ Please send a number, e.g. 149.99.")
				return
			}
			text = strings.ReplaceAll(text, ",", ".")
		}
		state.Set(s.key, text)
		if problem, ok := fieldProblem(b.validator.Service(serviceForm(state)), s.field); ok {
			b.sendMessage(chatID, "⚠️ "+problem)
			return
		}

		if i+1 < len(serviceSteps) {
			next := serviceSteps[i+1]
			b.setUserState(ctx, chatID, next.step, state.TempData)
			b.sendMessage(chatID, next.prompt)
			return
		}
		b.setUserState(ctx, chatID, models.StateServiceImage, state.TempData)
		b.sendMessage(chatID, "🖼 Send a photo for the service, or \"-\" to publish without one.")
		return
	}
}

func (b *Bot) handleServiceImage(ctx context.Context, msg *tgbotapi.Message, state *models.UserState) {
	chatID := msg.Chat.ID
	form := serviceForm(state)

	var (
		image io.Reader
		name  string
	)
	switch {
	case len(msg.Photo) > 0:
		body, fileName, err := b.fetchPhoto(ctx, msg.Photo, "service")
		if err != nil {
			b.sendError(ctx, chatID, err, "fetch service image")
			return
		}
		defer body.Close()
		image, name = body, fileName
	case skipped(msg.Text):
	default:
		b.sendMessage(chatID, "Please send a photo, or \"-\" to skip.")
		return
	}

	svc, err := b.catalog.CreateService(ctx, chatID, form, name, image)
	b.clearUserState(ctx, chatID)
	if err != nil {
		b.sendError(ctx, chatID, err, "create service")
		return
	}
	b.sendMessage(chatID, "✅ Service published: "+dashboard.ServiceLine(*svc))
}
