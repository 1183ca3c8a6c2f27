package bot

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"decorbook/internal/config"
	"decorbook/internal/domain"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/service"
	"decorbook/internal/validation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type sentMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  *tgbotapi.InlineKeyboardMarkup
	Edit      bool
}

type mockTelegramService struct {
	domain.TelegramService

	mu          sync.Mutex
	updatesChan chan tgbotapi.Update
	sent        []sentMessage
	answers     map[string]string
	documents   []string
}

func newMockTelegram() *mockTelegramService {
	return &mockTelegramService{updatesChan: make(chan tgbotapi.Update, 4), answers: map[string]string{}}
}

func (m *mockTelegramService) record(s sentMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
}

func (m *mockTelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "decor_test_bot"}
}

func (m *mockTelegramService) StopReceivingUpdates() {}

func (m *mockTelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	m.record(sentMessage{ChatID: chatID, Text: text})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.record(sentMessage{ChatID: chatID, Text: text, Keyboard: &keyboard})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	m.record(sentMessage{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: keyboard, Edit: true})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) AnswerCallback(callbackID string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[callbackID] = text
	return nil
}

func (m *mockTelegramService) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegramService) SendDocument(chatID int64, name string, data []byte, caption string) (tgbotapi.Message, error) {
	m.mu.Lock()
	m.documents = append(m.documents, name)
	m.mu.Unlock()
	m.record(sentMessage{ChatID: chatID, Text: caption})
	return tgbotapi.Message{}, nil
}

func (m *mockTelegramService) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *mockTelegramService) last() sentMessage {
	msgs := m.messages()
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

func (m *mockTelegramService) sentTo(chatID int64) []string {
	var out []string
	for _, s := range m.messages() {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

func (m *mockTelegramService) anyContains(chatID int64, part string) bool {
	for _, text := range m.sentTo(chatID) {
		if strings.Contains(text, part) {
			return true
		}
	}
	return false
}

type mockStateManager struct {
	domain.StateManager

	mu      sync.Mutex
	states  map[int64]*models.UserState
	limited bool
}

func newMockState() *mockStateManager {
	return &mockStateManager{states: make(map[int64]*models.UserState)}
}

func (m *mockStateManager) SetUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]interface{}, len(data))
	for k, v := range data {
		copied[k] = v
	}
	m.states[userID] = &models.UserState{UserID: userID, CurrentStep: step, TempData: copied}
	return nil
}

func (m *mockStateManager) GetUserState(ctx context.Context, userID int64) (*models.UserState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID], nil
}

func (m *mockStateManager) ClearUserState(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

func (m *mockStateManager) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return !m.limited, nil
}

func (m *mockStateManager) step(chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[chatID]; ok {
		return s.CurrentStep
	}
	return ""
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) SignUp(ctx context.Context, chatID int64, username string, form validation.SignUpForm, photoURL string) (*models.Session, error) {
	args := m.Called(ctx, chatID, username, form, photoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockUsers) SignIn(ctx context.Context, chatID int64, username, email, password string) (*models.Session, error) {
	args := m.Called(ctx, chatID, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockUsers) SignOut(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *mockUsers) UpdateProfile(ctx context.Context, chatID int64, form validation.ProfileForm) (*models.Session, error) {
	args := m.Called(ctx, chatID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockUsers) Session(ctx context.Context, chatID int64) (*models.Session, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockUsers) Role(ctx context.Context, chatID int64) (lifecycle.Actor, bool, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(lifecycle.Actor), args.Bool(1), args.Error(2)
}

type mockBookings struct{ mock.Mock }

func (m *mockBookings) Create(ctx context.Context, chatID int64, svc *models.Service, form validation.BookingForm) (*models.Booking, error) {
	args := m.Called(ctx, chatID, svc, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookings) Update(ctx context.Context, chatID int64, bookingID string, form validation.BookingForm) (*models.Booking, error) {
	args := m.Called(ctx, chatID, bookingID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookings) Cancel(ctx context.Context, chatID int64, bookingID string) error {
	return m.Called(ctx, chatID, bookingID).Error(0)
}

func (m *mockBookings) ListFor(ctx context.Context, chatID int64) ([]models.Booking, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookings) Get(ctx context.Context, chatID int64, bookingID string) (*models.Booking, error) {
	args := m.Called(ctx, chatID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookings) Transition(ctx context.Context, chatID int64, bookingID string, action lifecycle.Action) (*service.TransitionResult, error) {
	args := m.Called(ctx, chatID, bookingID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransitionResult), args.Error(1)
}

func (m *mockBookings) AssignDecorator(ctx context.Context, chatID int64, bookingID, decoratorID string) (*service.TransitionResult, error) {
	args := m.Called(ctx, chatID, bookingID, decoratorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransitionResult), args.Error(1)
}

func (m *mockBookings) AvailableDecorators(ctx context.Context, chatID int64) ([]models.Decorator, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Decorator), args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Search(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServicePage), args.Error(1)
}

func (m *mockCatalog) Get(ctx context.Context, id string) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *mockCatalog) TopDecorators(ctx context.Context) ([]models.Decorator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Decorator), args.Error(1)
}

func (m *mockCatalog) Decorators(ctx context.Context, chatID int64) ([]models.Decorator, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Decorator), args.Error(1)
}

func (m *mockCatalog) CreateService(ctx context.Context, chatID int64, form validation.ServiceForm, imageName string, image io.Reader) (*models.Service, error) {
	args := m.Called(ctx, chatID, form, imageName, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *mockCatalog) DeleteService(ctx context.Context, chatID int64, serviceID string) error {
	return m.Called(ctx, chatID, serviceID).Error(0)
}

func (m *mockCatalog) SetDecoratorStatus(ctx context.Context, chatID int64, decoratorID, status string) error {
	return m.Called(ctx, chatID, decoratorID, status).Error(0)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) StartCheckout(ctx context.Context, chatID int64, bookingID string) (string, error) {
	args := m.Called(ctx, chatID, bookingID)
	return args.String(0), args.Error(1)
}

func (m *mockPayments) History(ctx context.Context, chatID int64) ([]models.Payment, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

// fakeAccounts is an in-memory account directory plus watch ledger.
type fakeAccounts struct {
	mu       sync.Mutex
	accounts []*models.Account
	watched  map[int64]map[string]string
}

func (f *fakeAccounts) GetAccountsByEmail(ctx context.Context, email string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return f.accounts, nil
}

func (f *fakeAccounts) SaveWatchedStatus(ctx context.Context, chatID int64, bookingID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watched == nil {
		f.watched = make(map[int64]map[string]string)
	}
	if f.watched[chatID] == nil {
		f.watched[chatID] = make(map[string]string)
	}
	f.watched[chatID][bookingID] = status
	return nil
}

func (f *fakeAccounts) status(chatID int64, bookingID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watched[chatID][bookingID]
}

type testBot struct {
	*Bot
	tg       *mockTelegramService
	state    *mockStateManager
	users    *mockUsers
	bookings *mockBookings
	catalog  *mockCatalog
	payments *mockPayments
	accounts *fakeAccounts
}

// testNow is a Saturday morning in UTC.
var testNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func newTestBot(t *testing.T) *testBot {
	t.Helper()

	tb := &testBot{
		tg:       newMockTelegram(),
		state:    newMockState(),
		users:    &mockUsers{},
		bookings: &mockBookings{},
		catalog:  &mockCatalog{},
		payments: &mockPayments{},
		accounts: &fakeAccounts{},
	}
	clock := func() time.Time { return testNow }
	logger := zerolog.New(io.Discard)
	cfg := &config.Config{}
	cfg.Bot.RateLimitMessages = 30
	cfg.Bot.RateLimitWindow = 60
	cfg.Demo.Customer = config.DemoAccount{Email: "demo@decor.test", Password: "demo123"}

	tb.Bot = NewBot(tb.tg, cfg, Deps{
		State:     tb.state,
		Users:     tb.users,
		Bookings:  tb.bookings,
		Payments:  tb.payments,
		Catalog:   tb.catalog,
		Validator: validation.New(clock, time.UTC),
		Accounts:  tb.accounts,
		Watched:   tb.accounts,
		Clock:     clock,
	}, &logger)
	return tb
}

func (tb *testBot) as(chatID int64, actor lifecycle.Actor) {
	tb.users.On("Role", mock.Anything, chatID).Return(actor, actor != "", nil)
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: chatID, UserName: "tester"},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
}

func callbackQuery(chatID int64, messageID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: chatID, UserName: "tester"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}
}

func hasButton(kb *tgbotapi.InlineKeyboardMarkup, data string) bool {
	if kb == nil {
		return false
	}
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil && *btn.CallbackData == data {
				return true
			}
		}
	}
	return false
}
