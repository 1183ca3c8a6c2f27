package domain

import (
	"context"
	"io"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MarketplaceAPI is the REST surface the services consume. *api.Client implements it.
type MarketplaceAPI interface {
	ListServices(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
	CreateService(ctx context.Context, p api.ServicePayload) (*models.Service, error)
	UpdateService(ctx context.Context, id string, p api.ServicePayload) error
	DeleteService(ctx context.Context, id string) error
	ListDecorators(ctx context.Context, status string) ([]models.Decorator, error)
	TopDecorators(ctx context.Context) ([]models.Decorator, error)
	SetDecoratorStatus(ctx context.Context, id, status string) error

	CreateBooking(ctx context.Context, b api.NewBooking) (string, error)
	MyBookings(ctx context.Context, email string) ([]models.Booking, error)
	AllBookings(ctx context.Context) ([]models.Booking, error)
	DecoratorBookings(ctx context.Context, email string) ([]models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) error
	DeleteBooking(ctx context.Context, id string) error
	UpdateBookingStatus(ctx context.Context, id string, status lifecycle.Status) error
	AssignDecorator(ctx context.Context, id string, a models.Assignment) error

	UserRole(ctx context.Context, email string) (string, error)
	UpsertUser(ctx context.Context, u models.User) error
	UpdateUser(ctx context.Context, email string, p api.UserPatch) error

	CreateCheckoutSession(ctx context.Context, r api.CheckoutRequest) (string, error)
	ConfirmPayment(ctx context.Context, sessionID string) (*models.CheckoutConfirmation, error)
	Payments(ctx context.Context, email string) ([]models.Payment, error)
	Analytics(ctx context.Context) (*models.Analytics, error)

	InvalidateCache(ctx context.Context)
}

type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.UserState, error)
	SetState(ctx context.Context, state *models.UserState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// SessionRepository keeps the signed-in session of every chat.
type SessionRepository interface {
	GetSession(ctx context.Context, chatID int64) (*models.Session, error)
	SetSession(ctx context.Context, chatID int64, session *models.Session) error
	ClearSession(ctx context.Context, chatID int64) error
	SaveOAuthState(ctx context.Context, state string, chatID int64) error
	TakeOAuthState(ctx context.Context, state string) (int64, error)
}

// Store is what the Redis, memory and failover repositories all provide.
type Store interface {
	StateRepository
	SessionRepository
}

type StateManager interface {
	GetUserState(ctx context.Context, userID int64) (*models.UserState, error)
	SetUserState(ctx context.Context, userID int64, step string, data map[string]interface{}) error
	UpdateUserStateData(ctx context.Context, userID int64, key string, value interface{}) error
	ClearUserState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// AccountRepository links Telegram chats to marketplace accounts.
type AccountRepository interface {
	LinkAccount(ctx context.Context, account *models.Account) error
	GetAccountByChat(ctx context.Context, chatID int64) (*models.Account, error)
	GetAccountsByEmail(ctx context.Context, email string) ([]*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	UnlinkAccount(ctx context.Context, chatID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// MediaUploader stores an image and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendHTML(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	SendDocument(chatID int64, name string, data []byte, caption string) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	FileURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// AuthProvider is the external identity service. *auth.Provider implements it.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password, displayName, photoURL string) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignInWithIdP(ctx context.Context, idToken, providerID string) (*models.Session, error)
	UpdateProfile(ctx context.Context, sess *models.Session, displayName, photoURL string) (*models.Session, error)
}
