package bot

import (
	"context"
	"io"

	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/service"
	"decorbook/internal/validation"
)

// The bot talks to the service layer through these; the *service types
// implement them.

type BookingService interface {
	Create(ctx context.Context, chatID int64, svc *models.Service, form validation.BookingForm) (*models.Booking, error)
	Update(ctx context.Context, chatID int64, bookingID string, form validation.BookingForm) (*models.Booking, error)
	Cancel(ctx context.Context, chatID int64, bookingID string) error
	ListFor(ctx context.Context, chatID int64) ([]models.Booking, error)
	Get(ctx context.Context, chatID int64, bookingID string) (*models.Booking, error)
	Transition(ctx context.Context, chatID int64, bookingID string, action lifecycle.Action) (*service.TransitionResult, error)
	AssignDecorator(ctx context.Context, chatID int64, bookingID, decoratorID string) (*service.TransitionResult, error)
	AvailableDecorators(ctx context.Context, chatID int64) ([]models.Decorator, error)
}

type PaymentService interface {
	StartCheckout(ctx context.Context, chatID int64, bookingID string) (string, error)
	History(ctx context.Context, chatID int64) ([]models.Payment, error)
}

type CatalogService interface {
	Search(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error)
	Get(ctx context.Context, id string) (*models.Service, error)
	TopDecorators(ctx context.Context) ([]models.Decorator, error)
	Decorators(ctx context.Context, chatID int64) ([]models.Decorator, error)
	CreateService(ctx context.Context, chatID int64, form validation.ServiceForm, imageName string, image io.Reader) (*models.Service, error)
	DeleteService(ctx context.Context, chatID int64, serviceID string) error
	SetDecoratorStatus(ctx context.Context, chatID int64, decoratorID, status string) error
}

type UserService interface {
	SignUp(ctx context.Context, chatID int64, username string, form validation.SignUpForm, photoURL string) (*models.Session, error)
	SignIn(ctx context.Context, chatID int64, username, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, chatID int64) error
	UpdateProfile(ctx context.Context, chatID int64, form validation.ProfileForm) (*models.Session, error)
	Session(ctx context.Context, chatID int64) (*models.Session, error)
	Role(ctx context.Context, chatID int64) (lifecycle.Actor, bool, error)
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, chatID int64) (*models.Analytics, error)
}

// OAuthLinker builds the consent URL for federated sign-in.
type OAuthLinker interface {
	AuthURL(state string) string
}

// OAuthStateStore ties a consent URL to the chat that asked for it.
type OAuthStateStore interface {
	SaveOAuthState(ctx context.Context, state string, chatID int64) error
}

// AccountDirectory finds the chats linked to a marketplace account.
type AccountDirectory interface {
	GetAccountsByEmail(ctx context.Context, email string) ([]*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
}

// StatusLedger is the watcher's memory of what each chat was last told.
type StatusLedger interface {
	SaveWatchedStatus(ctx context.Context, chatID int64, bookingID, status string) error
}
