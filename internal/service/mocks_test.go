package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/domain"
	"decorbook/internal/events"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/repository"
	"decorbook/internal/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListServices(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServicePage), args.Error(1)
}
func (m *mockAPI) GetService(ctx context.Context, id string) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}
func (m *mockAPI) CreateService(ctx context.Context, p api.ServicePayload) (*models.Service, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}
func (m *mockAPI) UpdateService(ctx context.Context, id string, p api.ServicePayload) error {
	return m.Called(ctx, id, p).Error(0)
}
func (m *mockAPI) DeleteService(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockAPI) ListDecorators(ctx context.Context, status string) ([]models.Decorator, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Decorator), args.Error(1)
}
func (m *mockAPI) TopDecorators(ctx context.Context) ([]models.Decorator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Decorator), args.Error(1)
}
func (m *mockAPI) SetDecoratorStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *mockAPI) CreateBooking(ctx context.Context, b api.NewBooking) (string, error) {
	args := m.Called(ctx, b)
	return args.String(0), args.Error(1)
}
func (m *mockAPI) MyBookings(ctx context.Context, email string) ([]models.Booking, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockAPI) AllBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockAPI) DecoratorBookings(ctx context.Context, email string) ([]models.Booking, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockAPI) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockAPI) UpdateBooking(ctx context.Context, id string, patch models.BookingPatch) error {
	return m.Called(ctx, id, patch).Error(0)
}
func (m *mockAPI) DeleteBooking(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockAPI) UpdateBookingStatus(ctx context.Context, id string, status lifecycle.Status) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *mockAPI) AssignDecorator(ctx context.Context, id string, a models.Assignment) error {
	return m.Called(ctx, id, a).Error(0)
}
func (m *mockAPI) UserRole(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
func (m *mockAPI) UpsertUser(ctx context.Context, u models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockAPI) UpdateUser(ctx context.Context, email string, p api.UserPatch) error {
	return m.Called(ctx, email, p).Error(0)
}
func (m *mockAPI) CreateCheckoutSession(ctx context.Context, r api.CheckoutRequest) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}
func (m *mockAPI) ConfirmPayment(ctx context.Context, sessionID string) (*models.CheckoutConfirmation, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutConfirmation), args.Error(1)
}
func (m *mockAPI) Payments(ctx context.Context, email string) ([]models.Payment, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}
func (m *mockAPI) Analytics(ctx context.Context) (*models.Analytics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Analytics), args.Error(1)
}
func (m *mockAPI) InvalidateCache(ctx context.Context) {
	m.Called(ctx)
}

// testClients hands the same mock out for every client kind.
type testClients struct {
	api *mockAPI
}

func (c testClients) Public() domain.MarketplaceAPI { return c.api }
func (c testClients) ForChat(int64) domain.MarketplaceAPI { return c.api }
func (c testClients) WithSession(*models.Session) domain.MarketplaceAPI { return c.api }

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	args := m.Called(ctx, name, r)
	return args.String(0), args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) LinkAccount(ctx context.Context, a *models.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccounts) GetAccountByChat(ctx context.Context, chatID int64) (*models.Account, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}
func (m *mockAccounts) GetAccountsByEmail(ctx context.Context, email string) ([]*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}
func (m *mockAccounts) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}
func (m *mockAccounts) UnlinkAccount(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) SignUp(ctx context.Context, email, password, displayName, photoURL string) (*models.Session, error) {
	args := m.Called(ctx, email, password, displayName, photoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}
func (m *mockProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}
func (m *mockProvider) SignInWithIdP(ctx context.Context, idToken, providerID string) (*models.Session, error) {
	args := m.Called(ctx, idToken, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}
func (m *mockProvider) UpdateProfile(ctx context.Context, sess *models.Session, displayName, photoURL string) (*models.Session, error) {
	args := m.Called(ctx, sess, displayName, photoURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

// recorder captures bus events by type.
type recorder struct {
	mu     sync.Mutex
	events map[string][]events.BookingEventPayload
}

func newRecorder(bus *events.EventBus) *recorder {
	r := &recorder{events: make(map[string][]events.BookingEventPayload)}
	for _, t := range events.AllTypes() {
		bus.Subscribe(t, func(e *events.Event) error {
			p, err := e.Decode()
			if err != nil {
				return err
			}
			r.mu.Lock()
			r.events[e.Type] = append(r.events[e.Type], p)
			r.mu.Unlock()
			return nil
		})
	}
	return r
}

func (r *recorder) get(eventType string) []events.BookingEventPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.BookingEventPayload(nil), r.events[eventType]...)
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

const (
	customerChat  = int64(100)
	decoratorChat = int64(200)
	adminChat     = int64(300)
)

type fixture struct {
	api      *mockAPI
	sessions *repository.MemoryStateRepository
	bus      *events.EventBus
	events   *recorder
	logger   *zerolog.Logger
	valid    *validation.Validator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	bus := events.NewEventBus()
	f := &fixture{
		api:      new(mockAPI),
		sessions: repository.NewMemoryStateRepository(time.Hour),
		bus:      bus,
		events:   newRecorder(bus),
		logger:   &logger,
		valid:    validation.New(func() time.Time { return testNow }, time.UTC),
	}
	ctx := context.Background()
	require.NoError(t, f.sessions.SetSession(ctx, customerChat, &models.Session{Email: "ann@example.com", DisplayName: "Ann", AccessToken: "c", Role: models.RoleCustomer}))
	require.NoError(t, f.sessions.SetSession(ctx, decoratorChat, &models.Session{Email: "dec@example.com", AccessToken: "d", Role: models.RoleDecorator}))
	require.NoError(t, f.sessions.SetSession(ctx, adminChat, &models.Session{Email: "boss@example.com", AccessToken: "a", Role: models.RoleAdmin}))
	return f
}

func (f *fixture) clients() testClients {
	return testClients{api: f.api}
}

func (f *fixture) bookings() *BookingService {
	s := NewBookingService(f.clients(), f.sessions, f.valid, f.bus, f.logger)
	s.now = func() time.Time { return testNow }
	return s
}
