package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/auth"
	"decorbook/internal/config"
	"decorbook/internal/events"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (f *fixture) users(provider *mockProvider, accounts *mockAccounts) *UserService {
	s := NewUserService(provider, f.clients(), f.sessions, accounts, f.valid, f.logger)
	s.now = func() time.Time { return testNow }
	return s
}

func TestUserService_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresSessionWithRole", func(t *testing.T) {
		f := newFixture(t)
		provider := new(mockProvider)
		accounts := new(mockAccounts)
		s := f.users(provider, accounts)

		provider.On("SignIn", mock.Anything, "dee@example.com", "secret").
			Return(&models.Session{Email: "dee@example.com", DisplayName: "Dee", AccessToken: "tok"}, nil).Once()
		f.api.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Email == "dee@example.com" && u.Role == "" && u.LastLoginAt.Equal(testNow)
		})).Return(nil).Once()
		f.api.On("UserRole", mock.Anything, "dee@example.com").Return(models.RoleDecorator, nil).Once()
		accounts.On("LinkAccount", mock.Anything, mock.MatchedBy(func(a *models.Account) bool {
			return a.ChatID == 42 && a.Username == "dee" && a.Role == models.RoleDecorator
		})).Return(nil).Once()

		sess, err := s.SignIn(ctx, 42, "dee", " dee@example.com ", "secret")
		require.NoError(t, err)
		assert.Equal(t, models.RoleDecorator, sess.Role)

		stored, err := f.sessions.GetSession(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "tok", stored.AccessToken)

		actor, ok, err := s.Role(ctx, 42)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, lifecycle.ActorDecorator, actor)

		provider.AssertExpectations(t)
		accounts.AssertExpectations(t)
		f.api.AssertExpectations(t)
	})

	t.Run("ProviderErrorStoresNothing", func(t *testing.T) {
		f := newFixture(t)
		provider := new(mockProvider)
		s := f.users(provider, new(mockAccounts))

		provider.On("SignIn", mock.Anything, "x@example.com", "bad").
			Return(nil, &auth.Error{Status: 400, Code: "INVALID_PASSWORD"}).Once()

		_, err := s.SignIn(ctx, 43, "", "x@example.com", "bad")
		require.Error(t, err)
		assert.Equal(t, "Invalid email or password.", auth.Message(err))

		sess, err := s.Session(ctx, 43)
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("UnknownRoleFallsBackToCustomer", func(t *testing.T) {
		f := newFixture(t)
		provider := new(mockProvider)
		accounts := new(mockAccounts)
		s := f.users(provider, accounts)

		provider.On("SignInWithIdP", mock.Anything, "id-token", "google.com").
			Return(&models.Session{Email: "g@example.com", AccessToken: "t"}, nil).Once()
		f.api.On("UpsertUser", mock.Anything, mock.Anything).Return(nil).Once()
		f.api.On("UserRole", mock.Anything, "g@example.com").Return("superuser", nil).Once()
		accounts.On("LinkAccount", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		sess, err := s.SignInWithGoogle(ctx, 44, "id-token")
		require.NoError(t, err)
		assert.Equal(t, models.RoleCustomer, sess.Role)
	})
}

func TestUserService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesCustomer", func(t *testing.T) {
		f := newFixture(t)
		provider := new(mockProvider)
		accounts := new(mockAccounts)
		s := f.users(provider, accounts)

		provider.On("SignUp", mock.Anything, "new@example.com", "secret1", "Newbie", "").
			Return(&models.Session{Email: "new@example.com", DisplayName: "Newbie", AccessToken: "t"}, nil).Once()
		f.api.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Role == models.RoleCustomer && u.CreatedAt.Equal(testNow)
		})).Return(nil).Once()
		f.api.On("UserRole", mock.Anything, "new@example.com").Return(models.RoleCustomer, nil).Once()
		accounts.On("LinkAccount", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := s.SignUp(ctx, 45, "newbie", validation.SignUpForm{Name: "Newbie", Email: "new@example.com", Password: "secret1"}, "")
		require.NoError(t, err)
		f.api.AssertExpectations(t)
	})

	t.Run("ValidationBeforeProvider", func(t *testing.T) {
		f := newFixture(t)
		provider := new(mockProvider)
		s := f.users(provider, new(mockAccounts))

		_, err := s.SignUp(ctx, 45, "", validation.SignUpForm{Name: "N", Email: "nope", Password: "1"}, "")
		var verrs validation.Errors
		require.True(t, errors.As(err, &verrs))
		assert.True(t, verrs.Has("Email"))
		provider.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserService_SignOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	accounts := new(mockAccounts)
	s := f.users(new(mockProvider), accounts)

	accounts.On("UnlinkAccount", mock.Anything, customerChat).Return(nil).Once()

	require.NoError(t, s.SignOut(ctx, customerChat))
	sess, err := s.Session(ctx, customerChat)
	require.NoError(t, err)
	assert.Nil(t, sess)

	_, ok, err := s.Role(ctx, customerChat)
	require.NoError(t, err)
	assert.False(t, ok)
	accounts.AssertExpectations(t)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	provider := new(mockProvider)
	accounts := new(mockAccounts)
	s := f.users(provider, accounts)

	updated := &models.Session{Email: "ann@example.com", DisplayName: "Ann B", PhotoURL: "https://img/x.png", AccessToken: "c2", Role: models.RoleCustomer}
	provider.On("UpdateProfile", mock.Anything, mock.Anything, "Ann B", "https://img/x.png").Return(updated, nil).Once()
	f.api.On("UpdateUser", mock.Anything, "ann@example.com", api.UserPatch{DisplayName: "Ann B", PhotoURL: "https://img/x.png"}).Return(nil).Once()
	accounts.On("LinkAccount", mock.Anything, mock.Anything).Return(nil).Once()

	got, err := s.UpdateProfile(ctx, customerChat, validation.ProfileForm{DisplayName: "Ann B", PhotoURL: "https://img/x.png"})
	require.NoError(t, err)
	assert.Equal(t, "Ann B", got.DisplayName)

	stored, err := f.sessions.GetSession(ctx, customerChat)
	require.NoError(t, err)
	assert.Equal(t, "c2", stored.AccessToken)
}

func TestPaymentService(t *testing.T) {
	ctx := context.Background()
	cfg := config.PaymentConfig{PublicBaseURL: "https://bot.example.com/", Currency: "bdt"}

	newService := func(f *fixture) *PaymentService {
		s := NewPaymentService(f.clients(), f.sessions, f.bus, cfg, f.logger)
		s.now = func() time.Time { return testNow }
		return s
	}

	t.Run("StartCheckout", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("GetBooking", mock.Anything, "b1").Return(booking(lifecycle.StatusPending, lifecycle.PaymentUnpaid), nil).Once()
		f.api.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r api.CheckoutRequest) bool {
			return r.BookingID == "b1" &&
				r.Cost == 3000 &&
				r.Currency == "bdt" &&
				r.SuccessURL == "https://bot.example.com/payment/success?session_id={CHECKOUT_SESSION_ID}&chat=100" &&
				r.CancelURL == "https://bot.example.com/payment/cancel?chat=100"
		})).Return("https://pay.example.com/s/1", nil).Once()

		link, err := newService(f).StartCheckout(ctx, customerChat, "b1")
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example.com/s/1", link)
		f.api.AssertExpectations(t)
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("GetBooking", mock.Anything, "b1").Return(booking(lifecycle.StatusPending, lifecycle.PaymentPaid), nil).Once()

		_, err := newService(f).StartCheckout(ctx, customerChat, "b1")
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("ConfirmPublishes", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("ConfirmPayment", mock.Anything, "cs_1").
			Return(&models.CheckoutConfirmation{TransactionID: "tx", TrackingID: "trk", BookingID: "b1"}, nil).Once()
		f.api.On("GetBooking", mock.Anything, "b1").Return(booking(lifecycle.StatusPending, lifecycle.PaymentPaid), nil).Once()

		conf, b, err := newService(f).ConfirmCheckout(ctx, customerChat, "cs_1")
		require.NoError(t, err)
		assert.Equal(t, "tx", conf.TransactionID)
		assert.Equal(t, lifecycle.PaymentPaid, b.PaymentStatus)

		paid := f.events.get(events.EventPaymentConfirmed)
		require.Len(t, paid, 1)
		assert.Equal(t, "trk", paid[0].TrackingID)
		assert.Equal(t, customerChat, paid[0].ChatID)
	})

	t.Run("ConfirmEmptySession", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := newService(f).ConfirmCheckout(ctx, customerChat, " ")
		assert.Error(t, err)
	})

	t.Run("History", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("Payments", mock.Anything, "ann@example.com").
			Return([]models.Payment{{BookingID: "b1", Amount: decimal.NewFromInt(3000)}}, nil).Once()

		got, err := newService(f).History(ctx, customerChat)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestCatalogService(t *testing.T) {
	ctx := context.Background()

	newService := func(f *fixture, up *mockUploader) *CatalogService {
		s := NewCatalogService(f.clients(), f.sessions, f.valid, up, 0, f.logger)
		s.now = func() time.Time { return testNow }
		return s
	}

	t.Run("SearchDefaults", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("ListServices", mock.Anything, mock.MatchedBy(func(q models.ServiceFilter) bool {
			return q.Page == 1 && q.Limit == models.DefaultPaginationSize && q.Search == "stage"
		})).Return(&models.ServicePage{Total: 0}, nil).Once()

		_, err := newService(f, nil).Search(ctx, models.ServiceFilter{Search: " stage "})
		require.NoError(t, err)
		f.api.AssertExpectations(t)
	})

	t.Run("CreateServiceUploadsImage", func(t *testing.T) {
		f := newFixture(t)
		up := new(mockUploader)
		up.On("Upload", mock.Anything, "stage.jpg", mock.Anything).Return("https://cdn/stage.jpg", nil).Once()
		f.api.On("CreateService", mock.Anything, mock.MatchedBy(func(p api.ServicePayload) bool {
			return p.Image == "https://cdn/stage.jpg" && p.CreatedByEmail == "boss@example.com"
		})).Return(&models.Service{ID: "s9", Name: "Stage"}, nil).Once()
		f.api.On("InvalidateCache", mock.Anything).Once()

		form := validation.ServiceForm{Name: "Stage", Category: "wedding", Cost: 100, Unit: "per sqft"}
		svc, err := newService(f, up).CreateService(ctx, adminChat, form, "stage.jpg", strings.NewReader("img"))
		require.NoError(t, err)
		assert.Equal(t, "s9", svc.ID)
		up.AssertExpectations(t)
		f.api.AssertExpectations(t)
	})

	t.Run("CreateServiceAdminOnly", func(t *testing.T) {
		f := newFixture(t)
		_, err := newService(f, nil).CreateService(ctx, customerChat, validation.ServiceForm{}, "", nil)
		assert.ErrorIs(t, err, ErrAdminOnly)
	})

	t.Run("DecoratorStatus", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("SetDecoratorStatus", mock.Anything, "d1", models.DecoratorDisabled).Return(nil).Once()
		f.api.On("InvalidateCache", mock.Anything).Once()

		s := newService(f, nil)
		require.NoError(t, s.SetDecoratorStatus(ctx, adminChat, "d1", models.DecoratorDisabled))
		assert.Error(t, s.SetDecoratorStatus(ctx, adminChat, "d1", "sleeping"))
	})
}

func TestAnalyticsService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := NewAnalyticsService(f.clients(), f.sessions, f.logger)

	f.api.On("Analytics", mock.Anything).Return(&models.Analytics{
		TotalBookings: 3,
		ServiceDemand: []models.ServiceDemand{{ServiceName: "A", Bookings: 1}, {ServiceName: "B", Bookings: 5}},
	}, nil).Once()
	f.api.On("AllBookings", mock.Anything).Return([]models.Booking{
		{Status: lifecycle.StatusPending},
		{Status: lifecycle.StatusPending},
		{Status: lifecycle.StatusCompleted},
	}, nil).Once()

	a, err := s.Dashboard(ctx, adminChat)
	require.NoError(t, err)
	assert.Equal(t, "B", a.ServiceDemand[0].ServiceName)
	assert.Equal(t, 2, a.StatusBreakdown[string(lifecycle.StatusPending)])
	assert.Equal(t, 0, a.StatusBreakdown[string(lifecycle.StatusPlanning)])

	_, err = s.Dashboard(ctx, decoratorChat)
	assert.ErrorIs(t, err, ErrAdminOnly)
}
