package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/config"
	"decorbook/internal/dashboard"
	"decorbook/internal/database"
	"decorbook/internal/events"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"
	"decorbook/internal/repository"
	"decorbook/internal/service"
	"decorbook/internal/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) ConfirmCheckout(ctx context.Context, chatID int64, sessionID string) (*models.CheckoutConfirmation, *models.Booking, error) {
	args := m.Called(ctx, chatID, sessionID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.CheckoutConfirmation), nil, args.Error(2)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) SignInWithGoogle(ctx context.Context, chatID int64, idToken string) (*models.Session, error) {
	args := m.Called(ctx, chatID, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

type fakeGoogle struct {
	token string
	err   error
}

func (g fakeGoogle) IDToken(context.Context, string) (string, error) {
	return g.token, g.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	cancelled []int64
	signedIn  []int64
	failures  []int64
}

func (n *recordingNotifier) NotifyCheckoutCancelled(_ context.Context, chatID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, chatID)
}

func (n *recordingNotifier) NotifySignedIn(_ context.Context, chatID int64, _ *models.Session) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signedIn = append(n.signedIn, chatID)
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, chatID int64, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, chatID)
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type brokenOutbox struct{}

func (brokenOutbox) FailedOutbox(context.Context) ([]models.OutboxMessage, error) {
	return nil, errors.New("database is locked")
}

func TestFailedOutbox(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("ListsExhaustedEvents", func(t *testing.T) {
		db, err := database.NewDB(filepath.Join(t.TempDir(), "decorbook.db"), &logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		dead := &models.OutboxMessage{EventType: events.EventPaymentConfirmed, Payload: `{"booking_id":"b1"}`}
		require.NoError(t, db.CreateOutboxMessage(ctx, dead))
		require.NoError(t, db.UpdateOutboxStatus(ctx, dead.ID, models.OutboxFailed, "exchange not found", nil))
		waiting := &models.OutboxMessage{EventType: events.EventBookingCreated, Payload: `{"booking_id":"b2"}`}
		require.NoError(t, db.CreateOutboxMessage(ctx, waiting))

		h := New(0, Dependencies{Outbox: db, Logger: &logger}).Router()
		rec := do(t, h, "/outbox/failed")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body []failedEvent
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, dead.ID, body[0].ID)
		assert.Equal(t, events.EventPaymentConfirmed, body[0].EventType)
		assert.Equal(t, "exchange not found", body[0].LastError)
	})

	t.Run("StoreError", func(t *testing.T) {
		h := New(0, Dependencies{Outbox: brokenOutbox{}, Logger: &logger}).Router()
		assert.Equal(t, http.StatusInternalServerError, do(t, h, "/outbox/failed").Code)
	})

	t.Run("NotMountedWithoutStore", func(t *testing.T) {
		h := New(0, Dependencies{Logger: &logger}).Router()
		assert.Equal(t, http.StatusNotFound, do(t, h, "/outbox/failed").Code)
	})
}

func TestHealthAndReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("Healthy", func(t *testing.T) {
		h := New(0, Dependencies{Checks: map[string]Check{"redis": ok, "database": ok}}).Router()
		assert.Equal(t, http.StatusOK, do(t, h, "/healthz").Code)

		rec := do(t, h, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"redis": "ok", "database": "ok"}, body)
	})

	t.Run("Degraded", func(t *testing.T) {
		h := New(0, Dependencies{Checks: map[string]Check{"redis": down, "database": ok}}).Router()
		rec := do(t, h, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})

	t.Run("MetricsOptional", func(t *testing.T) {
		h := New(0, Dependencies{}).Router()
		assert.Equal(t, http.StatusNotFound, do(t, h, "/metrics").Code)

		h = New(0, Dependencies{Metrics: true}).Router()
		assert.Equal(t, http.StatusOK, do(t, h, "/metrics").Code)
	})
}

func TestPaymentSuccess(t *testing.T) {
	t.Run("Confirms", func(t *testing.T) {
		payments := new(mockPayments)
		payments.On("ConfirmCheckout", mock.Anything, int64(42), "cs_1").
			Return(&models.CheckoutConfirmation{BookingID: "b1", TransactionID: "tx_9"}, nil, nil)

		h := New(0, Dependencies{Payments: payments}).Router()
		rec := do(t, h, "/payment/success?session_id=cs_1&chat=42")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "tx_9")
		payments.AssertExpectations(t)
	})

	t.Run("MissingParams", func(t *testing.T) {
		payments := new(mockPayments)
		h := New(0, Dependencies{Payments: payments}).Router()
		assert.Equal(t, http.StatusBadRequest, do(t, h, "/payment/success?chat=42").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, "/payment/success?session_id=cs_1").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, h, "/payment/success?session_id=cs_1&chat=abc").Code)
		payments.AssertNotCalled(t, "ConfirmCheckout", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("APIFailureNotifiesChat", func(t *testing.T) {
		payments := new(mockPayments)
		payments.On("ConfirmCheckout", mock.Anything, int64(42), "cs_1").
			Return(nil, nil, &api.Error{StatusCode: http.StatusInternalServerError, Message: "boom"})
		notifier := &recordingNotifier{}

		h := New(0, Dependencies{Payments: payments, Notifier: notifier}).Router()
		rec := do(t, h, "/payment/success?session_id=cs_1&chat=42")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, []int64{42}, notifier.failures)
	})
}

func TestPaymentCancel(t *testing.T) {
	notifier := &recordingNotifier{}
	h := New(0, Dependencies{Notifier: notifier}).Router()

	rec := do(t, h, "/payment/cancel?chat=7")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{7}, notifier.cancelled)
}

func TestOAuthCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("SignsIn", func(t *testing.T) {
		states := repository.NewMemoryStateRepository(time.Hour)
		require.NoError(t, states.SaveOAuthState(ctx, "st1", 55))
		users := new(mockUsers)
		users.On("SignInWithGoogle", mock.Anything, int64(55), "id-token").
			Return(&models.Session{Email: "ann@example.com", DisplayName: "Ann"}, nil)
		notifier := &recordingNotifier{}

		h := New(0, Dependencies{
			Users:    users,
			Google:   fakeGoogle{token: "id-token"},
			States:   states,
			Notifier: notifier,
		}).Router()

		rec := do(t, h, "/oauth/callback?state=st1&code=abc")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Ann")
		assert.Equal(t, []int64{55}, notifier.signedIn)

		// the state is single use
		rec = do(t, h, "/oauth/callback?state=st1&code=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		users.AssertNumberOfCalls(t, "SignInWithGoogle", 1)
	})

	t.Run("ExchangeFails", func(t *testing.T) {
		states := repository.NewMemoryStateRepository(time.Hour)
		require.NoError(t, states.SaveOAuthState(ctx, "st2", 56))
		users := new(mockUsers)
		notifier := &recordingNotifier{}

		h := New(0, Dependencies{
			Users:    users,
			Google:   fakeGoogle{err: errors.New("invalid_grant")},
			States:   states,
			Notifier: notifier,
		}).Router()

		rec := do(t, h, "/oauth/callback?state=st2&code=abc")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, []int64{56}, notifier.failures)
		users.AssertNotCalled(t, "SignInWithGoogle", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UserDenied", func(t *testing.T) {
		h := New(0, Dependencies{}).Router()
		assert.Equal(t, http.StatusBadRequest, do(t, h, "/oauth/callback?error=access_denied&state=x").Code)
	})
}

// marketplace is a minimal in-memory stand-in for the REST API.
type marketplace struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	paid     map[string]string // checkout session id -> booking id
	patches  int
}

func newMarketplace() *marketplace {
	return &marketplace{bookings: make(map[string]*models.Booking), paid: make(map[string]string)}
}

func (m *marketplace) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
		var b models.Booking
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.mu.Lock()
		b.ID = "b1"
		m.bookings[b.ID] = &b
		m.paid["cs_test"] = b.ID
		m.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{"insertedId": b.ID})
	})
	mux.HandleFunc("GET /bookings/all", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		out := make([]models.Booking, 0, len(m.bookings))
		for _, b := range m.bookings {
			out = append(out, *b)
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		b, ok := m.bookings[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, b)
	})
	mux.HandleFunc("PATCH /payment-success", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.patches++
		id, ok := m.paid[r.URL.Query().Get("session_id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown session"})
			return
		}
		m.bookings[id].PaymentStatus = lifecycle.PaymentPaid
		m.bookings[id].TransactionID = "tx_1"
		writeJSON(w, http.StatusOK, models.CheckoutConfirmation{BookingID: id, TransactionID: "tx_1", TrackingID: "trk_1"})
	})
	return mux
}

// An on-site booking only becomes assignable once the checkout callback has
// gone through the side server.
func TestCheckoutUnlocksDecoratorAssignment(t *testing.T) {
	market := newMarketplace()
	apiSrv := httptest.NewServer(market.handler())
	defer apiSrv.Close()

	const customerChat, adminChat = int64(100), int64(300)
	ctx := context.Background()
	logger := zerolog.Nop()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	sessions := repository.NewMemoryStateRepository(time.Hour)
	require.NoError(t, sessions.SetSession(ctx, customerChat, &models.Session{Email: "ann@example.com", AccessToken: "c", Role: models.RoleCustomer}))
	require.NoError(t, sessions.SetSession(ctx, adminChat, &models.Session{Email: "boss@example.com", AccessToken: "a", Role: models.RoleAdmin}))

	bus := events.NewEventBus()
	var confirmed []events.BookingEventPayload
	bus.Subscribe(events.EventPaymentConfirmed, func(e *events.Event) error {
		p, err := e.Decode()
		confirmed = append(confirmed, p)
		return err
	})

	clients := service.NewClientFactory(api.NewPublic(config.APIConfig{BaseURL: apiSrv.URL}, &logger), sessions)
	bookings := service.NewBookingService(clients, sessions, validation.New(func() time.Time { return now }, time.UTC), bus, &logger)
	payments := service.NewPaymentService(clients, sessions, bus, config.PaymentConfig{PublicBaseURL: "https://bot.example.com"}, &logger)

	svc := &models.Service{ID: "s1", Name: "Wedding Stage", Category: "wedding"}
	created, err := bookings.Create(ctx, customerChat, svc, validation.BookingForm{
		ServiceType: lifecycle.ServiceOnSite,
		Location:    "Gulshan 2, Dhaka",
		Date:        "2026-03-10",
		Time:        "14:00",
		TotalUnit:   1,
	})
	require.NoError(t, err)
	require.Equal(t, lifecycle.PaymentUnpaid, created.PaymentStatus)

	adminView := func() models.Booking {
		list, err := bookings.ListFor(ctx, adminChat)
		require.NoError(t, err)
		require.Len(t, list, 1)
		return list[0]
	}

	// unpaid: the admin has nothing to press and a forced assign is refused locally
	assert.Nil(t, dashboard.BookingKeyboard(adminView(), lifecycle.ActorAdmin))
	_, err = bookings.AssignDecorator(ctx, adminChat, created.ID, "d1")
	assert.ErrorIs(t, err, lifecycle.ErrPaymentRequired)

	h := New(0, Dependencies{Payments: payments, Logger: &logger}).Router()
	rec := do(t, h, "/payment/success?session_id=cs_test&chat=100")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, market.patches)

	require.Len(t, confirmed, 1)
	assert.Equal(t, "b1", confirmed[0].BookingID)
	assert.Equal(t, customerChat, confirmed[0].ChatID)
	assert.Equal(t, "tx_1", confirmed[0].TransactionID)

	kb := dashboard.BookingKeyboard(adminView(), lifecycle.ActorAdmin)
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 1)
	btn := kb.InlineKeyboard[0][0]
	assert.Equal(t, "Select Decorator", btn.Text)
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "assign:b1", *btn.CallbackData)
}
