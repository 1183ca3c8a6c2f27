// Package httpserver is the small HTTP side of the bot: the payment gate and
// the OAuth provider redirect browsers here, and probes and Prometheus scrape it.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"time"

	"decorbook/internal/metrics"
	"decorbook/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type PaymentConfirmer interface {
	ConfirmCheckout(ctx context.Context, chatID int64, sessionID string) (*models.CheckoutConfirmation, *models.Booking, error)
}

type GoogleSignIn interface {
	SignInWithGoogle(ctx context.Context, chatID int64, idToken string) (*models.Session, error)
}

// CodeExchanger turns an authorization code into an OpenID id_token.
type CodeExchanger interface {
	IDToken(ctx context.Context, code string) (string, error)
}

type OAuthStates interface {
	TakeOAuthState(ctx context.Context, state string) (int64, error)
}

// Notifier tells a chat what happened in the browser. Payment confirmation
// reaches the chat through the event bus instead.
type Notifier interface {
	NotifyCheckoutCancelled(ctx context.Context, chatID int64)
	NotifySignedIn(ctx context.Context, chatID int64, sess *models.Session)
	NotifyFailure(ctx context.Context, chatID int64, err error)
}

// OutboxInspector lists broker events that ran out of redelivery attempts.
type OutboxInspector interface {
	FailedOutbox(ctx context.Context) ([]models.OutboxMessage, error)
}

// Check is one readiness dependency.
type Check func(ctx context.Context) error

type Dependencies struct {
	Payments PaymentConfirmer
	Users    GoogleSignIn
	Google   CodeExchanger
	States   OAuthStates
	Notifier Notifier
	Checks   map[string]Check
	Outbox   OutboxInspector
	Metrics  bool
	Logger   *zerolog.Logger
}

type Server struct {
	deps Dependencies
	srv  *http.Server
}

func New(port int, deps Dependencies) *Server {
	if deps.Logger == nil {
		l := zerolog.Nop()
		deps.Logger = &l
	}
	s := &Server{deps: deps}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	if s.deps.Outbox != nil {
		r.Get("/outbox/failed", s.handleFailedOutbox)
	}
	if s.deps.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/payment", func(r chi.Router) {
		r.Get("/success", s.handlePaymentSuccess)
		r.Get("/cancel", s.handlePaymentCancel)
	})
	r.Get("/oauth/callback", s.handleOAuthCallback)
	return r
}

func (s *Server) Start() error {
	s.deps.Logger.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	writeJSON(w, status, result)
}

type failedEvent struct {
	ID         int64     `json:"id"`
	EventType  string    `json:"event_type"`
	RetryCount int       `json:"retry_count"`
	LastError  string    `json:"last_error"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleFailedOutbox(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Outbox.FailedOutbox(r.Context())
	if err != nil {
		loggerFrom(r).Error().Err(err).Msg("list failed outbox")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "outbox unavailable"})
		return
	}
	out := make([]failedEvent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, failedEvent{
			ID:         m.ID,
			EventType:  m.EventType,
			RetryCount: m.RetryCount,
			LastError:  m.LastError,
			CreatedAt:  m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_success")
	chatID, ok := chatParam(r)
	sessionID := r.URL.Query().Get("session_id")
	if !ok || sessionID == "" {
		writePage(w, http.StatusBadRequest, "Payment", "The payment link is incomplete.")
		return
	}
	if s.deps.Payments == nil {
		writePage(w, http.StatusServiceUnavailable, "Payment", "Payments are not available.")
		return
	}

	conf, _, err := s.deps.Payments.ConfirmCheckout(r.Context(), chatID, sessionID)
	if err != nil {
		loggerFrom(r).Error().Err(err).Int64("chat_id", chatID).Msg("confirm checkout failed")
		s.notifyFailure(r.Context(), chatID, err)
		writePage(w, http.StatusBadGateway, "Payment", "We could not confirm your payment. Please check your bookings in the bot.")
		return
	}

	loggerFrom(r).Info().
		Int64("chat_id", chatID).
		Str("booking_id", conf.BookingID).
		Str("transaction_id", conf.TransactionID).
		Msg("checkout confirmed")
	writePage(w, http.StatusOK, "Payment successful",
		"Transaction "+conf.TransactionID+". You can return to Telegram.")
}

func (s *Server) handlePaymentCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_cancel")
	if chatID, ok := chatParam(r); ok && s.deps.Notifier != nil {
		s.deps.Notifier.NotifyCheckoutCancelled(r.Context(), chatID)
	}
	writePage(w, http.StatusOK, "Payment cancelled", "No money was taken. You can return to Telegram.")
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("oauth_callback")
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writePage(w, http.StatusBadRequest, "Sign in", "Sign in was cancelled.")
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" || s.deps.States == nil || s.deps.Google == nil || s.deps.Users == nil {
		writePage(w, http.StatusBadRequest, "Sign in", "The sign in link is incomplete.")
		return
	}

	chatID, err := s.deps.States.TakeOAuthState(r.Context(), state)
	if err != nil {
		// state одноразовый: повторный заход по ссылке сюда и попадает
		writePage(w, http.StatusBadRequest, "Sign in", "This sign in link has expired. Request a new one with /login.")
		return
	}

	idToken, err := s.deps.Google.IDToken(r.Context(), code)
	if err == nil {
		var sess *models.Session
		sess, err = s.deps.Users.SignInWithGoogle(r.Context(), chatID, idToken)
		if err == nil {
			if s.deps.Notifier != nil {
				s.deps.Notifier.NotifySignedIn(r.Context(), chatID, sess)
			}
			writePage(w, http.StatusOK, "Signed in", "Welcome, "+sess.Name()+". You can return to Telegram.")
			return
		}
	}

	loggerFrom(r).Error().Err(err).Int64("chat_id", chatID).Msg("google sign in failed")
	s.notifyFailure(r.Context(), chatID, err)
	writePage(w, http.StatusBadGateway, "Sign in", "Sign in failed. Please try again from the bot.")
}

func (s *Server) notifyFailure(ctx context.Context, chatID int64, err error) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.NotifyFailure(ctx, chatID, err)
	}
}

func chatParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("chat"), 10, 64)
	return id, err == nil && id != 0
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		logger := s.deps.Logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func loggerFrom(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writePage(w http.ResponseWriter, statusCode int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
