package bot

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"decorbook/internal/config"
	"decorbook/internal/coverage"
	"decorbook/internal/domain"
	"decorbook/internal/search"
	"decorbook/internal/validation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of the dashboard. Optional ones may be nil:
// Google sign-in, coverage, media and the watch ledger switch off cleanly.
type Deps struct {
	State     domain.StateManager
	Users     UserService
	Bookings  BookingService
	Payments  PaymentService
	Catalog   CatalogService
	Analytics AnalyticsService
	Validator *validation.Validator

	Searches  *search.Registry
	Coverage  *coverage.Index
	Media     domain.MediaUploader
	Google    OAuthLinker
	OAuth     OAuthStateStore
	Accounts  AccountDirectory
	Watched   StatusLedger
	Metrics   *Metrics
	HTTP      *http.Client
	Clock     func() time.Time
}

type Bot struct {
	tgService domain.TelegramService
	config    *config.Config

	state     domain.StateManager
	users     UserService
	bookings  BookingService
	payments  PaymentService
	catalog   CatalogService
	analytics AnalyticsService
	validator *validation.Validator

	searches   *search.Registry
	coverage   *coverage.Index
	media      domain.MediaUploader
	google     OAuthLinker
	oauth      OAuthStateStore
	accounts   AccountDirectory
	watched    StatusLedger
	metrics    *Metrics
	httpClient *http.Client

	// chatID -> message the next search result replaces
	searchTargets sync.Map

	loc    *time.Location
	now    func() time.Time
	logger *zerolog.Logger
}

func NewBot(tgService domain.TelegramService, cfg *config.Config, deps Deps, logger *zerolog.Logger) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if deps.Validator == nil {
		deps.Validator = validation.New(deps.Clock, cfg.Location())
	}

	return &Bot{
		tgService:  tgService,
		config:     cfg,
		state:      deps.State,
		users:      deps.Users,
		bookings:   deps.Bookings,
		payments:   deps.Payments,
		catalog:    deps.Catalog,
		analytics:  deps.Analytics,
		validator:  deps.Validator,
		searches:   deps.Searches,
		coverage:   deps.Coverage,
		media:      deps.Media,
		google:     deps.Google,
		oauth:      deps.OAuth,
		accounts:   deps.Accounts,
		watched:    deps.Watched,
		metrics:    deps.Metrics,
		httpClient: deps.HTTP,
		loc:        cfg.Location(),
		now:        deps.Clock,
		logger:     logger,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	// Создаем контекст для обработки каждого обновления
	timeout := time.Duration(b.config.Bot.UpdateTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	updateCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		chatID := updateChatID(update)
		if chatID == 0 {
			return
		}

		allowed, err := b.state.CheckRateLimit(updateCtx, chatID, b.config.Bot.RateLimitMessages, time.Duration(b.config.Bot.RateLimitWindow)*time.Second)
		if err != nil {
			l.Error().Err(err).Int64("chat_id", chatID).Msg("Rate limit check failed")
		} else if !allowed {
			l.Warn().Int64("chat_id", chatID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendMessage(chatID, "⚠️ You are sending messages too fast. Please wait a moment.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}
		if update.Message == nil {
			return
		}
		b.handleMessage(updateCtx, update.Message)
	})
}

// updateChatID is the chat an update belongs to. Sessions and dialog state
// are kept per chat.
func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}
