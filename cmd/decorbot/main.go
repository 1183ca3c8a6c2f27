package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"decorbook/internal/api"
	"decorbook/internal/auth"
	"decorbook/internal/bot"
	"decorbook/internal/config"
	"decorbook/internal/coverage"
	"decorbook/internal/database"
	"decorbook/internal/domain"
	"decorbook/internal/events"
	"decorbook/internal/httpserver"
	"decorbook/internal/logging"
	"decorbook/internal/media"
	"decorbook/internal/metrics"
	"decorbook/internal/models"
	"decorbook/internal/repository"
	"decorbook/internal/search"
	"decorbook/internal/service"
	"decorbook/internal/validation"
	"decorbook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const outboxMaxRetries = 5

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

type services struct {
	state     *service.StateService
	users     *service.UserService
	bookings  *service.BookingService
	payments  *service.PaymentService
	catalog   *service.CatalogService
	analytics *service.AnalyticsService
	validator *validation.Validator
	google    *auth.Google
	media     domain.MediaUploader
	stateRepo *repository.FailoverStateRepository
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateRepo := initStateRepository(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(event *events.Event, err error) {
		logger.Error().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})
	if bridge := initBroker(ctx, cfg, db, redisClient, &logger); bridge != nil {
		defer bridge.Close()
		bridge.Attach(eventBus)
	}

	svc, err := initServices(cfg, db, redisClient, stateRepo, eventBus, &logger)
	if err != nil {
		return err
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	scheduler := cron.New(cron.WithLocation(cfg.Location()))
	if cfg.Database.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Database.Backup, logging.Component(&logger, "backup"))
		if err := backupService.Schedule(scheduler); err != nil {
			return err
		}
	}

	return startBot(ctx, cfg, db, redisClient, svc, eventBus, scheduler, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()
	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
			return err
		}
	}
	return nil
}

// initStateRepository returns the Redis client (nil when not configured) and
// the dialog store that falls back to memory while Redis is down.
func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.FailoverStateRepository) {
	stateTTL := time.Duration(models.DefaultStateTTL) * time.Second
	sessionTTL := time.Duration(models.DefaultSessionTTL) * time.Second
	fallbackRepo := repository.NewMemoryStateRepository(stateTTL)

	if cfg.Redis.Address == "" {
		logger.Warn().Msg("Redis не настроен, состояние хранится в памяти")
		return nil, repository.NewFailoverStateRepository(fallbackRepo, fallbackRepo, logger)
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if errPing := repository.Ping(ctx, redisClient); errPing != nil {
		logger.Warn().Err(errPing).Msg("Redis unavailable")
	}
	primaryRepo := repository.NewRedisStateRepository(redisClient, stateTTL, sessionTTL)
	return redisClient, repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
}

// initBroker connects the RabbitMQ bridge. Events it fails to publish go to
// the outbox and are redelivered by the outbox worker.
func initBroker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *events.Bridge {
	if cfg.RabbitMQ.URL == "" {
		return nil
	}
	brokerLogger := logging.Component(logger, "broker")
	bridge, err := events.DialBridge(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, brokerLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("RabbitMQ unavailable, events stay local")
		return nil
	}

	retry := worker.NewRetryPolicy(cfg.Watcher.Retry, outboxMaxRetries)
	outbox := worker.NewOutboxWorker(db, bridge, redisClient, retry, logging.Component(logger, "outbox"))
	bridge.SetSpool(outbox)
	go outbox.Start(ctx)
	return bridge
}

func initServices(
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	stateRepo *repository.FailoverStateRepository,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) (*services, error) {
	public := api.NewPublic(cfg.API, logging.Component(logger, "api"))
	if redisClient != nil {
		ttl := time.Duration(cfg.API.CacheTTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = time.Duration(models.DefaultCacheTTL) * time.Second
		}
		public.UseRedisCache(redisClient, ttl)
	}
	clients := service.NewClientFactory(public, stateRepo)

	var uploader domain.MediaUploader
	if cfg.Media.CloudinaryURL != "" {
		cld, err := media.NewCloudinary(cfg.Media)
		if err != nil {
			logger.Error().Err(err).Msg("Ошибка инициализации Cloudinary")
			return nil, err
		}
		uploader = cld
	}

	validator := validation.New(time.Now, cfg.Location())
	provider := auth.NewProvider(cfg.Auth)

	svc := &services{
		state:     service.NewStateService(stateRepo, logger),
		users:     service.NewUserService(provider, clients, stateRepo, db, validator, logger),
		bookings:  service.NewBookingService(clients, stateRepo, validator, eventBus, logger),
		payments:  service.NewPaymentService(clients, stateRepo, eventBus, cfg.Payment, logger),
		catalog:   service.NewCatalogService(clients, stateRepo, validator, uploader, cfg.Bot.PageSize, logger),
		analytics: service.NewAnalyticsService(clients, stateRepo, logger),
		validator: validator,
		media:     uploader,
		stateRepo: stateRepo,
	}
	if cfg.Auth.Google.Enabled() {
		svc.google = auth.NewGoogle(cfg.Auth.Google)
	}
	return svc, nil
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	svc *services,
	eventBus *events.EventBus,
	scheduler *cron.Cron,
	logger *zerolog.Logger,
) error {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Error().Msg("Задайте токен бота в config.yaml")
		return os.ErrInvalid
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	httpClient := &http.Client{Timeout: 30 * time.Second}
	index := loadCoverage(ctx, cfg, httpClient, logger)

	deps := bot.Deps{
		State:     svc.state,
		Users:     svc.users,
		Bookings:  svc.bookings,
		Payments:  svc.payments,
		Catalog:   svc.catalog,
		Analytics: svc.analytics,
		Validator: svc.validator,
		Searches:  search.NewRegistry(ctx, svc.catalog.Search, cfg.Search.Debounce()),
		Coverage:  index,
		Media:     svc.media,
		OAuth:     svc.stateRepo,
		Accounts:  db,
		Watched:   db,
		HTTP:      httpClient,
	}
	if svc.google != nil {
		deps.Google = svc.google
	}
	if cfg.Monitoring.PrometheusEnabled {
		deps.Metrics = bot.NewMetrics(prometheus.DefaultRegisterer)
	}

	botWrapper := bot.NewBotWrapper(botAPI)
	tgService := service.NewTelegramService(botWrapper)
	telegramBot := bot.NewBot(tgService, cfg, deps, logging.Component(logger, "bot"))
	telegramBot.Subscribe(eventBus)
	defer telegramBot.Stop()

	if cfg.Watcher.Enabled {
		watcher := worker.NewStatusWatcher(db, svc.bookings, db, telegramBot,
			cfg.Watcher.Interval, worker.NewRetryPolicy(cfg.Watcher.Retry, 0), logging.Component(logger, "watcher"))
		go watcher.Start(ctx)
	}

	if err := telegramBot.ScheduleReminders(scheduler); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	sideServer := httpserver.New(cfg.Monitoring.Port, httpserver.Dependencies{
		Payments: svc.payments,
		Users:    svc.users,
		Google:   googleExchanger(svc.google),
		States:   svc.stateRepo,
		Notifier: telegramBot,
		Checks:   readinessChecks(db, redisClient),
		Outbox:   db,
		Metrics:  cfg.Monitoring.PrometheusEnabled,
		Logger:   logging.Component(logger, "http"),
	})
	go func() {
		if err := sideServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sideServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadCoverage(ctx context.Context, cfg *config.Config, client *http.Client, logger *zerolog.Logger) *coverage.Index {
	if cfg.Coverage.Source == "" {
		return nil
	}
	index, err := coverage.Load(ctx, cfg.Coverage.Source, client)
	if err != nil {
		logger.Warn().Err(err).Str("source", cfg.Coverage.Source).Msg("coverage unavailable")
		return nil
	}
	logger.Info().Int("districts", index.Len()).Msg("coverage loaded")
	return index
}

// googleExchanger keeps a nil *auth.Google from becoming a non-nil interface.
func googleExchanger(g *auth.Google) httpserver.CodeExchanger {
	if g == nil {
		return nil
	}
	return g
}

func readinessChecks(db *database.DB, redisClient *redis.Client) map[string]httpserver.Check {
	checks := map[string]httpserver.Check{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}
	return checks
}
