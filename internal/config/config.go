package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"decorbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Payment    PaymentConfig    `yaml:"payment"`
	Media      MediaConfig      `yaml:"media"`
	Coverage   CoverageConfig   `yaml:"coverage"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Watcher    WatcherConfig    `yaml:"watcher"`
	Search     SearchConfig     `yaml:"search"`
	Bot        BotConfig        `yaml:"bot"`
	Demo       DemoConfig       `yaml:"demo"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type APIConfig struct {
	BaseURL         string             `yaml:"base_url"`
	Timeout         time.Duration      `yaml:"timeout"`
	RateLimit       APIRateLimitConfig `yaml:"rate_limit"`
	CacheTTLSeconds int                `yaml:"cache_ttl_seconds"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AuthConfig struct {
	BaseURL string       `yaml:"base_url"`
	APIKey  string       `yaml:"api_key"`
	Google  GoogleConfig `yaml:"google"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether federated sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type PaymentConfig struct {
	PublicBaseURL string `yaml:"public_base_url"`
	Currency      string `yaml:"currency"`
}

type MediaConfig struct {
	CloudinaryURL string `yaml:"cloudinary_url"`
	Folder        string `yaml:"folder"`
}

type CoverageConfig struct {
	Source string `yaml:"source"`
}

type DatabaseConfig struct {
	Path   string       `yaml:"path"`
	Backup BackupConfig `yaml:"backup"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	Port              int  `yaml:"port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type WatcherConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Retry    RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Factor       float64       `yaml:"factor"`
}

type SearchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

type BotConfig struct {
	ReminderCron      string `yaml:"reminder_cron"`
	DigestCron        string `yaml:"digest_cron"`
	SupportContact    string `yaml:"support_contact"`
	PageSize          int    `yaml:"page_size"`
	RateLimitMessages int    `yaml:"rate_limit_messages"`
	RateLimitWindow   int    `yaml:"rate_limit_window"`
	UpdateTimeout     int    `yaml:"update_timeout"`
}

type DemoConfig struct {
	Customer  DemoAccount `yaml:"customer"`
	Decorator DemoAccount `yaml:"decorator"`
	Admin     DemoAccount `yaml:"admin"`
}

type DemoAccount struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func (d DemoAccount) Set() bool {
	return d.Email != "" && d.Password != ""
}

// Account returns the demo credentials for a role.
func (d DemoConfig) Account(role string) (DemoAccount, bool) {
	var acc DemoAccount
	switch role {
	case models.RoleCustomer:
		acc = d.Customer
	case models.RoleDecorator:
		acc = d.Decorator
	case models.RoleAdmin:
		acc = d.Admin
	}
	return acc, acc.Set()
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	if err := validURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if err := validURL("auth.base_url", c.Auth.BaseURL); err != nil {
		return err
	}
	if c.Payment.PublicBaseURL != "" {
		if err := validURL("payment.public_base_url", c.Payment.PublicBaseURL); err != nil {
			return err
		}
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.API.RateLimit.RPS < 0 || c.API.RateLimit.Burst < 0 {
		return errors.New("api.rate_limit must not be negative")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	return nil
}

func validURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	return nil
}

// Location returns the configured timezone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "decorbook"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.API.CacheTTLSeconds == 0 {
		c.API.CacheTTLSeconds = models.DefaultCacheTTL
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "bdt"
	}
	if c.Media.Folder == "" {
		c.Media.Folder = "decorbook"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "decorbook.events"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.Port == 0 {
		c.Monitoring.Port = 9090
	}
	if c.Monitoring.Port == 0 {
		c.Monitoring.Port = 8080
	}

	// Watcher defaults
	if c.Watcher.Interval == 0 {
		c.Watcher.Interval = time.Minute
	}
	if c.Watcher.Retry.InitialDelay == 0 {
		c.Watcher.Retry.InitialDelay = 5 * time.Second
	}
	if c.Watcher.Retry.MaxDelay == 0 {
		c.Watcher.Retry.MaxDelay = 5 * time.Minute
	}
	if c.Watcher.Retry.Factor == 0 {
		c.Watcher.Retry.Factor = 2
	}

	if c.Search.DebounceMS == 0 {
		c.Search.DebounceMS = models.DefaultDebounceMillis
	}

	// Bot defaults
	if c.Bot.ReminderCron == "" {
		c.Bot.ReminderCron = "0 9 * * *"
	}
	if c.Bot.DigestCron == "" {
		c.Bot.DigestCron = "0 20 * * *"
	}
	if c.Bot.PageSize == 0 {
		c.Bot.PageSize = models.DefaultPaginationSize
	}
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
	if c.Bot.UpdateTimeout == 0 {
		c.Bot.UpdateTimeout = 30
	}
	if c.Database.Backup.Schedule == "" {
		c.Database.Backup.Schedule = "0 3 * * *"
	}
	if c.Database.Backup.StoragePath == "" {
		c.Database.Backup.StoragePath = "data/backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
