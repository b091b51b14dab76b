// Package config loads and validates stockwatch configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// EnvPrefix namespaces environment overrides (STOCKWATCH_FETCH_MAX_ATTEMPTS, ...).
const EnvPrefix = "STOCKWATCH"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	State     StateConfig     `mapstructure:"state"`
	History   HistoryConfig   `mapstructure:"history"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CatalogConfig locates the product list and store rules.
type CatalogConfig struct {
	Products  string `mapstructure:"products"`
	Selectors string `mapstructure:"selectors"`
}

// FetchConfig governs retries and both page strategies.
type FetchConfig struct {
	MaxAttempts       int            `mapstructure:"max_attempts"`
	RetryDelay        time.Duration  `mapstructure:"retry_delay"`
	StaticTimeout     time.Duration  `mapstructure:"static_timeout"`
	PageLoadTimeout   time.Duration  `mapstructure:"page_load_timeout"`
	SettleTimeout     time.Duration  `mapstructure:"settle_timeout"`
	UserAgent         string         `mapstructure:"user_agent"`
	OutOfStockPhrases []string       `mapstructure:"out_of_stock_phrases"`
	PerStoreRPS       float64        `mapstructure:"per_store_rps"`
	Rendered          RenderedConfig `mapstructure:"rendered"`
}

// RenderedConfig configures the headless browser strategy.
type RenderedConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MaxParallel int    `mapstructure:"max_parallel"`
	ExecPath    string `mapstructure:"exec_path"`
	NoSandbox   bool   `mapstructure:"no_sandbox"`
}

// SchedulerConfig controls the worker pool and watch cadence.
type SchedulerConfig struct {
	Workers  int    `mapstructure:"workers"`
	Schedule string `mapstructure:"schedule"`
}

// StateConfig selects the snapshot backend.
type StateConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig addresses the Redis state backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// HistoryConfig selects the price history backend.
type HistoryConfig struct {
	Backend  string         `mapstructure:"backend"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig addresses the Postgres history backend.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// NotifyConfig holds every notification channel.
type NotifyConfig struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Alert    AlertConfig    `mapstructure:"alert"`
}

// DiscordConfig configures the webhook channel.
type DiscordConfig struct {
	WebhookURL string   `mapstructure:"webhook_url"`
	Events     []string `mapstructure:"events"`
}

// TelegramConfig configures the bot channel.
type TelegramConfig struct {
	Token  string   `mapstructure:"token"`
	ChatID string   `mapstructure:"chat_id"`
	Events []string `mapstructure:"events"`
}

// SMSConfig configures the Twilio channel.
type SMSConfig struct {
	AccountSID string   `mapstructure:"account_sid"`
	AuthToken  string   `mapstructure:"auth_token"`
	From       string   `mapstructure:"from"`
	To         string   `mapstructure:"to"`
	Events     []string `mapstructure:"events"`
}

// AlertConfig toggles the local audible alert.
type AlertConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig controls the Prometheus listener used by watch mode.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// legacyEnv maps keys to the environment names used by existing deployments.
var legacyEnv = map[string]string{
	"notify.sms.account_sid":     "TWILIO_ACCOUNT_SID",
	"notify.sms.auth_token":      "TWILIO_AUTH_TOKEN",
	"notify.sms.from":            "TWILIO_FROM_NUMBER",
	"notify.sms.to":              "TO_PHONE_NUMBER",
	"notify.discord.webhook_url": "WEBHOOK_URL",
	"notify.telegram.token":      "TELEGRAM_TOKEN",
	"notify.telegram.chat_id":    "TELEGRAM_CHAT_ID",
}

// LoadDotEnv loads variables from a dotenv file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("catalog.products", "products.json")
	v.SetDefault("catalog.selectors", "selectors.json")
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.retry_delay", 5*time.Second)
	v.SetDefault("fetch.static_timeout", 10*time.Second)
	v.SetDefault("fetch.page_load_timeout", 5*time.Second)
	v.SetDefault("fetch.settle_timeout", 10*time.Second)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.out_of_stock_phrases", []string{})
	v.SetDefault("fetch.per_store_rps", 0.0)
	v.SetDefault("fetch.rendered.enabled", true)
	v.SetDefault("fetch.rendered.max_parallel", 2)
	v.SetDefault("fetch.rendered.exec_path", "")
	v.SetDefault("fetch.rendered.no_sandbox", false)
	v.SetDefault("scheduler.workers", 5)
	v.SetDefault("scheduler.schedule", "@every 2m")
	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "notified.json")
	v.SetDefault("state.redis.addr", "")
	v.SetDefault("state.redis.password", "")
	v.SetDefault("state.redis.db", 0)
	v.SetDefault("state.redis.key", "stockwatch:state")
	v.SetDefault("history.backend", "csv")
	v.SetDefault("history.path", "price_history.csv")
	v.SetDefault("history.postgres.dsn", "")
	v.SetDefault("history.postgres.table", "price_history")
	v.SetDefault("history.postgres.max_conns", 4)
	v.SetDefault("notify.discord.events", []string{})
	v.SetDefault("notify.telegram.events", []string{})
	v.SetDefault("notify.sms.events", []string{})
	v.SetDefault("notify.alert.enabled", true)
	v.SetDefault("metrics.addr", ":9108")
}

func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Catalog.Selectors == "" {
		return fmt.Errorf("catalog.selectors must be set")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be >= 1")
	}
	if c.Fetch.RetryDelay < 0 {
		return fmt.Errorf("fetch.retry_delay must be >= 0")
	}
	if c.Fetch.StaticTimeout <= 0 {
		return fmt.Errorf("fetch.static_timeout must be > 0")
	}
	if c.Fetch.PageLoadTimeout <= 0 {
		return fmt.Errorf("fetch.page_load_timeout must be > 0")
	}
	if c.Fetch.SettleTimeout < 0 {
		return fmt.Errorf("fetch.settle_timeout must be >= 0")
	}
	if c.Fetch.PerStoreRPS < 0 {
		return fmt.Errorf("fetch.per_store_rps must be >= 0")
	}
	if c.Fetch.Rendered.Enabled && c.Fetch.Rendered.MaxParallel < 0 {
		return fmt.Errorf("fetch.rendered.max_parallel must be >= 0")
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be > 0")
	}
	if _, err := cron.ParseStandard(c.Scheduler.Schedule); err != nil {
		return fmt.Errorf("scheduler.schedule %q: %w", c.Scheduler.Schedule, err)
	}
	switch c.State.Backend {
	case "file":
		if c.State.Path == "" {
			return fmt.Errorf("state.path must be set for the file backend")
		}
	case "redis":
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("state.redis.addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("state.backend must be file or redis, got %q", c.State.Backend)
	}
	switch c.History.Backend {
	case "csv":
		if c.History.Path == "" {
			return fmt.Errorf("history.path must be set for the csv backend")
		}
	case "postgres":
		if c.History.Postgres.DSN == "" {
			return fmt.Errorf("history.postgres.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("history.backend must be csv or postgres, got %q", c.History.Backend)
	}
	for key, events := range map[string][]string{
		"notify.discord.events":  c.Notify.Discord.Events,
		"notify.telegram.events": c.Notify.Telegram.Events,
		"notify.sms.events":      c.Notify.SMS.Events,
	} {
		if _, err := EventKinds(events); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// EventKinds converts configured event names. An empty list yields nil so the
// channel receives the default set.
func EventKinds(names []string) ([]monitor.EventKind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]monitor.EventKind, 0, len(names))
	for _, name := range names {
		kind := monitor.EventKind(strings.TrimSpace(strings.ToLower(name)))
		if kind == "" {
			continue
		}
		known := false
		for _, k := range monitor.AllEventKinds {
			if k == kind {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown event kind %q", name)
		}
		out = append(out, kind)
	}
	return out, nil
}
