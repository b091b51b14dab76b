// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/catalog"
	"github.com/JakeFAU/stockwatch/internal/clock"
	"github.com/JakeFAU/stockwatch/internal/config"
	"github.com/JakeFAU/stockwatch/internal/fetcher"
	collyfetcher "github.com/JakeFAU/stockwatch/internal/fetcher/colly"
	"github.com/JakeFAU/stockwatch/internal/fetcher/headless"
	"github.com/JakeFAU/stockwatch/internal/history"
	"github.com/JakeFAU/stockwatch/internal/id/uuid"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/notify"
	"github.com/JakeFAU/stockwatch/internal/scheduler"
	"github.com/JakeFAU/stockwatch/internal/state"
)

// App holds the services shared by every command.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	products []monitor.Product
	rules    monitor.Rules
	state    monitor.StateStore
	history  monitor.HistoryLog
	notifier monitor.Notifier
	fetcher  monitor.Fetcher
	closers  []func() error
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Products returns the loaded catalog.
func (a *App) Products() []monitor.Product { return a.products }

// State returns the snapshot store.
func (a *App) State() monitor.StateStore { return a.state }

// NewApp builds every service from cfg. It fails fast on unreadable store
// rules or an unreachable backend.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	rules, err := catalog.LoadRules(cfg.Catalog.Selectors)
	if err != nil {
		return nil, err
	}
	a.rules = rules
	a.products = catalog.LoadProducts(cfg.Catalog.Products, logger)
	logger.Info("catalog loaded", zap.Int("products", len(a.products)), zap.Int("stores", len(rules)))

	if err := a.initState(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initNotifier(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initFetcher(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) initState(ctx context.Context) error {
	switch a.cfg.State.Backend {
	case "redis":
		store, err := state.NewRedisStore(ctx, state.RedisConfig{
			Addr:     a.cfg.State.Redis.Addr,
			Password: a.cfg.State.Redis.Password,
			DB:       a.cfg.State.Redis.DB,
			Key:      a.cfg.State.Redis.Key,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("init redis state: %w", err)
		}
		a.logger.Info("using redis state backend", zap.String("addr", a.cfg.State.Redis.Addr))
		a.state = store
		a.closers = append(a.closers, store.Close)
	case "file", "":
		store, err := state.NewFileStore(a.cfg.State.Path, a.logger)
		if err != nil {
			return fmt.Errorf("init file state: %w", err)
		}
		a.state = store
	default:
		return fmt.Errorf("unknown state backend: %s", a.cfg.State.Backend)
	}
	return nil
}

func (a *App) initHistory(ctx context.Context) error {
	switch a.cfg.History.Backend {
	case "postgres":
		log, err := history.NewPostgresLog(ctx, history.PostgresConfig{
			DSN:      a.cfg.History.Postgres.DSN,
			Table:    a.cfg.History.Postgres.Table,
			MaxConns: a.cfg.History.Postgres.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("init postgres history: %w", err)
		}
		a.logger.Info("using postgres history backend")
		a.history = log
	case "csv", "":
		log, err := history.NewCSVLog(a.cfg.History.Path)
		if err != nil {
			return fmt.Errorf("init csv history: %w", err)
		}
		a.history = log
	default:
		return fmt.Errorf("unknown history backend: %s", a.cfg.History.Backend)
	}
	a.closers = append(a.closers, a.history.Close)
	return nil
}

func (a *App) initNotifier() error {
	n := a.cfg.Notify
	discordEvents, err := config.EventKinds(n.Discord.Events)
	if err != nil {
		return fmt.Errorf("notify.discord.events: %w", err)
	}
	telegramEvents, err := config.EventKinds(n.Telegram.Events)
	if err != nil {
		return fmt.Errorf("notify.telegram.events: %w", err)
	}
	smsEvents, err := config.EventKinds(n.SMS.Events)
	if err != nil {
		return fmt.Errorf("notify.sms.events: %w", err)
	}

	telegram, err := notify.NewTelegram(notify.TelegramConfig{Token: n.Telegram.Token, ChatID: n.Telegram.ChatID})
	if err != nil {
		return err
	}
	subs := []notify.Subscription{
		{Channel: notify.NewDiscord(n.Discord.WebhookURL, &http.Client{Timeout: a.cfg.Fetch.StaticTimeout}), Events: discordEvents},
		{Channel: telegram, Events: telegramEvents},
		{Channel: notify.NewSMS(notify.SMSConfig{
			AccountSID: n.SMS.AccountSID,
			AuthToken:  n.SMS.AuthToken,
			From:       n.SMS.From,
			To:         n.SMS.To,
		}), Events: smsEvents},
	}
	if n.Alert.Enabled {
		subs = append(subs, notify.AlertSubscription(notify.NewAlert(true)))
	}
	a.notifier = notify.NewDispatcher(a.logger, subs...)
	return nil
}

func (a *App) initFetcher() error {
	f := a.cfg.Fetch
	resolver := fetcher.NewResolver(f.OutOfStockPhrases...)
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent: f.UserAgent,
		Timeout:   f.StaticTimeout,
	}, resolver)

	var rendered fetcher.Strategy
	if f.Rendered.Enabled {
		h, err := headless.NewChromedp(headless.Config{
			MaxParallel:     f.Rendered.MaxParallel,
			UserAgent:       f.UserAgent,
			PageLoadTimeout: f.PageLoadTimeout,
			SettleTimeout:   f.SettleTimeout,
			ExecPath:        f.Rendered.ExecPath,
			NoSandbox:       f.Rendered.NoSandbox,
		}, resolver)
		if err != nil {
			return fmt.Errorf("init rendered fetcher: %w", err)
		}
		rendered = h
	} else {
		a.logger.Warn("rendered strategy disabled, stores that need it use static fetches")
	}

	opts := []fetcher.Option{}
	if f.PerStoreRPS > 0 {
		opts = append(opts, fetcher.WithLimiter(fetcher.NewStoreLimiter(f.PerStoreRPS, 1)))
	}
	fch, err := fetcher.New(fetcher.Config{
		MaxAttempts: f.MaxAttempts,
		RetryDelay:  f.RetryDelay,
	}, static, rendered, a.logger.Named("fetcher"), opts...)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	a.fetcher = fch
	return nil
}

// Pass builds a scheduler pass over the loaded catalog.
func (a *App) Pass() (*scheduler.Pass, error) {
	return scheduler.New(a.cfg.Scheduler.Workers, scheduler.Deps{
		Products: a.products,
		Rules:    a.rules,
		Fetcher:  a.fetcher,
		State:    a.state,
		History:  a.history,
		Notifier: a.notifier,
		Clock:    clock.NewSystem(nil),
		IDs:      uuid.New(),
		Logger:   a.logger,
	})
}

// Close releases backend connections and files.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing application services", zap.Error(err))
	}
}
