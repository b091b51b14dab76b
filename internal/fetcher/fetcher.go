// Package fetcher produces product observations with bounded retries across
// a static and a rendered page strategy.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/logging"
	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// ErrStatus is returned by strategies for non-2xx responses.
var ErrStatus = errors.New("unexpected http status")

// Strategy fetches and evaluates one page in a single attempt.
type Strategy interface {
	Name() string
	Observe(ctx context.Context, url string, rules monitor.StoreRules) (monitor.Observation, error)
}

// SleepFunc waits between attempts.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config controls retry behavior.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Default retry settings.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
)

// Fetcher implements monitor.Fetcher with a fixed-delay retry loop.
type Fetcher struct {
	cfg      Config
	static   Strategy
	rendered Strategy
	limiter  *StoreLimiter
	sleep    SleepFunc
	logger   *zap.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithSleeper replaces the inter-attempt wait (used by tests).
func WithSleeper(sleep SleepFunc) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// WithLimiter enables per-store rate limiting.
func WithLimiter(l *StoreLimiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// New builds a Fetcher. rendered may be nil, in which case stores that ask
// for rendering fall back to the static strategy.
func New(cfg Config, static, rendered Strategy, logger *zap.Logger, opts ...Option) (*Fetcher, error) {
	if static == nil {
		return nil, fmt.Errorf("static strategy is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay must be >= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		cfg:      cfg,
		static:   static,
		rendered: rendered,
		sleep:    sleepContext,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch observes product using the strategy its store rules select. It never
// fails: after MaxAttempts failed attempts it returns monitor.Unavailable().
func (f *Fetcher) Fetch(ctx context.Context, product monitor.Product, rules monitor.StoreRules) monitor.Observation {
	strategy := f.strategyFor(rules)
	logger := f.logger.With(append(logging.Product(product), zap.String("strategy", strategy.Name()))...)

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		obs, err := f.attempt(ctx, strategy, product, rules)
		metrics.ObserveFetchAttempt(strategy.Name(), err)
		if err == nil {
			return obs
		}
		logger.Warn("fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.MaxAttempts),
			zap.Error(err),
		)
		if attempt == f.cfg.MaxAttempts {
			break
		}
		logger.Debug("retrying after delay", zap.Duration("delay", f.cfg.RetryDelay))
		if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
			logger.Warn("retry wait interrupted", zap.Error(err))
			return monitor.Unavailable()
		}
	}
	logger.Error("fetch attempts exhausted", zap.Int("max_attempts", f.cfg.MaxAttempts))
	return monitor.Unavailable()
}

func (f *Fetcher) attempt(
	ctx context.Context,
	strategy Strategy,
	product monitor.Product,
	rules monitor.StoreRules,
) (monitor.Observation, error) {
	if err := f.limiter.Wait(ctx, product.Store); err != nil {
		return monitor.Observation{}, err
	}
	obs, err := strategy.Observe(ctx, product.URL, rules)
	if err != nil {
		return monitor.Observation{}, fmt.Errorf("%s observe: %w", strategy.Name(), err)
	}
	return obs, nil
}

func (f *Fetcher) strategyFor(rules monitor.StoreRules) Strategy {
	if rules.Rendered && f.rendered != nil {
		return f.rendered
	}
	return f.static
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
