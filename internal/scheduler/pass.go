// Package scheduler runs monitoring passes over the product catalog.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/stockwatch/internal/clock"
	"github.com/JakeFAU/stockwatch/internal/logging"
	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/transition"
)

// DefaultWorkers bounds concurrent product checks.
const DefaultWorkers = 5

// IDGenerator issues pass identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps are the collaborators of a pass.
type Deps struct {
	Products []monitor.Product
	Rules    monitor.Rules
	Fetcher  monitor.Fetcher
	State    monitor.StateStore
	History  monitor.HistoryLog
	Notifier monitor.Notifier
	Clock    monitor.Clock
	IDs      IDGenerator
	Logger   *zap.Logger
}

// Summary reports what a pass did.
type Summary struct {
	PassID           string
	Products         int
	Available        int
	Changed          int
	Events           int
	DeliveryFailures int
	Failures         int
	Duration         time.Duration
}

// Pass checks every product once per Run.
type Pass struct {
	deps    Deps
	workers int
	logger  *zap.Logger
}

// New validates deps and builds a Pass.
func New(workers int, deps Deps) (*Pass, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("fetcher is required")
	case deps.State == nil:
		return nil, fmt.Errorf("state store is required")
	case deps.History == nil:
		return nil, fmt.Errorf("history log is required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier is required")
	case deps.Clock == nil:
		return nil, fmt.Errorf("clock is required")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if deps.Rules == nil {
		deps.Rules = monitor.Rules{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pass{deps: deps, workers: workers, logger: logger.Named("scheduler")}, nil
}

type result struct {
	available        bool
	changed          bool
	events           int
	deliveryFailures int
	failed           bool
}

// Run loads state, checks all products with a bounded worker pool, and saves
// state once. Products are isolated from each other's failures. State that
// cannot be loaded is replaced by an empty snapshot; an error is returned only
// when state cannot be saved.
func (p *Pass) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{PassID: p.passID(), Products: len(p.deps.Products)}
	logger := logging.ForPass(p.logger, summary.PassID)
	logger.Info("pass started", zap.Int("products", summary.Products), zap.Int("workers", p.workers))

	snapshot, err := p.deps.State.Load(ctx)
	if err != nil || snapshot == nil {
		logger.Warn("loading state failed, starting from an empty snapshot", zap.Error(err))
		snapshot = monitor.NewSnapshot()
	}

	results := make([]result, len(p.deps.Products))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, product := range p.deps.Products {
		g.Go(func() error {
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()
			results[i] = p.check(ctx, logger, snapshot, product)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.available {
			summary.Available++
		}
		if r.changed {
			summary.Changed++
		}
		if r.failed {
			summary.Failures++
		}
		summary.Events += r.events
		summary.DeliveryFailures += r.deliveryFailures
	}

	saveErr := p.deps.State.Save(context.WithoutCancel(ctx), snapshot)
	summary.Duration = time.Since(start)
	metrics.ObservePass(summary.Duration)
	if saveErr != nil {
		logger.Error("saving state failed", zap.Error(saveErr))
		return summary, fmt.Errorf("save state: %w", saveErr)
	}

	logger.Info("pass finished",
		zap.Int("available", summary.Available),
		zap.Int("changed", summary.Changed),
		zap.Int("events", summary.Events),
		zap.Int("delivery_failures", summary.DeliveryFailures),
		zap.Int("failures", summary.Failures),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (p *Pass) check(
	ctx context.Context,
	logger *zap.Logger,
	snapshot *monitor.Snapshot,
	product monitor.Product,
) (res result) {
	logger = logger.With(logging.Product(product)...)
	defer func() {
		if r := recover(); r != nil {
			res = result{failed: true}
			metrics.ObserveProductFailure()
			logger.Error("product check panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	rules, known := p.deps.Rules.For(product.Store)
	if !known {
		logger.Warn("no rules for store, using defaults")
	}

	obs := p.deps.Fetcher.Fetch(ctx, product, rules)
	if ctx.Err() != nil {
		logger.Warn("pass canceled, discarding observation")
		return res
	}
	res.available = obs.Available
	metrics.ObserveObservation(product.Store, obs.Available)

	prevState, found := snapshot.Get(product.Store, product.Name)
	decision := transition.Decide(product, transition.Previous{State: prevState, Found: found}, obs, clock.Stamp(p.deps.Clock))
	if !decision.Changed {
		logger.Info("no change", zap.Bool("available", obs.Available), zap.String("price", obs.PriceText))
		return res
	}
	res.changed = true
	logger.Info("state changed",
		zap.Stringer("rule", decision.Rule),
		zap.Bool("available", decision.State.Available),
		zap.String("price", decision.State.Price),
	)

	for _, event := range decision.Events {
		res.events++
		metrics.ObserveEvent(string(event.Kind))
		for _, outcome := range p.deps.Notifier.Dispatch(ctx, event) {
			if outcome.Err != nil {
				res.deliveryFailures++
			}
		}
	}

	if decision.History != nil {
		if err := p.deps.History.Append(ctx, *decision.History); err != nil {
			logger.Error("appending price history failed", zap.Error(err))
		}
	}

	snapshot.Put(product.Store, product.Name, decision.State)
	return res
}

func (p *Pass) passID() string {
	if p.deps.IDs == nil {
		return ""
	}
	id, err := p.deps.IDs.NewID()
	if err != nil {
		p.logger.Warn("generating pass id failed", zap.Error(err))
		return ""
	}
	return id
}
