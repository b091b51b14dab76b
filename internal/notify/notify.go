// Package notify fans monitoring events out to notification channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/metrics"
	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// ErrNotConfigured is returned by channels that lack credentials.
var ErrNotConfigured = errors.New("channel not configured")

// Channel delivers a formatted event to one destination.
type Channel interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, event monitor.Event) error
}

// DefaultEvents are delivered to a channel that does not list its own.
var DefaultEvents = []monitor.EventKind{
	monitor.EventAvailable,
	monitor.EventUnavailable,
	monitor.EventPriceDropped,
	monitor.EventPriceRose,
}

// Subscription binds a channel to the event kinds it receives.
type Subscription struct {
	Channel Channel
	Events  []monitor.EventKind
}

func (s Subscription) wants(kind monitor.EventKind) bool {
	events := s.Events
	if len(events) == 0 {
		events = DefaultEvents
	}
	return slices.Contains(events, kind)
}

// Dispatcher implements monitor.Notifier over a fixed set of channels.
type Dispatcher struct {
	subs   []Subscription
	logger *zap.Logger
}

// NewDispatcher builds a Dispatcher and warns once for every unconfigured channel.
func NewDispatcher(logger *zap.Logger, subs ...Subscription) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("notify")
	kept := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Channel == nil {
			continue
		}
		if !sub.Channel.Configured() {
			logger.Warn("notification channel not configured, events will be skipped",
				zap.String("channel", sub.Channel.Name()))
		}
		kept = append(kept, sub)
	}
	return &Dispatcher{subs: kept, logger: logger}
}

// Dispatch sends event to every subscribed channel. Each channel is attempted
// independently; failures are logged and reported in the returned outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, event monitor.Event) []monitor.Outcome {
	outcomes := make([]monitor.Outcome, 0, len(d.subs))
	for _, sub := range d.subs {
		if !sub.wants(event.Kind) {
			continue
		}
		outcome := d.deliver(ctx, sub.Channel, event)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, event monitor.Event) (outcome monitor.Outcome) {
	name := ch.Name()
	outcome.Channel = name
	fields := []zap.Field{
		zap.String("channel", name),
		zap.String("event", string(event.Kind)),
		zap.String("product", event.Product.Name),
	}

	if !ch.Configured() {
		outcome.Skipped = true
		metrics.ObserveNotification(name, "skipped")
		return outcome
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("channel panicked: %v", r)
			metrics.ObserveNotification(name, "failed")
			d.logger.Error("notification channel panicked", append(fields, zap.Any("panic", r))...)
		}
	}()

	if err := ch.Send(ctx, event); err != nil {
		outcome.Err = err
		metrics.ObserveNotification(name, "failed")
		d.logger.Error("notification failed", append(fields, zap.Error(err))...)
		return outcome
	}
	metrics.ObserveNotification(name, "sent")
	d.logger.Info("notification sent", fields...)
	return outcome
}
