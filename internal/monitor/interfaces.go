package monitor

import (
	"context"
	"time"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Fetcher produces an Observation for one product. It never fails; exhausted
// retries degrade to Unavailable().
type Fetcher interface {
	Fetch(ctx context.Context, product Product, rules StoreRules) Observation
}

// StateStore loads and saves the persisted snapshot as a whole.
type StateStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// HistoryLog appends price history records.
type HistoryLog interface {
	Append(ctx context.Context, record HistoryRecord) error
	Close() error
}

// Notifier fans an event out to the configured channels. Outcomes are
// informational; delivery failures are never returned as errors.
type Notifier interface {
	Dispatch(ctx context.Context, event Event) []Outcome
}

// Outcome records what happened on one channel for one event.
type Outcome struct {
	Channel string
	Skipped bool
	Err     error
}

// OK reports whether the channel delivered the event.
func (o Outcome) OK() bool {
	return !o.Skipped && o.Err == nil
}
