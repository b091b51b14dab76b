// Package monitor defines core types shared across the stockwatch subsystems.
package monitor

import (
	"encoding/json"
	"sort"
	"sync"
)

// NoPrice is the price text recorded when no price could be observed.
const NoPrice = "no-price"

// TimestampLayout formats timestamps stored in state and history.
const TimestampLayout = "2006-01-02 15:04:05"

// Product is a single monitored listing from the catalog.
type Product struct {
	Name        string   `json:"name" validate:"required"`
	URL         string   `json:"url" validate:"required,http_url"`
	Store       string   `json:"store" validate:"required"`
	TargetPrice *float64 `json:"target_price,omitempty" validate:"omitempty,gt=0"`
	// ProductID groups listings of the same item across stores.
	ProductID string `json:"product_id,omitempty"`
}

// HasTarget reports whether the product carries a target price.
func (p Product) HasTarget() bool {
	return p.TargetPrice != nil
}

// StoreRules are the per-store selection rules used to build an Observation.
// Selectors prefixed with "xpath=" are XPath expressions, anything else is CSS.
type StoreRules struct {
	Price          string `json:"price"`
	Availability   string `json:"availability"`
	Unavailability string `json:"unavailability"`
	Rendered       bool   `json:"rendered"`
}

// UnmarshalJSON accepts the legacy "use_selenium" flag as an alias for Rendered.
func (r *StoreRules) UnmarshalJSON(data []byte) error {
	var raw struct {
		Price          string `json:"price"`
		Availability   string `json:"availability"`
		Unavailability string `json:"unavailability"`
		Rendered       *bool  `json:"rendered"`
		UseSelenium    *bool  `json:"use_selenium"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Price = raw.Price
	r.Availability = raw.Availability
	r.Unavailability = raw.Unavailability
	switch {
	case raw.Rendered != nil:
		r.Rendered = *raw.Rendered
	case raw.UseSelenium != nil:
		r.Rendered = *raw.UseSelenium
	default:
		r.Rendered = false
	}
	return nil
}

// DefaultRules apply to stores without configured rules: no signals, static fetch.
var DefaultRules = StoreRules{}

// Rules maps store identifiers to their selection rules.
type Rules map[string]StoreRules

// For returns the rules for store, falling back to DefaultRules.
func (r Rules) For(store string) (StoreRules, bool) {
	rules, ok := r[store]
	if !ok {
		return DefaultRules, false
	}
	return rules, true
}

// Observation is the result of a single fetch.
type Observation struct {
	Available bool
	PriceText string
}

// Unavailable is the degraded observation returned when every fetch attempt failed.
func Unavailable() Observation {
	return Observation{Available: false, PriceText: NoPrice}
}

// State is the last known observation persisted for a product.
type State struct {
	Available bool   `json:"available"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}

// EventKind tags a notification event variant.
type EventKind string

// Supported event kinds.
const (
	EventAvailable    EventKind = "available"
	EventUnavailable  EventKind = "unavailable"
	EventPriceDropped EventKind = "price_dropped"
	EventPriceRose    EventKind = "price_rose"
)

// AllEventKinds lists every event kind in a stable order.
var AllEventKinds = []EventKind{EventAvailable, EventUnavailable, EventPriceDropped, EventPriceRose}

// Event is a notification-worthy state change.
type Event struct {
	Kind    EventKind
	Product Product
	// Price is the newly observed price text.
	Price string
	// OldPrice is set for price change events.
	OldPrice string
}

// HistoryRecord is one line of the append-only price history.
type HistoryRecord struct {
	Timestamp   string
	ProductName string
	OldPrice    string
	NewPrice    string
	URL         string
}

// Snapshot is the in-memory persisted state: store -> product name -> State.
// Writes to different keys may happen concurrently.
type Snapshot struct {
	mu      sync.RWMutex
	entries map[string]map[string]State
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{entries: make(map[string]map[string]State)}
}

// SnapshotFrom wraps a decoded state map.
func SnapshotFrom(entries map[string]map[string]State) *Snapshot {
	if entries == nil {
		entries = make(map[string]map[string]State)
	}
	for store, byName := range entries {
		if byName == nil {
			delete(entries, store)
		}
	}
	return &Snapshot{entries: entries}
}

// Get returns the state for (store, name).
func (s *Snapshot) Get(store, name string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[store][name]
	return st, ok
}

// Put overwrites the state for (store, name).
func (s *Snapshot) Put(store, name string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := s.entries[store]
	if byName == nil {
		byName = make(map[string]State)
		s.entries[store] = byName
	}
	byName[name] = st
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byName := range s.entries {
		n += len(byName)
	}
	return n
}

// Stores returns the store identifiers in sorted order.
func (s *Snapshot) Stores() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for store := range s.entries {
		out = append(out, store)
	}
	sort.Strings(out)
	return out
}

// Entries returns a deep copy of the underlying map.
func (s *Snapshot) Entries() map[string]map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]State, len(s.entries))
	for store, byName := range s.entries {
		cp := make(map[string]State, len(byName))
		for name, st := range byName {
			cp[name] = st
		}
		out[store] = cp
	}
	return out
}

// MarshalJSON encodes the snapshot as a plain nested object.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}
