package fetcher

import (
	"strings"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// DefaultOutOfStockPhrases mark an unavailability element as really out of stock.
var DefaultOutOfStockPhrases = []string{"brak", "wyprzedany", "niedostępny"}

// Signals groups the three selector results for one page.
type Signals struct {
	Price          Signal
	Availability   Signal
	Unavailability Signal
}

// Resolver turns page signals into an Observation.
type Resolver struct {
	phrases []string
}

// NewResolver builds a Resolver matching the default phrases plus extra.
func NewResolver(extra ...string) Resolver {
	phrases := make([]string, 0, len(DefaultOutOfStockPhrases)+len(extra))
	seen := make(map[string]struct{})
	for _, p := range append(append([]string(nil), DefaultOutOfStockPhrases...), extra...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}
	return Resolver{phrases: phrases}
}

// OutOfStock reports whether text contains any out-of-stock phrase.
func (r Resolver) OutOfStock(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range r.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Resolve applies the availability rule. The unavailability signal wins when
// its text carries an out-of-stock phrase; otherwise a present availability
// signal (visible too, when requireVisible) means available.
func (r Resolver) Resolve(s Signals, requireVisible bool) monitor.Observation {
	obs := monitor.Observation{PriceText: priceText(s.Price)}
	if s.Unavailability.Present && r.OutOfStock(s.Unavailability.Text) {
		return obs
	}
	if s.Availability.Present && (!requireVisible || s.Availability.Visible) {
		obs.Available = true
	}
	return obs
}

// Extract evaluates rules against a parsed static document.
func (r Resolver) Extract(doc *Document, rules monitor.StoreRules) monitor.Observation {
	return r.Resolve(Signals{
		Price:          doc.Query(rules.Price),
		Availability:   doc.Query(rules.Availability),
		Unavailability: doc.Query(rules.Unavailability),
	}, false)
}

func priceText(s Signal) string {
	if !s.Present || s.Text == "" {
		return monitor.NoPrice
	}
	return s.Text
}
