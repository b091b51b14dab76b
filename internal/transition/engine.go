// Package transition decides how a fresh observation changes a product's
// persisted state and which notifications it produces.
package transition

import (
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/price"
)

// Rule identifies which transition fired.
type Rule int

// Transition rules in evaluation order.
const (
	RuleSteady Rule = iota
	RuleBecameAvailable
	RuleBecameUnavailable
	RulePriceChanged
)

func (r Rule) String() string {
	switch r {
	case RuleBecameAvailable:
		return "became_available"
	case RuleBecameUnavailable:
		return "became_unavailable"
	case RulePriceChanged:
		return "price_changed"
	default:
		return "steady"
	}
}

// Previous is the last persisted state for a product, if any.
type Previous struct {
	State monitor.State
	Found bool
}

// Decision is the outcome of a single transition.
type Decision struct {
	Rule Rule
	// Changed is false when State must not be written.
	Changed bool
	State   monitor.State
	Events  []monitor.Event
	History *monitor.HistoryRecord
}

// Decide applies the first matching rule:
//  1. observed available, previously not available (or unknown)
//  2. observed unavailable, previously not unavailable (or unknown)
//  3. still available with a different, comparable price
//  4. steady state
func Decide(product monitor.Product, prev Previous, obs monitor.Observation, now string) Decision {
	wasAvailable := prev.Found && prev.State.Available
	wasUnavailable := prev.Found && !prev.State.Available

	switch {
	case obs.Available && !wasAvailable:
		return becameAvailable(product, prev, obs, now)
	case !obs.Available && !wasUnavailable:
		return Decision{
			Rule:    RuleBecameUnavailable,
			Changed: true,
			State:   monitor.State{Available: false, Price: obs.PriceText, Timestamp: now},
			Events: []monitor.Event{{
				Kind:     monitor.EventUnavailable,
				Product:  product,
				Price:    obs.PriceText,
				OldPrice: prev.State.Price,
			}},
		}
	case obs.Available && wasAvailable:
		if d, ok := priceChanged(product, prev, obs, now); ok {
			return d
		}
	}
	return Decision{Rule: RuleSteady, State: prev.State}
}

func becameAvailable(product monitor.Product, prev Previous, obs monitor.Observation, now string) Decision {
	d := Decision{
		Rule:    RuleBecameAvailable,
		Changed: true,
		State:   monitor.State{Available: true, Price: obs.PriceText, Timestamp: now},
	}
	if withinTarget(product, obs.PriceText) {
		d.Events = append(d.Events, monitor.Event{
			Kind:     monitor.EventAvailable,
			Product:  product,
			Price:    obs.PriceText,
			OldPrice: prev.State.Price,
		})
	}
	oldPrice := prev.State.Price
	if prev.Found && oldPrice != "" && oldPrice != obs.PriceText {
		if _, _, ok := price.Comparable(oldPrice, obs.PriceText); ok {
			d.History = historyRecord(product, oldPrice, obs.PriceText, now)
		}
	}
	return d
}

func priceChanged(product monitor.Product, prev Previous, obs monitor.Observation, now string) (Decision, bool) {
	oldPrice := prev.State.Price
	if obs.PriceText == "" || oldPrice == "" || obs.PriceText == oldPrice {
		return Decision{}, false
	}
	oldValue, newValue, ok := price.Comparable(oldPrice, obs.PriceText)
	if !ok {
		return Decision{}, false
	}

	d := Decision{
		Rule:    RulePriceChanged,
		Changed: true,
		State: monitor.State{
			Available: prev.State.Available,
			Price:     obs.PriceText,
			Timestamp: now,
		},
		History: historyRecord(product, oldPrice, obs.PriceText, now),
	}
	event := monitor.Event{Product: product, Price: obs.PriceText, OldPrice: oldPrice}
	switch {
	case newValue < oldValue:
		event.Kind = monitor.EventPriceDropped
		d.Events = append(d.Events, event)
	case newValue > oldValue:
		// Rises above an already unreachable target are not actionable.
		if product.HasTarget() && newValue > *product.TargetPrice {
			break
		}
		event.Kind = monitor.EventPriceRose
		d.Events = append(d.Events, event)
	}
	return d, true
}

// withinTarget gates the availability event. Without a target every price
// qualifies; with a target the price must parse and be at or below it.
func withinTarget(product monitor.Product, priceText string) bool {
	if !product.HasTarget() {
		return true
	}
	value, ok := price.Parse(priceText)
	return ok && value <= *product.TargetPrice
}

func historyRecord(product monitor.Product, oldPrice, newPrice, now string) *monitor.HistoryRecord {
	return &monitor.HistoryRecord{
		Timestamp:   now,
		ProductName: product.Name,
		OldPrice:    oldPrice,
		NewPrice:    newPrice,
		URL:         product.URL,
	}
}
