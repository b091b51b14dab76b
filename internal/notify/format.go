package notify

import (
	"fmt"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Markdown renders event for chat channels. Mention is prepended when set.
func Markdown(event monitor.Event, mention string) string {
	p := event.Product
	var body string
	switch event.Kind {
	case monitor.EventAvailable:
		body = fmt.Sprintf("✅ **%s** is available at **%s**!\n🔗 %s", p.Name, event.Price, p.URL)
	case monitor.EventUnavailable:
		body = fmt.Sprintf("❌ **%s** is no longer available.\n🔗 %s", p.Name, p.URL)
	case monitor.EventPriceDropped:
		body = fmt.Sprintf("💸 Price DROPPED for **%s**!\nOld price: %s\nNew price: %s\n%s",
			p.Name, event.OldPrice, event.Price, p.URL)
	case monitor.EventPriceRose:
		body = fmt.Sprintf("🔺 Price ROSE for **%s**!\nOld price: %s\nNew price: %s\n%s",
			p.Name, event.OldPrice, event.Price, p.URL)
	default:
		body = fmt.Sprintf("%s: %s\n%s", event.Kind, p.Name, p.URL)
	}
	if mention != "" {
		return mention + " " + body
	}
	return body
}

// Plain renders a short text suitable for SMS.
func Plain(event monitor.Event) string {
	p := event.Product
	switch event.Kind {
	case monitor.EventAvailable:
		return fmt.Sprintf("%s for %s. Link: %s", p.Name, event.Price, p.URL)
	case monitor.EventUnavailable:
		return fmt.Sprintf("%s unavailable. Link: %s", p.Name, p.URL)
	case monitor.EventPriceDropped, monitor.EventPriceRose:
		return fmt.Sprintf("%s: %s -> %s. Link: %s", p.Name, event.OldPrice, event.Price, p.URL)
	default:
		return fmt.Sprintf("%s: %s", event.Kind, p.Name)
	}
}
