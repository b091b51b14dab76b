package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/fatih/color"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

const macSound = "/System/Library/Sounds/Ping.aiff"

// Alert is the local audible and visual signal raised on availability.
type Alert struct {
	enabled bool
	out     io.Writer
	goos    string
	run     func(ctx context.Context, name string, args ...string) error
}

// NewAlert returns the local alert writing its banner to stdout.
func NewAlert(enabled bool) *Alert {
	return &Alert{
		enabled: enabled,
		out:     os.Stdout,
		goos:    runtime.GOOS,
		run: func(ctx context.Context, name string, args ...string) error {
			// #nosec G204 -- fixed binary and argument.
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Name implements Channel.
func (a *Alert) Name() string { return "alert" }

// Configured implements Channel.
func (a *Alert) Configured() bool { return a.enabled }

// Send prints a highlighted banner and plays a sound.
func (a *Alert) Send(ctx context.Context, event monitor.Event) error {
	if !a.enabled {
		return ErrNotConfigured
	}
	banner := color.New(color.FgHiGreen, color.Bold)
	if _, err := banner.Fprintf(a.out, "✅ %s available! Price: %s\n", event.Product.Name, event.Price); err != nil {
		return fmt.Errorf("write alert banner: %w", err)
	}
	if a.goos == "darwin" {
		if err := a.run(ctx, "afplay", macSound); err != nil {
			return fmt.Errorf("play alert sound: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(a.out, "\a"); err != nil {
		return fmt.Errorf("write bell: %w", err)
	}
	return nil
}

// AlertSubscription subscribes the local alert to availability events only.
func AlertSubscription(a *Alert) Subscription {
	return Subscription{Channel: a, Events: []monitor.EventKind{monitor.EventAvailable}}
}
