// Package headless implements the rendered page strategy with headless Chrome.
package headless

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/stockwatch/internal/fetcher"
	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Default timeouts.
const (
	DefaultPageLoadTimeout = 5 * time.Second
	DefaultSettleTimeout   = 10 * time.Second
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel     int
	UserAgent       string
	PageLoadTimeout time.Duration
	SettleTimeout   time.Duration
	ExecPath        string
	NoSandbox       bool
}

// Fetcher implements fetcher.Strategy using chromedp. Every attempt runs in
// its own browser process which is torn down before Observe returns.
type Fetcher struct {
	cfg       Config
	resolver  fetcher.Resolver
	limiter   chan struct{}
	allocOpts []chromedp.ExecAllocatorOption
}

// NewChromedp creates a headless fetcher backed by chromedp.
func NewChromedp(cfg Config, resolver fetcher.Resolver) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = DefaultPageLoadTimeout
	}
	if cfg.SettleTimeout < 0 {
		return nil, fmt.Errorf("settle timeout must be >= 0")
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	return &Fetcher{
		cfg:       cfg,
		resolver:  resolver,
		limiter:   limiter,
		allocOpts: opts,
	}, nil
}

// Name identifies the strategy in logs and metrics.
func (f *Fetcher) Name() string {
	return "rendered"
}

// Observe renders url in an isolated browser session and evaluates rules
// against the rendered DOM. The availability signal must also be visible.
func (f *Fetcher) Observe(ctx context.Context, url string, rules monitor.StoreRules) (monitor.Observation, error) {
	if err := f.acquire(ctx); err != nil {
		return monitor.Observation{}, err
	}
	defer f.release()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, f.allocOpts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx); err != nil {
		return monitor.Observation{}, fmt.Errorf("start browser: %w", err)
	}

	idle := newIdleWatcher()
	chromedp.ListenTarget(browserCtx, idle.captureEvent)

	html, visible, err := f.render(browserCtx, url, rules, idle)
	if err != nil {
		return monitor.Observation{}, err
	}

	doc, err := fetcher.ParseDocument([]byte(html))
	if err != nil {
		return monitor.Observation{}, err
	}
	signals := fetcher.Signals{
		Price:          visibleAs(doc.Query(rules.Price), true),
		Availability:   visibleAs(doc.Query(rules.Availability), visible),
		Unavailability: visibleAs(doc.Query(rules.Unavailability), true),
	}
	return f.resolver.Resolve(signals, true), nil
}

func (f *Fetcher) render(
	browserCtx context.Context,
	url string,
	rules monitor.StoreRules,
	idle *idleWatcher,
) (string, bool, error) {
	loadCtx, cancelLoad := context.WithTimeout(browserCtx, f.cfg.PageLoadTimeout)
	defer cancelLoad()
	if err := chromedp.Run(loadCtx,
		f.setupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", false, fmt.Errorf("navigate: %w", err)
	}

	idle.wait(browserCtx, f.cfg.SettleTimeout)

	var (
		html    string
		visible bool
	)
	extractCtx, cancelExtract := context.WithTimeout(browserCtx, f.cfg.PageLoadTimeout)
	defer cancelExtract()
	actions := []chromedp.Action{chromedp.OuterHTML("html", &html, chromedp.ByQuery)}
	if strings.TrimSpace(rules.Availability) != "" {
		actions = append(actions, chromedp.Evaluate(visibilityScript(rules.Availability), &visible))
	}
	if err := chromedp.Run(extractCtx, actions...); err != nil {
		return "", false, fmt.Errorf("extract rendered page: %w", err)
	}
	return html, visible, nil
}

func (f *Fetcher) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enable lifecycle events: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

// idleWatcher closes done on the first networkIdle lifecycle event.
type idleWatcher struct {
	once sync.Once
	done chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{done: make(chan struct{})}
}

func (w *idleWatcher) captureEvent(ev any) {
	if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
		w.once.Do(func() { close(w.done) })
	}
}

// wait blocks until the network settles, the timeout passes, or ctx ends.
// Reaching the timeout is not an error: the page is extracted as rendered so far.
func (w *idleWatcher) wait(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func visibleAs(s fetcher.Signal, visible bool) fetcher.Signal {
	s.Visible = s.Present && visible
	return s
}

// visibilityScript builds an expression reporting whether the element
// matched by selector is rendered with a non-empty box.
func visibilityScript(selector string) string {
	selector = strings.TrimSpace(selector)
	finder := "document.querySelector(%s)"
	if fetcher.IsXPath(selector) {
		selector = strings.TrimPrefix(selector, "xpath=")
		finder = "document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue"
	}
	quoted, _ := json.Marshal(selector)
	return `(() => {
  let el = null;
  try { el = ` + fmt.Sprintf(finder, quoted) + `; } catch (e) { return false; }
  if (!el || !(el instanceof Element)) { return false; }
  const style = window.getComputedStyle(el);
  if (style.display === 'none' || style.visibility === 'hidden') { return false; }
  const rect = el.getBoundingClientRect();
  return rect.width > 0 && rect.height > 0;
})()`
}
