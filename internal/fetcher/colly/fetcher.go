// Package collyfetcher implements the static page strategy using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/stockwatch/internal/fetcher"
	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// DefaultUserAgent mimics a desktop browser; several shops reject bot agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DefaultTimeout bounds a single GET.
const DefaultTimeout = 10 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Headers   http.Header
}

// Fetcher implements fetcher.Strategy using the Colly collector.
type Fetcher struct {
	cfg           Config
	resolver      fetcher.Resolver
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type page struct {
	status int
	body   []byte
}

// New builds a Fetcher.
func New(cfg Config, resolver fetcher.Resolver) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	// Clones share the base collector's HTTP backend, so the client is set up
	// here once and never touched per request.
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		resolver:      resolver,
		baseCollector: c,
	}
}

// Name identifies the strategy in logs and metrics.
func (f *Fetcher) Name() string {
	return "static"
}

// Observe executes a single HTTP GET and evaluates the store rules against the body.
func (f *Fetcher) Observe(ctx context.Context, url string, rules monitor.StoreRules) (monitor.Observation, error) {
	var (
		result   page
		fetchErr error
	)
	collector := f.buildCollector(ctx, &result, &fetchErr)
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return monitor.Observation{}, err
	}
	if result.status < 200 || result.status > 299 {
		return monitor.Observation{}, fmt.Errorf("%w: %d", fetcher.ErrStatus, result.status)
	}

	doc, err := fetcher.ParseDocument(result.body)
	if err != nil {
		return monitor.Observation{}, err
	}
	return f.resolver.Extract(doc, rules), nil
}

func (f *Fetcher) buildCollector(ctx context.Context, result *page, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.Context = ctx

	f.configureCollectorHooks(collector, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *page, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = page{
			status: r.StatusCode,
			body:   append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("%w: %d: %w", fetcher.ErrStatus, r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	for key, values := range f.cfg.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
