package fetcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

type countingStrategy struct {
	mu       sync.Mutex
	name     string
	attempts int
	fails    int
	obs      monitor.Observation
}

func (s *countingStrategy) Name() string { return s.name }

func (s *countingStrategy) Observe(_ context.Context, _ string, _ monitor.StoreRules) (monitor.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.fails {
		return monitor.Observation{}, errors.New("transient error")
	}
	return s.obs, nil
}

type countingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *countingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

var testProduct = monitor.Product{Name: "Console", URL: "https://shop.example/console", Store: "shop"}

func TestFetchSucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	want := monitor.Observation{Available: true, PriceText: "2 199 zł"}
	static := &countingStrategy{name: "static", fails: 2, obs: want}
	sleeper := &countingSleeper{}

	f, err := New(Config{MaxAttempts: 3, RetryDelay: 5 * time.Second}, static, nil, zap.NewNop(), WithSleeper(sleeper.Sleep))
	require.NoError(t, err)

	got := f.Fetch(context.Background(), testProduct, monitor.StoreRules{})
	assert.Equal(t, want, got)
	assert.Equal(t, 3, static.attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeper.delays)
}

func TestFetchExhaustedDegradesToUnavailable(t *testing.T) {
	t.Parallel()

	static := &countingStrategy{name: "static", fails: 10}
	sleeper := &countingSleeper{}

	f, err := New(Config{MaxAttempts: 4, RetryDelay: time.Second}, static, nil, nil, WithSleeper(sleeper.Sleep))
	require.NoError(t, err)

	got := f.Fetch(context.Background(), testProduct, monitor.StoreRules{})
	assert.Equal(t, monitor.Observation{Available: false, PriceText: monitor.NoPrice}, got)
	assert.Equal(t, 4, static.attempts)
	assert.Len(t, sleeper.delays, 3, "max attempts - 1 delays")
}

func TestFetchDefaultsMaxAttempts(t *testing.T) {
	t.Parallel()

	static := &countingStrategy{name: "static", fails: 10}
	sleeper := &countingSleeper{}
	f, err := New(Config{}, static, nil, nil, WithSleeper(sleeper.Sleep))
	require.NoError(t, err)

	_ = f.Fetch(context.Background(), testProduct, monitor.StoreRules{})
	assert.Equal(t, DefaultMaxAttempts, static.attempts)
	assert.Len(t, sleeper.delays, DefaultMaxAttempts-1)
}

func TestFetchSelectsStrategyByRules(t *testing.T) {
	t.Parallel()

	static := &countingStrategy{name: "static", obs: monitor.Observation{PriceText: "static"}}
	rendered := &countingStrategy{name: "rendered", obs: monitor.Observation{PriceText: "rendered"}}
	f, err := New(Config{MaxAttempts: 1}, static, rendered, nil)
	require.NoError(t, err)

	assert.Equal(t, "rendered", f.Fetch(context.Background(), testProduct, monitor.StoreRules{Rendered: true}).PriceText)
	assert.Equal(t, "static", f.Fetch(context.Background(), testProduct, monitor.StoreRules{}).PriceText)
}

func TestFetchFallsBackToStaticWithoutRenderer(t *testing.T) {
	t.Parallel()

	static := &countingStrategy{name: "static", obs: monitor.Observation{PriceText: "static"}}
	f, err := New(Config{MaxAttempts: 1}, static, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "static", f.Fetch(context.Background(), testProduct, monitor.StoreRules{Rendered: true}).PriceText)
}

func TestFetchCanceledDuringWait(t *testing.T) {
	t.Parallel()

	static := &countingStrategy{name: "static", fails: 10}
	f, err := New(Config{MaxAttempts: 3, RetryDelay: time.Hour}, static, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := f.Fetch(ctx, testProduct, monitor.StoreRules{})
	assert.Equal(t, monitor.Unavailable(), got)
	assert.Equal(t, 1, static.attempts)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil, nil, nil)
	require.Error(t, err)

	_, err = New(Config{RetryDelay: -time.Second}, &countingStrategy{}, nil, nil)
	require.Error(t, err)
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepContext(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreLimiterIsolatesStores(t *testing.T) {
	t.Parallel()

	l := NewStoreLimiter(1, 1)
	require.NoError(t, l.Wait(context.Background(), "xkom"))
	require.NoError(t, l.Wait(context.Background(), "morele"), "other stores keep their own bucket")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "xkom"), "second token for the same store should not arrive in time")
}

func TestStoreLimiterDisabled(t *testing.T) {
	t.Parallel()

	var nilLimiter *StoreLimiter
	require.NoError(t, nilLimiter.Wait(context.Background(), "xkom"))

	l := NewStoreLimiter(0, 0)
	for range 5 {
		require.NoError(t, l.Wait(context.Background(), "xkom"))
	}
}
