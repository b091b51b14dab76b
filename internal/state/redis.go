package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// DefaultRedisKey holds the snapshot when no key is configured.
const DefaultRedisKey = "stockwatch:state"

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps the whole snapshot as one JSON value under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("state.redis.addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.Key, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, key: key, logger: logger.Named("state")}
}

// Load fetches the snapshot. A missing key is an empty snapshot; a malformed
// value is logged and treated as empty.
func (s *RedisStore) Load(ctx context.Context) (*monitor.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return monitor.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	snapshot, err := decode(data)
	if err != nil {
		s.logger.Warn("redis state is malformed, starting empty", zap.String("key", s.key), zap.Error(err))
	}
	return snapshot, nil
}

// Save writes the snapshot without expiry.
func (s *RedisStore) Save(ctx context.Context, snapshot *monitor.Snapshot) error {
	data, err := encode(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
