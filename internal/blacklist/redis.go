package blacklist

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// KeyPrefix namespaces every key, e.g. "tokenkeeper:".
	KeyPrefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore is a Store backed by Redis. Expiry is handled server-side.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, apperrors.New("redis address is required")
	}

	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		DB:           cfg.DB,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the client to prevent resource leak
		_ = client.Close()
		return nil, apperrors.Wrap(err, "failed to connect to redis")
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps a pre-configured client, e.g. one pointed at miniredis.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return r.client.Set(ctx, r.redisKey(key), value, ttl).Err()
}

// Cleanup is a no-op: Redis evicts entries when their TTL elapses.
func (r *RedisStore) Cleanup(context.Context) (int, error) {
	return 0, nil
}

// Ping checks connectivity, used by the readiness probe.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) redisKey(key string) string {
	return r.keyPrefix + key
}
