package repository

import (
	"context"
	"errors"
	"time"

	session "github.com/adaptivelearn/go-session"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "portal:session:"

// RedisStore implements session.CredentialStore on Redis, using native key
// expiry for the per key TTL.
type RedisStore struct {
	client  redis.UniversalClient
	profile string
	timeout time.Duration
	logger  session.Logger
}

var _ session.CredentialStore = &RedisStore{}

// RedisStoreOption customizes a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisLogger sets the logger used for read failures.
func WithRedisLogger(logger session.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewRedisStore(client redis.UniversalClient, profile string, opts ...RedisStoreOption) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	s := &RedisStore{
		client:  client,
		profile: profile,
		timeout: 3 * time.Second,
		logger:  session.NopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Key returns the Redis key holding key for this store's profile.
func (s *RedisStore) Key(key string) string {
	return redisKeyPrefix + s.profile + ":" + key
}

func (s *RedisStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.Key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("credential read failed key=%s: %s", s.Key(key), err)
		}
		return "", false
	}
	return val, true
}

// Set stores value with ttl. A ttl <= 0 never expires.
func (s *RedisStore) Set(key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.Key(key), value, ttl).Err()
}

func (s *RedisStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Del(ctx, s.Key(key)).Err()
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
