package rules

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/zap"
)

// RedisStore keeps the rule list as one JSON value plus a version counter
type RedisStore struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(config *Config, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, errors.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.MaxConns > 0 {
		opts.PoolSize = config.MaxConns
	}
	opts.MinIdleConns = config.MinIdleConns
	if config.DialTimeout > 0 {
		opts.DialTimeout = config.DialTimeout
	}

	store := &RedisStore{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.client.Ping(ctx).Err(); err != nil {
		store.client.Close()
		return nil, errors.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Rule store initialized",
		zap.String("backend", "redis"),
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.String("key", store.rulesKey()))

	return store, nil
}

// Load reads the current rule set. A missing key is an empty set.
func (s *RedisStore) Load(ctx context.Context) (*Set, error) {
	values, err := s.client.MGet(ctx, s.rulesKey(), s.versionKey()).Result()
	if err != nil {
		return nil, errors.Errorf("failed to load rules: %w", err)
	}

	set := Empty()
	if raw, ok := values[0].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &set.Rules); err != nil {
			return nil, errors.Errorf("failed to decode stored rules: %w", err)
		}
	}
	if raw, ok := values[1].(string); ok && raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Errorf("failed to decode rules version: %w", err)
		}
		set.Version = version
	}

	s.logger.Debug("Rules loaded",
		zap.Int("count", len(set.Rules)),
		zap.Int64("version", set.Version))

	return set, nil
}

// Save writes the set and its version in one MULTI/EXEC transaction
func (s *RedisStore) Save(ctx context.Context, set *Set) error {
	data, err := json.Marshal(set.Rules)
	if err != nil {
		return errors.Errorf("failed to marshal rules: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.rulesKey(), data, 0)
		pipe.Set(ctx, s.versionKey(), set.Version, 0)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to save rules", zap.Error(err))
		return errors.Errorf("failed to save rules: %w", err)
	}

	s.logger.Debug("Rules saved",
		zap.Int("count", len(set.Rules)),
		zap.Int64("version", set.Version))

	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *RedisStore) rulesKey() string {
	return s.config.KeyPrefix + ":rules"
}

func (s *RedisStore) versionKey() string {
	return s.config.KeyPrefix + ":rules:version"
}

// maskRedisURL masks the password in a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme < 0 || scheme+3 > at {
		return url
	}
	userinfo := url[scheme+3 : at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return url
	}
	return url[:scheme+3] + userinfo[:colon+1] + "***" + url[at:]
}
