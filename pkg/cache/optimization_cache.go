package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("optimization result not found in cache")

const keyPrefix = "optimization:"

// OptimizationCacheService caches optimization responses in redis. Identical
// requests produce identical keys, so a repeated solve is served from cache.
//
// Redis calls go through a circuit breaker. While it is open, reads and
// writes fail fast with ErrCircuitOpen instead of waiting on a dead server.
type OptimizationCacheService struct {
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
	ttl     time.Duration
}

// ErrCircuitOpen is returned while the redis circuit breaker is open.
var ErrCircuitOpen = gobreaker.ErrOpenState

// NewOptimizationCacheService creates a new optimization cache service
func NewOptimizationCacheService(client redis.UniversalClient, logger *logrus.Logger, ttl time.Duration) *OptimizationCacheService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OptimizationCacheService{
		client:  client,
		breaker: newBreaker("redis-optimization-cache", logger),
		logger:  logger,
		ttl:     ttl,
	}
}

func newBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// A miss is a healthy answer from redis.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	})
}

// BreakerState reports the circuit breaker state (closed, half-open, open).
func (c *OptimizationCacheService) BreakerState() string {
	return c.breaker.State().String()
}

// RequestKey hashes the JSON encoding of parts into a cache key. encoding/json
// sorts map keys, so equal values always hash the same.
func RequestKey(parts ...interface{}) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("failed to encode cache key part: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SetOptimizationResult stores result under key.
func (c *OptimizationCacheService) SetOptimizationResult(ctx context.Context, key string, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal optimization result: %w", err)
	}

	fullKey := keyPrefix + key
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, fullKey, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set optimization result in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": c.ttl,
		"bytes":      len(data),
	}).Debug("Cached optimization result")
	return nil
}

// GetOptimizationResult decodes the result stored under key into out. It
// returns ErrCacheMiss when nothing is stored.
func (c *OptimizationCacheService) GetOptimizationResult(ctx context.Context, key string, out interface{}) error {
	fullKey := keyPrefix + key
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, fullKey).Bytes()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get optimization result from cache: %w", err)
	}

	if err := json.Unmarshal(raw.([]byte), out); err != nil {
		return fmt.Errorf("failed to unmarshal optimization result: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("Retrieved optimization result from cache")
	return nil
}

// DeleteOptimizationResult removes an optimization result from cache
func (c *OptimizationCacheService) DeleteOptimizationResult(ctx context.Context, key string) error {
	fullKey := keyPrefix + key
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, fullKey).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to delete optimization result from cache: %w", err)
	}
	c.logger.WithField("cache_key", fullKey).Debug("Deleted optimization result from cache")
	return nil
}

// Ping checks the redis connection.
func (c *OptimizationCacheService) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetStatus returns cache statistics
func (c *OptimizationCacheService) GetStatus(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service":   "optimization-cache",
		"timestamp": time.Now(),
		"ttl":       c.ttl.String(),
		"breaker":   c.BreakerState(),
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		status["connected"] = false
		status["error"] = err.Error()
		return status
	}
	status["connected"] = true

	var cursor uint64
	cached := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			status["scan_error"] = err.Error()
			break
		}
		cached += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	status["cached_results"] = cached
	return status
}
