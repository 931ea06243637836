// Package cache memoizes computed overlays in Redis, keyed by a hash of the
// request. It is a cache, not a store of record: every failure degrades to a
// miss and the caller recomputes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"indicator-overlay/internal/indicator"
)

// KeyPrefix namespaces overlay entries in Redis.
const KeyPrefix = "ind:overlay:"

// ErrCacheMiss is returned by Get when no entry exists for a key.
var ErrCacheMiss = errors.New("cache: miss")

// Cache stores overlays by request key.
type Cache interface {
	Get(ctx context.Context, key string) (*indicator.Overlay, error)
	Set(ctx context.Context, key string, o *indicator.Overlay) error
	Close() error
}

// Key derives a deterministic cache key from the inputs of ComputeOverlay.
func Key(closes []float64, p indicator.Params, window int) string {
	h := sha256.New()
	var buf [8]byte
	for _, c := range closes {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c))
		h.Write(buf[:])
	}
	fmt.Fprintf(h, "|%s|%d", p.String(), window)
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Options configures the Redis cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration

	MaxFailures  int           // consecutive failures before the breaker opens (default 5)
	ResetTimeout time.Duration // open duration before a probe (default 10s)

	OnStateChange func(from, to State)
}

// RedisCache stores JSON-encoded overlays with a TTL. Every Redis call goes
// through a circuit breaker so an unavailable server costs one fast error per
// request instead of a dial timeout.
type RedisCache struct {
	client  *goredis.Client
	ttl     time.Duration
	breaker *CircuitBreaker
}

// NewRedisCache creates the cache and pings the server.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	maxFailures := opts.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	reset := opts.ResetTimeout
	if reset <= 0 {
		reset = 10 * time.Second
	}
	breaker := NewCircuitBreaker(maxFailures, reset)
	breaker.OnStateChange = func(from, to State) {
		slog.Warn("redis circuit breaker state change", "from", from.String(), "to", to.String())
		if opts.OnStateChange != nil {
			opts.OnStateChange(from, to)
		}
	}

	slog.Info("overlay cache connected", "addr", opts.Addr, "db", opts.DB, "ttl", opts.TTL.String())
	return &RedisCache{client: client, ttl: opts.TTL, breaker: breaker}, nil
}

// Get loads the overlay stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (*indicator.Overlay, error) {
	var (
		data []byte
		miss bool
	)
	err := c.breaker.Execute(func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			miss = true
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if miss {
		return nil, ErrCacheMiss
	}

	var o indicator.Overlay
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return &o, nil
}

// Set stores o under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, o *indicator.Overlay) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Client exposes the Redis client for liveness checks.
func (c *RedisCache) Client() goredis.UniversalClient { return c.client }

// BreakerState reports the circuit breaker state.
func (c *RedisCache) BreakerState() State { return c.breaker.CurrentState() }

// Close closes the Redis connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }

// Noop is a Cache that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*indicator.Overlay, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, string, *indicator.Overlay) error { return nil }
func (Noop) Close() error { return nil }
