// Package ratelimit provides per-client request limiting for the HTTP API
// using token buckets.
package ratelimit

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// bucket is one client's token bucket. Tokens refill continuously at
// refillRate per second up to capacity.
type bucket struct {
	capacity   int
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

func (b *bucket) allow(now time.Time) bool {
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(float64(b.capacity), b.tokens+elapsed*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	// Limit is requests allowed per Window for one client.
	Limit  int
	Window time.Duration
}

// LoadConfig reads the limiter configuration from the environment:
// RATE_LIMIT_ENABLED, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW_SECONDS.
func LoadConfig() *Config {
	cfg := &Config{Enabled: true, Limit: 60, Window: time.Minute}

	if v := os.Getenv("RATE_LIMIT_ENABLED"); v == "0" || v == "false" {
		cfg.Enabled = false
	}
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Limit = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Window = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// Limiter tracks a token bucket per client ID.
type Limiter struct {
	mu      sync.Mutex
	config  *Config
	buckets map[string]*bucket
}

// NewLimiter creates a limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{Enabled: true, Limit: 60, Window: time.Minute}
	}
	return &Limiter{config: config, buckets: make(map[string]*bucket)}
}

// Allow reports whether the client may make another request now.
func (l *Limiter) Allow(clientID string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientID]
	if !ok {
		b = &bucket{
			capacity:   l.config.Limit,
			refillRate: float64(l.config.Limit) / l.config.Window.Seconds(),
			tokens:     float64(l.config.Limit),
			lastRefill: time.Now(),
		}
		l.buckets[clientID] = b
	}
	return b.allow(time.Now())
}
