package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"provisiond/internal/domain"
)

// memoryLimiter keeps a sliding-window log of admitted requests per key.
// Counters are local to the process.
type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*windowLog
	maxKeys int
}

// windowLog is the admission log of one key with the window it was
// admitted under.
type windowLog struct {
	window time.Duration
	times  []time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		data:    make(map[string]*windowLog),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()
	cutoff := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		if len(m.data) >= m.maxKeys {
			m.gc(now)
		}
		if len(m.data) >= m.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
		entry = &windowLog{}
		m.data[key] = entry
	}
	entry.window = window
	entry.times = prune(entry.times, cutoff)

	if len(entry.times) >= limit {
		return domain.RateLimitDecision{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   entry.times[0].Add(window),
		}, nil
	}

	entry.times = append(entry.times, now)
	return domain.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(entry.times),
		ResetAt:   entry.times[0].Add(window),
	}, nil
}

// prune drops timestamps at or before cutoff. The log is ordered.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	return log[i:]
}

// gc drops keys whose log is empty under their own window.
func (m *memoryLimiter) gc(now time.Time) {
	for key, entry := range m.data {
		if len(prune(entry.times, now.Add(-entry.window))) == 0 {
			delete(m.data, key)
		}
	}
}
