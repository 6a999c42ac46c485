package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memory keeps counters in process. Expired windows are swept by the cache
// janitor.
type Memory struct {
	mu       sync.Mutex
	counters *cache.Cache
	limit    int
	window   time.Duration
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		counters: cache.New(window, 2*window),
		limit:    limit,
		window:   window,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.counters.Add(key, int64(1), m.window); err == nil {
		return result(1, m.limit, time.Now().Add(m.window)), nil
	}

	count, err := m.counters.IncrementInt64(key, 1)
	if err != nil {
		// expired between Add and Increment
		m.counters.Set(key, int64(1), m.window)
		return result(1, m.limit, time.Now().Add(m.window)), nil
	}

	_, resetAt, _ := m.counters.GetWithExpiration(key)

	return result(count, m.limit, resetAt), nil
}
