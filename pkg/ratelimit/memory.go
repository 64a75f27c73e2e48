package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryStoreSize bounds how many distinct keys the in-memory store
// tracks before the least recently used window is evicted.
const DefaultMemoryStoreSize = 16384

type windowCounter struct {
	start time.Time
	count int64
}

// MemoryStore is an in-process Store backed by an LRU cache, so idle keys
// fall out on their own once the key space outgrows the cache. A single
// mutex serializes the check-and-increment, which keeps the count exact
// under concurrent callers.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *windowCounter]
	now   func() time.Time
}

// NewMemoryStore creates a store tracking at most size keys. A non-positive
// size falls back to DefaultMemoryStoreSize.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryStoreSize
	}

	cache, err := lru.New[string, *windowCounter](size)
	if err != nil {
		return nil, err
	}

	return &MemoryStore{
		cache: cache,
		now:   time.Now,
	}, nil
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	counter, ok := s.cache.Get(key)
	if !ok || now.Sub(counter.start) >= window {
		counter = &windowCounter{start: now, count: 1}
		s.cache.Add(key, counter)

		return 1, window, nil
	}

	counter.count++

	return counter.count, window - now.Sub(counter.start), nil
}
