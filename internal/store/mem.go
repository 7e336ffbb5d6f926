// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"time"

	"go.astrophena.name/logospin/internal/util/syncx"
)

// MemStore is an in-memory implementation of the [Store] interface.
type MemStore struct {
	ttl   time.Duration
	cache *syncx.Protected[map[string]memEntry]
}

type memEntry struct {
	value        []byte
	lastAccessed time.Time
}

// NewMemStore creates a new MemStore with the given TTL. The cleanup goroutine
// exits when ctx is canceled.
func NewMemStore(ctx context.Context, ttl time.Duration) *MemStore {
	s := &MemStore{
		ttl:   ttl,
		cache: syncx.Protect(make(map[string]memEntry)),
	}
	go s.cleanup(ctx)
	return s
}

func (s *MemStore) cleanup(ctx context.Context) {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cache.Access(func(cache map[string]memEntry) {
				for key, entry := range cache {
					if time.Since(entry.lastAccessed) > s.ttl {
						delete(cache, key)
					}
				}
			})
		case <-ctx.Done():
			return
		}
	}
}

// Get retrieves a value for a given key.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	s.cache.Access(func(cache map[string]memEntry) {
		entry, ok := cache[key]
		if !ok {
			return
		}
		if time.Since(entry.lastAccessed) > s.ttl {
			delete(cache, key)
			return
		}
		entry.lastAccessed = time.Now()
		cache[key] = entry
		// Return a copy to prevent the caller from mutating the cache.
		val = append([]byte(nil), entry.value...)
	})
	return val, nil
}

// Set stores a value for a given key.
func (s *MemStore) Set(_ context.Context, key string, value []byte) error {
	// Store a copy to prevent the caller from mutating the cache.
	valueCopy := append([]byte(nil), value...)
	s.cache.Access(func(cache map[string]memEntry) {
		cache[key] = memEntry{
			value:        valueCopy,
			lastAccessed: time.Now(),
		}
	})
	return nil
}

// Delete removes a key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.cache.Access(func(cache map[string]memEntry) {
		delete(cache, key)
	})
	return nil
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error { return nil }
