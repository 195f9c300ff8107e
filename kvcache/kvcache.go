// Package kvcache provides a TTL key-value cache used for transient pipeline
// state, primarily rate-limit windows.
//
// Two implementations share the Cache contract: an in-process map for
// single-binary deployments and an SQLite-backed cache when the state must
// survive restarts or be shared between processes on one host.
//
// Usage:
//
//	cache := kvcache.NewMemory()
//	cache.Put(ctx, "ratelimit:example.gov", payload, 2*time.Second)
package kvcache

import (
	"context"
	"sync"
	"time"
)

// Cache is a byte-value cache with per-entry TTL.
type Cache interface {
	// Get returns the value for key, or ok=false if absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key for ttl. A non-positive ttl stores without expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// Memory is an in-process Cache. Expired entries are dropped lazily on Get
// and swept by StartGC.
type Memory struct {
	entries sync.Map
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(memoryEntry)
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.entries.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries.Store(key, e)
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}

// StartGC sweeps expired entries every interval until done is closed.
func (m *Memory) StartGC(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	tick := time.NewTicker(interval)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				m.gc()
			}
		}
	}()
}

func (m *Memory) gc() {
	now := time.Now()
	m.entries.Range(func(key, value any) bool {
		e := value.(memoryEntry)
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			m.entries.Delete(key)
		}
		return true
	})
}
