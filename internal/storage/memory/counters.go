package memory

import (
	"context"
	"sync"
	"time"
)

// InMemoryCounterStore mirrors the Redis counter semantics for tests and
// single-node development: expiring counters, flag keys, distinct-member sets
// and sliding timestamp windows.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counterEntry
	flags    map[string]*flagEntry
	sets     map[string]*setEntry
	windows  map[string][]time.Time
}

type counterEntry struct {
	value     int64
	expiresAt time.Time
}

type flagEntry struct {
	value     string
	expiresAt time.Time
}

type setEntry struct {
	members   map[string]struct{}
	expiresAt time.Time
}

func NewCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		counters: make(map[string]*counterEntry),
		flags:    make(map[string]*flagEntry),
		sets:     make(map[string]*setEntry),
		windows:  make(map[string][]time.Time),
	}
}

func (s *InMemoryCounterStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.counters[key]
	if !ok || entry.expiresAt.Before(now) {
		s.counters[key] = &counterEntry{value: 1, expiresAt: now.Add(ttl)}
		return 1, nil
	}

	entry.value++
	return entry.value, nil
}

func (s *InMemoryCounterStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.counters, key)
		delete(s.flags, key)
		delete(s.sets, key)
		delete(s.windows, key)
	}
	return nil
}

func (s *InMemoryCounterStore) SetFlag(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags[key] = &flagEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *InMemoryCounterStore) GetFlag(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.flags[key]
	if !ok || entry.expiresAt.Before(time.Now()) {
		delete(s.flags, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *InMemoryCounterStore) FlagTTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.flags[key]
	if !ok {
		return 0, nil
	}

	remaining := time.Until(entry.expiresAt)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (s *InMemoryCounterStore) AddToSet(_ context.Context, key, member string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.sets[key]
	if !ok || entry.expiresAt.Before(now) {
		entry = &setEntry{members: make(map[string]struct{}), expiresAt: now.Add(ttl)}
		s.sets[key] = entry
	}

	entry.members[member] = struct{}{}
	return int64(len(entry.members)), nil
}

func (s *InMemoryCounterStore) RecordTimestamp(_ context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := now.Add(-window)
	kept := make([]time.Time, 0, len(s.windows[key])+1)
	for _, ts := range s.windows[key] {
		if ts.After(threshold) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	s.windows[key] = kept

	return int64(len(kept)), nil
}
