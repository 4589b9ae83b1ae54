package cache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	defaultMaxEntries    = 2000
	defaultSweepInterval = 10 * time.Minute
)

type memoryEntry struct {
	value     []byte
	updatedAt time.Time
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded map with lazy expiry on read, a periodic
// sweep, and an oldest-first trim once it grows past maxEntries.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
	now        func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(options ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &memoryEntry{
		value:     append([]byte(nil), value...),
		updatedAt: now,
		expiresAt: now.Add(ttl),
	}
	s.trimLocked(now)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				logger.Debug("cache sweep", slog.Int("removed", removed), slog.Int("remaining", s.Len()))
			}
		}
	}
}

func (s *MemoryStore) trimLocked(now time.Time) {
	if len(s.entries) <= s.maxEntries {
		return
	}
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
	if len(s.entries) <= s.maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *memoryEntry
	}
	items := make([]pair, 0, len(s.entries))
	for key, entry := range s.entries {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-s.maxEntries; i++ {
		delete(s.entries, items[i].key)
	}
}
