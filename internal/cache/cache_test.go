package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ---------------------------------------------------------------------------
// Key
// ---------------------------------------------------------------------------

func TestKeyIgnoresOrderingAndCase(t *testing.T) {
	a := Key("discover", url.Values{
		"with_genres": {"35", "28"},
		"year":        {"1994"},
	})
	b := Key("DISCOVER", url.Values{
		"Year":        {" 1994 "},
		"with_genres": {"28", "35"},
		"page":        {""},
	})
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
	if a != "discover|with_genres=28,35|year=1994" {
		t.Fatalf("unexpected key %q", a)
	}
}

func TestKeySeparatesKinds(t *testing.T) {
	params := url.Values{"query": {"titanic"}}
	if Key("search", params) == Key("person", params) {
		t.Fatal("different call kinds must not share a key")
	}
}

// ---------------------------------------------------------------------------
// MemoryStore
// ---------------------------------------------------------------------------

func TestMemoryStoreHitAndExpiry(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clock.Advance(59 * time.Second)
	value, found, err := store.Get(ctx, "k")
	if err != nil || !found || string(value) != "v" {
		t.Fatalf("expected hit, got value=%q found=%v err=%v", value, found, err)
	}

	clock.Advance(time.Second)
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Fatal("expected entry to expire at its TTL")
	}
	if store.Len() != 0 {
		t.Fatalf("expected lazy eviction on read, len=%d", store.Len())
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	original := []byte("abc")
	_ = store.Set(ctx, "k", original, time.Minute)
	original[0] = 'x'

	value, _, _ := store.Get(ctx, "k")
	if string(value) != "abc" {
		t.Fatalf("stored value was aliased: %q", value)
	}
	value[1] = 'y'
	again, _, _ := store.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value was aliased: %q", again)
	}
}

func TestMemoryStoreIgnoresNonPositiveTTL(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(context.Background(), "k", []byte("v"), 0)
	if store.Len() != 0 {
		t.Fatal("zero TTL should not store")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()
	_ = store.Set(ctx, "short", []byte("1"), time.Minute)
	_ = store.Set(ctx, "long", []byte("2"), time.Hour)

	clock.Advance(2 * time.Minute)
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", store.Len())
	}
}

func TestMemoryStoreTrimsOldest(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now), WithMaxEntries(3))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = store.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour)
		clock.Advance(time.Second)
	}
	if store.Len() != 3 {
		t.Fatalf("expected 3 entries after trim, got %d", store.Len())
	}
	for _, key := range []string{"k0", "k1"} {
		if _, found, _ := store.Get(ctx, key); found {
			t.Fatalf("expected %s to be trimmed", key)
		}
	}
	if _, found, _ := store.Get(ctx, "k4"); !found {
		t.Fatal("expected newest entry to survive")
	}
}

func TestMemoryStoreRunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond, nil)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(WithMaxEntries(50))
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*j)%70)
				_ = store.Set(ctx, key, []byte("v"), time.Minute)
				_, _, _ = store.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	if store.Len() > 50 {
		t.Fatalf("expected at most 50 entries, got %d", store.Len())
	}
}

// ---------------------------------------------------------------------------
// Layered
// ---------------------------------------------------------------------------

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestLayeredMirrorsRemoteHit(t *testing.T) {
	remote := NewMemoryStore()
	local := NewMemoryStore()
	layered := NewLayered(remote, local)
	ctx := context.Background()

	_ = remote.Set(ctx, "k", []byte("v"), time.Hour)
	value, found, err := layered.Get(ctx, "k")
	if err != nil || !found || string(value) != "v" {
		t.Fatalf("expected remote hit, got %q %v %v", value, found, err)
	}
	if local.Len() != 1 {
		t.Fatal("expected remote hit to be mirrored locally")
	}
}

func TestLayeredFallsBackToLocalWhenRemoteFails(t *testing.T) {
	local := NewMemoryStore()
	layered := NewLayered(brokenStore{}, local)
	ctx := context.Background()

	if err := layered.Set(ctx, "k", []byte("v"), time.Hour); err == nil {
		t.Fatal("expected remote error to be reported")
	}
	value, found, err := layered.Get(ctx, "k")
	if err != nil || !found || string(value) != "v" {
		t.Fatalf("expected local hit, got %q %v %v", value, found, err)
	}
}
