package service

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryNegativeLookupCacheStoreGetSetInvalidate(t *testing.T) {
	store := NewInMemoryNegativeLookupCacheStore(0)
	ctx := context.Background()

	if err := store.Set(ctx, accessMissNamespace, "user-1:abc", time.Minute); err != nil {
		t.Fatalf("set negative cache: %v", err)
	}
	ok, err := store.Get(ctx, accessMissNamespace, "user-1:abc")
	if err != nil {
		t.Fatalf("get negative cache: %v", err)
	}
	if !ok {
		t.Fatal("expected negative cache hit")
	}
	if ok, _ := store.Get(ctx, refreshMissNamespace, "user-1:abc"); ok {
		t.Fatal("namespaces must not share entries")
	}

	if err := store.InvalidateNamespace(ctx, accessMissNamespace); err != nil {
		t.Fatalf("invalidate negative cache namespace: %v", err)
	}
	ok, err = store.Get(ctx, accessMissNamespace, "user-1:abc")
	if err != nil {
		t.Fatalf("get cache after invalidate: %v", err)
	}
	if ok {
		t.Fatal("expected negative cache miss after invalidate")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", store.Len())
	}
}

func TestInMemoryNegativeLookupCacheStoreExpiry(t *testing.T) {
	store := NewInMemoryNegativeLookupCacheStore(0)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, refreshMissNamespace, "fp", 30*time.Second); err != nil {
		t.Fatalf("set negative cache: %v", err)
	}
	now = now.Add(31 * time.Second)
	ok, err := store.Get(ctx, refreshMissNamespace, "fp")
	if err != nil {
		t.Fatalf("get negative cache: %v", err)
	}
	if ok {
		t.Fatal("expected negative cache entry to expire")
	}
	if store.Len() != 0 {
		t.Fatalf("expired entry should be dropped, got %d", store.Len())
	}
}

func TestInMemoryNegativeLookupCacheStoreBounded(t *testing.T) {
	store := NewInMemoryNegativeLookupCacheStore(3)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Set(ctx, accessMissNamespace, fmt.Sprintf("k%d", i), time.Minute); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("expected store capped at 3, got %d", store.Len())
	}
	if ok, _ := store.Get(ctx, accessMissNamespace, "k4"); ok {
		t.Fatal("entries beyond capacity must be dropped")
	}

	now = now.Add(2 * time.Minute)
	if err := store.Set(ctx, accessMissNamespace, "fresh", time.Minute); err != nil {
		t.Fatalf("set after expiry: %v", err)
	}
	if ok, _ := store.Get(ctx, accessMissNamespace, "fresh"); !ok {
		t.Fatal("expected sweep to make room for new entry")
	}
	if store.Len() != 1 {
		t.Fatalf("expected only the fresh entry, got %d", store.Len())
	}
}

func TestNoopNegativeLookupCacheStoreAlwaysMisses(t *testing.T) {
	store := NewNoopNegativeLookupCacheStore()
	ctx := context.Background()
	if err := store.Set(ctx, accessMissNamespace, "404", time.Minute); err != nil {
		t.Fatalf("set noop negative cache: %v", err)
	}
	ok, err := store.Get(ctx, accessMissNamespace, "404")
	if err != nil {
		t.Fatalf("get noop negative cache: %v", err)
	}
	if ok {
		t.Fatal("expected noop negative cache miss")
	}
	if err := store.InvalidateNamespace(ctx, accessMissNamespace); err != nil {
		t.Fatalf("invalidate noop negative cache namespace: %v", err)
	}
}

func FuzzNormalizeTokenStable(f *testing.F) {
	f.Add("auth.access.miss")
	f.Add("  Mixed Case  ")
	f.Add("")
	f.Fuzz(func(t *testing.T, raw string) {
		got := normalizeToken(raw)
		if got == "" {
			t.Fatal("normalized token must not be empty")
		}
		if got != normalizeToken(raw) {
			t.Fatal("normalizeToken must be deterministic")
		}
	})
}

func TestInMemoryNegativeLookupCacheStoreCountSkipsExpired(t *testing.T) {
	store := NewInMemoryNegativeLookupCacheStore(0)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Set(ctx, accessMissNamespace, "short", 10*time.Second)
	_ = store.Set(ctx, accessMissNamespace, "long", time.Minute)
	_ = store.Set(ctx, refreshMissNamespace, "other", time.Minute)

	if n, _ := store.Count(ctx, accessMissNamespace); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	now = now.Add(20 * time.Second)
	if n, _ := store.Count(ctx, accessMissNamespace); n != 1 {
		t.Fatalf("count after expiry = %d, want 1", n)
	}
	if n, _ := store.Count(ctx, "auth.unknown"); n != 0 {
		t.Fatalf("unknown namespace count = %d", n)
	}
}
