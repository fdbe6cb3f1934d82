package service

import (
	"context"
	"sync"
	"time"
)

const defaultNegativeLookupMaxEntries = 100_000

// NegativeLookupCacheStore remembers token fingerprints that recently missed
// in storage. It never holds positive results.
type NegativeLookupCacheStore interface {
	Get(ctx context.Context, namespace, key string) (bool, error)
	Set(ctx context.Context, namespace, key string, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopNegativeLookupCacheStore struct{}

func NewNoopNegativeLookupCacheStore() *NoopNegativeLookupCacheStore {
	return &NoopNegativeLookupCacheStore{}
}

func (s *NoopNegativeLookupCacheStore) Get(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *NoopNegativeLookupCacheStore) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (s *NoopNegativeLookupCacheStore) InvalidateNamespace(context.Context, string) error {
	return nil
}

// InMemoryNegativeLookupCacheStore is a bounded per-process store. Keys are
// hashed before they are held. Once full, expired entries are swept and new
// entries are dropped until space frees up.
type InMemoryNegativeLookupCacheStore struct {
	mu         sync.Mutex
	maxEntries int
	size       int
	store      map[string]map[string]time.Time
	now        func() time.Time
}

func NewInMemoryNegativeLookupCacheStore(maxEntries int) *InMemoryNegativeLookupCacheStore {
	if maxEntries <= 0 {
		maxEntries = defaultNegativeLookupMaxEntries
	}
	return &InMemoryNegativeLookupCacheStore{
		maxEntries: maxEntries,
		store:      make(map[string]map[string]time.Time),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryNegativeLookupCacheStore) Get(_ context.Context, namespace, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.store[namespace]
	if !ok {
		return false, nil
	}
	k := hashToken(key)
	expiresAt, ok := ns[k]
	if !ok {
		return false, nil
	}
	if s.now().After(expiresAt) {
		s.deleteLocked(namespace, k)
		return false, nil
	}
	return true, nil
}

func (s *InMemoryNegativeLookupCacheStore) Set(_ context.Context, namespace, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size >= s.maxEntries {
		s.sweepLocked()
		if s.size >= s.maxEntries {
			return nil
		}
	}
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]time.Time)
		s.store[namespace] = ns
	}
	k := hashToken(key)
	if _, exists := ns[k]; !exists {
		s.size++
	}
	ns[k] = s.now().Add(ttl)
	return nil
}

func (s *InMemoryNegativeLookupCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size -= len(s.store[namespace])
	delete(s.store, namespace)
	return nil
}

// Count reports the unexpired entries held for namespace.
func (s *InMemoryNegativeLookupCacheStore) Count(_ context.Context, namespace string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for _, expiresAt := range s.store[namespace] {
		if !now.After(expiresAt) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryNegativeLookupCacheStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *InMemoryNegativeLookupCacheStore) sweepLocked() {
	now := s.now()
	for namespace, ns := range s.store {
		for k, expiresAt := range ns {
			if now.After(expiresAt) {
				s.deleteLocked(namespace, k)
			}
		}
	}
}

func (s *InMemoryNegativeLookupCacheStore) deleteLocked(namespace, k string) {
	ns, ok := s.store[namespace]
	if !ok {
		return
	}
	if _, ok := ns[k]; ok {
		delete(ns, k)
		s.size--
	}
	if len(ns) == 0 {
		delete(s.store, namespace)
	}
}
