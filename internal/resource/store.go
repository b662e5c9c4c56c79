package resource

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Entry is a cached response body.
type Entry struct {
	Value     []byte    `json:"v"`
	FetchedAt time.Time `json:"t"`
}

// Store holds entries by key. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

type memoryStore struct {
	mu sync.RWMutex
	m  map[string]Entry
}

func NewMemoryStore() Store {
	return &memoryStore{m: map[string]Entry{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	return e, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	s.m[key] = e
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			delete(s.m, k)
		}
	}
	return nil
}
