// Package memory is an in-process blob.Store used by tests and the
// "memory" backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/raakeshmj/coreenginedb/internal/blob"
)

type object struct {
	data        []byte
	contentType string
}

type MemoryStore struct {
	objects map[string]object
	mu      sync.RWMutex
}

func New() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]object),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(o.data))
	copy(out, o.data)
	return out, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := blob.ValidateKey(key); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: buf, contentType: contentType}
	return nil
}

// List returns matching keys in lexical order.
func (s *MemoryStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// ContentType returns the content type recorded for key.
func (s *MemoryStore) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].contentType
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Interface check
var _ blob.Store = (*MemoryStore)(nil)
var _ blob.Pinger = (*MemoryStore)(nil)
