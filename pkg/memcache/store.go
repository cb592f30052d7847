// pkg/memcache/store.go
package mem

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store is the key/value cache with TTL shared by research and supersession tracking.
type Store interface {
	// Get returns the stored bytes and whether the key was present and not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps entries in process memory. Expired entries are swept every cleanup interval.
type LocalStore struct {
	c *cache.Cache
}

func NewLocalStore(defaultTTL, cleanup time.Duration) *LocalStore {
	return &LocalStore{c: cache.New(defaultTTL, cleanup)}
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := s.c.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	// copy so callers cannot mutate the cached bytes
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b := make([]byte, len(value))
	copy(b, value)
	if ttl <= 0 {
		ttl = cache.DefaultExpiration
	}
	s.c.Set(key, b, ttl)
	return nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}
