package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	pkgredis "github.com/Adithya-Monish-Kumar-K/invindex/pkg/redis"
)

// LocalStore is an in-process Store for when Redis is disabled or
// unreachable. Entries expire after the ttl given to NewLocalStore; the ttl
// passed to Set is ignored.
type LocalStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewLocalStore(size int, ttl time.Duration) *LocalStore {
	return &LocalStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := s.lru.Get(key); ok {
		return v, nil
	}
	return nil, pkgredis.Nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

// FlushByPattern supports only trailing-star patterns, which is all the
// cache issues.
func (s *LocalStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for _, key := range s.lru.Keys() {
		if strings.HasPrefix(key, prefix) && s.lru.Remove(key) {
			n++
		}
	}
	return n, nil
}

// Purge drops every entry.
func (s *LocalStore) Purge() {
	s.lru.Purge()
}
