package ristretto

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	st "github.com/unkn0wn-root/regioncache/store"
)

// Store adapts a Ristretto cache to the store.Store contract for
// single-process deployments (tests, dev, one-replica services).
//
// Ristretto has no atomic read-modify-write, so SetNX and IncrBy are
// serialized by a mutex; that is enough for in-process atomicity but does not
// coordinate across processes. Writes call Wait() so they are visible to the
// next Get, trading a little latency for the read-your-writes behavior the
// generation protocol requires.
type Store struct {
	c *rc.Cache

	mu sync.Mutex // serializes SetNX/IncrBy read-modify-write
}

var _ st.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.set(key, value, ttl)
	return nil
}

func (s *Store) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.c.Get(key); ok {
		return false, nil
	}
	s.set(key, value, ttl)
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Store) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur int64
	ttl := time.Duration(0)
	if v, ok := s.c.Get(key); ok {
		b, _ := v.([]byte)
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ristretto: counter at %q is not an integer: %w", key, err)
		}
		cur = n
		if rem, ok := s.c.GetTTL(key); ok {
			ttl = rem // keep the remaining expiry across the rewrite
		}
	}
	cur += delta
	s.set(key, strconv.AppendInt(nil, cur, 10), ttl)
	return cur, nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	d, ok := s.c.GetTTL(key)
	if !ok || d <= 0 {
		return 0, false, nil
	}
	return d, true, nil
}

func (s *Store) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of store.Store).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }

func (s *Store) set(key string, value []byte, ttl time.Duration) {
	if ttl > 0 {
		s.c.SetWithTTL(key, value, 1, ttl)
	} else {
		s.c.Set(key, value, 1)
	}
	s.c.Wait()
}
