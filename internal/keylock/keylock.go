// Package keylock serializes work per key, optionally across processes.
package keylock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/transferdesk/internal/logging"
	"github.com/aretw0/transferdesk/pkg/ports"
)

// ErrLockAcquire wraps failures to take the distributed lock.
var ErrLockAcquire = errors.New("failed to acquire lock")

// DefaultTTL bounds how long a distributed lock survives a crashed holder.
const DefaultTTL = 30 * time.Second

// entry holds the mutex and the number of goroutines waiting on or holding it.
type entry struct {
	mu   sync.Mutex
	refs int
}

// Set hands out one lock per key. Unused entries are dropped by reference
// counting, so the map only holds keys currently in use.
type Set struct {
	mu      sync.Mutex
	entries map[string]*entry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Set.
type Option func(*Set)

// WithLocker also takes a distributed lock for each key.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Set) {
		s.locker = locker
	}
}

// WithTTL sets the distributed lock TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Set) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) {
		s.logger = logger
	}
}

// New creates an empty Set.
func New(opts ...Option) *Set {
	s := &Set{
		entries: make(map[string]*entry),
		ttl:     DefaultTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Set) acquire(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.refs++
	return e
}

func (s *Set) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, key)
	}
}

// Len returns the number of keys currently locked or awaited.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Do runs fn while holding the lock for key.
func (s *Set) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	e := s.acquire(key)
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		s.release(key)
	}()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, key, s.ttl)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrLockAcquire, key, err)
		}
		defer func() {
			// Released with a fresh context: ctx may be canceled by now.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				s.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
