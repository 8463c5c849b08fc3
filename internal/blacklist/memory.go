package blacklist

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often MemoryStore drops expired entries.
const DefaultSweepInterval = 5 * time.Minute

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for single-instance deployments and tests.
// Expired entries are hidden on read and removed by a background sweep.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[string]memoryEntry
	now           func() time.Time
	sweepInterval time.Duration

	// stopSweep signals the sweep goroutine to stop
	stopSweep chan struct{}

	// sweepDone is closed when the sweep goroutine has fully stopped
	sweepDone chan struct{}
	closeOnce sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithSweepInterval sets the background sweep interval.
func WithSweepInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a MemoryStore and starts its sweep goroutine.
// Call Close to stop it.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries:       make(map[string]memoryEntry),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		stopSweep:     make(chan struct{}),
		sweepDone:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.sweepLoop()

	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.After(s.now()) {
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && !current.expiresAt.After(s.now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// Cleanup implements Store.
func (s *MemoryStore) Cleanup(context.Context) (int, error) {
	return s.sweep(), nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopSweep)
		<-s.sweepDone
	})
	return nil
}

func (s *MemoryStore) sweepLoop() {
	defer close(s.sweepDone)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
