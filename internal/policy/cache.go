package policy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

// DefaultTTL is how long a loaded snapshot is served before the source is consulted again.
const DefaultTTL = 5 * time.Minute

// Cache holds the login policy snapshot. A snapshot is reused while it is younger
// than the TTL. When the source fails, the previous snapshot (or the defaults) keeps
// being served and the next attempt waits for another TTL.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	snapshot oauthDomain.LoginPolicySettings
	loadedAt time.Time
	loaded   bool
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a Cache over source. A non-positive ttl uses DefaultTTL.
func NewCache(source Source, ttl time.Duration, logger *slog.Logger, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		source:   source,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		snapshot: oauthDomain.DefaultLoginPolicySettings(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the current snapshot, refreshing it first when stale.
func (c *Cache) Get(ctx context.Context) oauthDomain.LoginPolicySettings {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.loaded && now.Sub(c.loadedAt) < c.ttl {
		return c.snapshot
	}

	settings, err := c.source.Load(ctx)
	if err != nil {
		c.logger.Error("failed to load login policy, serving previous snapshot",
			slog.Any("error", err),
		)
	} else {
		c.snapshot = settings
	}

	c.loadedAt = now
	c.loaded = true
	return c.snapshot
}

// Invalidate forces the next Get to consult the source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
}
