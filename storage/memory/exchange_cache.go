package memory

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gotchalabs/social-auth/security"
	"github.com/gotchalabs/social-auth/storage"
)

const maxCachedExchanges = 10000

type exchangeEntry struct {
	bundle    storage.TokenBundle
	createdAt time.Time
}

// ExchangeCache is an in-memory storage.ExchangeStore. Codes are random
// UUIDs redeemable exactly once within storage.ExchangeCodeTTL.
type ExchangeCache struct {
	mu      sync.RWMutex
	entries map[string]exchangeEntry

	logger  *slog.Logger
	now     security.NowFunc
	newCode func() string

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

var _ storage.ExchangeStore = (*ExchangeCache)(nil)

// NewExchangeCache creates an ExchangeCache and starts its cleanup
// goroutine.
func NewExchangeCache() *ExchangeCache {
	c := &ExchangeCache{
		entries:     make(map[string]exchangeEntry),
		logger:      slog.Default(),
		now:         time.Now,
		newCode:     uuid.NewString,
		stopCleanup: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// SetLogger replaces the cache's logger.
func (c *ExchangeCache) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetClock replaces the cache's time source. Intended for tests.
func (c *ExchangeCache) SetClock(now security.NowFunc) {
	if now != nil {
		c.now = now
	}
}

// SetCodeGenerator replaces the code source. Intended for tests.
func (c *ExchangeCache) SetCodeGenerator(gen func() string) {
	if gen != nil {
		c.newCode = gen
	}
}

// StoreTokens parks bundle behind a fresh one-time code and returns it.
func (c *ExchangeCache) StoreTokens(w http.ResponseWriter, r *http.Request, bundle *storage.TokenBundle) (string, error) {
	if bundle == nil {
		return "", storage.ErrCodeNotFound
	}
	code := c.newCode()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= maxCachedExchanges {
		c.evictOldestLocked()
	}
	c.entries[code] = exchangeEntry{bundle: *bundle, createdAt: c.now()}
	return code, nil
}

// ExchangeCode redeems code for its token bundle, consuming it. Unknown,
// expired, and already-consumed codes are indistinguishable.
func (c *ExchangeCache) ExchangeCode(w http.ResponseWriter, r *http.Request, code string) (*storage.TokenBundle, error) {
	if code == "" {
		return nil, storage.ErrCodeNotFound
	}

	c.mu.Lock()
	entry, ok := c.entries[code]
	if ok {
		delete(c.entries, code)
	}
	c.mu.Unlock()

	if !ok {
		return nil, storage.ErrCodeNotFound
	}
	if security.IsExpiredAt(c.now(), entry.createdAt, storage.ExchangeCodeTTL) {
		return nil, storage.ErrCodeNotFound
	}
	bundle := entry.bundle
	return &bundle, nil
}

// Len returns the number of parked bundles. Used by metric callbacks.
func (c *ExchangeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop terminates the cleanup goroutine. Safe to call multiple times.
func (c *ExchangeCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *ExchangeCache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			removed := 0
			for code, entry := range c.entries {
				if security.IsExpiredAt(now, entry.createdAt, storage.ExchangeCodeTTL) {
					delete(c.entries, code)
					removed++
				}
			}
			c.mu.Unlock()
			if removed > 0 {
				c.logger.Debug("cleaned up expired exchange codes",
					"removed", removed)
			}
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *ExchangeCache) evictOldestLocked() {
	var oldestCode string
	var oldestAt time.Time
	for code, entry := range c.entries {
		if oldestCode == "" || entry.createdAt.Before(oldestAt) {
			oldestCode = code
			oldestAt = entry.createdAt
		}
	}
	if oldestCode != "" {
		delete(c.entries, oldestCode)
		c.logger.Warn("exchange cache at capacity, evicted oldest entry")
	}
}
