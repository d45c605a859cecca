package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/referral-service/referral_service/pkg/metrics"
)

// Result cache TTL tiers, assigned by substring match on the function
// name. Unmatched names get the default.
const (
	TTLFeeOverrides = 5 * time.Minute
	TTLNotification = 30 * time.Second
	TTLProfile      = 2 * time.Minute
	TTLStatic       = 10 * time.Minute
	TTLDefault      = 2 * time.Minute

	sweepInterval = time.Minute
)

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// ResultCache is an in-process TTL memo store sitting in front of the
// batch loaders and the processor lookup client. It is never a source
// of truth: dropping it only costs latency. Constructed once per
// process and passed by reference to consumers.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	logger  *zap.Logger
	stopCh  chan struct{}
	once    sync.Once
}

// NewResultCache creates a result cache and starts its sweep goroutine
func NewResultCache(logger *zap.Logger) *ResultCache {
	c := &ResultCache{
		entries: make(map[string]entry),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get returns the memoized value for (fn, params), or ok=false on a
// miss or an expired entry. Expired entries are removed on access.
func (c *ResultCache) Get(fn string, params ...interface{}) (interface{}, bool) {
	key := buildKey(fn, params...)

	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// re-check under the write lock; a Set may have raced in
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return e.data, true
}

// Set stores a value for (fn, params) with the TTL tier derived from fn
func (c *ResultCache) Set(fn string, data interface{}, params ...interface{}) {
	c.SetWithTTL(fn, data, ttlFor(fn), params...)
}

// SetWithTTL stores a value with an explicit TTL
func (c *ResultCache) SetWithTTL(fn string, data interface{}, ttl time.Duration, params ...interface{}) {
	key := buildKey(fn, params...)

	c.mu.Lock()
	c.entries[key] = entry{data: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes every entry for the given function name
func (c *ResultCache) Invalidate(fn string) {
	prefix := fn + "|"

	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len reports the number of live entries, expired or not
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweep goroutine
func (c *ResultCache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}

func (c *ResultCache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *ResultCache) sweep() {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("Result cache sweep removed expired entries", zap.Int("removed", removed))
	}
}

// buildKey derives a deterministic key from the function name and its
// serialized parameters. encoding/json sorts map keys, so equal params
// always produce equal keys.
func buildKey(fn string, params ...interface{}) string {
	if len(params) == 0 {
		return fn + "|"
	}
	raw, err := json.Marshal(params)
	if err != nil {
		// unserializable params still need a stable slot
		return fn + "|unserializable"
	}
	return fn + "|" + string(raw)
}

// ttlFor maps a function name to its default TTL tier
func ttlFor(fn string) time.Duration {
	name := strings.ToLower(fn)
	switch {
	case strings.Contains(name, "fee_override"), strings.Contains(name, "feeoverride"):
		return TTLFeeOverrides
	case strings.Contains(name, "notification"):
		return TTLNotification
	case strings.Contains(name, "profile"):
		return TTLProfile
	case strings.Contains(name, "static"), strings.Contains(name, "reference"):
		return TTLStatic
	default:
		return TTLDefault
	}
}
