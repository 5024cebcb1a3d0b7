package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/singleflight"

	"shortlink/internal/apperr"
	"shortlink/models"
)

// DefaultCacheTTL is how long a resolved link stays cached.
const DefaultCacheTTL = time.Hour

const cacheKeyPrefix = "url:"

// ErrExpired is returned by Resolve for a link whose expiry has passed.
var ErrExpired = errors.New("short link expired")

// CacheKey is the cache key for code.
func CacheKey(code string) string {
	return cacheKeyPrefix + code
}

// CachedLink is exactly what is stored in the cache for a code.
type CachedLink struct {
	OriginalURL string     `json:"originalUrl"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

func (c CachedLink) expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CacheConfig controls population of the cache.
type CacheConfig struct {
	TTL time.Duration
	// Beta shortens each TTL by a random fraction up to Beta so entries written
	// together do not all expire together.
	Beta float64
}

// ClickSink receives best-effort click increments.
type ClickSink interface {
	Record(code string)
}

// CacheAside owns the two-tier read path: cache, then store.
type CacheAside struct {
	cache  Cache
	store  LinkStore
	clicks ClickSink
	config CacheConfig
	now    func() time.Time
	logger *slog.Logger
	group  singleflight.Group
}

func NewCacheAside(cache Cache, store LinkStore, clicks ClickSink, config CacheConfig, logger *slog.Logger) *CacheAside {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheAside{
		cache:  cache,
		store:  store,
		clicks: clicks,
		config: config,
		now:    time.Now,
		logger: logger,
	}
}

// Resolve returns the live link for code. It fails with ErrRecordNotFound or
// ErrExpired; a store failure on a cache miss is UPSTREAM_UNAVAILABLE.
//
// A cache hit queues an asynchronous click. A miss increments synchronously,
// since no later path would account for that click.
func (c *CacheAside) Resolve(ctx context.Context, code string) (CachedLink, error) {
	if cached, ok := c.lookup(ctx, code); ok {
		if cached.expired(c.now()) {
			if err := c.Invalidate(ctx, code); err != nil {
				c.logger.WarnContext(ctx, "failed to invalidate expired cache entry", "code", code, "error", err)
			}
			return CachedLink{}, ErrExpired
		}
		c.logger.DebugContext(ctx, "cache hit", "code", code)
		c.clicks.Record(code)
		return cached, nil
	}

	c.logger.DebugContext(ctx, "cache miss", "code", code)
	// The lookup is shared by every concurrent miss on code, so one caller
	// going away must not cancel it for the others.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(code, func() (any, error) {
		return c.store.FindByCode(shared, code)
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return CachedLink{}, ErrRecordNotFound
		}
		return CachedLink{}, apperr.Upstream(fmt.Errorf("find %q: %w", code, err))
	}
	link := v.(*models.ShortLink)
	if link.IsExpired(c.now()) {
		return CachedLink{}, ErrExpired
	}

	if _, err := c.store.IncrementClicks(ctx, code, 1); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return CachedLink{}, ErrRecordNotFound
		}
		return CachedLink{}, apperr.Upstream(fmt.Errorf("increment clicks %q: %w", code, err))
	}

	resolved := CachedLink{OriginalURL: link.OriginalURL, ExpiresAt: link.ExpiresAt}
	if err := c.Populate(ctx, code, resolved, c.ttlFor(resolved)); err != nil {
		c.logger.WarnContext(ctx, "failed to populate cache", "code", code, "error", err)
	}
	return resolved, nil
}

// Invalidate removes the cached entry for code.
func (c *CacheAside) Invalidate(ctx context.Context, code string) error {
	return c.cache.Delete(ctx, CacheKey(code))
}

// Populate writes link to the cache under code for ttl.
func (c *CacheAside) Populate(ctx context.Context, code string, link CachedLink, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return c.cache.SetWithTTL(ctx, CacheKey(code), data, ttl)
}

// lookup treats every cache failure as a miss.
func (c *CacheAside) lookup(ctx context.Context, code string) (CachedLink, bool) {
	data, err := c.cache.Get(ctx, CacheKey(code))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.WarnContext(ctx, "cache unavailable, falling back to store", "code", code, "error", err)
		}
		return CachedLink{}, false
	}
	var cached CachedLink
	if err := json.Unmarshal(data, &cached); err != nil || cached.OriginalURL == "" {
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "code", code, "error", err)
		_ = c.Invalidate(ctx, code)
		return CachedLink{}, false
	}
	return cached, true
}

// ttlFor jitters the configured TTL and never keeps an entry much past the link's expiry.
func (c *CacheAside) ttlFor(link CachedLink) time.Duration {
	ttl := c.config.TTL
	if c.config.Beta > 0 {
		ttl = time.Duration(float64(ttl) * (1 - c.config.Beta*rand.Float64()))
	}
	if link.ExpiresAt != nil {
		if until := link.ExpiresAt.Sub(c.now()) + time.Second; until < ttl {
			ttl = until
		}
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
