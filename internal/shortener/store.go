package shortener

import (
	"context"
	"errors"
	"time"

	"shortlink/models"
)

var (
	// ErrRecordNotFound is returned by a LinkStore when no row has the code.
	ErrRecordNotFound = errors.New("short link record not found")
	// ErrCodeConflict is returned by CreateUnique when the code already exists.
	ErrCodeConflict = errors.New("short code already exists")
	// ErrCacheMiss is returned by a Cache when the key is absent.
	ErrCacheMiss = errors.New("cache miss")
)

// LinkStore is the persistent record store. Implementations must enforce code
// uniqueness at write time and increment clicks atomically.
type LinkStore interface {
	FindByCode(ctx context.Context, code string) (*models.ShortLink, error)
	// CreateUnique inserts link only if its code is unused; otherwise ErrCodeConflict.
	CreateUnique(ctx context.Context, link *models.ShortLink) error
	// IncrementClicks adds by to the stored counter and returns the updated row.
	IncrementClicks(ctx context.Context, code string, by int64) (*models.ShortLink, error)
	DeleteByCode(ctx context.Context, code string) error
	// ListByOwner returns the owner's links, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.ShortLink, error)
}

// Cache is a transient key-value cache with per-key TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheStats describes cached link entries.
type CacheStats struct {
	CachedURLs int    `json:"cachedUrls"`
	Info       string `json:"redisInfo"`
}

// StatsCache is implemented by caches that can report on their contents.
type StatsCache interface {
	Stats(ctx context.Context, prefix string) (CacheStats, error)
}
