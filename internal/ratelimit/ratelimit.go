// Package ratelimit admits requests per client IP using ulule/limiter.
package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"shortlink/internal/apperr"
)

const storePrefix = "limiter"

// Policy is one named limit, e.g. 10 creates per hour.
type Policy struct {
	Name   string
	Limit  int64
	Period time.Duration
}

func (p Policy) rate() limiter.Rate {
	return limiter.Rate{Limit: p.Limit, Period: p.Period}
}

// NewStore returns a redis-backed store shared across instances, or a
// process-local one when client is nil.
func NewStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          storePrefix,
			CleanUpInterval: time.Minute,
		}), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   storePrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	return store, nil
}

// Middleware enforces p per client IP. Rejected requests get 429 with the
// RATE_LIMITED code; a store failure answers 503.
func Middleware(store limiter.Store, p Policy, log *slog.Logger) gin.HandlerFunc {
	l := limiter.New(store, p.rate())
	mw := mgin.NewMiddleware(l,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return p.Name + ":" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			log.Warn("rate limit reached", "policy", p.Name, "ip", c.ClientIP(), "path", c.FullPath())
			c.JSON(http.StatusTooManyRequests, apperr.ErrRateLimited)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Error("rate limit store failed", "policy", p.Name, "error", err)
			c.JSON(http.StatusServiceUnavailable, apperr.ErrUpstream)
		}),
	)
	return mw
}
