package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"shortlink/internal/config"
	"shortlink/internal/db"
	"shortlink/internal/shortener"
	"shortlink/internal/storage"
)

// app is the wired service graph shared by serve and the store commands.
type app struct {
	db     *gorm.DB
	redis  *redis.Client
	cache  shortener.Cache
	store  *storage.GormStore
	clicks *shortener.ClickRecorder
	svc    *shortener.Service
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	database, err := db.ConnectDB(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{db: database}

	if cfg.Redis.Enabled {
		client, err := storage.NewRedisClient(ctx, storage.RedisOptions{
			URL:        cfg.Redis.URL,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			_ = db.Close(database)
			return nil, err
		}
		a.redis = client
		a.cache = storage.NewRedisCache(client)
		log.Info("redis cache enabled")
	} else {
		a.cache = storage.NewMemoryCache()
		log.Warn("redis disabled, using in-process cache")
	}

	a.store = storage.NewGormStore(database, cfg.Database.QueryTimeout)
	a.clicks = shortener.NewClickRecorder(a.store, shortener.ClickConfig{
		Workers:       cfg.Clicks.Workers,
		Buffer:        cfg.Clicks.Buffer,
		BatchSize:     cfg.Clicks.BatchSize,
		FlushInterval: cfg.Clicks.FlushInterval,
		Timeout:       cfg.Database.QueryTimeout,
	}, log)
	a.svc = shortener.NewService(shortener.Options{
		Store:  a.store,
		Cache:  a.cache,
		Clicks: a.clicks,
		Assign: shortener.AssignConfig{
			Length:      cfg.Codes.Length,
			MaxAttempts: cfg.Codes.MaxAttempts,
			MaxLength:   cfg.Codes.MaxLength,
		},
		CacheTTL: shortener.CacheConfig{TTL: cfg.Cache.TTL, Beta: cfg.Cache.Beta},
		BaseURL:  cfg.Server.BaseURL,
		Logger:   log,
	})
	return a, nil
}

// ping checks the database and, when configured, redis.
func (a *app) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// close drains pending clicks before releasing connections.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.clicks.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("click recorder: %w", err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := db.Close(a.db); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}

// shutdown closes a and logs a failure, for callers with nowhere to return it.
func (a *app) shutdown(ctx context.Context, log *slog.Logger) {
	if err := a.close(ctx); err != nil {
		log.Error("resource shutdown error", "error", err)
	}
}
