// Package config loads service configuration from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		BaseURL         string        `mapstructure:"base_url"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		// Driver is "postgres" or "sqlite".
		Driver       string        `mapstructure:"driver"`
		DSN          string        `mapstructure:"dsn"`
		Host         string        `mapstructure:"host"`
		Port         int           `mapstructure:"port"`
		User         string        `mapstructure:"user"`
		Password     string        `mapstructure:"password"`
		Name         string        `mapstructure:"name"`
		SSLMode      string        `mapstructure:"sslmode"`
		QueryTimeout time.Duration `mapstructure:"query_timeout"`
		MaxOpenConns int           `mapstructure:"max_open_conns"`
		MaxIdleConns int           `mapstructure:"max_idle_conns"`
		AutoMigrate  bool          `mapstructure:"auto_migrate"`
	} `mapstructure:"database"`

	Redis struct {
		Enabled    bool   `mapstructure:"enabled"`
		URL        string `mapstructure:"url"`
		PoolSize   int    `mapstructure:"pool_size"`
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"redis"`

	Cache struct {
		TTL  time.Duration `mapstructure:"ttl"`
		Beta float64       `mapstructure:"beta"`
	} `mapstructure:"cache"`

	Codes struct {
		Length      int `mapstructure:"length"`
		MaxAttempts int `mapstructure:"max_attempts"`
		MaxLength   int `mapstructure:"max_length"`
	} `mapstructure:"codes"`

	Clicks struct {
		Workers       int           `mapstructure:"workers"`
		Buffer        int           `mapstructure:"buffer"`
		BatchSize     int           `mapstructure:"batch_size"`
		FlushInterval time.Duration `mapstructure:"flush_interval"`
	} `mapstructure:"clicks"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	RateLimit struct {
		Enabled       bool          `mapstructure:"enabled"`
		GeneralLimit  int64         `mapstructure:"general_limit"`
		GeneralPeriod time.Duration `mapstructure:"general_period"`
		CreateLimit   int64         `mapstructure:"create_limit"`
		CreatePeriod  time.Duration `mapstructure:"create_period"`
	} `mapstructure:"rate_limit"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080/api")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "shortlink")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.query_timeout", 3*time.Second)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)

	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.beta", 0.0)

	v.SetDefault("codes.length", 6)
	v.SetDefault("codes.max_attempts", 5)
	v.SetDefault("codes.max_length", 8)

	v.SetDefault("clicks.workers", 2)
	v.SetDefault("clicks.buffer", 1024)
	v.SetDefault("clicks.batch_size", 100)
	v.SetDefault("clicks.flush_interval", 250*time.Millisecond)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.general_limit", 100)
	v.SetDefault("rate_limit.general_period", 15*time.Minute)
	v.SetDefault("rate_limit.create_limit", 10)
	v.SetDefault("rate_limit.create_period", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. path may be empty, in which case only defaults and
// the environment apply. Environment keys are the dotted keys upper-cased with
// "_" separators, e.g. DATABASE_DSN or RATE_LIMIT_CREATE_LIMIT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional names used by hosting platforms.
	_ = v.BindEnv("server.base_url", "SERVER_BASE_URL", "BASE_URL")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// redis.enabled has no default: a configured URL on its own turns redis on.
	if v.IsSet("redis.enabled") {
		cfg.Redis.Enabled = v.GetBool("redis.enabled")
	} else {
		cfg.Redis.Enabled = cfg.Redis.URL != ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Codes.Length < 3 || c.Codes.Length > 20 {
		errs = append(errs, fmt.Errorf("codes.length must be within 3..20, got %d", c.Codes.Length))
	}
	if c.Codes.MaxLength < c.Codes.Length {
		errs = append(errs, errors.New("codes.max_length must be >= codes.length"))
	}
	if c.Codes.MaxAttempts < 1 {
		errs = append(errs, errors.New("codes.max_attempts must be positive"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.Beta < 0 || c.Cache.Beta >= 1 {
		errs = append(errs, fmt.Errorf("cache.beta must be within [0,1), got %v", c.Cache.Beta))
	}
	if c.RateLimit.Enabled && (c.RateLimit.GeneralLimit <= 0 || c.RateLimit.CreateLimit <= 0) {
		errs = append(errs, errors.New("rate limits must be positive when enabled"))
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required when redis is enabled"))
	}
	return errors.Join(errs...)
}

// PostgresDSN returns Database.DSN or one assembled from the discrete fields.
func (c *Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
