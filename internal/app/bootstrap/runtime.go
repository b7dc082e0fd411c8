package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/optimumsoft/optimumsoft-web/internal/config"
	"github.com/optimumsoft/optimumsoft-web/internal/http/middleware"
	"github.com/optimumsoft/optimumsoft-web/internal/leads"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildFormLimiter picks the contact form limiter: Redis-backed when a client
// is available so every instance shares one budget, in-memory otherwise.
// A non-positive per-minute limit disables throttling and returns nil.
func BuildFormLimiter(cfg *appconfig.Config, redisClient *redis.Client) middleware.Limiter {
	if cfg == nil || cfg.FormRateLimitPerMinute <= 0 {
		return nil
	}
	if redisClient != nil {
		return middleware.NewRedisLimiter(redisClient, "optimumsoft:contact", cfg.FormRateLimitPerMinute, time.Minute)
	}
	return middleware.NewMemoryLimiter(float64(cfg.FormRateLimitPerMinute)/60, cfg.FormRateLimitPerMinute)
}

// BuildDBPool opens the lead archive pool, or returns nil when DATABASE_URL is unset.
func BuildDBPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: parse database url: %w", err)
	}
	poolCfg.MaxConns = 5
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping database: %w", err)
	}
	return pool, nil
}

// BuildLeadRepository archives leads in Postgres when a pool is available and
// in memory otherwise.
func BuildLeadRepository(pool *pgxpool.Pool, logger *logging.Logger) leads.Repository {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Info("lead archive using in-memory repository")
		return leads.NewInMemoryRepository()
	}
	logger.Info("lead archive using postgres")
	return leads.NewPostgresRepository(pool)
}
