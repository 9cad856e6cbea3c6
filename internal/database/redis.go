package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient connects and pings redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewWarmRepository returns a redis backed repository, or an in-memory one
// when redis is not configured or unreachable. The in-memory state is private
// to the process, so an API and a separate warmer no longer share task results.
func NewWarmRepository(ctx context.Context, cfg config.RedisConfig, log *logrus.Entry) (WarmRepository, func() error, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	noop := func() error { return nil }

	if cfg.Addr == "" {
		log.Warn("redis not configured, warm state kept in memory and not shared with other processes")
		return NewMemoryWarmRepository(cfg.WarmTTL), noop, nil
	}
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, warm state kept in memory and not shared with other processes")
		return NewMemoryWarmRepository(cfg.WarmTTL), noop, err
	}
	return NewRedisWarmRepository(client, cfg.WarmTTL), client.Close, nil
}
