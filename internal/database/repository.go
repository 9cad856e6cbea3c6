package database

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/redis/go-redis/v9"
)

// WarmRepository remembers which CDN variants were already pulled through the
// edge, so that replicas of the warmer do not fetch the same URL twice.
type WarmRepository interface {
	// MarkWarm claims url. It returns false if url was already claimed.
	MarkWarm(ctx context.Context, url string) (bool, error)
	IsWarm(ctx context.Context, url string) (bool, error)
	// Unmark releases a claim, e.g. after a failed fetch.
	Unmark(ctx context.Context, url string) error
	SaveResult(ctx context.Context, taskID string, result entity.WarmResult) error
	Results(ctx context.Context, taskID string) ([]entity.WarmResult, error)
}

type redisWarmRepository struct {
	client *redis.Client
	ttl    time.Duration
}
