package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/redis/go-redis/v9"
)

const (
	warmKeyPrefix   = "warm:url:"
	resultKeyPrefix = "warm:task:"
)

func NewRedisWarmRepository(client *redis.Client, ttl time.Duration) WarmRepository {
	return &redisWarmRepository{client: client, ttl: ttl}
}

func (r *redisWarmRepository) MarkWarm(ctx context.Context, url string) (bool, error) {
	ok, err := r.client.SetNX(ctx, warmKeyPrefix+url, time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark warm %s: %w", url, err)
	}
	return ok, nil
}

func (r *redisWarmRepository) IsWarm(ctx context.Context, url string) (bool, error) {
	n, err := r.client.Exists(ctx, warmKeyPrefix+url).Result()
	if err != nil {
		return false, fmt.Errorf("check warm %s: %w", url, err)
	}
	return n > 0, nil
}

func (r *redisWarmRepository) Unmark(ctx context.Context, url string) error {
	return r.client.Del(ctx, warmKeyPrefix+url).Err()
}

func (r *redisWarmRepository) SaveResult(ctx context.Context, taskID string, result entity.WarmResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	key := resultKeyPrefix + taskID
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, result.URL, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save warm result %s: %w", taskID, err)
	}
	return nil
}

func (r *redisWarmRepository) Results(ctx context.Context, taskID string) ([]entity.WarmResult, error) {
	values, err := r.client.HGetAll(ctx, resultKeyPrefix+taskID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load warm results %s: %w", taskID, err)
	}

	out := make([]entity.WarmResult, 0, len(values))
	for _, v := range values {
		var res entity.WarmResult
		if err := json.Unmarshal([]byte(v), &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// memoryWarmRepository is the single-replica fallback when redis is not configured.
type memoryWarmRepository struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	warm    map[string]time.Time
	results map[string]map[string]entity.WarmResult
}

func NewMemoryWarmRepository(ttl time.Duration) WarmRepository {
	return &memoryWarmRepository{
		ttl:     ttl,
		now:     time.Now,
		warm:    make(map[string]time.Time),
		results: make(map[string]map[string]entity.WarmResult),
	}
}

func (r *memoryWarmRepository) MarkWarm(_ context.Context, url string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.liveLocked(url) {
		return false, nil
	}
	r.warm[url] = r.now()
	return true, nil
}

func (r *memoryWarmRepository) IsWarm(_ context.Context, url string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveLocked(url), nil
}

func (r *memoryWarmRepository) Unmark(_ context.Context, url string) error {
	r.mu.Lock()
	delete(r.warm, url)
	r.mu.Unlock()
	return nil
}

func (r *memoryWarmRepository) SaveResult(_ context.Context, taskID string, result entity.WarmResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.results[taskID] == nil {
		r.results[taskID] = make(map[string]entity.WarmResult)
	}
	r.results[taskID][result.URL] = result
	return nil
}

func (r *memoryWarmRepository) Results(_ context.Context, taskID string) ([]entity.WarmResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.WarmResult, 0, len(r.results[taskID]))
	for _, res := range r.results[taskID] {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

func (r *memoryWarmRepository) liveLocked(url string) bool {
	at, ok := r.warm[url]
	if !ok {
		return false
	}
	if r.ttl > 0 && r.now().Sub(at) >= r.ttl {
		delete(r.warm, url)
		return false
	}
	return true
}
