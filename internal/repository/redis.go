package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/config"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisCacheRepo is the preferred cache-row store: the aggregation cycle
// is read-heavy on hot (user, venue) pairs and the rows are disposable
// derived state.
type RedisCacheRepo struct {
	client *redis.Client
}

func NewRedisCacheRepo(cfg *config.Config) (*RedisCacheRepo, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCacheRepo{client: rdb}, nil
}

func cacheKey(userID, venue string) string {
	return fmt.Sprintf("balcache:%s:%s", userID, venue)
}

func (r *RedisCacheRepo) Get(ctx context.Context, userID, venue string) (*model.CacheEntry, error) {
	raw, err := r.client.Get(ctx, cacheKey(userID, venue)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

// Upsert is last-writer-wins by key, which is safe: writes are keyed by
// the same (user, venue) pair and no cross-venue write touches the row.
// Rows are never deleted; the staleness ceiling bounds their use.
func (r *RedisCacheRepo) Upsert(ctx context.Context, entry *model.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return r.client.Set(ctx, cacheKey(entry.UserID, entry.Venue), raw, 0).Err()
}
