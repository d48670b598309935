// Package cache keeps recent match predictions in redis
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richard-senior/valuebet/pkg/model"
)

// DefaultTTL is how long a prediction stays cached
const DefaultTTL = 30 * time.Minute

// RedisCache stores predictions as JSON under a per-match key with a fixed TTL
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache creates a cache on an existing client. A non-positive ttl means DefaultTTL.
func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{Client: c, TTL: ttl}
}

// Dial connects to addr and checks the connection
func Dial(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisCache(client, ttl), nil
}

// Key is the cache key of a prediction. Predictions depend on both teams and the league, not only on the match id.
func Key(matchID, homeTeamID, awayTeamID, leagueID string) string {
	return fmt.Sprintf("prediction:%s:%s:%s:%s", leagueID, matchID, homeTeamID, awayTeamID)
}

// Get returns the cached prediction. A miss is (nil, false, nil).
func (r *RedisCache) Get(ctx context.Context, key string) (*model.MatchPrediction, bool, error) {
	b, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var p model.MatchPrediction
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &p, true, nil
}

// Set stores a prediction with the cache TTL
func (r *RedisCache) Set(ctx context.Context, key string, p model.MatchPrediction) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, b, r.TTL).Err()
}

// Invalidate drops every cached prediction of a league, used after recalibration
func (r *RedisCache) Invalidate(ctx context.Context, leagueID string) (int, error) {
	var keys []string
	iter := r.Client.Scan(ctx, 0, "prediction:"+leagueID+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.Client.Del(ctx, keys...).Result()
	return int(n), err
}

// Ping is used by the health check
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.Client.Close()
}
