package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"rent-estimator/models"
)

// RedisStore keeps each listing as JSON in a hash and indexes ids by price in
// a sorted set, so the price band is a single ZRANGEBYSCORE.
type RedisStore struct {
	client   *redis.Client
	priceKey string
	dataKey  string
}

// NewRedisStore connects to addr and pings it.
func NewRedisStore(ctx context.Context, addr string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return newRedisStore(client, prefix), nil
}

func newRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rent"
	}
	return &RedisStore{
		client:   client,
		priceKey: prefix + ":listings:by_price",
		dataKey:  prefix + ":listings",
	}
}

// Write upserts listings in one pipeline.
func (r *RedisStore) Write(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("redis: encode listing %d: %w", l.ID, err)
		}
		id := strconv.FormatInt(l.ID, 10)
		pipe.HSet(ctx, r.dataKey, id, data)
		pipe.ZAdd(ctx, r.priceKey, redis.Z{Score: l.RoundedPrice().InexactFloat64(), Member: id})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: write: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.priceKey, r.dataKey).Err(); err != nil {
		return fmt.Errorf("redis: clear: %w", err)
	}
	return nil
}

// FindComparables reads the price band from the sorted set, fetches the
// listings and applies the remaining filters in process.
func (r *RedisStore) FindComparables(ctx context.Context, q models.ComparableQuery) ([]*models.Listing, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.priceKey, &redis.ZRangeBy{
		Min: q.MinPrice.String(),
		Max: q.MaxPrice.String(),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: price range: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Listing{}, nil
	}

	vals, err := r.client.HMGet(ctx, r.dataKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetch listings: %w", err)
	}

	candidates := make([]*models.Listing, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // indexed but hash entry gone
		}
		l := &models.Listing{}
		if err := json.Unmarshal([]byte(s), l); err != nil {
			return nil, fmt.Errorf("redis: decode listing %s: %w", ids[i], err)
		}
		candidates = append(candidates, l)
	}
	return rankComparables(candidates, q), nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
