package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightengine/config"
	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const searchGenerationKey = "cache:search-generation"

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisCache struct {
	client    *redis.Client
	searchTTL time.Duration
	owner     string
}

func NewRedisCache(cfg config.RedisConfig, searchTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL: searchTTL,
		owner:     uuid.NewString(),
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetSearch(ctx context.Context, key string) (*domain.SearchResult, error) {
	data, err := c.client.Get(ctx, searchKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var result domain.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *RedisCache) SetSearch(ctx context.Context, key string, result *domain.SearchResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(key), payload, c.searchTTL).Err()
}

// SearchGeneration returns the current search cache generation. Callers read
// it before querying storage and key their write with it, so a result computed
// before an invalidation is never served after it.
func (c *RedisCache) SearchGeneration(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, searchGenerationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// InvalidateSearch bumps the generation and drops every cached search result.
func (c *RedisCache) InvalidateSearch(ctx context.Context) error {
	if err := c.client.Incr(ctx, searchGenerationKey).Err(); err != nil {
		return err
	}

	iter := c.client.Scan(ctx, 0, searchKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) AcquireInventoryLock(ctx context.Context, flightID, cabinTypeID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, inventoryLockKey(flightID, cabinTypeID), c.owner, ttl).Result()
}

func (c *RedisCache) ReleaseInventoryLock(ctx context.Context, flightID, cabinTypeID int64) error {
	return releaseScript.Run(ctx, c.client, []string{inventoryLockKey(flightID, cabinTypeID)}, c.owner).Err()
}

// SearchKey normalises the parts of a search request into a cache key.
func SearchKey(generation int64, from, to string, date time.Time, extended bool) string {
	return fmt.Sprintf("g%d:%s:%s:%s:%t", generation, strings.ToUpper(from), strings.ToUpper(to), date.Format("2006-01-02"), extended)
}

func searchKey(key string) string {
	return "cache:search:" + key
}

func inventoryLockKey(flightID, cabinTypeID int64) string {
	return fmt.Sprintf("lock:flight:%d:cabin:%d", flightID, cabinTypeID)
}
