package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/tshirt-checkout/internal/core/domain"
)

const (
	stockKeyPrefix    = "stock:"
	idempotencyPrefix = "idempotency:"
	idempotencyKeyTTL = 24 * time.Hour
)

// Mirror writes race between dispatcher workers; the version guard keeps the
// newest observation.
var setStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])
local version = tonumber(ARGV[2])

local current = redis.call('HGET', key, 'version')
if current and tonumber(current) >= version then
	return 0
end

redis.call('HSET', key, 'stock', quantity, 'version', version)
return 1
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetStock(ctx context.Context, item domain.ItemRef, quantity, version int) (bool, error) {
	key := stockKeyPrefix + string(item)

	result, err := setStockScript.Run(ctx, r.client, []string{key}, quantity, version).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (r *RedisAdapter) GetStock(ctx context.Context, item domain.ItemRef) (int, bool, error) {
	key := stockKeyPrefix + string(item)

	stock, err := r.client.HGet(ctx, key, "stock").Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return stock, true, nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyPrefix+key).Err()
}
