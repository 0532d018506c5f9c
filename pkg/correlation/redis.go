package correlation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

const DefaultKeyPrefix = "trade:"

var _ Store = (*RedisStore)(nil)

// RedisClient is the subset of *redis.Client the store needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisStore struct {
	client RedisClient
	prefix string
}

func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Put(ctx context.Context, key string, sig models.TradeSignal, ttl time.Duration) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStore, key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrStore, key, err)
	}
	return nil
}

// Take uses GETDEL so the read and the removal are one server-side step.
func (r *RedisStore) Take(ctx context.Context, key string) (models.TradeSignal, bool, error) {
	raw, err := r.client.GetDel(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return models.TradeSignal{}, false, nil
	}
	if err != nil {
		return models.TradeSignal{}, false, fmt.Errorf("%w: getdel %s: %v", ErrStore, key, err)
	}

	var sig models.TradeSignal
	if err := json.Unmarshal([]byte(raw), &sig); err != nil {
		// the entry is already gone; a corrupt leg is treated as absent
		return models.TradeSignal{}, false, nil
	}
	return sig, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", ErrStore, key, err)
	}
	return nil
}
