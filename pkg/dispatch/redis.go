package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	SnapshotKeyPrefix = "dispatch:last:"
	ChannelPrefix     = "dispatch."
	snapshotTTL       = 1 * time.Hour
)

var _ Notifier = (*RedisNotifier)(nil)

type RedisPipeliner interface {
	Pipeline() redis.Pipeliner
}

// RedisNotifier keeps the last dispatch per symbol and publishes it on the
// symbol's feed channel for live subscribers.
type RedisNotifier struct {
	rdb RedisPipeliner
}

func NewRedisNotifier(rdb RedisPipeliner) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (r *RedisNotifier) Notify(ctx context.Context, p Payload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrDispatch, err)
	}

	// SET + PUBLISH in one pipeline so snapshot and feed agree
	pipe := r.rdb.Pipeline()
	for _, sym := range p.Symbols() {
		pipe.Set(ctx, SnapshotKeyPrefix+sym, payload, snapshotTTL)
		pipe.Publish(ctx, ChannelPrefix+sym, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis feed: %v", ErrDispatch, err)
	}
	return nil
}
