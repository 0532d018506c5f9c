package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/shubham-shewale/signal-pairing/pkg/dispatch"
)

// Compile-time check to ensure RedisFeed implements FeedStore
var _ FeedStore = (*RedisFeed)(nil)

type RedisFeed struct {
	client *redis.Client
	pubsub *redis.PubSub
	mu     sync.Mutex // guards pubsub subscription changes
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		client: client,
		pubsub: client.Subscribe(context.Background()),
	}
}

// GetSnapshots returns the last dispatch payload for each symbol that has one (MGET)
func (r *RedisFeed) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = dispatch.SnapshotKeyPrefix + sym
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

func (r *RedisFeed) SubscribeToFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pubsub.Subscribe(ctx, dispatch.ChannelPrefix+symbol)
}

func (r *RedisFeed) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pubsub.Unsubscribe(ctx, dispatch.ChannelPrefix+symbol)
}

// RunPubSub blocks, handing each feed message to onMessage with the symbol
// taken from the channel name.
func (r *RedisFeed) RunPubSub(ctx context.Context, onMessage func(symbol string, payload string)) {
	ch := r.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			symbol := strings.TrimPrefix(msg.Channel, dispatch.ChannelPrefix)
			if symbol == "" || symbol == msg.Channel {
				continue
			}
			onMessage(symbol, msg.Payload)
		}
	}
}

func (r *RedisFeed) Close() error {
	return r.pubsub.Close()
}
