package repository

import (
	"context"
)

// FeedStore is the gateway's view of the dispatch feed: the last dispatch per
// symbol plus a live channel per symbol.
type FeedStore interface {
	GetSnapshots(ctx context.Context, symbols []string) ([]string, error)
	SubscribeToFeed(ctx context.Context, symbol string) error
	UnsubscribeFromFeed(ctx context.Context, symbol string) error
	RunPubSub(ctx context.Context, onMessage func(symbol string, payload string))
	Close() error
}
