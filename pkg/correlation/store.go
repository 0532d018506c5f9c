// Package correlation holds pending legs for a short window while their
// counterpart may still arrive. At most one leg is held per key.
package correlation

import (
	"context"
	"errors"
	"time"

	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

// DefaultTTL is how long a stored leg stays eligible for pairing.
const DefaultTTL = 5 * time.Second

var ErrStore = errors.New("correlation store failure")

type Store interface {
	// Put stores sig under key, replacing any pending leg.
	Put(ctx context.Context, key string, sig models.TradeSignal, ttl time.Duration) error
	// Take atomically reads and removes the pending leg. Two concurrent
	// callers never both receive the same leg.
	Take(ctx context.Context, key string) (models.TradeSignal, bool, error)
	Delete(ctx context.Context, key string) error
}
