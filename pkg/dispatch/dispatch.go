// Package dispatch forwards pairing decisions to the outside world.
package dispatch

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

var ErrDispatch = errors.New("dispatch failed")

const (
	MessageBoth  = "Sending Both Signals"
	MessageEntry = "Sending Entry Signal only"
	MessageExit  = "Sending Exit Signal for Existing Holding"
)

// Payload is the JSON body sent downstream. Exactly one of the trade groups
// is set: first+second, entry, or exit.
type Payload struct {
	ID          string              `json:"id"`
	Message     string              `json:"message"`
	FirstTrade  *models.TradeSignal `json:"firstTrade,omitempty"`
	SecondTrade *models.TradeSignal `json:"secondTrade,omitempty"`
	EntryTrade  *models.TradeSignal `json:"entryTrade,omitempty"`
	ExitTrade   *models.TradeSignal `json:"exitTrade,omitempty"`
}

func BothPayload(first, second models.TradeSignal) Payload {
	return Payload{ID: uuid.NewString(), Message: MessageBoth, FirstTrade: &first, SecondTrade: &second}
}

func EntryPayload(entry models.TradeSignal) Payload {
	return Payload{ID: uuid.NewString(), Message: MessageEntry, EntryTrade: &entry}
}

func ExitPayload(exit models.TradeSignal) Payload {
	return Payload{ID: uuid.NewString(), Message: MessageExit, ExitTrade: &exit}
}

// Symbols lists the distinct option symbols the payload mentions.
func (p Payload) Symbols() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range []*models.TradeSignal{p.FirstTrade, p.SecondTrade, p.EntryTrade, p.ExitTrade} {
		if t != nil && !seen[t.Symbol] {
			seen[t.Symbol] = true
			out = append(out, t.Symbol)
		}
	}
	return out
}

type Notifier interface {
	Notify(ctx context.Context, p Payload) error
}

// Fanout delivers to a primary notifier whose failure is the caller's
// failure, and to mirrors whose failures are only logged.
type Fanout struct {
	primary Notifier
	mirrors []Notifier
	logger  *zap.Logger
}

func NewFanout(logger *zap.Logger, primary Notifier, mirrors ...Notifier) *Fanout {
	return &Fanout{primary: primary, mirrors: mirrors, logger: logger}
}

func (f *Fanout) Notify(ctx context.Context, p Payload) error {
	if err := f.primary.Notify(ctx, p); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.Notify(ctx, p); err != nil {
			f.logger.Warn("Mirror dispatch failed", zap.String("id", p.ID), zap.String("message", p.Message), zap.Error(err))
		}
	}
	return nil
}
