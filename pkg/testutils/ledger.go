package testutils

import (
	"context"
	"fmt"

	"github.com/shubham-shewale/signal-pairing/pkg/ledger"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

// FailingLedger wraps a ledger and fails selected operations.
type FailingLedger struct {
	ledger.Ledger
	FailFind   bool
	FailCreate bool
	FailList   bool
}

func (f *FailingLedger) FindOpenHolding(ctx context.Context, sym string) (*ledger.Holding, error) {
	if f.FailFind {
		return nil, fmt.Errorf("%w: mock find failure", ledger.ErrPersistence)
	}
	return f.Ledger.FindOpenHolding(ctx, sym)
}

func (f *FailingLedger) CreateHolding(ctx context.Context, sig models.TradeSignal, t symbol.OptionType) (*ledger.Holding, error) {
	if f.FailCreate {
		return nil, fmt.Errorf("%w: mock create failure", ledger.ErrPersistence)
	}
	return f.Ledger.CreateHolding(ctx, sig, t)
}

func (f *FailingLedger) ListOpen(ctx context.Context) ([]ledger.Holding, error) {
	if f.FailList {
		return nil, fmt.Errorf("%w: mock list failure", ledger.ErrPersistence)
	}
	return f.Ledger.ListOpen(ctx)
}

func (f *FailingLedger) ListHistory(ctx context.Context) ([]ledger.Holding, error) {
	if f.FailList {
		return nil, fmt.Errorf("%w: mock list failure", ledger.ErrPersistence)
	}
	return f.Ledger.ListHistory(ctx)
}
