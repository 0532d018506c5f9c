// Package ledger records open positions durably. Rows are never deleted;
// a holding moves from Holding to Sent exactly once.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

var ErrPersistence = errors.New("ledger persistence failure")

type Status string

const (
	StatusHolding Status = "Holding"
	StatusSent    Status = "Sent"
)

type Holding struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Symbol    string            `gorm:"type:varchar(64);index:idx_holdings_symbol_status" json:"symbol"`
	Signal    models.SignalKind `gorm:"type:varchar(16)" json:"signal"`
	Type      symbol.OptionType `gorm:"column:type;type:char(1)" json:"type"`
	Qty       int64             `json:"qty"`
	Status    Status            `gorm:"type:varchar(16);index:idx_holdings_symbol_status" json:"status"`
	Price     decimal.Decimal   `gorm:"type:numeric" json:"price"`
	Timestamp time.Time         `json:"timestamp"`
	CreatedAt time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (Holding) TableName() string { return "holdings" }

type Ledger interface {
	// FindOpenHolding returns the most recent Holding-status row for the
	// exact symbol, or nil when there is none.
	FindOpenHolding(ctx context.Context, sym string) (*Holding, error)
	CreateHolding(ctx context.Context, sig models.TradeSignal, t symbol.OptionType) (*Holding, error)
	// CloseHolding marks the row Sent. Closing an already Sent row is a no-op.
	CloseHolding(ctx context.Context, id uint) error
	ListOpen(ctx context.Context) ([]Holding, error)
	// ListHistory returns every row, newest first.
	ListHistory(ctx context.Context) ([]Holding, error)
}

func newHolding(sig models.TradeSignal, t symbol.OptionType) Holding {
	return Holding{
		Symbol:    sig.Symbol,
		Signal:    sig.Signal,
		Type:      t,
		Qty:       sig.Quantity,
		Status:    StatusHolding,
		Price:     sig.Price,
		Timestamp: time.UnixMilli(sig.Timestamp).UTC(),
	}
}
