package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidSignal is returned for requests carrying an unknown signal name
// or an unusable quantity.
var ErrInvalidSignal = errors.New("invalid signal")

func init() {
	// Prices travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type SignalKind string

const (
	LongEntry  SignalKind = "LongEntry"
	LongExit   SignalKind = "LongExit"
	ShortEntry SignalKind = "ShortEntry"
	ShortExit  SignalKind = "ShortExit"
)

// ParseSignalKind accepts both the compact form ("LongEntry") and the spaced
// form sent by charting tools ("Long Entry"), case-insensitively.
func ParseSignalKind(s string) (SignalKind, error) {
	compact := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for _, k := range []SignalKind{LongEntry, LongExit, ShortEntry, ShortExit} {
		if strings.ToLower(string(k)) == compact {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSignal, s)
}

// IsExit reports whether the signal closes rather than opens a position.
func (k SignalKind) IsExit() bool { return strings.Contains(string(k), "Exit") }

// SignalRequest is the inbound body of POST /trading and of ingest messages.
type SignalRequest struct {
	Symbol   string          `json:"symbol"`
	Signal   string          `json:"signal"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// TradeSignal is one leg as seen by the engine. Timestamp is epoch millis
// assigned at receipt.
type TradeSignal struct {
	Symbol    string          `json:"symbol"`
	Signal    SignalKind      `json:"signal"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Timestamp int64           `json:"timestamp"`
}

// NewTradeSignal validates the signal name and stamps the request with
// receivedAtMs. Quantity is carried as sent.
func NewTradeSignal(req SignalRequest, receivedAtMs int64) (TradeSignal, error) {
	kind, err := ParseSignalKind(req.Signal)
	if err != nil {
		return TradeSignal{}, err
	}
	return TradeSignal{
		Symbol:    strings.TrimSpace(req.Symbol),
		Signal:    kind,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Timestamp: receivedAtMs,
	}, nil
}
