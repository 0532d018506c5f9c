package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/shubham-shewale/signal-pairing/pkg/clock"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger keeps holdings in process. Used for local runs and tests.
type MemoryLedger struct {
	mu     sync.RWMutex
	rows   []Holding
	nextID uint
	clock  clock.Clock
}

func NewMemoryLedger(c clock.Clock) *MemoryLedger {
	if c == nil {
		c = clock.Real{}
	}
	return &MemoryLedger{clock: c, nextID: 1}
}

func (m *MemoryLedger) FindOpenHolding(ctx context.Context, sym string) (*Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Symbol == sym && m.rows[i].Status == StatusHolding {
			h := m.rows[i]
			return &h, nil
		}
	}
	return nil, nil
}

func (m *MemoryLedger) CreateHolding(ctx context.Context, sig models.TradeSignal, t symbol.OptionType) (*Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := newHolding(sig, t)
	h.ID = m.nextID
	h.CreatedAt = m.clock.Now()
	h.UpdatedAt = h.CreatedAt
	m.nextID++
	m.rows = append(m.rows, h)
	return &h, nil
}

func (m *MemoryLedger) CloseHolding(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].Status == StatusHolding {
			m.rows[i].Status = StatusSent
			m.rows[i].UpdatedAt = m.clock.Now()
		}
	}
	return nil
}

func (m *MemoryLedger) ListOpen(ctx context.Context) ([]Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Holding, 0)
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Status == StatusHolding {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *MemoryLedger) ListHistory(ctx context.Context) ([]Holding, error) {
	m.mu.RLock()
	out := make([]Holding, len(m.rows))
	copy(out, m.rows)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
