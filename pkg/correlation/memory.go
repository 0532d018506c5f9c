package correlation

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/shubham-shewale/signal-pairing/pkg/clock"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

const numShards = 32

var _ Store = (*MemoryStore)(nil)

// memEntry stays live through expiresAt inclusive.
type memEntry struct {
	sig       models.TradeSignal
	expiresAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// MemoryStore is an in-process Store. Keys are spread over mutex-guarded
// shards so unrelated keys do not contend on one lock.
type MemoryStore struct {
	shards [numShards]*shard
	clock  clock.Clock
}

func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.Real{}
	}
	m := &MemoryStore{clock: c}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]memEntry)}
	}
	return m
}

func (m *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%numShards]
}

func (m *MemoryStore) Put(ctx context.Context, key string, sig models.TradeSignal, ttl time.Duration) error {
	now := m.clock.Now()
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memEntry{sig: sig, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Take(ctx context.Context, key string) (models.TradeSignal, bool, error) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return models.TradeSignal{}, false, nil
	}
	delete(s.entries, key)
	if m.clock.Now().After(e.expiresAt) {
		return models.TradeSignal{}, false, nil
	}
	return e.sig, true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len counts live entries.
func (m *MemoryStore) Len() int {
	now := m.clock.Now()
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			if !now.After(e.expiresAt) {
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}
