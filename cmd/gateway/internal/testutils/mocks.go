package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/signal-pairing/pkg/engine"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse
	RawBytes []string
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsg() protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return protocol.WSResponse{}
	}
	return m.Messages[len(m.Messages)-1]
}

func (m *MockClient) Raw() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]string(nil), m.RawBytes...)
}

// MockFeedStore simulates the Redis dispatch feed.
type MockFeedStore struct {
	SubscribedChannels map[string]int
	Snapshots          map[string]string
	Mu                 sync.Mutex
}

func NewMockFeedStore() *MockFeedStore {
	return &MockFeedStore{
		SubscribedChannels: make(map[string]int),
		Snapshots:          make(map[string]string),
	}
}

func (m *MockFeedStore) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []string
	for _, s := range symbols {
		if snap, ok := m.Snapshots[s]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (m *MockFeedStore) SubscribeToFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SubscribedChannels[symbol]++
	return nil
}

func (m *MockFeedStore) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SubscribedChannels[symbol]--
	if m.SubscribedChannels[symbol] <= 0 {
		delete(m.SubscribedChannels, symbol)
	}
	return nil
}

func (m *MockFeedStore) Subscribed(symbol string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.SubscribedChannels[symbol]
}

func (m *MockFeedStore) RunPubSub(ctx context.Context, onMessage func(symbol string, payload string)) {
	// No-op for unit tests
}

func (m *MockFeedStore) Close() error { return nil }

// MockSubmitter records submitted requests and returns a fixed result.
type MockSubmitter struct {
	Requests   []models.SignalRequest
	Result     engine.Result
	ShouldFail bool
	Mu         sync.Mutex
}

func (m *MockSubmitter) Submit(ctx context.Context, req models.SignalRequest) (engine.Result, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.ShouldFail {
		return engine.Result{}, errors.New("mock submit failure")
	}
	return m.Result, nil
}
