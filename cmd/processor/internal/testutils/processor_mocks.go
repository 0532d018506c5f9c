package testutils

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/signal-pairing/pkg/engine"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

type MockKafkaReader struct {
	Messages []kafka.Message
	Index    int
	Mu       sync.Mutex
	// Closed simulates a closed connection or end of stream
	Closed bool
}

func (m *MockKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if m.Closed {
		return kafka.Message{}, io.EOF
	}

	if m.Index >= len(m.Messages) {
		// DeadlineExceeded stops the read loop once the script is exhausted
		return kafka.Message{}, context.DeadlineExceeded
	}

	msg := m.Messages[m.Index]
	m.Index++
	return msg, nil
}

func (m *MockKafkaReader) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
	return nil
}

// MockSubmitter records requests in the order they reach the engine.
// Symbols listed in FailSymbols are rejected.
type MockSubmitter struct {
	Requests    []models.SignalRequest
	FailSymbols map[string]bool
	Mu          sync.Mutex
}

func (m *MockSubmitter) Submit(ctx context.Context, req models.SignalRequest) (engine.Result, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailSymbols[req.Symbol] {
		return engine.Result{}, errors.New("mock submit failure")
	}
	m.Requests = append(m.Requests, req)
	return engine.Result{Key: req.Symbol, Outcome: engine.OutcomeStored}, nil
}

func (m *MockSubmitter) Snapshot() []models.SignalRequest {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]models.SignalRequest(nil), m.Requests...)
}
