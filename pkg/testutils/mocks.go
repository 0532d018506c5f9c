package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/signal-pairing/pkg/dispatch"
)

// MockNotifier records every payload it is asked to deliver.
type MockNotifier struct {
	Payloads   []dispatch.Payload
	ShouldFail bool
	Mu         sync.Mutex
}

func (m *MockNotifier) Notify(ctx context.Context, p dispatch.Payload) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return fmt.Errorf("%w: mock failure", dispatch.ErrDispatch)
	}
	m.Payloads = append(m.Payloads, p)
	return nil
}

func (m *MockNotifier) Count(message string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := 0
	for _, p := range m.Payloads {
		if p.Message == message {
			n++
		}
	}
	return n
}

func (m *MockNotifier) Len() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Payloads)
}

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }
