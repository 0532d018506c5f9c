package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/signal-pairing/cmd/generator/internal/generator"
)

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

// MockClock advances virtual time on Sleep.
type MockClock struct {
	CurrentTime time.Time
	Slept       time.Duration
}

func (m *MockClock) Now() time.Time { return m.CurrentTime }

func (m *MockClock) Sleep(d time.Duration) {
	m.CurrentTime = m.CurrentTime.Add(d)
	m.Slept += d
}

// MockRand always draws ValInt (clamped to n-1) and ValFloat.
type MockRand struct {
	ValInt   int
	ValFloat float64
}

func (m *MockRand) Intn(n int) int {
	if m.ValInt >= n {
		return n - 1
	}
	return m.ValInt
}

func (m *MockRand) Float64() float64 { return m.ValFloat }

type MockKafkaConn struct {
	Created      []kafka.TopicConfig
	Dialed       []string
	CreateErr    error
	NoPartitions bool
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "controller", Port: 9093, ID: 1}, nil
}

func (m *MockKafkaConn) Close() error { return nil }

func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.Created = append(m.Created, topics...)
	return m.CreateErr
}

func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.NoPartitions {
		return nil, nil
	}
	return []kafka.Partition{{Topic: topics[0], ID: 0}}, nil
}

// Dial returns a DialFunc handing out this connection and recording addresses.
// Addresses in unreachable fail.
func (m *MockKafkaConn) Dial(unreachable ...string) generator.DialFunc {
	down := make(map[string]bool)
	for _, a := range unreachable {
		down[a] = true
	}
	return func(ctx context.Context, network, address string) (generator.KafkaConn, error) {
		m.Dialed = append(m.Dialed, address)
		if down[address] {
			return nil, errors.New("connection refused")
		}
		return m, nil
	}
}
