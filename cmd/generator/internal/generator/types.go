package generator

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/signal-pairing/pkg/clock"
)

// Clock paces the generator. Sleep is virtual in tests.
type Clock interface {
	clock.Clock
	Sleep(d time.Duration)
}

// Rand is the subset of *rand.Rand the generator draws from.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConn is satisfied by *kafka.Conn.
type KafkaConn interface {
	Controller() (kafka.Broker, error)
	Close() error
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
}

type DialFunc func(ctx context.Context, network, address string) (KafkaConn, error)

// KafkaDial dials with the default kafka-go dialer.
func KafkaDial(ctx context.Context, network, address string) (KafkaConn, error) {
	conn, err := kafka.DefaultDialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type SleepingClock struct{ clock.Real }

func (SleepingClock) Sleep(d time.Duration) { time.Sleep(d) }
