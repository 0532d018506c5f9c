package generator

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	readyPolls    = 5
	readyInterval = 200 * time.Millisecond
)

type TopicSpec struct {
	Name       string
	Partitions int
}

// TopicCreator provisions the signal and dispatch topics through the
// cluster controller.
type TopicCreator struct {
	logger *zap.Logger
	dial   DialFunc
	clock  Clock
}

func NewTopicCreator(logger *zap.Logger, dial DialFunc, clock Clock) *TopicCreator {
	return &TopicCreator{logger: logger, dial: dial, clock: clock}
}

// Ensure creates missing topics and waits until each one reports
// partitions. Failures are logged; producers retry on their own.
func (tc *TopicCreator) Ensure(ctx context.Context, brokers []string, specs ...TopicSpec) {
	if len(specs) == 0 {
		return
	}

	conn, err := tc.dialAny(ctx, brokers)
	if err != nil {
		tc.logger.Warn("No broker reachable for topic setup", zap.Strings("brokers", brokers), zap.Error(err))
		return
	}
	defer conn.Close()

	broker, err := conn.Controller()
	if err != nil {
		tc.logger.Warn("Controller lookup failed", zap.Error(err))
		return
	}
	ctrl, err := tc.dial(ctx, "tcp", net.JoinHostPort(broker.Host, strconv.Itoa(broker.Port)))
	if err != nil {
		tc.logger.Warn("Controller unreachable", zap.Int("controller_id", broker.ID), zap.Error(err))
		return
	}
	defer ctrl.Close()

	configs := make([]kafka.TopicConfig, 0, len(specs))
	for _, s := range specs {
		p := s.Partitions
		if p <= 0 {
			p = 1
		}
		configs = append(configs, kafka.TopicConfig{Topic: s.Name, NumPartitions: p, ReplicationFactor: 1})
	}

	if err := ctrl.CreateTopics(configs...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		tc.logger.Warn("CreateTopics failed", zap.Error(err))
	}

	for _, s := range specs {
		tc.awaitPartitions(conn, s.Name)
	}
}

func (tc *TopicCreator) dialAny(ctx context.Context, brokers []string) (KafkaConn, error) {
	err := errors.New("no brokers configured")
	for _, addr := range brokers {
		var conn KafkaConn
		if conn, err = tc.dial(ctx, "tcp", addr); err == nil {
			return conn, nil
		}
	}
	return nil, err
}

func (tc *TopicCreator) awaitPartitions(conn KafkaConn, topic string) {
	for i := 0; i < readyPolls; i++ {
		if parts, err := conn.ReadPartitions(topic); err == nil && len(parts) > 0 {
			tc.logger.Info("Topic ready", zap.String("topic", topic), zap.Int("partitions", len(parts)))
			return
		}
		tc.clock.Sleep(readyInterval)
	}
	tc.logger.Warn("Topic not ready in time", zap.String("topic", topic))
}
