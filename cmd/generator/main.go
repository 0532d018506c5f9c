package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/generator/internal/generator"
	"github.com/shubham-shewale/signal-pairing/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	clock := generator.SleepingClock{}
	specs := []generator.TopicSpec{{Name: cfg.Kafka.Topic, Partitions: cfg.Processor.NumWorkers}}
	if cfg.Kafka.DispatchTopic != "" {
		specs = append(specs, generator.TopicSpec{Name: cfg.Kafka.DispatchTopic, Partitions: 1})
	}
	setupCtx, setupDone := context.WithTimeout(context.Background(), 30*time.Second)
	generator.NewTopicCreator(logger, generator.KafkaDial, clock).Ensure(setupCtx, cfg.Kafka.Brokers, specs...)
	setupDone()

	writer := &kafka.Writer{
		Addr:  kafka.TCP(cfg.Kafka.Brokers...),
		Topic: cfg.Kafka.Topic,
		// Hash keeps every signal for one symbol on one partition
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	gen := generator.NewSignalGenerator(logger, writer, generator.Options{
		Underlyings: cfg.Generator.Underlyings,
		Strikes:     cfg.Generator.Strikes,
		Interval:    time.Duration(cfg.Generator.IntervalMs) * time.Millisecond,
		PairRatio:   cfg.Generator.PairRatio,
	}, rand.New(rand.NewSource(time.Now().UnixNano())), clock)

	done := make(chan struct{})
	go func() {
		gen.Run(ctx)
		close(done)
	}()

	<-sigChan
	logger.Info("Shutdown signal received")
	cancel()
	<-done

	// Flush buffered async writes
	if err := writer.Close(); err != nil {
		logger.Error("Error closing Kafka writer", zap.Error(err))
	} else {
		logger.Info("Kafka writer closed cleanly")
	}
}
