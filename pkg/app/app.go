// Package app wires the engine's collaborators from configuration. Both the
// HTTP gateway and the Kafka processor start the engine through here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/pkg/clock"
	"github.com/shubham-shewale/signal-pairing/pkg/config"
	"github.com/shubham-shewale/signal-pairing/pkg/correlation"
	"github.com/shubham-shewale/signal-pairing/pkg/dispatch"
	"github.com/shubham-shewale/signal-pairing/pkg/engine"
	"github.com/shubham-shewale/signal-pairing/pkg/ledger"
)

type Engine struct {
	Orchestrator *engine.Orchestrator
	Ledger       ledger.Ledger
	Redis        *redis.Client

	closers []func() error
	logger  *zap.Logger
}

// Build connects Redis, the ledger and the notifiers selected by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	e := &Engine{logger: logger}

	e.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	e.closers = append(e.closers, e.Redis.Close)
	if err := e.Redis.Ping(ctx).Err(); err != nil {
		e.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}

	var store correlation.Store
	switch cfg.Correlation.Driver {
	case config.DriverMemory:
		store = correlation.NewMemoryStore(clock.Real{})
	default:
		store = correlation.NewRedisStore(e.Redis, cfg.Correlation.KeyPrefix)
	}

	switch cfg.Ledger.Driver {
	case config.DriverMemory:
		e.Ledger = ledger.NewMemoryLedger(clock.Real{})
	default:
		gl, err := ledger.OpenPostgres(ledger.Option{
			Host:       cfg.Ledger.Host,
			Port:       cfg.Ledger.Port,
			User:       cfg.Ledger.User,
			Password:   cfg.Ledger.Password,
			Database:   cfg.Ledger.Database,
			SSLMode:    cfg.Ledger.SSLMode,
			ConnString: cfg.Ledger.DSN,
		})
		if err != nil {
			e.Close()
			return nil, err
		}
		e.Ledger = gl
		e.closers = append(e.closers, gl.Close)
	}

	mirrors := []dispatch.Notifier{dispatch.NewRedisNotifier(e.Redis)}
	if cfg.Kafka.DispatchTopic != "" {
		journal := dispatch.NewKafkaNotifier(&kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.DispatchTopic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		})
		mirrors = append(mirrors, journal)
		e.closers = append(e.closers, journal.Close)
	}
	notifier := dispatch.NewFanout(logger,
		dispatch.NewWebhookNotifier(cfg.Dispatch.WebhookURL, cfg.Dispatch.Timeout()),
		mirrors...,
	)

	e.Orchestrator = engine.NewOrchestrator(store, e.Ledger, notifier, logger, clock.Real{}, cfg.Correlation.TTL())

	logger.Info("Engine ready",
		zap.String("correlation", cfg.Correlation.Driver),
		zap.String("ledger", cfg.Ledger.Driver),
		zap.Duration("ttl", cfg.Correlation.TTL()),
		zap.String("webhook", cfg.Dispatch.WebhookURL),
		zap.String("dispatch_topic", cfg.Kafka.DispatchTopic),
	)
	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Error("Close failed", zap.Error(err))
		}
	}
	e.closers = nil
}
