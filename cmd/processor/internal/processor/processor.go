package processor

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/pkg/config"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

const submitTimeout = 10 * time.Second

type job struct {
	key string
	req models.SignalRequest
}

// Processor feeds signals from Kafka into the engine. Both legs of an option
// pair share a correlation key and therefore a worker, so they are handled
// in arrival order.
type Processor struct {
	logger     Logger
	reader     KafkaReader
	submitter  Submitter
	numWorkers int
}

func NewProcessor(cfg *config.Config, logger Logger, submitter Submitter, reader KafkaReader) *Processor {
	n := cfg.Processor.NumWorkers
	if n <= 0 {
		n = 1
	}
	return &Processor{
		logger:     logger,
		reader:     reader,
		submitter:  submitter,
		numWorkers: n,
	}
}

func (p *Processor) Run(ctx context.Context) error {
	workerChans := make([]chan job, p.numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < p.numWorkers; i++ {
		workerChans[i] = make(chan job, 100)
		wg.Add(1)
		go p.worker(i, workerChans[i], &wg)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		p.logger.Info("Processor Started", zap.Int("workers", p.numWorkers))
		for {
			m, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
					return
				}
				p.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			var req models.SignalRequest
			if err := json.Unmarshal(m.Value, &req); err != nil {
				p.logger.Error("JSON Unmarshal Error", zap.Error(err), zap.String("key", string(m.Key)))
				continue
			}

			key := shardKey(req.Symbol, m.Key)
			workerID := getWorkerID(key, p.numWorkers)

			// Signals are never dropped; a slow worker backs up the reader.
			select {
			case workerChans[workerID] <- job{key: key, req: req}:
			case <-ctx.Done():
				p.logger.Warn("Shutdown with signal in flight", zap.String("symbol", req.Symbol))
				return
			}
		}
	}()

	<-ctx.Done()
	p.logger.Info("Shutdown signal received, stopping processor...")
	<-readerDone

	for _, ch := range workerChans {
		close(ch)
	}
	p.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

func (p *Processor) worker(id int, jobs <-chan job, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		// Detached from the run context so a queued signal completes during shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		res, err := p.submitter.Submit(ctx, j.req)
		cancel()

		if err != nil {
			p.logger.Error("Signal rejected",
				zap.String("symbol", j.req.Symbol),
				zap.String("signal", j.req.Signal),
				zap.Int("worker_id", id),
				zap.Error(err),
			)
			continue
		}
		p.logger.Debug("Processed",
			zap.String("symbol", j.req.Symbol),
			zap.String("key", res.Key),
			zap.String("outcome", string(res.Outcome)),
			zap.Int("worker_id", id),
		)
	}
}

// shardKey is the correlation key of the symbol, or the message key when
// the symbol does not parse. The engine rejects the latter anyway.
func shardKey(sym string, msgKey []byte) string {
	if id, err := symbol.Parse(sym); err == nil {
		return id.Key()
	}
	if len(msgKey) > 0 {
		return string(msgKey)
	}
	return sym
}

func getWorkerID(key string, numWorkers int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(numWorkers))
}
