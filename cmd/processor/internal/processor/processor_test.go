package processor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/processor/internal/processor"
	"github.com/shubham-shewale/signal-pairing/cmd/processor/internal/testutils"
	"github.com/shubham-shewale/signal-pairing/pkg/config"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

func toMessages(t *testing.T, reqs []models.SignalRequest) []kafka.Message {
	t.Helper()
	var msgs []kafka.Message
	for _, r := range reqs {
		val, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(r.Symbol), Value: val})
	}
	return msgs
}

func runFor(proc *processor.Processor, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	proc.Run(ctx)
}

func TestProcessor_SubmitsEverySignal(t *testing.T) {
	price := decimal.RequireFromString("101.5")
	reqs := []models.SignalRequest{
		{Symbol: "NIFTY250930C25200", Signal: "Long Entry", Price: price, Quantity: 50},
		{Symbol: "NIFTY250930P25200", Signal: "Short Entry", Price: price, Quantity: 50},
		{Symbol: "BANKNIFTY250930C51000", Signal: "LongExit", Price: price, Quantity: 15},
	}

	sub := &testutils.MockSubmitter{}
	cfg := &config.Config{Processor: config.ProcessorConfig{NumWorkers: 2}}
	proc := processor.NewProcessor(cfg, zap.NewNop(), sub, &testutils.MockKafkaReader{Messages: toMessages(t, reqs)})

	runFor(proc, 300*time.Millisecond)

	got := sub.Snapshot()
	if len(got) != 3 {
		t.Fatalf("Expected 3 submissions, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, r := range got {
		seen[r.Symbol] = true
		if r.Quantity == 0 || r.Price.IsZero() {
			t.Errorf("Request fields lost in transit: %+v", r)
		}
	}
	for _, r := range reqs {
		if !seen[r.Symbol] {
			t.Errorf("Missing submission for %s", r.Symbol)
		}
	}
}

func TestProcessor_PairLegsKeepOrder(t *testing.T) {
	var reqs []models.SignalRequest
	for i := 0; i < 20; i++ {
		sym := "NIFTY250930C25200"
		if i%2 == 1 {
			sym = "NIFTY250930P25200"
		}
		reqs = append(reqs, models.SignalRequest{Symbol: sym, Signal: "Long Entry", Price: decimal.NewFromInt(int64(i)), Quantity: 1})
	}

	sub := &testutils.MockSubmitter{}
	cfg := &config.Config{Processor: config.ProcessorConfig{NumWorkers: 8}}
	proc := processor.NewProcessor(cfg, zap.NewNop(), sub, &testutils.MockKafkaReader{Messages: toMessages(t, reqs)})

	runFor(proc, 300*time.Millisecond)

	got := sub.Snapshot()
	if len(got) != len(reqs) {
		t.Fatalf("Expected %d submissions, got %d", len(reqs), len(got))
	}
	for i := range got {
		if !got[i].Price.Equal(reqs[i].Price) {
			t.Fatalf("Call and put of one strike must share a worker; order broke at %d", i)
		}
	}
}

func TestProcessor_InvalidJSON(t *testing.T) {
	valid := toMessages(t, []models.SignalRequest{
		{Symbol: "NIFTY250930C25200", Signal: "Long Entry", Price: decimal.NewFromInt(1), Quantity: 1},
	})
	msgs := append([]kafka.Message{{Key: []byte("NIFTY250930C25200"), Value: []byte("{broken-json")}}, valid...)

	sub := &testutils.MockSubmitter{}
	proc := processor.NewProcessor(&config.Config{Processor: config.ProcessorConfig{NumWorkers: 1}}, zap.NewNop(), sub, &testutils.MockKafkaReader{Messages: msgs})

	runFor(proc, 200*time.Millisecond)

	if got := sub.Snapshot(); len(got) != 1 {
		t.Errorf("Broken message should be skipped and the next one handled, got %d submissions", len(got))
	}
}

func TestProcessor_RejectedSignalDoesNotStopWorker(t *testing.T) {
	reqs := []models.SignalRequest{
		{Symbol: "NIFTY250930C25200", Signal: "Long Entry", Price: decimal.NewFromInt(1), Quantity: 1},
		{Symbol: "NIFTY250930P25200", Signal: "Short Entry", Price: decimal.NewFromInt(1), Quantity: 1},
	}
	sub := &testutils.MockSubmitter{FailSymbols: map[string]bool{"NIFTY250930C25200": true}}
	proc := processor.NewProcessor(&config.Config{Processor: config.ProcessorConfig{NumWorkers: 1}}, zap.NewNop(), sub, &testutils.MockKafkaReader{Messages: toMessages(t, reqs)})

	runFor(proc, 200*time.Millisecond)

	got := sub.Snapshot()
	if len(got) != 1 || got[0].Symbol != "NIFTY250930P25200" {
		t.Errorf("Expected only the put to be accepted, got %+v", got)
	}
}
