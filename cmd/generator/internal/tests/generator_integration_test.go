package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/generator/internal/generator"
	"github.com/shubham-shewale/signal-pairing/cmd/generator/internal/testutils"
	"github.com/shubham-shewale/signal-pairing/pkg/clock"
	"github.com/shubham-shewale/signal-pairing/pkg/correlation"
	"github.com/shubham-shewale/signal-pairing/pkg/dispatch"
	"github.com/shubham-shewale/signal-pairing/pkg/engine"
	"github.com/shubham-shewale/signal-pairing/pkg/ledger"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
	pkgtestutils "github.com/shubham-shewale/signal-pairing/pkg/testutils"
)

// Generated traffic replayed into the engine must be accepted and must
// produce pairs when every leg is followed by its counterpart.
func TestGenerator_OutputPairsInEngine(t *testing.T) {
	mockWriter := &testutils.MockKafkaWriter{}
	mockClock := &testutils.MockClock{CurrentTime: time.Now()}

	gen := generator.NewSignalGenerator(zap.NewNop(), mockWriter, generator.Options{
		Underlyings: []string{"NIFTY250930"},
		Strikes:     []int{25200},
		Interval:    100 * time.Millisecond,
		PairRatio:   1,
	}, &testutils.MockRand{ValInt: 0, ValFloat: 0.25}, mockClock)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	gen.Run(ctx)

	mockWriter.Mu.Lock()
	msgs := append(mockWriter.Messages[:0:0], mockWriter.Messages...)
	mockWriter.Mu.Unlock()
	if len(msgs) < 2 {
		t.Fatalf("Expected generated traffic, got %d messages", len(msgs))
	}
	if len(msgs) > 20 {
		msgs = msgs[:20]
	}

	notifier := &pkgtestutils.MockNotifier{}
	orch := engine.NewOrchestrator(
		correlation.NewMemoryStore(clock.Real{}),
		ledger.NewMemoryLedger(nil),
		notifier, zap.NewNop(), clock.Real{}, correlation.DefaultTTL,
	)

	paired := 0
	for _, m := range msgs {
		var req models.SignalRequest
		if err := json.Unmarshal(m.Value, &req); err != nil {
			t.Fatalf("Invalid generated JSON: %v", err)
		}
		res, err := orch.Submit(context.Background(), req)
		if err != nil {
			t.Fatalf("Engine rejected generated signal %+v: %v", req, err)
		}
		if res.Outcome == engine.OutcomePaired {
			paired++
		}
	}
	if paired == 0 {
		t.Error("Expected at least one pair from generated call/put legs")
	}
	if notifier.Count(dispatch.MessageBoth) == 0 {
		t.Error("Expected both-signal dispatches for generated pairs")
	}
}
