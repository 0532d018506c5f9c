package hub_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/testutils"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

func validSymbol(s string) bool {
	_, err := symbol.Parse(s)
	return err == nil
}

func setup(t *testing.T) (*hub.Hub, *testutils.MockFeedStore) {
	store := testutils.NewMockFeedStore()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return hub.NewHub(ctx, store, validSymbol, zap.NewNop()), store
}

func subscribe(symbols ...string) protocol.WSRequest {
	return protocol.WSRequest{Action: protocol.ActionSubscribe, Payload: protocol.RequestPayload{Symbols: symbols}}
}

func TestHub_Subscribe_Success(t *testing.T) {
	h, store := setup(t)
	client := testutils.NewMockClient("c1")

	req := subscribe("NIFTY250930P25200")
	req.ID = "req-1"
	h.HandleCommand(client, req)

	last := client.LastMsg()
	if last.Type != "ack" || last.ID != "req-1" {
		t.Errorf("Expected ack for req-1, got %+v", last)
	}
	if store.Subscribed("NIFTY250930P25200") != 1 {
		t.Errorf("Expected feed subscription to NIFTY250930P25200")
	}
}

func TestHub_Subscribe_MixedValidity(t *testing.T) {
	h, _ := setup(t)
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, subscribe("NIFTY250930C25000", "NIFTY"))

	last := client.LastMsg()
	if last.Status != "success" {
		t.Errorf("Expected success for partially valid subscription")
	}
	if last.Message != "Subscribed to [NIFTY250930C25000]" {
		t.Errorf("Response should list only the accepted symbol, got %q", last.Message)
	}
}

func TestHub_Subscribe_AllInvalid(t *testing.T) {
	h, store := setup(t)
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, subscribe("AAPL", "C25000"))

	if client.LastMsg().Type != "error" {
		t.Errorf("Expected error when no symbol parses")
	}
	if len(store.SubscribedChannels) != 0 {
		t.Errorf("No feed subscription expected")
	}
}

func TestHub_Subscribe_Idempotency(t *testing.T) {
	h, store := setup(t)
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, subscribe("BANKNIFTY250930C51000"))
	h.HandleCommand(client, subscribe("BANKNIFTY250930C51000"))

	if store.Subscribed("BANKNIFTY250930C51000") != 1 {
		t.Errorf("Feed should only be subscribed once per unique symbol")
	}
	if client.LastMsg().Type != "error" {
		t.Errorf("Repeated subscription should be rejected as not new")
	}
}

func TestHub_Subscribe_SendsSnapshot(t *testing.T) {
	h, store := setup(t)
	store.Snapshots["NIFTY250930C25200"] = `{"message":"Sending Both Signals"}`
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, subscribe("NIFTY250930C25200", "NIFTY250930P25200"))

	deadline := time.Now().Add(time.Second)
	for len(client.Raw()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	raw := client.Raw()
	if len(raw) != 1 || !strings.Contains(raw[0], "Sending Both Signals") {
		t.Errorf("Expected one snapshot, got %v", raw)
	}
}

func TestHub_Broadcast_OnlySubscribers(t *testing.T) {
	h, _ := setup(t)
	call := testutils.NewMockClient("call")
	put := testutils.NewMockClient("put")

	h.HandleCommand(call, subscribe("NIFTY250930C25200"))
	h.HandleCommand(put, subscribe("NIFTY250930P25200"))

	h.Broadcast("NIFTY250930C25200", `{"message":"Sending Entry Signal only"}`)

	if len(call.Raw()) != 1 {
		t.Errorf("Call subscriber should receive the payload")
	}
	if len(put.Raw()) != 0 {
		t.Errorf("Put subscriber should not receive the call payload")
	}
}

func TestHub_Unsubscribe_Logic(t *testing.T) {
	h, store := setup(t)
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, subscribe("NIFTY250930C25200", "NIFTY250930P25200"))
	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionUnsubscribe, Payload: protocol.RequestPayload{Symbols: []string{"NIFTY250930C25200"}},
	})

	if store.Subscribed("NIFTY250930C25200") != 0 {
		t.Errorf("Feed should be unsubscribed from the call")
	}
	if store.Subscribed("NIFTY250930P25200") != 1 {
		t.Errorf("Feed should still be subscribed to the put")
	}
}

func TestHub_SharedSubscription_RefCount(t *testing.T) {
	h, store := setup(t)
	a := testutils.NewMockClient("a")
	b := testutils.NewMockClient("b")

	h.HandleCommand(a, subscribe("NIFTY250930C25200"))
	h.HandleCommand(b, subscribe("NIFTY250930C25200"))
	h.Unregister(a)

	if store.Subscribed("NIFTY250930C25200") != 1 {
		t.Errorf("Feed subscription must survive while a client still holds it")
	}
	if !a.Closed {
		t.Errorf("Unregister should close the client")
	}

	h.Unregister(b)
	if store.Subscribed("NIFTY250930C25200") != 0 {
		t.Errorf("Last client gone, feed should be released")
	}
}

func TestHub_Unsubscribe_NotSubscribed(t *testing.T) {
	h, _ := setup(t)
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionUnsubscribe, Payload: protocol.RequestPayload{Symbols: []string{"NIFTY250930C25200"}},
		ID: "err-check",
	})

	if client.LastMsg().Type != "error" {
		t.Errorf("Expected error response for unsubscribing an unwatched symbol")
	}
}

func TestHub_UnsubscribeAll(t *testing.T) {
	h, store := setup(t)
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, subscribe("NIFTY250930C25200", "NIFTY250930P25200"))
	h.HandleCommand(client, protocol.WSRequest{Action: protocol.ActionUnsubscribeAll})

	if len(store.SubscribedChannels) != 0 {
		t.Errorf("Store should be empty after unsubscribe_all")
	}
}

func TestHub_UnknownAction(t *testing.T) {
	h, _ := setup(t)
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, protocol.WSRequest{Action: "trade"})

	if !strings.Contains(client.LastMsg().Message, "Unknown action") {
		t.Errorf("Expected unknown action error, got %+v", client.LastMsg())
	}
}

func TestHub_ConcurrentCommands(t *testing.T) {
	// Run with `go test -race ./...`
	h, _ := setup(t)
	client := testutils.NewMockClient("c1")

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		h.HandleCommand(client, subscribe("NIFTY250930C25200"))
	}()
	go func() {
		defer wg.Done()
		h.HandleCommand(client, protocol.WSRequest{Action: protocol.ActionUnsubscribe, Payload: protocol.RequestPayload{Symbols: []string{"NIFTY250930C25200"}}})
	}()
	go func() {
		defer wg.Done()
		h.Unregister(client)
	}()
	wg.Wait()
}
