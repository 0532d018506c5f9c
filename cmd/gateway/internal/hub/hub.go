// Package hub routes dispatch payloads from the Redis feed to websocket
// clients by option symbol.
package hub

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/repository"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

type clientSet map[ClientInterface]struct{}

type symbolSet map[string]struct{}

// Hub holds the symbol subscriptions of every client. The upstream feed
// channel for a symbol is open exactly while its client set is non-empty.
type Hub struct {
	mu      sync.RWMutex
	watched map[string]clientSet
	byConn  map[ClientInterface]symbolSet

	feed   repository.FeedStore
	valid  func(symbol string) bool
	logger *zap.Logger
}

func NewHub(ctx context.Context, feed repository.FeedStore, valid func(string) bool, logger *zap.Logger) *Hub {
	h := &Hub{
		watched: make(map[string]clientSet),
		byConn:  make(map[ClientInterface]symbolSet),
		feed:    feed,
		valid:   valid,
		logger:  logger,
	}
	go feed.RunPubSub(ctx, h.Broadcast)
	return h
}

// HandleCommand applies a client command and replies with an ack or error.
func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	var resp protocol.WSResponse
	var added []string
	switch req.Action {
	case protocol.ActionSubscribe:
		resp, added = h.subscribe(client, req.Payload.Symbols)
	case protocol.ActionUnsubscribe:
		resp = h.unsubscribe(client, req.Payload.Symbols)
	case protocol.ActionUnsubscribeAll:
		h.dropAll(client)
		resp = ack("Unsubscribed from all symbols")
	default:
		resp = nack("Unknown action: " + req.Action)
	}
	resp.ID = req.ID
	client.SendJSON(resp)

	if len(added) > 0 {
		go h.sendSnapshots(client, added)
	}
}

func (h *Hub) subscribe(client ClientInterface, symbols []string) (protocol.WSResponse, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mine := h.byConn[client]
	var added []string
	for _, sym := range symbols {
		if !h.valid(sym) {
			continue
		}
		if _, dup := mine[sym]; dup {
			continue
		}
		if mine == nil {
			mine = make(symbolSet)
			h.byConn[client] = mine
		}
		mine[sym] = struct{}{}
		h.attach(sym, client)
		added = append(added, sym)
	}

	if len(added) == 0 {
		return nack("No valid/new symbols provided"), nil
	}
	return ack(fmt.Sprintf("Subscribed to %v", added)), added
}

func (h *Hub) unsubscribe(client ClientInterface, symbols []string) protocol.WSResponse {
	h.mu.Lock()
	defer h.mu.Unlock()

	mine := h.byConn[client]
	var removed []string
	for _, sym := range symbols {
		if _, ok := mine[sym]; !ok {
			continue
		}
		delete(mine, sym)
		h.detach(sym, client)
		removed = append(removed, sym)
	}

	if len(removed) == 0 {
		return nack(fmt.Sprintf("Not subscribed to: %v", symbols))
	}
	return ack(fmt.Sprintf("Unsubscribed from %v", removed))
}

func (h *Hub) dropAll(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sym := range h.byConn[client] {
		h.detach(sym, client)
	}
	delete(h.byConn, client)
}

// Unregister forgets the client and closes it.
func (h *Hub) Unregister(client ClientInterface) {
	h.dropAll(client)
	client.Close()
}

// Broadcast forwards a feed payload to the symbol's subscribers.
func (h *Hub) Broadcast(symbol string, payload string) {
	h.mu.RLock()
	targets := make([]ClientInterface, 0, len(h.watched[symbol]))
	for c := range h.watched[symbol] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := []byte(payload)
	for _, c := range targets {
		c.SendBytes(msg)
	}
}

// attach and detach must be called with mu held.
func (h *Hub) attach(sym string, client ClientInterface) {
	set, ok := h.watched[sym]
	if !ok {
		set = make(clientSet)
		h.watched[sym] = set
		if err := h.feed.SubscribeToFeed(context.Background(), sym); err != nil {
			h.logger.Error("Feed subscribe failed", zap.String("symbol", sym), zap.Error(err))
		}
	}
	set[client] = struct{}{}
}

func (h *Hub) detach(sym string, client ClientInterface) {
	set, ok := h.watched[sym]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) > 0 {
		return
	}
	delete(h.watched, sym)
	if err := h.feed.UnsubscribeFromFeed(context.Background(), sym); err != nil {
		h.logger.Error("Feed unsubscribe failed", zap.String("symbol", sym), zap.Error(err))
	}
}

// sendSnapshots replays the last dispatch of each newly watched symbol.
func (h *Hub) sendSnapshots(client ClientInterface, symbols []string) {
	snaps, err := h.feed.GetSnapshots(context.Background(), symbols)
	if err != nil {
		h.logger.Warn("Snapshot lookup failed", zap.Strings("symbols", symbols), zap.Error(err))
		return
	}
	for _, s := range snaps {
		client.SendBytes([]byte(s))
	}
}

func ack(msg string) protocol.WSResponse {
	return protocol.WSResponse{Type: "ack", Status: "success", Message: msg}
}

func nack(msg string) protocol.WSResponse {
	return protocol.WSResponse{Type: "error", Status: "error", Message: msg}
}
