// Package gateway adapts raw gobwas/ws connections to hub clients.
package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/protocol"
)

const (
	maxFrameSize = 64 * 1024
	sendBuffer   = 256

	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var (
	errFrameTooLarge = errors.New("frame too large")
	errFragmented    = errors.New("fragmented frames are not supported")
)

// ClientAdapter owns one feed connection. The read loop turns text frames
// into hub commands; the write loop is the only writer of data frames.
type ClientAdapter struct {
	conn   net.Conn
	hub    *hub.Hub
	logger *zap.Logger

	send   chan []byte
	once   sync.Once
	mu     sync.Mutex
	closed bool

	// wmu orders pong replies against the write loop.
	wmu sync.Mutex
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger) *ClientAdapter {
	return &ClientAdapter{
		conn:   conn,
		hub:    h,
		logger: logger.With(zap.String("remote", conn.RemoteAddr().String())),
		send:   make(chan []byte, sendBuffer),
	}
}

func (c *ClientAdapter) Start() {
	go c.writeLoop()
	go c.readLoop()
}

func (c *ClientAdapter) ID() string { return c.conn.RemoteAddr().String() }

// Close ends the write loop, which closes the connection.
func (c *ClientAdapter) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Encode response failed", zap.Error(err))
		return
	}
	c.SendBytes(b)
}

// SendBytes drops the message when the client is slow or already closed.
func (c *ClientAdapter) SendBytes(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		c.logger.Debug("Send buffer full, dropping message")
	}
}

func (c *ClientAdapter) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		op, payload, err := c.readFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("Read stopped", zap.Error(err))
			}
			return
		}

		switch op {
		case ws.OpClose:
			return
		case ws.OpPong:
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		case ws.OpPing:
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			if err := c.writeFrame(ws.OpPong, payload); err != nil {
				return
			}
		case ws.OpText:
			c.handleText(payload)
		}
	}
}

func (c *ClientAdapter) readFrame() (ws.OpCode, []byte, error) {
	header, err := ws.ReadHeader(c.conn)
	if err != nil {
		return 0, nil, err
	}
	if header.Length > maxFrameSize {
		c.logger.Warn("Frame too large", zap.Int64("size", header.Length))
		return 0, nil, errFrameTooLarge
	}
	if !header.Fin {
		return 0, nil, errFragmented
	}

	payload := make([]byte, header.Length)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return 0, nil, err
	}
	if header.Masked {
		ws.Cipher(payload, header.Mask, 0)
	}
	return header.OpCode, payload, nil
}

func (c *ClientAdapter) handleText(payload []byte) {
	var req protocol.WSRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendJSON(protocol.WSResponse{Type: "error", Status: "error", Message: "Invalid JSON"})
		return
	}
	for i, s := range req.Payload.Symbols {
		req.Payload.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	c.hub.HandleCommand(c, req)
}

func (c *ClientAdapter) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.Write(ws.CompiledClose)
				return
			}
			if err := c.writeFrame(ws.OpText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writeFrame(ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}

func (c *ClientAdapter) writeFrame(op ws.OpCode, p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return wsutil.WriteServerMessage(c.conn, op, p)
}
