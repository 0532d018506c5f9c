// Package api serves the signal intake and ledger query endpoints.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/protocol"
	"github.com/shubham-shewale/signal-pairing/pkg/engine"
	"github.com/shubham-shewale/signal-pairing/pkg/ledger"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
)

const (
	maxBodySize   = 64 * 1024
	submitTimeout = 10 * time.Second
)

type Submitter interface {
	Submit(ctx context.Context, req models.SignalRequest) (engine.Result, error)
}

type HoldingReader interface {
	ListOpen(ctx context.Context) ([]ledger.Holding, error)
	ListHistory(ctx context.Context) ([]ledger.Holding, error)
}

type Handler struct {
	submitter Submitter
	holdings  HoldingReader
	logger    *zap.Logger
}

func NewHandler(s Submitter, h HoldingReader, logger *zap.Logger) *Handler {
	return &Handler{submitter: s, holdings: h, logger: logger}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Health)
	mux.HandleFunc("POST /trading", h.Trading)
	mux.HandleFunc("GET /holdings", h.Holdings)
	mux.HandleFunc("GET /trades", h.Trades)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Hello World")
}

// Trading runs one signal through the engine. Every failure, including a
// malformed body, is reported as 500.
func (h *Handler) Trading(w http.ResponseWriter, r *http.Request) {
	var req models.SignalRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("Undecodable trading request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, protocol.StatusResponse{Status: "error", Message: "invalid request body: " + err.Error()})
		return
	}

	// A client disconnect must not abort a pairing once the pending leg is taken.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), submitTimeout)
	defer cancel()

	res, err := h.submitter.Submit(ctx, req)
	if err != nil {
		h.logger.Error("Signal handling failed",
			zap.String("symbol", req.Symbol),
			zap.String("signal", req.Signal),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, protocol.StatusResponse{Status: "error", Message: err.Error()})
		return
	}

	h.logger.Debug("Signal handled",
		zap.String("symbol", req.Symbol),
		zap.String("key", res.Key),
		zap.String("outcome", string(res.Outcome)),
	)
	writeJSON(w, http.StatusOK, protocol.StatusResponse{Status: "ok"})
}

func (h *Handler) Holdings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.holdings.ListOpen(r.Context())
	if err != nil {
		h.logger.Error("List holdings failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]ledger.Holding{"holdings": nonNil(rows)})
}

func (h *Handler) Trades(w http.ResponseWriter, r *http.Request) {
	rows, err := h.holdings.ListHistory(r.Context())
	if err != nil {
		h.logger.Error("List trades failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]ledger.Holding{"trades": nonNil(rows)})
}

func nonNil(rows []ledger.Holding) []ledger.Holding {
	if rows == nil {
		return []ledger.Holding{}
	}
	return rows
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
