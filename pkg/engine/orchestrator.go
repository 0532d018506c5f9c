// Package engine sequences parsing, holding closure, correlation and
// classification for each incoming trade signal.
//
// A matched pending leg is consumed from the correlation store first, then
// the pair is dispatched, then persisted. The steps are not transactional: a
// persistence failure after a successful dispatch is reported but nothing is
// rolled back, and a consumed leg is never restored.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/pkg/classifier"
	"github.com/shubham-shewale/signal-pairing/pkg/clock"
	"github.com/shubham-shewale/signal-pairing/pkg/correlation"
	"github.com/shubham-shewale/signal-pairing/pkg/dispatch"
	"github.com/shubham-shewale/signal-pairing/pkg/ledger"
	"github.com/shubham-shewale/signal-pairing/pkg/metrics"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

type Outcome string

const (
	// OutcomeStored: no live pending leg, the signal now waits for its counterpart.
	OutcomeStored Outcome = "stored"
	// OutcomePaired: the pending leg was the counterpart and was classified.
	OutcomePaired Outcome = "paired"
	// OutcomeMismatch: a pending leg existed for the key but was not the
	// counterpart. Both legs are dropped from pairing.
	OutcomeMismatch Outcome = "mismatch"
)

type Result struct {
	Key     string
	Outcome Outcome
	Action  classifier.Action
	// ClosedHolding is the id of the holding closed by this signal, 0 if none.
	ClosedHolding uint
	// Expired is set when a pending leg was found but was past its TTL.
	Expired bool
}

type Orchestrator struct {
	store    correlation.Store
	ledger   ledger.Ledger
	notifier dispatch.Notifier
	clock    clock.Clock
	ttl      time.Duration
	logger   *zap.Logger
	locks    *keyLocks
}

func NewOrchestrator(
	store correlation.Store,
	l ledger.Ledger,
	notifier dispatch.Notifier,
	logger *zap.Logger,
	clk clock.Clock,
	ttl time.Duration,
) *Orchestrator {
	if clk == nil {
		clk = clock.Real{}
	}
	if ttl <= 0 {
		ttl = correlation.DefaultTTL
	}
	return &Orchestrator{
		store:    store,
		ledger:   l,
		notifier: notifier,
		clock:    clk,
		ttl:      ttl,
		logger:   logger,
		locks:    newKeyLocks(),
	}
}

// Submit stamps a raw request with the receipt time and handles it.
func (o *Orchestrator) Submit(ctx context.Context, req models.SignalRequest) (Result, error) {
	sig, err := models.NewTradeSignal(req, clock.NowMillis(o.clock))
	if err != nil {
		return Result{}, err
	}
	return o.Handle(ctx, sig)
}

func (o *Orchestrator) Handle(ctx context.Context, sig models.TradeSignal) (Result, error) {
	id, err := symbol.Parse(sig.Symbol)
	if err != nil {
		o.logger.Warn("Rejected signal", zap.String("symbol", sig.Symbol), zap.String("signal", string(sig.Signal)), zap.Error(err))
		return Result{}, err
	}
	metrics.SignalsTotal.WithLabelValues(string(sig.Signal)).Inc()

	res := Result{Key: id.Key()}
	log := o.logger.With(zap.String("symbol", sig.Symbol), zap.String("signal", string(sig.Signal)), zap.String("key", res.Key))
	log.Info("Trading signal", zap.String("price", sig.Price.String()), zap.Int64("timestamp", sig.Timestamp))

	closed, err := o.closeOnReappearance(ctx, log, sig)
	if err != nil {
		return res, err
	}
	res.ClosedHolding = closed

	pending, ok, expired, err := o.claim(ctx, log, res.Key, sig)
	if err != nil {
		return res, err
	}
	res.Expired = expired
	if !ok {
		res.Outcome = OutcomeStored
		metrics.OutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()
		log.Info("Stored pending leg", zap.Duration("ttl", o.ttl))
		return res, nil
	}

	pendingID, err := symbol.Parse(pending.Symbol)
	if err != nil || sig.Symbol != pendingID.Counterpart {
		// the pending leg is already consumed by Take and is not restored
		res.Outcome = OutcomeMismatch
		metrics.OutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()
		log.Warn("Symbol mismatch, not a counterpart", zap.String("pending_symbol", pending.Symbol), zap.String("expected", pendingID.Counterpart))
		return res, nil
	}

	res.Outcome = OutcomePaired
	metrics.OutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()
	res.Action = classifier.Classify(
		classifier.Leg{Type: pendingID.OptionType, Signal: pending.Signal},
		classifier.Leg{Type: id.OptionType, Signal: sig.Signal},
	)
	metrics.PairActionsTotal.WithLabelValues(res.Action.String()).Inc()
	log = log.With(zap.String("action", res.Action.String()), zap.String("pending_symbol", pending.Symbol), zap.String("pending_signal", string(pending.Signal)))

	switch res.Action {
	case classifier.SendBoth:
		if err := o.notify(ctx, log, dispatch.BothPayload(pending, sig)); err != nil {
			return res, err
		}
		if err := o.persist(ctx, log, pending, pendingID.OptionType); err != nil {
			return res, err
		}
		if err := o.persist(ctx, log, sig, id.OptionType); err != nil {
			return res, err
		}
		log.Info("Sent both signals")

	case classifier.SendEntryOnly:
		entry, exit := classifier.SplitEntryExit(pending, sig)
		entryType := id.OptionType
		if entry.Symbol == pending.Symbol {
			entryType = pendingID.OptionType
		}
		if err := o.notify(ctx, log, dispatch.EntryPayload(entry)); err != nil {
			return res, err
		}
		if err := o.persist(ctx, log, entry, entryType); err != nil {
			return res, err
		}
		log.Info("Sent entry signal only", zap.String("entry_symbol", entry.Symbol), zap.String("exit_symbol", exit.Symbol), zap.String("exit_signal", string(exit.Signal)))

	default:
		log.Info("Signal pair does not match any valid combination",
			zap.String("first", pendingID.OptionType.String()+" "+string(pending.Signal)),
			zap.String("second", id.OptionType.String()+" "+string(sig.Signal)))
	}

	return res, nil
}

// claim takes the pending leg for key, or stores sig when there is no live
// one. The key stripe lock makes take-then-put a single step for callers in
// this process; across processes the store's atomic Take still guarantees a
// leg is delivered at most once.
func (o *Orchestrator) claim(ctx context.Context, log *zap.Logger, key string, sig models.TradeSignal) (models.TradeSignal, bool, bool, error) {
	mu := o.locks.forKey(key)
	mu.Lock()
	defer mu.Unlock()

	pending, ok, err := o.store.Take(ctx, key)
	if err != nil {
		log.Error("Correlation take failed", zap.Error(err))
		return models.TradeSignal{}, false, false, err
	}

	expired := false
	if ok && clock.NowMillis(o.clock)-pending.Timestamp > o.ttl.Milliseconds() {
		log.Info("Pending leg expired, discarding", zap.String("pending_symbol", pending.Symbol), zap.Int64("pending_timestamp", pending.Timestamp))
		ok, expired = false, true
	}
	if ok {
		return pending, true, false, nil
	}

	if err := o.store.Put(ctx, key, sig, o.ttl); err != nil {
		log.Error("Correlation put failed", zap.Error(err))
		return models.TradeSignal{}, false, expired, err
	}
	return models.TradeSignal{}, false, expired, nil
}

// closeOnReappearance sends an exit for an open holding on the same symbol
// and marks it Sent. It never touches the correlation store.
func (o *Orchestrator) closeOnReappearance(ctx context.Context, log *zap.Logger, sig models.TradeSignal) (uint, error) {
	h, err := o.ledger.FindOpenHolding(ctx, sig.Symbol)
	if err != nil {
		log.Error("Holding lookup failed", zap.Error(err))
		return 0, err
	}
	if h == nil {
		return 0, nil
	}

	log.Info("Found existing holding", zap.Uint("holding_id", h.ID), zap.String("holding_signal", string(h.Signal)))
	if err := o.notify(ctx, log, dispatch.ExitPayload(sig)); err != nil {
		return 0, err
	}
	if err := o.ledger.CloseHolding(ctx, h.ID); err != nil {
		log.Error("Holding close failed", zap.Uint("holding_id", h.ID), zap.Error(err))
		return 0, err
	}
	metrics.HoldingsClosedTotal.Inc()
	log.Info("Updated existing holding status to Sent", zap.Uint("holding_id", h.ID))
	return h.ID, nil
}

func (o *Orchestrator) notify(ctx context.Context, log *zap.Logger, p dispatch.Payload) error {
	if err := o.notifier.Notify(ctx, p); err != nil {
		metrics.DispatchFailuresTotal.Inc()
		log.Error("Dispatch failed", zap.String("dispatch_id", p.ID), zap.String("message", p.Message), zap.Error(err))
		return err
	}
	log.Debug("Dispatched", zap.String("dispatch_id", p.ID), zap.String("message", p.Message))
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, log *zap.Logger, sig models.TradeSignal, t symbol.OptionType) error {
	h, err := o.ledger.CreateHolding(ctx, sig, t)
	if err != nil {
		log.Error("Storing holding failed", zap.String("trade_symbol", sig.Symbol), zap.Error(err))
		return err
	}
	log.Info("Stored holding", zap.Uint("holding_id", h.ID), zap.String("trade_symbol", h.Symbol), zap.String("type", string(h.Type)))
	return nil
}
