package generator

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

var signalKinds = []models.SignalKind{models.LongEntry, models.LongExit, models.ShortEntry, models.ShortExit}

// pairingReplies lists, per entry signal, the counterpart signals that pair
// with it: the opposite entry, then the matching exit.
var pairingReplies = map[models.SignalKind][]models.SignalKind{
	models.LongEntry:  {models.ShortEntry, models.LongExit},
	models.ShortEntry: {models.LongEntry, models.ShortExit},
}

// Options shape the synthetic option chain.
type Options struct {
	Underlyings []string
	Strikes     []int
	Interval    time.Duration
	// PairRatio is the probability that a leg is followed by its counterpart.
	PairRatio float64
}

// SignalGenerator publishes random call/put legs keyed by symbol. Some legs
// are followed by their counterpart well inside the correlation window so
// the engine sees both pairs and orphans.
type SignalGenerator struct {
	logger *zap.Logger
	writer KafkaWriter
	opts   Options
	rand   Rand
	clock  Clock
}

func NewSignalGenerator(logger *zap.Logger, writer KafkaWriter, opts Options, rnd Rand, clock Clock) *SignalGenerator {
	if opts.Interval <= 0 {
		opts.Interval = 250 * time.Millisecond
	}
	return &SignalGenerator{
		logger: logger,
		writer: writer,
		opts:   opts,
		rand:   rnd,
		clock:  clock,
	}
}

func (sg *SignalGenerator) Run(ctx context.Context) {
	sg.logger.Info("Generator Started",
		zap.Strings("underlyings", sg.opts.Underlyings),
		zap.Ints("strikes", sg.opts.Strikes),
		zap.Float64("pair_ratio", sg.opts.PairRatio),
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if len(sg.opts.Underlyings) == 0 || len(sg.opts.Strikes) == 0 {
				sg.clock.Sleep(1 * time.Second)
				continue
			}

			leg := sg.nextLeg()
			sg.publish(ctx, leg)

			if sg.rand.Float64() < sg.opts.PairRatio {
				sg.clock.Sleep(sg.opts.Interval / 2)
				sg.publish(ctx, sg.counterpart(leg))
			}

			sg.clock.Sleep(sg.opts.Interval)
		}
	}
}

func (sg *SignalGenerator) nextLeg() models.SignalRequest {
	underlying := sg.opts.Underlyings[sg.rand.Intn(len(sg.opts.Underlyings))]
	strike := sg.opts.Strikes[sg.rand.Intn(len(sg.opts.Strikes))]
	t := symbol.Call
	if sg.rand.Intn(2) == 1 {
		t = symbol.Put
	}

	return models.SignalRequest{
		Symbol:   underlying + string(t) + strconv.Itoa(strike),
		Signal:   string(signalKinds[sg.rand.Intn(len(signalKinds))]),
		Price:    sg.price(),
		Quantity: int64(sg.rand.Intn(4)+1) * 25,
	}
}

// counterpart mirrors leg onto the opposite option type of the same strike.
// Entry legs get a reply that pairs; exit legs get a random one.
func (sg *SignalGenerator) counterpart(leg models.SignalRequest) models.SignalRequest {
	id, err := symbol.Parse(leg.Symbol)
	if err != nil {
		return leg
	}
	choices := signalKinds
	if replies, ok := pairingReplies[models.SignalKind(leg.Signal)]; ok {
		choices = replies
	}
	return models.SignalRequest{
		Symbol:   id.Counterpart,
		Signal:   string(choices[sg.rand.Intn(len(choices))]),
		Price:    sg.price(),
		Quantity: leg.Quantity,
	}
}

// price is a premium between 50.00 and 250.00.
func (sg *SignalGenerator) price() decimal.Decimal {
	return decimal.NewFromFloat(50 + sg.rand.Float64()*200).Round(2)
}

func (sg *SignalGenerator) publish(ctx context.Context, req models.SignalRequest) {
	payload, err := json.Marshal(req)
	if err != nil {
		sg.logger.Error("JSON Marshal Error", zap.Error(err))
		return
	}

	err = sg.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(partitionKey(req.Symbol)),
		Value: payload,
	})
	if err != nil {
		sg.logger.Error("Kafka Write Error", zap.Error(err), zap.String("symbol", req.Symbol))
		return
	}
	sg.logger.Debug("Sent signal", zap.String("symbol", req.Symbol), zap.String("signal", req.Signal))
}

// partitionKey puts both legs of a strike on one partition, so a single
// processor instance sees the call and the put in order.
func partitionKey(sym string) string {
	id, err := symbol.Parse(sym)
	if err != nil {
		return sym
	}
	return id.Key()
}
