package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

var _ Notifier = (*KafkaNotifier)(nil)

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier appends every dispatch to a journal topic, keyed by the
// first symbol so a contract's dispatches stay ordered within a partition.
type KafkaNotifier struct {
	writer KafkaWriter
}

func NewKafkaNotifier(writer KafkaWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer}
}

func (k *KafkaNotifier) Notify(ctx context.Context, p Payload) error {
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrDispatch, err)
	}

	var key []byte
	if syms := p.Symbols(); len(syms) > 0 {
		key = []byte(syms[0])
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("%w: kafka journal: %v", ErrDispatch, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error { return k.writer.Close() }
