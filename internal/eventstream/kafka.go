package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const (
	eventInvoiceIssued   = "invoice_issued"
	eventPaymentRecorded = "payment_recorded"
)

// ErrNilProducer is returned when constructing a Kafka publisher without a producer.
var ErrNilProducer = errors.New("eventstream: nil producer")

// KafkaPublisher emits billing events to a Kafka topic. Messages are keyed
// by customer id so all events for one customer land on one partition and
// keep their relative order.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// NewKafkaPublisher wraps an existing producer.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	if producer == nil {
		return nil, ErrNilProducer
	}
	if topic == "" {
		return nil, errors.New("eventstream: empty topic")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}, nil
}

// NewSyncProducer builds a sarama producer with acks from all in-sync
// replicas, suitable for billing events.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("eventstream: create producer: %w", err)
	}
	return producer, nil
}

func (p *KafkaPublisher) PublishInvoiceIssued(ctx context.Context, event InvoiceIssued) error {
	return p.send(ctx, eventInvoiceIssued, event.CustomerID, event)
}

func (p *KafkaPublisher) PublishPaymentRecorded(ctx context.Context, event PaymentRecorded) error {
	return p.send(ctx, eventPaymentRecorded, event.CustomerID, event)
}

func (p *KafkaPublisher) send(ctx context.Context, eventType, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(envelope{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("eventstream: marshal %s: %w", eventType, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("publish failed",
			zap.String("event", eventType),
			zap.String("topic", p.topic),
			zap.Error(err),
		)
		return fmt.Errorf("eventstream: send %s: %w", eventType, err)
	}
	p.logger.Debug("event published",
		zap.String("event", eventType),
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close releases the underlying producer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
