package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the channel needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}
}

// KafkaChannel publishes events keyed by order id so one order's events stay on one partition.
type KafkaChannel struct {
	writer  MessageWriter
	breaker *circuitbreaker.Breaker
}

func NewKafkaChannel(writer MessageWriter, breaker *circuitbreaker.Breaker) *KafkaChannel {
	return &KafkaChannel{writer: writer, breaker: breaker}
}

func (c *KafkaChannel) Name() string { return "kafka" }

func (c *KafkaChannel) Deliver(ctx context.Context, evt domain.OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.Order.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "event_id", Value: []byte(evt.ID.String())},
		},
		Time: evt.OccurredAt,
	}

	return c.breaker.Execute(func() error {
		if err := c.writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("publish to kafka: %w", err)
		}
		return nil
	})
}

func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}
