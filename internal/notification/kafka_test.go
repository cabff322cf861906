package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/pkg/circuitbreaker"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type fakeWriter struct {
	msgs []kafkaGo.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaChannel_PublishesEvent(t *testing.T) {
	w := &fakeWriter{}
	ch := NewKafkaChannel(w, circuitbreaker.New("kafka", 3, time.Minute))
	evt := testEvent(domain.EventOrderCreated, alice)

	require.NoError(t, ch.Deliver(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, evt.Order.ID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "order.created", string(msg.Headers[0].Value))

	var got domain.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, "35", got.Order.TotalAmount.String())
}

func TestKafkaChannel_BreakerOpensAfterFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("no brokers")}
	breaker := circuitbreaker.New("kafka", 2, time.Minute)
	ch := NewKafkaChannel(w, breaker)
	evt := testEvent(domain.EventOrderCreated, alice)

	assert.ErrorContains(t, ch.Deliver(context.Background(), evt), "no brokers")
	assert.ErrorContains(t, ch.Deliver(context.Background(), evt), "no brokers")
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	w.err = nil
	assert.ErrorIs(t, ch.Deliver(context.Background(), evt), circuitbreaker.ErrOpen)
	assert.Empty(t, w.msgs)
}

func TestKafkaChannel_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	const topic = "order-events"
	writer := NewKafkaWriter(topic, brokers...)
	// topic auto-creation makes the first writes fail, keep the breaker out of the way
	ch := NewKafkaChannel(writer, circuitbreaker.New("kafka", 1000, time.Minute))
	defer ch.Close()

	evt := testEvent(domain.EventOrderStatusChanged, alice)
	require.Eventually(t, func() bool {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return ch.Deliver(writeCtx, evt) == nil
	}, 30*time.Second, time.Second)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "notification-test",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	assert.Equal(t, evt.Order.ID.String(), string(msg.Key))
	var got domain.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, domain.EventOrderStatusChanged, got.Type)
}
