package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/rs/zerolog"
)

type Channel interface {
	Name() string
	Deliver(ctx context.Context, evt domain.OrderEvent) error
}

type Config struct {
	Workers         int
	BufferSize      int
	DeliveryTimeout time.Duration
}

// Dispatcher fans order events out to every channel on a pool of background workers.
// Notify never blocks; events are dropped when the queue is full or the dispatcher has stopped.
type Dispatcher struct {
	channels []Channel
	queue    chan domain.OrderEvent
	cfg      Config
	metrics  *metrics.Metrics
	log      zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(channels []Channel, cfg Config, m *metrics.Metrics, log zerolog.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	return &Dispatcher{
		channels: channels,
		queue:    make(chan domain.OrderEvent, cfg.BufferSize),
		cfg:      cfg,
		metrics:  m,
		log:      log.With().Str("component", "notification_dispatcher").Logger(),
	}
}

func (d *Dispatcher) Notify(evt domain.OrderEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(evt, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- evt:
	default:
		d.drop(evt, "queue full")
	}
}

func (d *Dispatcher) drop(evt domain.OrderEvent, reason string) {
	d.metrics.Notification("queue", "dropped")
	d.log.Warn().
		Str("event_id", evt.ID.String()).
		Str("event_type", string(evt.Type)).
		Str("order_id", evt.Order.ID.String()).
		Str("reason", reason).
		Msg("notification dropped")
}

// Run delivers queued events until ctx is done, then drains whatever is still queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for evt := range d.queue {
				d.deliver(evt)
			}
		}()
	}

	<-ctx.Done()

	d.mu.Lock()
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	wg.Wait()
	d.log.Info().Msg("notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) deliver(evt domain.OrderEvent) {
	for _, ch := range d.channels {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliveryTimeout)
		err := safeDeliver(ctx, ch, evt)
		cancel()

		log := d.log.With().
			Str("channel", ch.Name()).
			Str("event_type", string(evt.Type)).
			Str("order_id", evt.Order.ID.String()).
			Logger()
		if err != nil {
			d.metrics.Notification(ch.Name(), "failure")
			log.Error().Err(err).Msg("notification delivery failed")
			continue
		}
		d.metrics.Notification(ch.Name(), "success")
		log.Debug().Msg("notification delivered")
	}
}

func safeDeliver(ctx context.Context, ch Channel, evt domain.OrderEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel panic: %v", r)
		}
	}()
	return ch.Deliver(ctx, evt)
}
