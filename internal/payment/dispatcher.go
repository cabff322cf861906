package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/pkg/circuitbreaker"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/rs/zerolog"
)

type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

var DefaultBreakerConfig = BreakerConfig{FailureThreshold: 5, OpenTimeout: 30 * time.Second}

// Dispatcher routes payment requests to providers. It never returns an error: every failure,
// including provider panics and open breakers, comes back as an unsuccessful Result.
type Dispatcher struct {
	providers map[Method]Provider
	breakers  map[Method]*circuitbreaker.Breaker
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewDispatcher(providers []Provider, cfg BreakerConfig, m *metrics.Metrics, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		providers: make(map[Method]Provider, len(providers)),
		breakers:  make(map[Method]*circuitbreaker.Breaker, len(providers)),
		metrics:   m,
		log:       log.With().Str("component", "payment_dispatcher").Logger(),
	}
	for _, p := range providers {
		d.providers[p.Method()] = p
		d.breakers[p.Method()] = circuitbreaker.New("payment-"+string(p.Method()), cfg.FailureThreshold, cfg.OpenTimeout,
			// A rejected amount is the caller's fault and neither trips nor heals the breaker.
			circuitbreaker.Exclude(func(err error) bool { return errors.Is(err, ErrInvalidAmount) }),
			circuitbreaker.OnStateChange(d.logStateChange),
		)
	}
	return d
}

// Dispatch selects the provider by the request's payment method, ignoring letter case.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	method := Method(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	if _, ok := d.providers[method]; !ok {
		d.metrics.Payment("unsupported", "failure")
		logger.FromContext(ctx, d.log).Warn().Str("method", req.PaymentMethod).Msg("unsupported payment method")
		return failed("unsupported payment method: " + req.PaymentMethod)
	}
	return d.dispatchTo(ctx, method, req)
}

func (d *Dispatcher) DispatchStripe(ctx context.Context, req Request) Result {
	return d.dispatchTo(ctx, MethodStripe, req)
}

func (d *Dispatcher) DispatchPaypal(ctx context.Context, req Request) Result {
	return d.dispatchTo(ctx, MethodPayPal, req)
}

func (d *Dispatcher) DispatchRazorpay(ctx context.Context, req Request) Result {
	return d.dispatchTo(ctx, MethodRazorpay, req)
}

func (d *Dispatcher) dispatchTo(ctx context.Context, method Method, req Request) Result {
	provider, ok := d.providers[method]
	if !ok {
		d.metrics.Payment("unsupported", "failure")
		return failed("unsupported payment method: " + string(method))
	}
	if req.Currency == "" {
		req.Currency = domain.DefaultCurrency
	}

	log := logger.FromContext(ctx, d.log).With().
		Str("method", string(method)).
		Str("order_id", req.OrderID).
		Logger()
	log.Info().Str("amount", req.Amount.String()).Str("currency", req.Currency).Msg("processing payment")

	var (
		result    Result
		chargeErr error
	)
	err := d.breakers[method].Execute(func() error {
		result, chargeErr = safeCharge(ctx, provider, req)
		return chargeErr
	})
	if err == nil && !result.Success {
		reason := strings.TrimPrefix(result.Message, "payment failed: ")
		if reason == "" {
			reason = "declined by provider"
		}
		err = errors.New(reason)
	}
	if err != nil {
		d.metrics.Payment(string(method), "failure")
		log.Error().Err(err).Msg("payment failed")
		return failed(fmt.Sprintf("payment failed: %v", err))
	}

	d.metrics.Payment(string(method), "success")
	log.Info().Str("payment_id", result.PaymentID).Msg("payment completed")
	return result
}

func (d *Dispatcher) logStateChange(name string, from, to circuitbreaker.State) {
	d.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("payment circuit breaker state changed")
}

func safeCharge(ctx context.Context, p Provider, req Request) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return p.Charge(ctx, req)
}
