package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

var ErrOpen = errors.New("circuit breaker is open")

type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

type Option func(*gobreaker.Settings)

// Exclude makes errors matching fn count as neither success nor failure.
func Exclude(fn func(err error) bool) Option {
	return func(s *gobreaker.Settings) {
		s.IsExcluded = fn
	}
}

func OnStateChange(fn func(name string, from, to State)) Option {
	return func(s *gobreaker.Settings) {
		s.OnStateChange = fn
	}
}

// Breaker opens after failureThreshold consecutive failures and lets a single
// trial call through once openTimeout has elapsed.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

func New(name string, failureThreshold int, openTimeout time.Duration, opts ...Option) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	threshold := uint32(failureThreshold)

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
	}
	for _, opt := range opts {
		opt(&st)
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](st)}
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

func (b *Breaker) State() State {
	return b.cb.State()
}

// Execute runs fn unless the breaker is open. fn's error counts as a failure unless excluded.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}
