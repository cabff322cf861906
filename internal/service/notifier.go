package service

import "github.com/fjod/go_shop/internal/domain"

// Notifier accepts committed order events. Implementations must not block the caller.
type Notifier interface {
	Notify(evt domain.OrderEvent)
}

type NopNotifier struct{}

func (NopNotifier) Notify(domain.OrderEvent) {}
