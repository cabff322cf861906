package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
)

// OrderEvent is handed to the notification sink after an order state change has been committed.
type OrderEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	User       User      `json:"user"`
	Order      Order     `json:"order"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewOrderEvent(t EventType, user User, order *Order, now time.Time) OrderEvent {
	return OrderEvent{
		ID:         uuid.New(),
		Type:       t,
		User:       user,
		Order:      *order.Clone(),
		OccurredAt: now,
	}
}
