package notification

import (
	"context"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/rs/zerolog"
)

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// LogSMSSender writes text messages to the log instead of an SMS gateway.
type LogSMSSender struct {
	Log zerolog.Logger
}

func (s LogSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.Log.Info().Str("to", to).Str("body", body).Msg("sms sent")
	return nil
}

type SMSChannel struct {
	sender      SMSSender
	shopName    string
	trackingURL string
	log         zerolog.Logger
}

func NewSMSChannel(sender SMSSender, shopName, trackingURL string, log zerolog.Logger) *SMSChannel {
	return &SMSChannel{sender: sender, shopName: shopName, trackingURL: trackingURL, log: log}
}

func (c *SMSChannel) Name() string { return "sms" }

// Deliver skips users without a phone number.
func (c *SMSChannel) Deliver(ctx context.Context, evt domain.OrderEvent) error {
	if evt.User.Phone == "" {
		c.log.Debug().Int64("user_id", evt.User.ID).Msg("user has no phone number, sms skipped")
		return nil
	}

	body, err := c.text(evt)
	if err != nil {
		return err
	}
	return c.sender.SendSMS(ctx, evt.User.Phone, body)
}

func (c *SMSChannel) text(evt domain.OrderEvent) (string, error) {
	switch evt.Type {
	case domain.EventOrderCreated:
		return fmt.Sprintf("Order Confirmed! Order #%s - Total: $%s. Thank you for shopping with %s!",
			evt.Order.ID, evt.Order.TotalAmount.StringFixed(2), c.shopName), nil
	case domain.EventOrderStatusChanged:
		return fmt.Sprintf("Order #%s status updated to: %s. Track your order at %s",
			evt.Order.ID, evt.Order.Status, c.trackingURL), nil
	default:
		return "", fmt.Errorf("no sms text for event type %q", evt.Type)
	}
}
