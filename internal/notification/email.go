package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Email struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// LogMailer writes emails to the log instead of an SMTP server.
type LogMailer struct {
	Log zerolog.Logger
}

func (m LogMailer) Send(_ context.Context, msg Email) error {
	m.Log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.HTMLBody)).
		Msg("email sent")
	return nil
}

type EmailChannel struct {
	mailer      Mailer
	from        string
	shopName    string
	trackingURL string
}

func NewEmailChannel(mailer Mailer, from, shopName, trackingURL string) *EmailChannel {
	return &EmailChannel{mailer: mailer, from: from, shopName: shopName, trackingURL: trackingURL}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, evt domain.OrderEvent) error {
	if evt.User.Email == "" {
		return nil
	}

	var (
		name    string
		subject string
	)
	switch evt.Type {
	case domain.EventOrderCreated:
		name, subject = "order_created.html", "Order Confirmation - Order #"+evt.Order.ID.String()
	case domain.EventOrderStatusChanged:
		name, subject = "order_status.html", "Order Status Update - Order #"+evt.Order.ID.String()
	default:
		return fmt.Errorf("no email template for event type %q", evt.Type)
	}

	body, err := c.render(name, evt)
	if err != nil {
		return err
	}

	return c.mailer.Send(ctx, Email{
		From:     c.from,
		To:       evt.User.Email,
		Subject:  subject,
		HTMLBody: body,
	})
}

func (c *EmailChannel) render(name string, evt domain.OrderEvent) (string, error) {
	data := struct {
		User        domain.User
		Order       domain.Order
		ShopName    string
		TrackingURL string
	}{evt.User, evt.Order, c.shopName, c.trackingURL}

	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
