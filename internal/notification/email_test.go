package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	sent []Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Email) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func TestEmailChannel_OrderCreated(t *testing.T) {
	mailer := &fakeMailer{}
	ch := NewEmailChannel(mailer, "orders@shop.test", "Go Shop", "https://shop.test/track")
	evt := testEvent(domain.EventOrderCreated, alice)

	require.NoError(t, ch.Deliver(context.Background(), evt))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "orders@shop.test", msg.From)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Order Confirmation - Order #"+evt.Order.ID.String(), msg.Subject)
	assert.Contains(t, msg.HTMLBody, "Dear Alice,")
	assert.Contains(t, msg.HTMLBody, "Wireless Mouse")
	assert.Contains(t, msg.HTMLBody, "$35.00 USD")
	assert.Contains(t, msg.HTMLBody, "2025-03-14 09:30 UTC")
}

func TestEmailChannel_StatusChanged(t *testing.T) {
	mailer := &fakeMailer{}
	ch := NewEmailChannel(mailer, "orders@shop.test", "Go Shop", "https://shop.test/track")
	evt := testEvent(domain.EventOrderStatusChanged, alice)
	evt.Order.AttachPayment("stripe_abc", testNow)

	require.NoError(t, ch.Deliver(context.Background(), evt))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "Order Status Update - Order #"+evt.Order.ID.String(), msg.Subject)
	assert.Contains(t, msg.HTMLBody, "<strong>CONFIRMED</strong>")
	assert.Contains(t, msg.HTMLBody, "stripe_abc")
	assert.Contains(t, msg.HTMLBody, `href="https://shop.test/track"`)
}

func TestEmailChannel_EscapesUserInput(t *testing.T) {
	mailer := &fakeMailer{}
	ch := NewEmailChannel(mailer, "orders@shop.test", "Go Shop", "")
	user := alice
	user.Name = "<script>alert(1)</script>"

	require.NoError(t, ch.Deliver(context.Background(), testEvent(domain.EventOrderCreated, user)))

	require.Len(t, mailer.sent, 1)
	assert.NotContains(t, mailer.sent[0].HTMLBody, "<script>")
}

func TestEmailChannel_SkipsUserWithoutEmail(t *testing.T) {
	mailer := &fakeMailer{}
	ch := NewEmailChannel(mailer, "orders@shop.test", "Go Shop", "")
	user := alice
	user.Email = ""

	require.NoError(t, ch.Deliver(context.Background(), testEvent(domain.EventOrderCreated, user)))
	assert.Empty(t, mailer.sent)
}

func TestEmailChannel_MailerError(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp unavailable")}
	ch := NewEmailChannel(mailer, "orders@shop.test", "Go Shop", "")

	err := ch.Deliver(context.Background(), testEvent(domain.EventOrderCreated, alice))
	assert.ErrorContains(t, err, "smtp unavailable")
}

func TestEmailChannel_UnknownEventType(t *testing.T) {
	ch := NewEmailChannel(&fakeMailer{}, "orders@shop.test", "Go Shop", "")

	err := ch.Deliver(context.Background(), testEvent("order.refunded", alice))
	assert.Error(t, err)
}
