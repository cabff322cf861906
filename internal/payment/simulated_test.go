package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedProvider_Charge(t *testing.T) {
	p := NewRazorpayProvider()
	assert.Equal(t, MethodRazorpay, p.Method())

	res, err := p.Charge(context.Background(), Request{Amount: decimal.RequireFromString("12.34"), Currency: "INR"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.PaymentID, "razorpay_"))
	assert.Equal(t, "12.34", res.Amount.Decimal.String())
	assert.Equal(t, "INR", res.Currency)
}

func TestSimulatedProvider_UniqueIDs(t *testing.T) {
	p := NewStripeProvider()
	req := Request{Amount: decimal.NewFromInt(1)}

	a, err := p.Charge(context.Background(), req)
	require.NoError(t, err)
	b, err := p.Charge(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a.PaymentID, b.PaymentID)
}

func TestSimulatedProvider_Rejects(t *testing.T) {
	p := NewPayPalProvider()

	_, err := p.Charge(context.Background(), Request{Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Charge(ctx, Request{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, context.Canceled)
}
