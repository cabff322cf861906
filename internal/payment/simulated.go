package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// simulatedProvider settles every valid charge immediately without calling out to a gateway.
type simulatedProvider struct {
	method      Method
	displayName string
}

func NewStripeProvider() Provider {
	return &simulatedProvider{method: MethodStripe, displayName: "Stripe"}
}

func NewPayPalProvider() Provider {
	return &simulatedProvider{method: MethodPayPal, displayName: "PayPal"}
}

func NewRazorpayProvider() Provider {
	return &simulatedProvider{method: MethodRazorpay, displayName: "Razorpay"}
}

func SimulatedProviders() []Provider {
	return []Provider{NewStripeProvider(), NewPayPalProvider(), NewRazorpayProvider()}
}

func (p *simulatedProvider) Method() Method {
	return p.method
}

func (p *simulatedProvider) Charge(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !req.Amount.IsPositive() {
		return Result{}, ErrInvalidAmount
	}

	paymentID := fmt.Sprintf("%s_%s", p.method, uuid.NewString())
	return Result{
		Success:       true,
		PaymentID:     paymentID,
		TransactionID: paymentID,
		Amount:        decimal.NewNullDecimal(req.Amount),
		Currency:      req.Currency,
		Status:        StatusCompleted,
		Message:       "Payment processed successfully via " + p.displayName,
	}, nil
}
