package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodStripe   Method = "stripe"
	MethodPayPal   Method = "paypal"
	MethodRazorpay Method = "razorpay"
)

const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

var ErrInvalidAmount = errors.New("amount must be greater than 0")

// Request carries card and contact fields through to the provider untouched.
type Request struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	OrderID       string          `json:"order_id,omitempty"`
	CardNumber    string          `json:"card_number,omitempty"`
	CardExpiry    string          `json:"card_expiry,omitempty"`
	CardCVV       string          `json:"card_cvv,omitempty"`
	Email         string          `json:"email,omitempty"`
}

// Result of a charge attempt. A failed result never carries ids or an amount.
type Result struct {
	Success       bool                `json:"success"`
	PaymentID     string              `json:"payment_id,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
	Currency      string              `json:"currency,omitempty"`
	Status        string              `json:"status"`
	Message       string              `json:"message"`
}

type Provider interface {
	Method() Method
	Charge(ctx context.Context, req Request) (Result, error)
}

func failed(message string) Result {
	return Result{
		Success: false,
		Status:  StatusFailed,
		Message: message,
	}
}
