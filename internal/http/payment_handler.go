package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_shop/internal/payment"
)

type PaymentDispatcher interface {
	Dispatch(ctx context.Context, req payment.Request) payment.Result
	DispatchStripe(ctx context.Context, req payment.Request) payment.Result
	DispatchPaypal(ctx context.Context, req payment.Request) payment.Result
	DispatchRazorpay(ctx context.Context, req payment.Request) payment.Result
}

// PaymentHandler always answers 200; the outcome is carried in the result body.
type PaymentHandler struct {
	payments PaymentDispatcher
}

func NewPaymentHandler(payments PaymentDispatcher) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// POST /api/v1/payments/process
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.payments.Dispatch)
}

// POST /api/v1/payments/stripe
func (h *PaymentHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.payments.DispatchStripe)
}

// POST /api/v1/payments/paypal
func (h *PaymentHandler) PayPal(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.payments.DispatchPaypal)
}

// POST /api/v1/payments/razorpay
func (h *PaymentHandler) Razorpay(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.payments.DispatchRazorpay)
}

func (h *PaymentHandler) handle(w http.ResponseWriter, r *http.Request, dispatch func(context.Context, payment.Request) payment.Result) {
	var req payment.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, r, http.StatusOK, payment.Result{
			Status:  payment.StatusFailed,
			Message: "payment failed: invalid request body",
		})
		return
	}
	respondJSON(w, r, http.StatusOK, dispatch(r.Context(), req))
}
