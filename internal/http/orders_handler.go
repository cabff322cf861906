package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, shippingAddress, paymentMethod string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*domain.Order, error)
	AttachPayment(ctx context.Context, orderID uuid.UUID, paymentID string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
}

type OrdersHandler struct {
	orders OrderService
}

func NewOrdersHandler(orders OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type CreateOrderRequestDTO struct {
	UserID          int64  `json:"user_id"`
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

type AttachPaymentRequestDTO struct {
	PaymentID string `json:"payment_id"`
}

type OrderItemDTO struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type OrderResponseDTO struct {
	ID              string         `json:"id"`
	UserID          int64          `json:"user_id"`
	TotalAmount     string         `json:"total_amount"`
	Currency        string         `json:"currency"`
	Status          string         `json:"status"`
	ShippingAddress string         `json:"shipping_address"`
	PaymentMethod   string         `json:"payment_method"`
	PaymentID       *string        `json:"payment_id"`
	Items           []OrderItemDTO `json:"items"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, OrderItemDTO{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Subtotal:    line.Subtotal.StringFixed(2),
		})
	}
	return OrderResponseDTO{
		ID:              o.ID.String(),
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount.StringFixed(2),
		Currency:        o.Currency,
		Status:          o.Status.String(),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		PaymentID:       o.PaymentID,
		Items:           items,
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func convertOrders(orders []*domain.Order) []OrderResponseDTO {
	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	return dtos
}

// POST /api/v1/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		respondError(w, r, http.StatusBadRequest, "invalid_argument", "invalid request", "user_id must be a positive integer")
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req.UserID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, convertOrder(order))
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, convertOrders(orders))
}

// GET /api/v1/users/{user_id}/orders
func (h *OrdersHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := positiveIDParam(w, r, "user_id")
	if !ok {
		return
	}
	orders, err := h.orders.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, convertOrders(orders))
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, convertOrder(order))
}

// PUT /api/v1/orders/{order_id}/status?status=SHIPPED
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), orderID, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, convertOrder(order))
}

// PUT /api/v1/orders/{order_id}/payment
func (h *OrdersHandler) AttachPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req AttachPaymentRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.orders.AttachPayment(r.Context(), orderID, req.PaymentID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, convertOrder(order))
}

// DELETE /api/v1/orders/{order_id}
func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), orderID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
