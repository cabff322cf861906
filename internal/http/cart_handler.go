package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID int64, lineID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID int64, lineID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

type CartHandler struct {
	carts CartService
}

func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateItemRequestDTO struct {
	Quantity int `json:"quantity"`
}

// GET /api/v1/cart/{user_id}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := positiveIDParam(w, r, "user_id")
	if !ok {
		return
	}
	cart, err := h.carts.GetOrCreateCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cart)
}

// POST /api/v1/cart/{user_id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := positiveIDParam(w, r, "user_id")
	if !ok {
		return
	}
	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, cart)
}

// PUT /api/v1/cart/{user_id}/items/{line_id}
// A quantity of zero or less removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := positiveIDParam(w, r, "user_id")
	if !ok {
		return
	}
	var req UpdateItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := h.carts.UpdateItem(r.Context(), userID, chi.URLParam(r, "line_id"), req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cart)
}

// DELETE /api/v1/cart/{user_id}/items/{line_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := positiveIDParam(w, r, "user_id")
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(r.Context(), userID, chi.URLParam(r, "line_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cart)
}

// DELETE /api/v1/cart/{user_id}
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := positiveIDParam(w, r, "user_id")
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
