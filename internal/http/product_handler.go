package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
)

type ProductCatalog interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductHandler struct {
	catalog ProductCatalog
}

func NewProductHandler(catalog ProductCatalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.GetAllProducts(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, r, http.StatusOK, ProductsResponse{Products: products})
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := positiveIDParam(w, r, "product_id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}
