package repository

import (
	"context"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

var ErrCartNotFound = fmt.Errorf("cart %w", domain.ErrNotFound)

type Credentials struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// Path is the sqlite database file.
	Path              string
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

// CartRepository stores one cart per user. Consumers depend on this interface, not on a backend.
type CartRepository interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	// CreateCart is a no-op when the user already has a cart.
	CreateCart(ctx context.Context, cart *domain.Cart) error
	// AddLine merges into the existing line for the same product, creating the cart if needed.
	AddLine(ctx context.Context, userID int64, line domain.CartLine) error
	SetLineQuantity(ctx context.Context, userID int64, lineID string, quantity int) error
	RemoveLine(ctx context.Context, userID int64, lineID string) error
	// ClearCart removes every line and succeeds for users without a cart.
	ClearCart(ctx context.Context, userID int64) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID int64) ([]*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// CheckoutStore persists a new order and empties the owner's cart as one unit.
type CheckoutStore interface {
	CommitCheckout(ctx context.Context, order *domain.Order) error
}

type ProductRepository interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}
