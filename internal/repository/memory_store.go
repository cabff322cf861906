package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps users, products, carts and orders in process memory.
// A single lock guards everything, so CommitCheckout is atomic.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[int64]*domain.User
	products map[int64]*domain.Product
	carts    map[int64]*domain.Cart      // userID -> cart
	orders   map[uuid.UUID]*domain.Order // orderID -> order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*domain.User),
		products: make(map[int64]*domain.Product),
		carts:    make(map[int64]*domain.Cart),
		orders:   make(map[uuid.UUID]*domain.Order),
	}
}

func (s *MemoryStore) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *MemoryStore) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetAllProducts(_ context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		products = append(products, &cp)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *MemoryStore) UpdateProductPrice(_ context.Context, id int64, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Price = price
	return nil
}

func (s *MemoryStore) GetCart(_ context.Context, userID int64) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (s *MemoryStore) CreateCart(_ context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.carts[cart.UserID]; !exists {
		s.carts[cart.UserID] = cart.Clone()
	}
	return nil
}

func (s *MemoryStore) AddLine(_ context.Context, userID int64, line domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		cart = domain.NewCart(userID, line.AddedAt)
		s.carts[userID] = cart
	}

	if existing, found := cart.LineForProduct(line.ProductID); found {
		existing.Quantity += line.Quantity
	} else {
		cart.Lines = append(cart.Lines, line)
	}
	cart.UpdatedAt = line.AddedAt
	return nil
}

func (s *MemoryStore) SetLineQuantity(_ context.Context, userID int64, lineID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	line, found := cart.Line(lineID)
	if !found {
		return domain.ErrCartLineNotFound
	}
	line.Quantity = quantity
	cart.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) RemoveLine(_ context.Context, userID int64, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrCartLineNotFound
}

func (s *MemoryStore) ClearCart(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCartLocked(userID)
	return nil
}

func (s *MemoryStore) clearCartLocked(userID int64) {
	if cart, ok := s.carts[userID]; ok {
		cart.Lines = []domain.CartLine{}
		cart.UpdatedAt = time.Now()
	}
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *MemoryStore) CommitCheckout(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = order.Clone()
	s.clearCartLocked(order.UserID)
	return nil
}

func (s *MemoryStore) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]*domain.Order, error) {
	return s.filterOrders(func(*domain.Order) bool { return true }), nil
}

func (s *MemoryStore) ListOrdersByUserID(_ context.Context, userID int64) ([]*domain.Order, error) {
	return s.filterOrders(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

// filterOrders returns matching orders newest first.
func (s *MemoryStore) filterOrders(keep func(*domain.Order) bool) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []*domain.Order{}
	for _, o := range s.orders {
		if keep(o) {
			orders = append(orders, o.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID.String() < orders[j].ID.String()
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

func (s *MemoryStore) UpdateOrder(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *MemoryStore) DeleteOrder(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}
