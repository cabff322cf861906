package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultClearAttempts = 3
	defaultClearBackoff  = 50 * time.Millisecond
)

type OrderService struct {
	users    repository.UserRepository
	catalog  repository.ProductRepository
	carts    *CartService
	orders   repository.OrderRepository
	checkout repository.CheckoutStore
	notifier Notifier
	metrics  *metrics.Metrics
	locks    *keyedMutex[uuid.UUID]
	log      zerolog.Logger
	now      func() time.Time

	clearAttempts int
	clearBackoff  time.Duration
}

type OrderServiceDeps struct {
	Users   repository.UserRepository
	Catalog repository.ProductRepository
	Carts   *CartService
	Orders  repository.OrderRepository
	// Checkout is optional. Without it the order insert and cart clear are compensated instead of atomic.
	Checkout repository.CheckoutStore
	Notifier Notifier
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

func NewOrderService(deps OrderServiceDeps) *OrderService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderService{
		users:         deps.Users,
		catalog:       deps.Catalog,
		carts:         deps.Carts,
		orders:        deps.Orders,
		checkout:      deps.Checkout,
		notifier:      notifier,
		metrics:       deps.Metrics,
		locks:         newKeyedMutex[uuid.UUID](),
		log:           deps.Log.With().Str("component", "order_service").Logger(),
		now:           func() time.Time { return time.Now().UTC() },
		clearAttempts: defaultClearAttempts,
		clearBackoff:  defaultClearBackoff,
	}
}

// CreateOrder converts the user's cart into a PENDING order priced at current catalog prices
// and empties the cart. The order and the cleared cart are committed together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, shippingAddress, paymentMethod string) (*domain.Order, error) {
	log := logger.FromContext(ctx, s.log)

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.carts.lockCart(userID)
	defer unlock()

	cart, err := s.carts.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, domain.ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	lines, err := s.priceLines(ctx, cart)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(userID, lines, shippingAddress, paymentMethod, s.now())
	if err := s.commit(ctx, order); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("order_id", order.ID.String()).Msg("order commit failed")
		return nil, err
	}

	s.metrics.OrderCreated()
	log.Info().
		Str("order_id", order.ID.String()).
		Int64("user_id", userID).
		Str("total", order.TotalAmount.StringFixed(2)).
		Int("lines", len(order.Lines)).
		Msg("order created")

	s.notify(ctx, domain.EventOrderCreated, *user, order)
	return order.Clone(), nil
}

// priceLines freezes the current catalog price of every cart line.
func (s *OrderService) priceLines(ctx context.Context, cart *domain.Cart) ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, 0, len(cart.Lines))
	for _, item := range cart.Lines {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price product %d: %w", item.ProductID, err)
		}
		lines = append(lines, domain.NewOrderLine(*product, item.Quantity))
	}
	return lines, nil
}

func (s *OrderService) commit(ctx context.Context, order *domain.Order) error {
	if s.checkout != nil {
		if err := s.checkout.CommitCheckout(ctx, order); err != nil {
			return fmt.Errorf("commit checkout: %w", err)
		}
		return nil
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	clearErr := s.clearCartWithRetry(ctx, order.UserID)
	if clearErr == nil {
		return nil
	}

	// The cart still holds the lines, so the order must not survive.
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.orders.DeleteOrder(compCtx, order.ID); err != nil {
		return errors.Join(
			fmt.Errorf("clear cart: %w", clearErr),
			fmt.Errorf("roll back order %s: %w", order.ID, err),
		)
	}
	return fmt.Errorf("clear cart: %w", clearErr)
}

func (s *OrderService) clearCartWithRetry(ctx context.Context, userID int64) error {
	var err error
	backoff := s.clearBackoff
	for attempt := 1; attempt <= s.clearAttempts; attempt++ {
		if err = s.carts.repo.ClearCart(ctx, userID); err == nil {
			return nil
		}
		logger.FromContext(ctx, s.log).Warn().Err(err).Int("attempt", attempt).Int64("user_id", userID).Msg("cart clear failed")
		if attempt == s.clearAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// UpdateStatus sets any status regardless of the current one.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*domain.Order, error) {
	newStatus, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	return s.mutateOrder(ctx, orderID, func(o *domain.Order) {
		o.SetStatus(newStatus, s.now())
	})
}

// AttachPayment records the payment id and confirms the order.
func (s *OrderService) AttachPayment(ctx context.Context, orderID uuid.UUID, paymentID string) (*domain.Order, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, domain.ErrMissingPaymentID
	}

	return s.mutateOrder(ctx, orderID, func(o *domain.Order) {
		o.AttachPayment(paymentID, s.now())
	})
}

func (s *OrderService) mutateOrder(ctx context.Context, orderID uuid.UUID, apply func(*domain.Order)) (*domain.Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	apply(order)
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	logger.FromContext(ctx, s.log).Info().
		Str("order_id", orderID.String()).
		Str("from", previous.String()).
		Str("to", order.Status.String()).
		Msg("order status changed")

	user := domain.User{ID: order.UserID}
	if u, err := s.users.GetUser(ctx, order.UserID); err == nil {
		user = *u
	} else {
		logger.FromContext(ctx, s.log).Warn().Err(err).Int64("user_id", order.UserID).Msg("user lookup for notification failed")
	}
	s.notify(ctx, domain.EventOrderStatusChanged, user, order)

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrderByID(ctx, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListOrdersByUser returns the user's orders newest first, or an empty slice.
func (s *OrderService) ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	return orders, nil
}

// DeleteOrder removes the order without touching carts or emitting events.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	unlock := s.locks.Lock(orderID)
	defer unlock()
	return s.orders.DeleteOrder(ctx, orderID)
}

func (s *OrderService) notify(ctx context.Context, t domain.EventType, user domain.User, order *domain.Order) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx, s.log).Error().Interface("panic", r).Str("order_id", order.ID.String()).Msg("notifier panicked")
		}
	}()
	s.notifier.Notify(domain.NewOrderEvent(t, user, order, s.now()))
}
