package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	alice   int64 = 1
	bob     int64 = 2
	mouse   int64 = 10
	cable   int64 = 20
	unknown int64 = 999
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (n *recordingNotifier) Notify(evt domain.OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) Events() []domain.OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OrderEvent(nil), n.events...)
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(domain.OrderEvent) { panic("mail server exploded") }

var errClear = errors.New("cart store unavailable")

// flakyCartRepo fails ClearCart a fixed number of times, or always when failures is negative.
type flakyCartRepo struct {
	repository.CartRepository
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyCartRepo) ClearCart(ctx context.Context, userID int64) error {
	f.mu.Lock()
	f.calls++
	fail := f.failures != 0
	if f.failures > 0 {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		return errClear
	}
	return f.CartRepository.ClearCart(ctx, userID)
}

type undeletableOrders struct {
	repository.OrderRepository
}

func (undeletableOrders) DeleteOrder(context.Context, uuid.UUID) error {
	return errors.New("orders store unavailable")
}

type fixtureOpts struct {
	cartRepo   repository.CartRepository
	orderRepo  repository.OrderRepository
	noCheckout bool
	notifier   Notifier
	cartCache  cache.CartCache
}

type fixture struct {
	store    *repository.MemoryStore
	carts    *CartService
	orders   *OrderService
	notifier *recordingNotifier
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	store.PutUser(domain.User{ID: alice, Name: "Alice", Email: "alice@example.com", Phone: "+15550100001"})
	store.PutUser(domain.User{ID: bob, Name: "Bob", Email: "bob@example.com"})
	store.PutProduct(domain.Product{ID: mouse, Name: "Wireless Mouse", Price: decimal.RequireFromString("10.00")})
	store.PutProduct(domain.Product{ID: cable, Name: "USB-C Cable", Price: decimal.RequireFromString("5.00")})

	var cartRepo repository.CartRepository = store
	if opts.cartRepo != nil {
		cartRepo = opts.cartRepo
	}
	var orderRepo repository.OrderRepository = store
	if opts.orderRepo != nil {
		orderRepo = opts.orderRepo
	}
	var checkout repository.CheckoutStore = store
	if opts.noCheckout {
		checkout = nil
	}

	rec := &recordingNotifier{}
	var notifier Notifier = rec
	if opts.notifier != nil {
		notifier = opts.notifier
	}

	m := metrics.New(nil)
	carts := NewCartService(store, store, cartRepo, opts.cartCache, zerolog.Nop())
	orders := NewOrderService(OrderServiceDeps{
		Users:    store,
		Catalog:  store,
		Carts:    carts,
		Orders:   orderRepo,
		Checkout: checkout,
		Notifier: notifier,
		Metrics:  m,
		Log:      zerolog.Nop(),
	})
	orders.clearBackoff = 0

	return &fixture{store: store, carts: carts, orders: orders, notifier: rec, metrics: m}
}

func (f *fixture) addItem(t *testing.T, userID, productID int64, quantity int) *domain.Cart {
	t.Helper()
	cart, err := f.carts.AddItem(context.Background(), userID, productID, quantity)
	require.NoError(t, err)
	return cart
}
