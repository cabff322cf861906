package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLine(productID int64, quantity int) domain.CartLine {
	return domain.CartLine{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now().UTC(),
	}
}

func newTestOrder(userID int64, createdAt time.Time) *domain.Order {
	lines := []domain.OrderLine{
		domain.NewOrderLine(domain.Product{ID: 1, Name: "Wireless Mouse", Price: decimal.RequireFromString("10.00")}, 2),
		domain.NewOrderLine(domain.Product{ID: 2, Name: "USB-C Cable", Price: decimal.RequireFromString("5.00")}, 3),
	}
	return domain.NewOrder(userID, lines, "1 Main St", "stripe", createdAt.UTC())
}

// testCartRepository checks behaviour every cart backend must share.
func testCartRepository(t *testing.T, repo CartRepository) {
	ctx := context.Background()

	t.Run("get missing cart", func(t *testing.T) {
		cart, err := repo.GetCart(ctx, 1001)
		assert.ErrorIs(t, err, ErrCartNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, cart)
	})

	t.Run("create is idempotent", func(t *testing.T) {
		require.NoError(t, repo.CreateCart(ctx, domain.NewCart(1002, time.Now().UTC())))

		require.NoError(t, repo.AddLine(ctx, 1002, newLine(1, 1)))
		require.NoError(t, repo.CreateCart(ctx, domain.NewCart(1002, time.Now().UTC())))

		cart, err := repo.GetCart(ctx, 1002)
		require.NoError(t, err)
		assert.Len(t, cart.Lines, 1)
	})

	t.Run("add merges same product", func(t *testing.T) {
		userID := int64(1003)
		require.NoError(t, repo.AddLine(ctx, userID, newLine(1, 2)))
		require.NoError(t, repo.AddLine(ctx, userID, newLine(1, 3)))
		require.NoError(t, repo.AddLine(ctx, userID, newLine(2, 1)))

		cart, err := repo.GetCart(ctx, userID)
		require.NoError(t, err)
		require.Len(t, cart.Lines, 2)

		line, ok := cart.LineForProduct(1)
		require.True(t, ok)
		assert.Equal(t, 5, line.Quantity)
	})

	t.Run("set and remove line", func(t *testing.T) {
		userID := int64(1004)
		line := newLine(3, 1)
		require.NoError(t, repo.AddLine(ctx, userID, line))

		require.NoError(t, repo.SetLineQuantity(ctx, userID, line.ID, 7))
		cart, err := repo.GetCart(ctx, userID)
		require.NoError(t, err)
		got, ok := cart.Line(line.ID)
		require.True(t, ok)
		assert.Equal(t, 7, got.Quantity)

		require.NoError(t, repo.RemoveLine(ctx, userID, line.ID))
		cart, err = repo.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())

		assert.ErrorIs(t, repo.RemoveLine(ctx, userID, line.ID), domain.ErrCartLineNotFound)
		assert.ErrorIs(t, repo.SetLineQuantity(ctx, userID, "missing", 1), domain.ErrCartLineNotFound)
	})

	t.Run("line ids are scoped to the owner", func(t *testing.T) {
		line := newLine(4, 1)
		require.NoError(t, repo.AddLine(ctx, 1005, line))

		assert.ErrorIs(t, repo.RemoveLine(ctx, 1006, line.ID), domain.ErrCartLineNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		userID := int64(1007)
		require.NoError(t, repo.AddLine(ctx, userID, newLine(1, 1)))
		require.NoError(t, repo.AddLine(ctx, userID, newLine(2, 1)))

		require.NoError(t, repo.ClearCart(ctx, userID))
		require.NoError(t, repo.ClearCart(ctx, userID))
		require.NoError(t, repo.ClearCart(ctx, 99999))

		cart, err := repo.GetCart(ctx, userID)
		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())
	})

	t.Run("concurrent adds sum", func(t *testing.T) {
		userID := int64(1008)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.AddLine(ctx, userID, newLine(1, 1)))
			}()
		}
		wg.Wait()

		cart, err := repo.GetCart(ctx, userID)
		require.NoError(t, err)
		require.Len(t, cart.Lines, 1)
		assert.Equal(t, 10, cart.Lines[0].Quantity)
	})
}

// testOrderRepository checks behaviour every order backend must share.
func testOrderRepository(t *testing.T, repo OrderRepository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		order := newTestOrder(2001, time.Now())
		require.NoError(t, repo.CreateOrder(ctx, order))

		fetched, err := repo.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, fetched.ID)
		assert.Equal(t, order.UserID, fetched.UserID)
		assert.True(t, order.TotalAmount.Equal(fetched.TotalAmount), "total %s", fetched.TotalAmount)
		assert.Equal(t, domain.OrderStatusPending, fetched.Status)
		assert.Equal(t, "USD", fetched.Currency)
		assert.Equal(t, "1 Main St", fetched.ShippingAddress)
		assert.Equal(t, "stripe", fetched.PaymentMethod)
		assert.Nil(t, fetched.PaymentID)
		require.Len(t, fetched.Lines, 2)
		assert.Equal(t, "Wireless Mouse", fetched.Lines[0].ProductName)
		assert.True(t, decimal.RequireFromString("15").Equal(fetched.Lines[1].Subtotal))
		assert.WithinDuration(t, order.CreatedAt, fetched.CreatedAt, time.Millisecond)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetOrderByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("list by user newest first", func(t *testing.T) {
		base := time.Now()
		older := newTestOrder(2002, base.Add(-time.Hour))
		newer := newTestOrder(2002, base)
		other := newTestOrder(2003, base)
		require.NoError(t, repo.CreateOrder(ctx, older))
		require.NoError(t, repo.CreateOrder(ctx, newer))
		require.NoError(t, repo.CreateOrder(ctx, other))

		orders, err := repo.ListOrdersByUserID(ctx, 2002)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, newer.ID, orders[0].ID)
		assert.Equal(t, older.ID, orders[1].ID)

		none, err := repo.ListOrdersByUserID(ctx, 2999)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		all, err := repo.ListOrders(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 3)
	})

	t.Run("update", func(t *testing.T) {
		order := newTestOrder(2004, time.Now())
		require.NoError(t, repo.CreateOrder(ctx, order))

		order.AttachPayment("pay_123", time.Now().UTC())
		require.NoError(t, repo.UpdateOrder(ctx, order))

		fetched, err := repo.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusConfirmed, fetched.Status)
		require.NotNil(t, fetched.PaymentID)
		assert.Equal(t, "pay_123", *fetched.PaymentID)

		assert.ErrorIs(t, repo.UpdateOrder(ctx, newTestOrder(2004, time.Now())), domain.ErrOrderNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		order := newTestOrder(2005, time.Now())
		require.NoError(t, repo.CreateOrder(ctx, order))

		require.NoError(t, repo.DeleteOrder(ctx, order.ID))
		_, err := repo.GetOrderByID(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)

		assert.ErrorIs(t, repo.DeleteOrder(ctx, order.ID), domain.ErrOrderNotFound)
	})
}

type checkoutBackend interface {
	CartRepository
	OrderRepository
	CheckoutStore
}

func testCheckoutStore(t *testing.T, store checkoutBackend) {
	ctx := context.Background()
	userID := int64(3001)

	require.NoError(t, store.AddLine(ctx, userID, newLine(1, 2)))
	require.NoError(t, store.AddLine(ctx, userID, newLine(2, 3)))

	order := newTestOrder(userID, time.Now())
	require.NoError(t, store.CommitCheckout(ctx, order))

	cart, err := store.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	fetched, err := store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("35.00").Equal(fetched.TotalAmount))
}
