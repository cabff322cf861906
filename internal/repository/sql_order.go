package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

const orderColumns = `id, user_id, total_amount, currency, status, shipping_address, payment_method, payment_id, items, created_at, updated_at`

func (r *SQLRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	return insertOrder(ctx, r.db, order)
}

func insertOrder(ctx context.Context, q queryer, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order lines: %w", err)
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = q.ExecContext(ctx, query,
		order.ID.String(),
		order.UserID,
		order.TotalAmount,
		order.Currency,
		string(order.Status),
		order.ShippingAddress,
		order.PaymentMethod,
		nullString(order.PaymentID),
		string(itemsJSON),
		order.CreatedAt.UTC(),
		order.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// CommitCheckout inserts the order and clears the owner's cart in one transaction.
func (r *SQLRepository) CommitCheckout(ctx context.Context, order *domain.Order) error {
	return r.withTx(ctx, func(q queryer) error {
		if err := insertOrder(ctx, q, order); err != nil {
			return err
		}
		return clearCart(ctx, q, order.UserID)
	})
}

func (r *SQLRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *SQLRepository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	return r.listOrders(ctx, query)
}

func (r *SQLRepository) ListOrdersByUserID(ctx context.Context, userID int64) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`
	return r.listOrders(ctx, query, userID)
}

func (r *SQLRepository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *SQLRepository) UpdateOrder(ctx context.Context, order *domain.Order) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, payment_id = $2, updated_at = $3 WHERE id = $4`,
		string(order.Status), nullString(order.PaymentID), order.UpdatedAt.UTC(), order.ID.String())
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return expectAffected(res, domain.ErrOrderNotFound)
}

func (r *SQLRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectAffected(res, domain.ErrOrderNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order     domain.Order
		status    string
		paymentID sql.NullString
		itemsJSON []byte
	)
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Currency,
		&status,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&paymentID,
		&itemsJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	if paymentID.Valid {
		order.PaymentID = &paymentID.String
	}
	if err := json.Unmarshal(itemsJSON, &order.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	return &order, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
