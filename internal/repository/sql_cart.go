package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

func (r *SQLRepository) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	return getCart(ctx, r.db, userID)
}

func getCart(ctx context.Context, q queryer, userID int64) (*domain.Cart, error) {
	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}

	err := q.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, product_id, quantity, added_at FROM cart_lines
		 WHERE user_id = $1 ORDER BY added_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Quantity, &line.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return cart, nil
}

func (r *SQLRepository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (user_id, created_at, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING`,
		cart.UserID, cart.CreatedAt.UTC(), cart.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *SQLRepository) AddLine(ctx context.Context, userID int64, line domain.CartLine) error {
	now := line.AddedAt.UTC()
	return r.withTx(ctx, func(q queryer) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO carts (user_id, created_at, updated_at) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id) DO UPDATE SET updated_at = excluded.updated_at`,
			userID, now, now)
		if err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO cart_lines (id, user_id, product_id, quantity, added_at) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_lines.quantity + excluded.quantity`,
			line.ID, userID, line.ProductID, line.Quantity, now)
		if err != nil {
			return fmt.Errorf("merge cart line: %w", err)
		}
		return nil
	})
}

func (r *SQLRepository) SetLineQuantity(ctx context.Context, userID int64, lineID string, quantity int) error {
	return r.withTx(ctx, func(q queryer) error {
		res, err := q.ExecContext(ctx,
			`UPDATE cart_lines SET quantity = $1 WHERE user_id = $2 AND id = $3`,
			quantity, userID, lineID)
		if err != nil {
			return fmt.Errorf("update cart line: %w", err)
		}
		if err := expectAffected(res, domain.ErrCartLineNotFound); err != nil {
			return err
		}
		return touchCart(ctx, q, userID)
	})
}

func (r *SQLRepository) RemoveLine(ctx context.Context, userID int64, lineID string) error {
	return r.withTx(ctx, func(q queryer) error {
		res, err := q.ExecContext(ctx,
			`DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`, userID, lineID)
		if err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		if err := expectAffected(res, domain.ErrCartLineNotFound); err != nil {
			return err
		}
		return touchCart(ctx, q, userID)
	})
}

func (r *SQLRepository) ClearCart(ctx context.Context, userID int64) error {
	return r.withTx(ctx, func(q queryer) error {
		return clearCart(ctx, q, userID)
	})
}

func clearCart(ctx context.Context, q queryer, userID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	return touchCart(ctx, q, userID)
}

func touchCart(ctx context.Context, q queryer, userID int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE carts SET updated_at = $1 WHERE user_id = $2`, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
