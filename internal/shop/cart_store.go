package shop

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CartStore holds the mutable pre-checkout lines, one cart per customer.
type CartStore struct {
	db   querier
	pool *pgxpool.Pool
}

func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{db: pool, pool: pool}
}

func NewCartStoreWithTx(tx pgx.Tx) *CartStore {
	return &CartStore{db: tx, pool: nil} // run on the caller's transaction
}

// Get returns the customer's cart, empty when none exists.
func (s *CartStore) Get(ctx context.Context, customerID string) (Cart, error) {
	if customerID == "" {
		return Cart{}, fmt.Errorf("customerID is empty")
	}

	rows, err := s.db.Query(ctx, `
		SELECT product_id, size_label, display_name, unit_price, quantity, created_at
		FROM cart_items
		WHERE customer_id=$1
		ORDER BY created_at, product_id, size_label`,
		customerID)
	if err != nil {
		return Cart{}, fmt.Errorf("select cart: %w", err)
	}
	defer rows.Close()

	cart := Cart{CustomerID: customerID}
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.Key.ProductID, &l.Key.SizeLabel, &l.DisplayName, &l.UnitPrice, &l.Quantity, &l.CreatedAt); err != nil {
			return Cart{}, err
		}
		cart.Lines = append(cart.Lines, l)
	}
	return cart, rows.Err()
}

// UpsertLine applies a quantity delta to one line. A positive delta on a
// missing line inserts it with the given price/name snapshot; a delta on
// an existing line keeps its original snapshot and only moves quantity;
// a line whose quantity reaches zero or below is removed. This is the
// only cart update primitive.
func (s *CartStore) UpsertLine(ctx context.Context, customerID string, key VariantKey, delta int, unitPrice decimal.Decimal, displayName string) (Cart, error) {
	if customerID == "" {
		return Cart{}, fmt.Errorf("customerID is empty")
	}
	if delta == 0 {
		return s.Get(ctx, customerID)
	}

	err := withTx(ctx, s.pool, s.db, func(q querier) error {
		if delta > 0 {
			_, err := q.Exec(ctx, `
				INSERT INTO cart_items (customer_id, product_id, size_label, display_name, unit_price, quantity)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (customer_id, product_id, size_label)
				DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
				customerID, key.ProductID, key.SizeLabel, displayName, unitPrice, delta)
			if err != nil {
				return fmt.Errorf("upsert line: %w", err)
			}
			return nil
		}

		// Negative delta never creates a line, it only shrinks an existing
		// one. Remove first so the decrement cannot land on a line that is
		// already headed to zero or below.
		_, err := q.Exec(ctx, `
			DELETE FROM cart_items
			WHERE customer_id=$1 AND product_id=$2 AND size_label=$3 AND quantity + $4 <= 0`,
			customerID, key.ProductID, key.SizeLabel, delta)
		if err != nil {
			return fmt.Errorf("remove line: %w", err)
		}
		_, err = q.Exec(ctx, `
			UPDATE cart_items SET quantity = quantity + $4
			WHERE customer_id=$1 AND product_id=$2 AND size_label=$3`,
			customerID, key.ProductID, key.SizeLabel, delta)
		if err != nil {
			return fmt.Errorf("decrement line: %w", err)
		}
		return nil
	})
	if err != nil {
		return Cart{}, err
	}

	return s.Get(ctx, customerID)
}

// Clear removes the whole cart. Clearing an absent cart is a no-op.
func (s *CartStore) Clear(ctx context.Context, customerID string) error {
	if customerID == "" {
		return fmt.Errorf("customerID is empty")
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE customer_id=$1`, customerID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
