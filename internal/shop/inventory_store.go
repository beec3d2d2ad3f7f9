package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryStore owns the stock counters. Reserve is the only legal way
// to take stock out; it is a single conditional decrement, never a
// read-then-write pair, so concurrent checkouts can never oversell.
type InventoryStore struct{ db querier }

func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{db: pool}
}

func NewInventoryStoreWithTx(tx pgx.Tx) *InventoryStore {
	return &InventoryStore{db: tx}
}

func (s *InventoryStore) GetVariant(ctx context.Context, key VariantKey) (Variant, error) {
	var v Variant
	err := s.db.QueryRow(ctx, `
		SELECT product_id, size_label, display_name, unit_price, stock_count, created_at, updated_at
		FROM product_variants
		WHERE product_id=$1 AND size_label=$2`,
		key.ProductID, key.SizeLabel,
	).Scan(&v.ProductID, &v.SizeLabel, &v.DisplayName, &v.UnitPrice, &v.StockCount, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Variant{}, ErrVariantNotFound
	}
	if err != nil {
		return Variant{}, fmt.Errorf("select variant: %w", err)
	}
	return v, nil
}

func (s *InventoryStore) ListVariants(ctx context.Context) ([]Variant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT product_id, size_label, display_name, unit_price, stock_count, created_at, updated_at
		FROM product_variants
		ORDER BY display_name, size_label`)
	if err != nil {
		return nil, fmt.Errorf("select variants: %w", err)
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ProductID, &v.SizeLabel, &v.DisplayName, &v.UnitPrice, &v.StockCount, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Reserve atomically checks stock_count >= qty and decrements it in the
// same statement, returning the updated count. When the condition fails
// it reports InsufficientStockError whether the variant is short or
// missing entirely; callers that need to tell the two apart resolve the
// key with GetVariant first.
func (s *InventoryStore) Reserve(ctx context.Context, key VariantKey, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("reserve %s: quantity must be positive, got %d", key, qty)
	}

	var remaining int
	err := s.db.QueryRow(ctx, `
		UPDATE product_variants
		SET stock_count = stock_count - $3, updated_at = now()
		WHERE product_id=$1 AND size_label=$2 AND stock_count >= $3
		RETURNING stock_count`,
		key.ProductID, key.SizeLabel, qty,
	).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reserve %s: %w", key, err)
	}

	// Condition failed: report what is actually left (0 for a missing variant).
	stockErr := &InsufficientStockError{Requested: qty}
	var name string
	var left int
	lookupErr := s.db.QueryRow(ctx, `
		SELECT display_name, stock_count FROM product_variants
		WHERE product_id=$1 AND size_label=$2`,
		key.ProductID, key.SizeLabel,
	).Scan(&name, &left)
	if lookupErr == nil {
		stockErr.DisplayName = name
		stockErr.Remaining = left
	} else if !errors.Is(lookupErr, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reserve %s: %w", key, lookupErr)
	}
	return 0, stockErr
}

// Release is the compensating increment for a reservation that must be
// rolled back without a shared transaction. It is not idempotent; each
// call adds qty back.
func (s *InventoryStore) Release(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release %s: quantity must be positive, got %d", key, qty)
	}

	ct, err := s.db.Exec(ctx, `
		UPDATE product_variants
		SET stock_count = stock_count + $3, updated_at = now()
		WHERE product_id=$1 AND size_label=$2`,
		key.ProductID, key.SizeLabel, qty)
	if err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrVariantNotFound
	}
	return nil
}
