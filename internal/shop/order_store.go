package shop

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderStore is an append-only log of finalized orders.
type OrderStore struct {
	db   querier
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: pool, pool: pool}
}

func NewOrderStoreWithTx(tx pgx.Tx) *OrderStore {
	return &OrderStore{db: tx, pool: nil}
}

// Create assigns a fresh order ID and creation timestamp and appends the
// order with its item snapshots. Existing orders are never touched.
func (s *OrderStore) Create(ctx context.Context, o Order) (Order, error) {
	if o.CustomerID == "" {
		return Order{}, fmt.Errorf("customerID is empty")
	}
	if len(o.Items) == 0 {
		return Order{}, fmt.Errorf("order has no items")
	}

	o.ID = uuid.New()
	o.Status = StatusPending

	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return Order{}, fmt.Errorf("marshal address: %w", err)
	}

	err = withTx(ctx, s.pool, s.db, func(q querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO orders (id, customer_id, total_amount, shipping_address, shipping_method, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`,
			o.ID, o.CustomerID, o.TotalAmount, addr, o.ShippingMethod, string(o.Status),
		).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range o.Items {
			_, err := q.Exec(ctx, `
				INSERT INTO order_items (order_id, product_id, size_label, display_name, unit_price, quantity)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, it.Key.ProductID, it.Key.SizeLabel, it.DisplayName, it.UnitPrice, it.Quantity)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (s *OrderStore) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customerID is empty")
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, customer_id, total_amount, shipping_address, shipping_method, status, created_at
		FROM orders
		WHERE customer_id=$1
		ORDER BY created_at DESC, id`,
		customerID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			o      Order
			addr   []byte
			status string
		)
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &addr, &o.ShippingMethod, &status, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal address: %w", err)
		}
		o.Status = Status(status)
		index[o.ID] = len(out)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	itemRows, err := s.db.Query(ctx, `
		SELECT order_id, product_id, size_label, display_name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID uuid.UUID
			it      OrderItem
		)
		if err := itemRows.Scan(&orderID, &it.Key.ProductID, &it.Key.SizeLabel, &it.DisplayName, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		i := index[orderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, itemRows.Err()
}
