// Package checkout runs the cart-to-order transaction. Cart validation,
// per-line stock reservation, the order insert and the cart delete all
// happen inside one Postgres transaction, so a failed checkout leaves no
// trace and a reader can never observe partially-decremented stock.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/susegad/supplies-backend/internal/shop"
)

// maxAttempts bounds retries on serialization/deadlock failures before
// the checkout surfaces ErrCheckoutConflict.
const maxAttempts = 3

// Beginner starts transactions; *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Request struct {
	CustomerID      string
	ShippingAddress shop.Address
	ShippingMethod  string
}

type Coordinator struct {
	db Beginner
}

func New(db Beginner) *Coordinator {
	return &Coordinator{db: db}
}

// Checkout converts the customer's cart into an order. On any domain
// failure (empty cart, dead line item, short stock) the transaction
// rolls back and nothing changed; contention with concurrent checkouts
// retries the whole attempt from the cart read.
func (c *Coordinator) Checkout(ctx context.Context, req Request) (shop.Order, error) {
	if req.CustomerID == "" {
		return shop.Order{}, fmt.Errorf("customerID is empty")
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		order, err := c.attempt(ctx, req)
		if err == nil {
			return order, nil
		}
		if isDomainErr(err) {
			return shop.Order{}, err
		}
		if isRetryable(err) {
			log.Printf("checkout %s: attempt %d conflicted: %v", req.CustomerID, attempt, err)
			continue
		}
		return shop.Order{}, fmt.Errorf("%w: %v", shop.ErrStorageUnavailable, err)
	}
	return shop.Order{}, shop.ErrCheckoutConflict
}

func (c *Coordinator) attempt(ctx context.Context, req Request) (_ shop.Order, err error) {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return shop.Order{}, fmt.Errorf("begin: %w", err)
	}
	// rollback is a no-op after commit
	defer func() { _ = tx.Rollback(ctx) }()

	carts := shop.NewCartStoreWithTx(tx)
	inventory := shop.NewInventoryStoreWithTx(tx)
	orders := shop.NewOrderStoreWithTx(tx)

	// Validating
	cart, err := carts.Get(ctx, req.CustomerID)
	if err != nil {
		return shop.Order{}, err
	}
	if cart.IsEmpty() {
		return shop.Order{}, shop.ErrEmptyCart
	}

	// Resolve every line before mutating any stock, so a cart holding a
	// deleted product aborts without touching the counters.
	for _, line := range cart.Lines {
		if _, err := inventory.GetVariant(ctx, line.Key); err != nil {
			if errors.Is(err, shop.ErrVariantNotFound) {
				return shop.Order{}, &shop.LineItemNotFoundError{
					DisplayName: line.DisplayName,
					Key:         line.Key.String(),
				}
			}
			return shop.Order{}, err
		}
	}

	// Reserving, in cart order. A failure here rolls back the earlier
	// decrements with the transaction; no manual compensation needed.
	for _, line := range cart.Lines {
		if _, err := inventory.Reserve(ctx, line.Key, line.Quantity); err != nil {
			var short *shop.InsufficientStockError
			if errors.As(err, &short) {
				if short.DisplayName == "" {
					short.DisplayName = line.DisplayName
				}
				return shop.Order{}, short
			}
			return shop.Order{}, err
		}
	}

	// Committing. The total is always recomputed from the line snapshots;
	// whatever total the client claims never reaches the order row.
	items := make([]shop.OrderItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, shop.OrderItem{
			Key:         line.Key,
			DisplayName: line.DisplayName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
		})
	}
	order, err := orders.Create(ctx, shop.Order{
		CustomerID:      req.CustomerID,
		Items:           items,
		TotalAmount:     cart.Total(),
		ShippingAddress: req.ShippingAddress,
		ShippingMethod:  req.ShippingMethod,
	})
	if err != nil {
		return shop.Order{}, err
	}
	if err := carts.Clear(ctx, req.CustomerID); err != nil {
		return shop.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return shop.Order{}, fmt.Errorf("commit: %w", err)
	}
	return order, nil
}

func isDomainErr(err error) bool {
	var (
		notFound *shop.LineItemNotFoundError
		short    *shop.InsufficientStockError
	)
	return errors.Is(err, shop.ErrEmptyCart) ||
		errors.As(err, &notFound) ||
		errors.As(err, &short)
}

// isRetryable reports write-write conflicts worth a fresh attempt:
// serialization failures (40001) and deadlocks (40P01).
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return errors.Is(err, pgx.ErrTxCommitRollback)
}
