package shop_test

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	pg "github.com/susegad/supplies-backend/internal/postgres"
	"github.com/susegad/supplies-backend/internal/shop"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			"../postgres/migrations/0001_init.up.sql"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return postgresContainer, connStr, nil
}

// connect goes through the production pool constructor so the decimal
// codec is registered the same way as in the services.
func connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	return pg.Connect(ctx, connStr)
}

func insertVariant(ctx context.Context, pool *pgxpool.Pool, v shop.Variant) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO product_variants (product_id, size_label, display_name, unit_price, stock_count)
		VALUES ($1, $2, $3, $4, $5)`,
		v.ProductID, v.SizeLabel, v.DisplayName, v.UnitPrice, v.StockCount)
	return err
}

func randomVariant(stock int) shop.Variant {
	return shop.Variant{
		ProductID:   uuid.MustParse(gofakeit.UUID()),
		SizeLabel:   gofakeit.RandomString([]string{"250g", "500g", "1kg", "1 Piece"}),
		DisplayName: gofakeit.ProductName(),
		UnitPrice:   randomPrice(),
		StockCount:  stock,
	}
}

func randomPrice() decimal.Decimal {
	return decimal.NewFromFloat(gofakeit.Price(1, 100)).Round(2)
}

func randomCartLine() shop.CartLine {
	return shop.CartLine{
		Key: shop.VariantKey{
			ProductID: uuid.MustParse(gofakeit.UUID()),
			SizeLabel: "250g",
		},
		DisplayName: gofakeit.ProductName(),
		UnitPrice:   randomPrice(),
		Quantity:    gofakeit.Number(1, 5),
	}
}

func randomAddress() shop.Address {
	return shop.Address{
		Name:       gofakeit.Name(),
		Street:     gofakeit.Street(),
		City:       gofakeit.City(),
		State:      gofakeit.State(),
		PostalCode: gofakeit.Zip(),
	}
}
