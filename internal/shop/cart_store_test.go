package shop_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/susegad/supplies-backend/internal/shop"
)

type cartStoreSuite struct {
	suite.Suite

	store *shop.CartStore
	pool  *pgxpool.Pool
}

func TestCartStoreSuite(t *testing.T) {
	suite.Run(t, new(cartStoreSuite))
}

func (suite *cartStoreSuite) SetupSuite() {
	ctx := suite.T().Context()

	_, connStr, err := startPostgres(ctx)
	suite.NoError(err)

	suite.pool, err = connect(ctx, connStr)
	suite.NoError(err)

	suite.store = shop.NewCartStore(suite.pool)
}

func (suite *cartStoreSuite) TearDownSuite() {
	if suite.pool != nil {
		suite.pool.Close()
	}
}

func (suite *cartStoreSuite) deleteAll() {
	_, err := suite.pool.Exec(suite.T().Context(), "TRUNCATE TABLE cart_items CASCADE")
	suite.NoError(err)
}

func (suite *cartStoreSuite) TestUpsertLine() {
	defer suite.deleteAll()

	line := randomCartLine()

	tests := []struct {
		name       string
		customerID string
		deltas     []int
		wantQty    int // 0 means the line is gone
		wantError  string
	}{
		{
			name:       "insert new line: ok",
			customerID: gofakeit.Email(),
			deltas:     []int{3},
			wantQty:    3,
		},
		{
			name:       "add to existing line: ok",
			customerID: gofakeit.Email(),
			deltas:     []int{2, 3},
			wantQty:    5,
		},
		{
			name:       "decrement to zero removes line",
			customerID: gofakeit.Email(),
			deltas:     []int{2, -2},
			wantQty:    0,
		},
		{
			name:       "decrement below zero removes line",
			customerID: gofakeit.Email(),
			deltas:     []int{1, -5},
			wantQty:    0,
		},
		{
			name:       "negative delta on missing line is a no-op",
			customerID: gofakeit.Email(),
			deltas:     []int{-3},
			wantQty:    0,
		},
		{
			name:       "empty customer ID: error",
			customerID: "",
			deltas:     []int{1},
			wantError:  "customerID is empty",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			var (
				cart shop.Cart
				err  error
			)
			for _, delta := range tt.deltas {
				cart, err = suite.store.UpsertLine(ctx, tt.customerID, line.Key, delta, line.UnitPrice, line.DisplayName)
				if tt.wantError != "" {
					require.EqualError(t, err, tt.wantError)
					return
				}
				require.NoError(t, err)
			}

			if tt.wantQty == 0 {
				assert.Empty(t, cart.Lines)
				return
			}
			require.Len(t, cart.Lines, 1)
			assert.Equal(t, tt.wantQty, cart.Lines[0].Quantity)
			assertCartLine(t, line, cart.Lines[0])
		})
	}
}

func (suite *cartStoreSuite) TestUpsertLineKeepsSnapshot() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	customerID := gofakeit.Email()
	line := randomCartLine()

	_, err := suite.store.UpsertLine(ctx, customerID, line.Key, 1, line.UnitPrice, line.DisplayName)
	require.NoError(t, err)

	// A later delta with a different price must not rewrite the snapshot
	// taken at add-to-cart time.
	cart, err := suite.store.UpsertLine(ctx, customerID, line.Key, 2, line.UnitPrice.Add(decimal.NewFromInt(7)), "renamed")
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assertCartLine(t, line, cart.Lines[0])
}

func (suite *cartStoreSuite) TestGet() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	// missing cart reads as empty, not as an error
	cart, err := suite.store.Get(ctx, gofakeit.Email())
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, err = suite.store.Get(ctx, "")
	require.EqualError(t, err, "customerID is empty")

	// lines come back in insertion order
	customerID := gofakeit.Email()
	first, second := randomCartLine(), randomCartLine()
	for _, l := range []shop.CartLine{first, second} {
		_, err := suite.store.UpsertLine(ctx, customerID, l.Key, l.Quantity, l.UnitPrice, l.DisplayName)
		require.NoError(t, err)
	}

	cart, err = suite.store.Get(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assertCartLine(t, first, cart.Lines[0])
	assertCartLine(t, second, cart.Lines[1])
}

func (suite *cartStoreSuite) TestTotal() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	customerID := gofakeit.Email()

	a, b := randomCartLine(), randomCartLine()
	a.Quantity, b.Quantity = 2, 3
	for _, l := range []shop.CartLine{a, b} {
		_, err := suite.store.UpsertLine(ctx, customerID, l.Key, l.Quantity, l.UnitPrice, l.DisplayName)
		require.NoError(t, err)
	}

	cart, err := suite.store.Get(ctx, customerID)
	require.NoError(t, err)

	want := a.UnitPrice.Mul(decimal.NewFromInt(2)).Add(b.UnitPrice.Mul(decimal.NewFromInt(3)))
	assert.True(t, want.Equal(cart.Total()), "want %s, got %s", want, cart.Total())
}

func (suite *cartStoreSuite) TestClear() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()
	customerID := gofakeit.Email()

	line := randomCartLine()
	_, err := suite.store.UpsertLine(ctx, customerID, line.Key, line.Quantity, line.UnitPrice, line.DisplayName)
	require.NoError(t, err)

	require.NoError(t, suite.store.Clear(ctx, customerID))

	cart, err := suite.store.Get(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	// clearing an already-empty cart succeeds
	require.NoError(t, suite.store.Clear(ctx, customerID))

	require.EqualError(t, suite.store.Clear(ctx, ""), "customerID is empty")
}

func assertCartLine(t *testing.T, expected, actual shop.CartLine) {
	t.Helper()

	opts := cmp.Options{
		cmpopts.IgnoreFields(shop.CartLine{}, "CreatedAt", "Quantity"),
		decimalComparer(),
	}
	assert.Empty(t, cmp.Diff(expected, actual, opts))
	assert.False(t, actual.CreatedAt.IsZero())
}

func decimalComparer() cmp.Option {
	return cmp.Comparer(func(x, y decimal.Decimal) bool {
		return x.Equal(y)
	})
}
