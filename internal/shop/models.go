package shop

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is one purchasable size of a product, with its own live stock
// and price. Product creation/editing is owned by the catalog admin API;
// this service only ever moves stock through InventoryStore.Reserve.
type Variant struct {
	ProductID   uuid.UUID
	SizeLabel   string
	DisplayName string
	UnitPrice   decimal.Decimal
	StockCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (v Variant) Key() VariantKey {
	return VariantKey{ProductID: v.ProductID, SizeLabel: v.SizeLabel}
}

// CartLine is a pending purchase of one variant. Price and name are
// snapshots taken at add-to-cart time and survive later catalog edits.
type CartLine struct {
	Key         VariantKey
	DisplayName string
	UnitPrice   decimal.Decimal
	Quantity    int
	CreatedAt   time.Time
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds a customer's pending lines in insertion order. A customer
// with no stored cart gets an empty Cart, never an error.
type Cart struct {
	CustomerID string
	Lines      []CartLine
}

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Total sums unit-price snapshots times quantities over all lines.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Address is the shipping destination snapshot stored on an order.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone,omitempty"`
}

type OrderItem struct {
	Key         VariantKey
	DisplayName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Order is immutable once created. Items are a historical copy of the
// cart lines at purchase time, decoupled from later variant mutation.
type Order struct {
	ID              uuid.UUID
	CustomerID      string
	Items           []OrderItem
	TotalAmount     decimal.Decimal
	ShippingAddress Address
	ShippingMethod  string
	Status          Status
	CreatedAt       time.Time
}
