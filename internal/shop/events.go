package shop

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated = "OrderCreated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g. "supplies-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderItemSnapshot struct {
	VariantKey  string          `json:"variant_key"`
	DisplayName string          `json:"display_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Qty         int             `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID        string              `json:"order_id"`
	CustomerID     string              `json:"customer_id"` // customer's email address
	Items          []OrderItemSnapshot `json:"items"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	ShippingMethod string              `json:"shipping_method"`
}

func NewOrderCreatedPayload(o Order) OrderCreatedPayload {
	items := make([]OrderItemSnapshot, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemSnapshot{
			VariantKey:  it.Key.String(),
			DisplayName: it.DisplayName,
			UnitPrice:   it.UnitPrice,
			Qty:         it.Quantity,
		})
	}
	return OrderCreatedPayload{
		OrderID:        o.ID.String(),
		CustomerID:     o.CustomerID,
		Items:          items,
		TotalAmount:    o.TotalAmount,
		ShippingMethod: o.ShippingMethod,
	}
}
