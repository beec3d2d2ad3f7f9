package redisx

import "time"

const (
	// Cache of one order's status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Cache of a customer's order history: orders:{customer_id} -> JSON array
	KeyCustomerOrders = "orders:%s"

	// Cache of the storefront variant listing
	KeyVariantList = "variants:all"

	// Dedup of consumed events: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLListCache   = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
