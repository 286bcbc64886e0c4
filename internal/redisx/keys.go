package redisx

import "time"

const (
	// Cache status/total for an order: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Sales projection hashes: sales:qty (product_id -> units sold),
	// sales:revenue (product_id -> revenue in cents).
	KeySalesQty     = "sales:qty"
	KeySalesRevenue = "sales:revenue"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
