package redisx

import "time"

const (
	// Stock read cache: stock:{product_id}:{variant_id}:{warehouse_id} -> StockRecord JSON.
	// Variant segment is "-" when the record has no variant.
	KeyStock = "stock:%s:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// Short TTL: mutations invalidate where the key is known, releases
	// fan out by requester and rely on expiry instead.
	TTLStockCache = 10 * time.Second
	TTLDedup      = 48 * time.Hour
)
